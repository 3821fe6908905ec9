package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"os/signal"
	"runtime"
	"strings"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/muesli/termenv"
	"github.com/spf13/pflag"

	"github.com/CaptShanks/sqitchprism/internal/config"
	"github.com/CaptShanks/sqitchprism/internal/export"
	"github.com/CaptShanks/sqitchprism/internal/graph"
	"github.com/CaptShanks/sqitchprism/internal/history"
	"github.com/CaptShanks/sqitchprism/internal/parser"
	"github.com/CaptShanks/sqitchprism/internal/server"
	"github.com/CaptShanks/sqitchprism/internal/tui"
	"github.com/CaptShanks/sqitchprism/internal/updater"
)

const version = "0.1.0"

// defaultPlanFile is what sqitch itself reads when no plan is named
const defaultPlanFile = "sqitch.plan"

var cfg config.Config

func main() {
	args := os.Args[1:]

	var err error
	cfg, err = config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}
	applyTheme(cfg.Theme)

	if len(args) == 0 {
		runViewMode(nil)
		return
	}
	switch args[0] {
	case "-h", "--help", "help":
		printUsage()
	case "-v", "--version", "version":
		runVersionMode()
	case "graph":
		runGraphMode(args[1:])
	case "serve":
		runServeMode(args[1:])
	case "export":
		runExportMode(args[1:])
	case "history":
		runHistoryMode(args[1:])
	case "upgrade":
		runUpgradeMode()
	default:
		runViewMode(args)
	}
}

func applyTheme(theme string) {
	switch theme {
	case config.ThemeLight:
		tui.SetLightPalette()
	case config.ThemeDark:
		tui.SetDarkPalette()
	default:
		if !termenv.HasDarkBackground() {
			tui.SetLightPalette()
		}
	}
}

// isPlanPath reports whether path looks like a sqitch plan file
func isPlanPath(path string) bool {
	return strings.Contains(path, ".plan")
}

// rejectNonPlan exits quietly when inputFile names something other than a plan
func rejectNonPlan(inputFile string) {
	if inputFile != "" && inputFile != "-" && !isPlanPath(inputFile) {
		fmt.Println("This is not a sqitch plan file")
		os.Exit(0)
	}
}

// resolveInput picks the plan source: the named file, piped stdin, or
// ./sqitch.plan. It returns "" when there is nothing to read.
func resolveInput(inputFile string) string {
	if inputFile != "" {
		return inputFile
	}
	if stat, err := os.Stdin.Stat(); err == nil && stat.Mode()&os.ModeCharDevice == 0 {
		return "-"
	}
	if _, err := os.Stat(defaultPlanFile); err == nil {
		return defaultPlanFile
	}
	return ""
}

// readPlanText reads the plan from a file, or from stdin when source is "-"
func readPlanText(source string) (string, error) {
	var input io.Reader
	if source == "-" {
		input = os.Stdin
	} else {
		file, err := os.Open(source)
		if err != nil {
			return "", fmt.Errorf("opening file: %w", err)
		}
		defer file.Close()
		input = file
	}

	var lines []string
	scanner := bufio.NewScanner(input)
	buf := make([]byte, 0, 64*1024)
	scanner.Buffer(buf, 1024*1024)
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		return "", fmt.Errorf("reading input: %w", err)
	}
	return strings.Join(lines, "\n"), nil
}

// loadPlan resolves, reads and parses the plan, exiting on failure
func loadPlan(inputFile string, usage func()) (source, text string, plan *parser.Plan) {
	rejectNonPlan(inputFile)

	source = resolveInput(inputFile)
	if source == "" {
		usage()
		os.Exit(0)
	}

	text, err := readPlanText(source)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error %v\n", err)
		os.Exit(1)
	}

	plan, err = parser.Parse(text)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error parsing plan: %v\n", err)
		os.Exit(1)
	}
	return source, text, plan
}

// saveHistory snapshots the plan source; failures only warn
func saveHistory(plan *parser.Plan, command, source, text string) {
	project := plan.Project()
	if project == "" {
		project = history.GetWorkingDir()
	}
	if source == "-" {
		source = ""
	}
	if _, err := history.CreateHistoryFile(project, command, source, text); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: Failed to save history: %v\n", err)
	}
	if deleted, _ := history.CleanupOldFiles(cfg.History.MaxFiles); deleted > 0 {
		fmt.Fprintf(os.Stderr, "Cleaned up %d old history files\n", deleted)
	}
}

// parseFlags parses a subcommand's flags; -h prints usage and exits 0
func parseFlags(fs *pflag.FlagSet, args []string, usage func()) {
	fs.Usage = usage
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			os.Exit(0)
		}
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		fmt.Fprintf(os.Stderr, "Use 'sqitchprism %s --help' for usage\n", fs.Name())
		os.Exit(1)
	}
	if fs.NArg() > 1 {
		fmt.Fprintf(os.Stderr, "Error: expected at most one plan file, got %d\n", fs.NArg())
		os.Exit(1)
	}
}

func formatterFromFlags(format, direction string) graph.Formatter {
	dir, err := graph.ParseDirection(direction)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	f, err := graph.FormatterFor(format, dir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	return f
}

func runTUI(plan *parser.Plan, source string) {
	dir, err := graph.ParseDirection(cfg.Direction)
	if err != nil {
		dir = graph.DirectionLR
	}
	p := tea.NewProgram(
		tui.NewModel(plan, source, version).
			WithUpdateCheck(cfg.UpdateCheck).
			WithDirection(dir),
		tea.WithAltScreen(),
		tea.WithMouseCellMotion(),
	)
	if _, err := p.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error running TUI: %v\n", err)
		os.Exit(1)
	}
}

// runViewMode is the default file/pipe view mode
func runViewMode(args []string) {
	fs := pflag.NewFlagSet("view", pflag.ContinueOnError)
	printMode := fs.BoolP("print", "p", false, "print colored output instead of the TUI")
	parseFlags(fs, args, printUsage)

	source, text, plan := loadPlan(fs.Arg(0), printUsage)
	saveHistory(plan, history.CommandView, source, text)

	if len(plan.Changes) == 0 {
		fmt.Println("No changes found in the plan.")
		os.Exit(0)
	}

	if *printMode {
		tui.PrintPlan(os.Stdout, plan)
		return
	}
	runTUI(plan, source)
}

// runGraphMode prints the diagram text
func runGraphMode(args []string) {
	fs := pflag.NewFlagSet("graph", pflag.ContinueOnError)
	format := fs.StringP("format", "f", cfg.Format, "diagram format: mermaid or dot")
	direction := fs.StringP("direction", "d", cfg.Direction, "layout direction: LR or TD")
	parseFlags(fs, args, printGraphUsage)

	f := formatterFromFlags(*format, *direction)
	source, text, plan := loadPlan(fs.Arg(0), printGraphUsage)
	saveHistory(plan, history.CommandGraph, source, text)

	fmt.Print(graph.Render(text, f))
}

// runExportMode writes a Markdown or HTML document
func runExportMode(args []string) {
	fs := pflag.NewFlagSet("export", pflag.ContinueOnError)
	asHTML := fs.Bool("html", false, "write a standalone HTML page instead of Markdown")
	output := fs.StringP("output", "o", "", "write to this file instead of stdout")
	format := fs.StringP("format", "f", cfg.Format, "diagram format: mermaid or dot")
	direction := fs.StringP("direction", "d", cfg.Direction, "layout direction: LR or TD")
	parseFlags(fs, args, printExportUsage)

	f := formatterFromFlags(*format, *direction)
	source, text, plan := loadPlan(fs.Arg(0), printExportUsage)

	doc := export.Markdown(plan, source, f)
	if *asHTML {
		var err error
		doc, err = export.HTML(export.Title(plan, source), doc)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error exporting: %v\n", err)
			os.Exit(1)
		}
	}

	if *output == "" || *output == "-" {
		fmt.Print(doc)
	} else {
		if err := os.WriteFile(*output, []byte(doc), 0o644); err != nil {
			fmt.Fprintf(os.Stderr, "Error writing %s: %v\n", *output, err)
			os.Exit(1)
		}
		fmt.Fprintf(os.Stderr, "Wrote %s\n", *output)
	}
	saveHistory(plan, history.CommandExport, source, text)
}

// runServeMode serves the live web viewer until interrupted
func runServeMode(args []string) {
	fs := pflag.NewFlagSet("serve", pflag.ContinueOnError)
	addr := fs.StringP("addr", "a", cfg.Serve.Addr, "listen address")
	direction := fs.StringP("direction", "d", cfg.Direction, "layout direction: LR or TD")
	open := fs.Bool("open", cfg.Serve.OpenBrowser, "open the viewer in a browser")
	parseFlags(fs, args, printServeUsage)

	inputFile := fs.Arg(0)
	if inputFile == "" {
		inputFile = defaultPlanFile
	}
	if inputFile == "-" {
		fmt.Fprintln(os.Stderr, "Error: serve needs a plan file to watch, not stdin")
		os.Exit(1)
	}
	rejectNonPlan(inputFile)

	text, err := readPlanText(inputFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error %v\n", err)
		os.Exit(1)
	}
	plan, _ := parser.Parse(text)
	saveHistory(plan, history.CommandServe, inputFile, text)

	dir, err := graph.ParseDirection(*direction)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	mermaidTheme := "dark"
	if cfg.Theme == config.ThemeLight {
		mermaidTheme = "default"
	}
	srv, err := server.New(server.Config{
		Addr:      *addr,
		PlanPath:  inputFile,
		Direction: dir,
		Theme:     mermaidTheme,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error creating server: %v\n", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	url := "http://" + srv.Addr() + "/"
	fmt.Printf("Sqitch-Prism: serving %s at %s (Ctrl+C to stop)\n", inputFile, url)
	if *open {
		if err := openBrowser(url); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: Failed to open browser: %v\n", err)
		}
	}

	if err := srv.ListenAndServe(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error serving: %v\n", err)
		os.Exit(1)
	}
}

func openBrowser(url string) error {
	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "darwin":
		cmd = exec.Command("open", url)
	case "windows":
		cmd = exec.Command("rundll32", "url.dll,FileProtocolHandler", url)
	default:
		cmd = exec.Command("xdg-open", url)
	}
	return cmd.Start()
}

// runVersionMode displays the version and checks for updates
func runVersionMode() {
	fmt.Printf("sqitchprism v%s\n", version)

	if !cfg.UpdateCheck.Skip {
		if latest, hasUpdate, err := updater.CheckLatest(version); err == nil && hasUpdate {
			fmt.Printf("\nUpdate available: v%s. Run 'sqitchprism upgrade' to update (or re-run the install script).\n", latest)
		}
	}
}

// runUpgradeMode upgrades sqitchprism to the latest version
func runUpgradeMode() {
	_, hasUpdate, err := updater.CheckLatest(version)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error checking for updates: %v\n", err)
		fmt.Println(updater.CurlFallbackMessage(err))
		os.Exit(1)
	}
	if !hasUpdate {
		fmt.Println("Already up to date.")
		return
	}

	newVer, err := updater.Upgrade(version)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s\n", updater.CurlFallbackMessage(err))
		os.Exit(1)
	}
	fmt.Printf("Upgraded to v%s. Restart sqitchprism to use the new version.\n", newVer)
}
