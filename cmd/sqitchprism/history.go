package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/pflag"

	"github.com/CaptShanks/sqitchprism/internal/history"
	"github.com/CaptShanks/sqitchprism/internal/parser"
	"github.com/CaptShanks/sqitchprism/internal/tui"
)

// runHistoryMode handles history subcommands: list, view, --clear
func runHistoryMode(args []string) {
	if len(args) == 0 {
		printHistoryUsage()
		return
	}

	switch args[0] {
	case "-h", "--help":
		printHistoryUsage()
	case "list":
		runHistoryList(args[1:])
	case "view":
		runHistoryView(args[1:])
	case "--clear":
		clearHistory()
	default:
		if isNumeric(args[0]) {
			runHistoryView(args)
			return
		}
		fmt.Fprintf(os.Stderr, "Unknown history subcommand: %s\n", args[0])
		printHistoryUsage()
		os.Exit(1)
	}
}

// isNumeric checks if a string is a positive integer
func isNumeric(s string) bool {
	for _, c := range s {
		if c < '0' || c > '9' {
			return false
		}
	}
	return len(s) > 0
}

func runHistoryList(args []string) {
	fs := pflag.NewFlagSet("history list", pflag.ContinueOnError)
	filterCommand := fs.StringP("command", "c", "", "only show snapshots taken by view, graph, serve or export")
	clearAll := fs.Bool("clear", false, "delete all history files")
	parseFlags(fs, args, printHistoryUsage)

	if *clearAll {
		clearHistory()
		return
	}
	switch *filterCommand {
	case "", history.CommandView, history.CommandGraph, history.CommandServe, history.CommandExport:
	default:
		fmt.Fprintf(os.Stderr, "Error: unknown command filter %q\n", *filterCommand)
		os.Exit(1)
	}

	entries, err := history.ListEntries(*filterCommand)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error reading history: %v\n", err)
		os.Exit(1)
	}

	histDir, _ := history.GetHistoryDir()
	if len(entries) == 0 {
		fmt.Printf("No history files found in %s\n", histDir)
		if *filterCommand != "" {
			fmt.Printf("(filtered by: %s)\n", *filterCommand)
		}
		return
	}

	fmt.Printf("History files in %s:\n\n", histDir)
	fmt.Printf("%3s  %-19s  %-20s  %-7s  %s\n", "#", "TIMESTAMP", "PROJECT", "COMMAND", "SOURCE")
	fmt.Println(strings.Repeat("-", 90))
	for i, entry := range entries {
		fmt.Printf("%3d  %s\n", i+1, tui.FormatHistoryEntryColored(entry))
	}

	fmt.Printf("\nTotal: %d entries (max: %d)\n", len(entries), cfg.History.MaxFiles)
	fmt.Println("\nUse 'sqitchprism history view <#>' to view a specific entry")
}

// selectHistoryFile resolves a picker choice, an index or a file name to a snapshot path
func selectHistoryFile(target string) string {
	if target == "" {
		entries, err := history.ListEntries("")
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error reading history: %v\n", err)
			os.Exit(1)
		}
		if len(entries) == 0 {
			histDir, _ := history.GetHistoryDir()
			fmt.Printf("No history files found in %s\n", histDir)
			os.Exit(0)
		}

		selectedPath, err := tui.RunPicker(entries)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error running picker: %v\n", err)
			os.Exit(1)
		}
		if selectedPath == "" {
			os.Exit(0)
		}
		return selectedPath
	}

	if isNumeric(target) {
		index, _ := strconv.Atoi(target)
		if index < 1 {
			fmt.Fprintln(os.Stderr, "Index must be 1 or greater")
			os.Exit(1)
		}
		entries, err := history.ListEntries("")
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error reading history: %v\n", err)
			os.Exit(1)
		}
		if index > len(entries) {
			fmt.Fprintf(os.Stderr, "Index %d out of range (only %d entries)\n", index, len(entries))
			os.Exit(1)
		}
		return entries[index-1].Path
	}

	histDir, err := history.GetHistoryDir()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error getting history directory: %v\n", err)
		os.Exit(1)
	}
	return filepath.Join(histDir, filepath.Base(target))
}

// runHistoryView opens a snapshot in the TUI
func runHistoryView(args []string) {
	fs := pflag.NewFlagSet("history view", pflag.ContinueOnError)
	printMode := fs.BoolP("print", "p", false, "print colored output instead of the TUI")
	parseFlags(fs, args, printHistoryUsage)

	filePath := selectHistoryFile(fs.Arg(0))

	content, err := os.ReadFile(filePath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error reading file: %v\n", err)
		os.Exit(1)
	}

	plan, err := parser.Parse(string(content))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error parsing plan: %v\n", err)
		os.Exit(1)
	}

	if *printMode {
		tui.PrintPlan(os.Stdout, plan)
		return
	}
	runTUI(plan, filepath.Base(filePath))
}

// clearHistory removes all history files after confirmation
func clearHistory() {
	histDir, err := history.GetHistoryDir()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error getting history directory: %v\n", err)
		os.Exit(1)
	}

	entries, err := history.ListEntries("")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error reading history: %v\n", err)
		os.Exit(1)
	}
	if len(entries) == 0 {
		fmt.Println("No history files to clear.")
		return
	}

	fmt.Printf("This will delete %d history files from %s\n", len(entries), histDir)
	fmt.Print("Are you sure? (y/N): ")

	var response string
	_, _ = fmt.Scanln(&response)
	if strings.ToLower(response) != "y" {
		fmt.Println("Cancelled.")
		return
	}

	deleted := 0
	for _, entry := range entries {
		if err := os.Remove(entry.Path); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to delete %s: %v\n", entry.Filename, err)
		} else {
			deleted++
		}
	}
	fmt.Printf("Deleted %d history files.\n", deleted)
}
