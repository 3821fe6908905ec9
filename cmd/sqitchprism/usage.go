package main

import (
	"fmt"

	"github.com/CaptShanks/sqitchprism/internal/config"
)

func printUsage() {
	fmt.Printf(`sqitchprism %s - Interactive Sqitch plan viewer

USAGE:
    sqitchprism [sqitch.plan]                    # View a plan (default ./sqitch.plan)
    cat sqitch.plan | sqitchprism                # Pipe a plan
    sqitchprism graph [options] [plan-file]      # Print the dependency diagram
    sqitchprism serve [options] [plan-file]      # Live web viewer
    sqitchprism export [options] [plan-file]     # Markdown or HTML document
    sqitchprism history [options]                # List history files

DESCRIPTION:
    Sqitch-Prism shows the changes of a Sqitch plan and the dependencies
    between them, in the terminal, as Mermaid or Graphviz text, or in the
    browser.

COMMANDS:
    (none)      View mode - pipe or file input
    graph       Print the diagram (Mermaid by default)
    serve       Serve the diagram over HTTP, reloading when the file changes
    export      Write a document with the diagram and a table of changes
    history     View and manage plan snapshots
    version     Show sqitchprism version (includes update check)
    upgrade     Upgrade sqitchprism to the latest release

GLOBAL OPTIONS:
    -h, --help      Show this help
    -v, --version   Show version (includes update check)

VIEW OPTIONS:
    -p, --print     Print mode (no TUI)

CONFIG:
    ~/.sqitchprism/config.yaml (theme, format, direction, serve, history,
    update_check). Environment variables override the file.

ENVIRONMENT:
    SQITCHPRISM_THEME  Set to "light", "dark" or "auto"
    SQITCHPRISM_FORMAT  Default diagram format: mermaid or dot
    SQITCHPRISM_ADDR  Listen address for serve (default: %s)
    SQITCHPRISM_SKIP_UPDATE_CHECK  Set to 1, true, or yes to skip update checks
    SQITCHPRISM_UPDATE_CHECK_INTERVAL  Days between TUI update checks (default: %d)

CONTROLS:
    j/k         Move cursor up/down
    Enter/Space Toggle expand/collapse
    l/h         Expand/collapse current change
    d/u         Half page down/up
    gg/G        Go to first/last change
    e/c         Expand/collapse all
    /           Search changes
    n/N         Next/previous match
    f           Filter by kind (roots, dependents, leaves, missing requirements)
    s           Sort (plan order, name, requirement count, dependents)
    m           Toggle the Mermaid source
    q           Quit

HISTORY:
    Every viewed, graphed, served or exported plan is saved to
    ~/.sqitchprism/history/. Use 'sqitchprism history' to list them.

EXAMPLES:
    # View the plan in the current directory
    sqitchprism

    # Diagram as Graphviz, top to bottom
    sqitchprism graph --format dot --direction TD db/sqitch.plan | dot -Tsvg > plan.svg

    # Live view while editing
    sqitchprism serve --open

    # HTML report
    sqitchprism export --html -o plan.html

`, version, config.DefaultAddr, config.DefaultUpdateIntervalDays)
}

func printGraphUsage() {
	fmt.Printf(`sqitchprism graph - Print the dependency diagram

USAGE:
    sqitchprism graph [options] [plan-file]

DESCRIPTION:
    Prints one node per change and one edge per requirement. Requirements
    that name no change in the plan still get an edge.

OPTIONS:
    -f, --format      mermaid or dot (default: %s)
    -d, --direction   LR or TD (default: %s)

EXAMPLES:
    sqitchprism graph
    sqitchprism graph --format dot | dot -Tpng > plan.png
    cat sqitch.plan | sqitchprism graph --direction TD

`, cfg.Format, cfg.Direction)
}

func printServeUsage() {
	fmt.Printf(`sqitchprism serve - Live web viewer

USAGE:
    sqitchprism serve [options] [plan-file]

DESCRIPTION:
    Serves the plan's diagram over HTTP. The file is watched and the page
    re-renders whenever it changes. Defaults to ./sqitch.plan.

OPTIONS:
    -a, --addr        Listen address (default: %s)
    -d, --direction   LR or TD (default: %s)
    --open            Open the viewer in a browser

ENDPOINTS:
    /               Viewer page
    /graph.mmd      Mermaid text
    /graph.dot      Graphviz text
    /api/revision   Change counter polled by the page
    /healthz        Health check

`, cfg.Serve.Addr, cfg.Direction)
}

func printExportUsage() {
	fmt.Printf(`sqitchprism export - Write a plan document

USAGE:
    sqitchprism export [options] [plan-file]

DESCRIPTION:
    Writes Markdown with a fenced diagram block and a table of changes,
    or a standalone HTML page that renders the diagram in the browser.

OPTIONS:
    --html            Write HTML instead of Markdown
    -o, --output      Output file (default: stdout)
    -f, --format      mermaid or dot (default: %s)
    -d, --direction   LR or TD (default: %s)

EXAMPLES:
    sqitchprism export > PLAN.md
    sqitchprism export --html -o plan.html db/sqitch.plan

`, cfg.Format, cfg.Direction)
}

func printHistoryUsage() {
	fmt.Printf(`sqitchprism history - Manage plan snapshots

USAGE:
    sqitchprism history <subcommand> [options]

DESCRIPTION:
    View and manage plan snapshots stored in ~/.sqitchprism/history/

SUBCOMMANDS:
    list            List all history files
    view            Interactive picker to select and view
    view <#|file>   View a history file in the TUI
                    # = index (1 = most recent)
                    file = exact filename

LIST OPTIONS:
    -c, --command   Show only snapshots from view, graph, serve or export
    --clear         Delete all history files

VIEW OPTIONS:
    -p, --print     Print mode (no TUI)

EXAMPLES:
    sqitchprism history list                  # List all history
    sqitchprism history list -c export        # List only exports
    sqitchprism history --clear               # Clear all history
    sqitchprism history view                  # Interactive picker
    sqitchprism history view 1                # View most recent entry
    sqitchprism history 3                     # Shorthand for 'view 3'
    sqitchprism history view 2026-01-14_10-30-00_flipr_view.plan

`)
}
