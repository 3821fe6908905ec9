package tui

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/reflow/wordwrap"
	"github.com/muesli/termenv"

	"github.com/CaptShanks/sqitchprism/internal/graph"
	"github.com/CaptShanks/sqitchprism/internal/parser"
)

const printWidth = 80

func init() {
	// Force color output even when not a TTY (for piping)
	lipgloss.SetColorProfile(termenv.TrueColor)
}

// PrintPlan writes the plan with colors to w (non-interactive mode)
func PrintPlan(w io.Writer, plan *parser.Plan) {
	g := graph.Build(plan.Changes)

	title := "🔷 Sqitch-Prism - Sqitch Plan Viewer"
	if project := plan.Project(); project != "" {
		title += " · " + project
	}
	fmt.Fprintln(w, headerStyle.Render(title))
	fmt.Fprintln(w)

	summary := fmt.Sprintf("%s changes, %s dependencies",
		lipgloss.NewStyle().Foreground(colors.root).Bold(true).Render(fmt.Sprintf("%d", len(g.Nodes))),
		lipgloss.NewStyle().Foreground(colors.dependent).Bold(true).Render(fmt.Sprintf("%d", len(g.Edges))),
	)
	idx := newPlanIndex(plan, g)
	if dangling := g.Dangling(); len(dangling) > 0 {
		summary += ", " + lipgloss.NewStyle().Foreground(colors.dangling).Bold(true).
			Render(fmt.Sprintf("%d missing (%s)", len(dangling), strings.Join(dangling, ", ")))
	}
	fmt.Fprintln(w, summary)
	fmt.Fprintln(w)

	for i, c := range plan.Changes {
		printChange(w, c, idx.kinds[i][0], idx)
	}
}

func printChange(w io.Writer, c parser.Change, kind ChangeKind, idx *planIndex) {
	fmt.Fprintf(w, "%s %s %s\n",
		GetKindSymbol(kind),
		GetChangeStyle(kind).Render(c.Name),
		mutedColor.Render(requiresSummary(c)),
	)

	if c.Description != "" {
		for _, line := range strings.Split(wordwrap.String(c.Description, printWidth-4), "\n") {
			fmt.Fprintln(w, "    "+textStyle.Render(line))
		}
	}

	if len(c.Requires) > 1 {
		parts := make([]string, len(c.Requires))
		for i, req := range c.Requires {
			parts[i] = colorizeRequirement(req, idx)
		}
		fmt.Fprintln(w, "    "+labelStyle.Render("requires: ")+strings.Join(parts, mutedColor.Render(", ")))
	} else if len(c.Requires) == 1 && idx.isDangling(c.Requires[0]) {
		fmt.Fprintln(w, "    "+labelStyle.Render("requires: ")+colorizeRequirement(c.Requires[0], idx))
	}
}

func colorizeRequirement(req string, idx *planIndex) string {
	if idx.isDangling(req) {
		return lipgloss.NewStyle().Foreground(colors.dangling).Render(req + " (missing)")
	}
	return textStyle.Render(req)
}
