package tui

import (
	"fmt"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/CaptShanks/sqitchprism/internal/graph"
	"github.com/CaptShanks/sqitchprism/internal/parser"
)

func TestPlanIndexMatchesGraph(t *testing.T) {
	plan, err := parser.Parse(testPlan)
	if err != nil {
		t.Fatal(err)
	}
	g := graph.Build(plan.Changes)
	idx := newPlanIndex(plan, g)

	for _, name := range []string{"appschema", "users", "flips", "audit", "ghost"} {
		if got, want := len(idx.dependentsOf(name)), len(g.Dependents(name)); got != want {
			t.Errorf("dependentsOf(%s) has %d entries, want %d", name, got, want)
		}
		if idx.isDangling(name) != g.IsDangling(name) {
			t.Errorf("isDangling(%s) = %v, want %v", name, idx.isDangling(name), g.IsDangling(name))
		}
	}
	if len(idx.kinds) != len(plan.Changes) {
		t.Fatalf("kinds has %d entries, want %d", len(idx.kinds), len(plan.Changes))
	}
	if idx.kinds[3][0] != KindDangling {
		t.Errorf("audit kind = %s, want %s", idx.kinds[3][0], KindDangling)
	}
}

// largePlan chains n changes where each requires its predecessor and its half-index ancestor
func largePlan(n int) string {
	var b strings.Builder
	b.WriteString("%project=large\n\nc0 # root\n")
	for i := 1; i < n; i++ {
		fmt.Fprintf(&b, "c%d [c%d c%d] # change %d\n", i, i-1, i/2, i)
	}
	return b.String()
}

func TestLargePlanNavigation(t *testing.T) {
	if testing.Short() {
		t.Skip("large plan in short mode")
	}

	plan, err := parser.Parse(largePlan(2000))
	if err != nil {
		t.Fatal(err)
	}

	start := time.Now()
	m := NewModel(plan, "sqitch.plan", "")
	updated, _ := m.Update(tea.WindowSizeMsg{Width: 120, Height: 40})
	m = updated.(Model)
	m.sortOrder = SortByDependents
	updated, _ = m.Update(keyMsg("j"))
	m = updated.(Model)
	_ = m.View()

	if elapsed := time.Since(start); elapsed > 5*time.Second {
		t.Errorf("rendering a 2000-change plan took %s", elapsed)
	}
	if m.cursor != 1 {
		t.Errorf("cursor = %d, want 1", m.cursor)
	}
}
