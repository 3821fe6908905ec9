package tui

import (
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/CaptShanks/sqitchprism/internal/parser"
)

func TestFuzzyMatch(t *testing.T) {
	tests := []struct {
		text   string
		query  string
		expect bool
	}{
		{"appschema", "schema", true},
		{"appschema", "apsch", true},
		{"users", "usr", true},
		{"insert_user", "insrt", true},
		{"insert_user", "IU", true},
		{"change_pass@v1.0.0", "pass", true},
		{"flips", "flp", true},
		{"flips", "xyz", false},
		{"users", "ussr", false},
		{"", "a", false},
		{"abc", "", true},
	}
	for _, tt := range tests {
		got := fuzzyMatch(tt.text, tt.query)
		if got != tt.expect {
			t.Errorf("fuzzyMatch(%q, %q) = %v, want %v", tt.text, tt.query, got, tt.expect)
		}
	}
}

func TestPerformSearch(t *testing.T) {
	m := newTestModel(t)

	m.searchQuery = "flp"
	m.performSearch()
	if len(m.searchMatches) != 1 || m.searchMatches[0] != 2 {
		t.Fatalf("searchMatches = %v, want [2]", m.searchMatches)
	}

	displayed := m.displayedChangeIndices()
	if len(displayed) != 1 || m.plan.Changes[displayed[0]].Name != "flips" {
		t.Errorf("displayed = %v, want only flips", displayed)
	}
}

func TestPerformSearch_MatchesRequiresAndNote(t *testing.T) {
	m := newTestModel(t)

	// "ghost" only appears in audit's requirements
	m.searchQuery = "ghost"
	m.performSearch()
	if len(m.searchMatches) != 1 || m.plan.Changes[m.displayedChangeIndices()[0]].Name != "audit" {
		t.Errorf("search by requirement: matches = %v", m.searchMatches)
	}

	m.searchQuery = "table users"
	m.performSearch()
	var names []string
	for _, idx := range m.displayedChangeIndices() {
		names = append(names, m.plan.Changes[idx].Name)
	}
	if len(names) != 2 || names[0] != "users" || names[1] != "flips" {
		t.Errorf("multi-term search = %v, want [users flips]", names)
	}
}

func TestNextPrevMatchWraps(t *testing.T) {
	m := newTestModel(t)
	m.searchQuery = "s"
	m.performSearch()
	if len(m.searchMatches) < 2 {
		t.Fatalf("expected several matches, got %v", m.searchMatches)
	}

	m.prevMatch()
	if m.currentMatch != len(m.searchMatches)-1 {
		t.Errorf("prevMatch from 0 = %d, want last", m.currentMatch)
	}
	m.nextMatch()
	if m.currentMatch != 0 {
		t.Errorf("nextMatch from last = %d, want 0", m.currentMatch)
	}
}

func TestHighlightMatch_FoldChangesByteLength(t *testing.T) {
	// Ⱥ is two bytes but lowercases to the three-byte ⱥ
	if got := highlightMatch("Ⱥx", "x", textStyle); !strings.Contains(got, "Ⱥ") {
		t.Errorf("highlightMatch dropped the prefix: %q", got)
	}

	tests := []struct {
		text, query string
		start, end  int
	}{
		{"Ⱥx", "x", 2, 3},
		{"Ⱥx", "ⱥ", 0, 2},
		{"appSchema", "SCHEMA", 3, 9},
		{"users", "flips", -1, -1},
		{"users", "", -1, -1},
	}
	for _, tt := range tests {
		start, end := indexFold(tt.text, tt.query)
		if start != tt.start || end != tt.end {
			t.Errorf("indexFold(%q, %q) = %d, %d, want %d, %d", tt.text, tt.query, start, end, tt.start, tt.end)
		}
	}
}

func TestSearchRendersNonASCIINames(t *testing.T) {
	plan, err := parser.Parse("ax # first\nȺx # second\n")
	if err != nil {
		t.Fatal(err)
	}
	m := NewModel(plan, "sqitch.plan", "")
	updated, _ := m.Update(tea.WindowSizeMsg{Width: 100, Height: 40})
	m = updated.(Model)

	m.searchQuery = "x"
	m.performSearch()
	m.updateViewportContent()

	if len(m.searchMatches) != 2 {
		t.Fatalf("searchMatches = %v, want both changes", m.searchMatches)
	}
	if !strings.Contains(m.View(), "Ⱥ") {
		t.Error("view should render the non-ASCII change name")
	}
}
