package tui

import (
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/CaptShanks/sqitchprism/internal/history"
)

func pickerEntries() []history.Entry {
	at := time.Date(2025, 1, 14, 10, 30, 0, 0, time.Local)
	return []history.Entry{
		{Timestamp: at, Project: "flipr", Command: history.CommandView, Source: "db/sqitch.plan", Path: "/h/1.plan"},
		{Timestamp: at, Project: "flipr", Command: history.CommandGraph, Source: "db/sqitch.plan", Path: "/h/2.plan"},
		{Timestamp: at, Project: "widgets", Command: history.CommandGraph, Source: "<stdin>", Path: "/h/3.plan"},
	}
}

func TestPickerSearchRequiresAllTerms(t *testing.T) {
	m := NewPickerModel(pickerEntries())

	var model tea.Model = m
	for _, msg := range []tea.Msg{keyMsg("/"), keyMsg("graph"), tea.KeyMsg{Type: tea.KeySpace}, keyMsg("flipr"), tea.KeyMsg{Type: tea.KeyEnter}} {
		model, _ = model.Update(msg)
	}
	m = model.(PickerModel)

	if len(m.filtered) != 1 || m.filtered[0].Path != "/h/2.plan" {
		t.Fatalf("filtered = %+v, want only the flipr graph entry", m.filtered)
	}

	model, _ = m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	if got := model.(PickerModel).SelectedPath(); got != "/h/2.plan" {
		t.Errorf("SelectedPath() = %q, want /h/2.plan", got)
	}
}

func TestPickerFilterClampsCursor(t *testing.T) {
	m := NewPickerModel(pickerEntries())
	m.cursor = 2

	m.searchQuery = "flipr"
	m.filterEntries()
	if m.cursor != 1 {
		t.Errorf("cursor = %d, want 1", m.cursor)
	}

	m.searchQuery = "nothing-matches"
	m.filterEntries()
	if m.cursor != 0 || len(m.filtered) != 0 {
		t.Errorf("cursor = %d filtered = %d, want 0 and 0", m.cursor, len(m.filtered))
	}
}
