package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/CaptShanks/sqitchprism/internal/history"
)

const pickerWidth = 90

var (
	pickerKeySearch = key.NewBinding(key.WithKeys("/"))
	pickerKeyQuit   = key.NewBinding(key.WithKeys("q", "ctrl+c"))
	pickerKeyEsc    = key.NewBinding(key.WithKeys("esc"))
	pickerKeySelect = key.NewBinding(key.WithKeys("enter", " "))
	pickerKeyDown   = key.NewBinding(key.WithKeys("j", "down"))
	pickerKeyUp     = key.NewBinding(key.WithKeys("k", "up"))
	pickerKeyTop    = key.NewBinding(key.WithKeys("g"))
	pickerKeyBottom = key.NewBinding(key.WithKeys("G"))
)

// PickerModel is a TUI for selecting a history entry
type PickerModel struct {
	allEntries []history.Entry // Original unfiltered list
	filtered   []history.Entry // Filtered list based on search
	cursor     int
	selected   string // path of the chosen snapshot
	quitting   bool
	height     int
	width      int

	// Search state
	searching   bool
	searchQuery string
}

// NewPickerModel creates a new history picker
func NewPickerModel(entries []history.Entry) PickerModel {
	return PickerModel{
		allEntries: entries,
		filtered:   entries,
	}
}

// SelectedPath returns the path of the selected entry (empty if cancelled)
func (m PickerModel) SelectedPath() string {
	return m.selected
}

func (m PickerModel) Init() tea.Cmd {
	return nil
}

// filterEntries keeps entries matching every space-separated term
func (m *PickerModel) filterEntries() {
	// Split query into terms
	terms := strings.Fields(strings.ToLower(m.searchQuery))
	if len(terms) == 0 {
		m.filtered = m.allEntries
		return
	}

	var results []history.Entry
	for _, entry := range m.allEntries {
		// Build searchable string from all fields
		searchable := strings.ToLower(
			entry.Project + " " +
				entry.Command + " " +
				entry.Source + " " +
				entry.Timestamp.Format("2006-01-02 15:04") + " " +
				entry.Filename,
		)

		// All terms must match (AND logic, like fzf)
		allMatch := true
		for _, term := range terms {
			if !strings.Contains(searchable, term) {
				allMatch = false
				break
			}
		}
		if allMatch {
			results = append(results, entry)
		}
	}

	m.filtered = results

	// Reset cursor if out of bounds
	if m.cursor >= len(m.filtered) {
		if len(m.filtered) > 0 {
			m.cursor = len(m.filtered) - 1
		} else {
			m.cursor = 0
		}
	}
}

func (m PickerModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.height = msg.Height
		m.width = msg.Width
		return m, nil

	case tea.KeyMsg:
		// Handle search mode
		if m.searching {
			return m.updateSearch(msg)
		}

		// Normal mode
		switch {
		case key.Matches(msg, pickerKeySearch):
			m.searching = true
		case key.Matches(msg, pickerKeyQuit):
			m.quitting = true
			return m, tea.Quit
		case key.Matches(msg, pickerKeyEsc):
			if m.searchQuery != "" {
				m.searchQuery = ""
				m.filterEntries()
				return m, nil
			}
			m.quitting = true
			return m, tea.Quit
		case key.Matches(msg, pickerKeySelect):
			if len(m.filtered) > 0 {
				m.selected = m.filtered[m.cursor].Path
			}
			m.quitting = true
			return m, tea.Quit
		case key.Matches(msg, pickerKeyDown):
			if m.cursor < len(m.filtered)-1 {
				m.cursor++
			}
		case key.Matches(msg, pickerKeyUp):
			if m.cursor > 0 {
				m.cursor--
			}
		case key.Matches(msg, pickerKeyTop):
			m.cursor = 0
		case key.Matches(msg, pickerKeyBottom):
			if len(m.filtered) > 0 {
				m.cursor = len(m.filtered) - 1
			}
		}
	}
	return m, nil
}

func (m PickerModel) updateSearch(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEsc:
		m.searching = false
		m.searchQuery = ""
		m.filterEntries()
	case tea.KeyEnter:
		m.searching = false
	case tea.KeyBackspace:
		if len(m.searchQuery) > 0 {
			m.searchQuery = m.searchQuery[:len(m.searchQuery)-1]
			m.filterEntries()
		}
	case tea.KeyRunes:
		m.searchQuery += string(msg.Runes)
		m.filterEntries()
	case tea.KeySpace:
		m.searchQuery += " "
		m.filterEntries()
	}
	return m, nil
}

func (m PickerModel) View() string {
	if m.quitting {
		return ""
	}

	var b strings.Builder

	// Header
	b.WriteString(headerStyle.Render("Select a history entry to view"))
	b.WriteString("\n\n")

	// Column headers
	columnStyle := lipgloss.NewStyle().Foreground(colors.muted).Bold(true)
	b.WriteString(columnStyle.Render("     TIMESTAMP            PROJECT               COMMAND  SOURCE"))
	b.WriteString("\n")
	b.WriteString(columnStyle.Render(strings.Repeat("─", pickerWidth)))
	b.WriteString("\n")

	if len(m.filtered) == 0 {
		noResultStyle := mutedColor.Italic(true)
		if m.searchQuery != "" {
			b.WriteString(noResultStyle.Render(fmt.Sprintf("  No results for '%s'", m.searchQuery)))
		} else {
			b.WriteString(noResultStyle.Render("  No history entries"))
		}
		b.WriteString("\n")
	}

	// Entries
	for i, entry := range m.filtered {
		if i == m.cursor {
			line := fmt.Sprintf("> %2d  %s  %s", i+1, history.FormatEntry(entry), history.TruncatePath(entry.Source, 30))
			if len(line) < pickerWidth {
				line += strings.Repeat(" ", pickerWidth-len(line))
			}
			b.WriteString(lipgloss.NewStyle().
				Background(colors.selectedBg).
				Foreground(colors.text).
				Bold(true).
				Render(line))
		} else {
			b.WriteString(fmt.Sprintf("  %2d  ", i+1))
			b.WriteString(FormatHistoryEntryColored(entry))
		}
		b.WriteString("\n")
	}

	// Search bar / Footer
	b.WriteString("\n")
	filterStyle := lipgloss.NewStyle().Foreground(colors.dependent)
	switch {
	case m.searching:
		b.WriteString(filterStyle.Bold(true).Render("/ "))
		b.WriteString(m.searchQuery)
		b.WriteString("█")
	case m.searchQuery != "":
		b.WriteString(filterStyle.Render(fmt.Sprintf("Filter: %s", m.searchQuery)))
		b.WriteString(mutedColor.Render(fmt.Sprintf("  (%d/%d)", len(m.filtered), len(m.allEntries))))
		b.WriteString("\n")
		b.WriteString(mutedColor.Render("j/k: navigate  enter: select  esc: clear filter  q: cancel"))
	default:
		b.WriteString(mutedColor.Render("j/k: navigate  /: search  enter: select  q: cancel"))
	}

	return b.String()
}

// FormatHistoryEntryColored renders an entry for `history list`
func FormatHistoryEntryColored(e history.Entry) string {
	project := e.Project
	if project == "" {
		project = "-"
	}
	if len(project) > 20 {
		project = project[:17] + "..."
	}

	return fmt.Sprintf("%s  %s  %s  %s",
		mutedColor.Render(e.Timestamp.Format("2006-01-02 15:04:05")),
		textStyle.Render(fmt.Sprintf("%-20s", project)),
		lipgloss.NewStyle().Foreground(commandColor(e.Command)).Render(fmt.Sprintf("%-7s", e.Command)),
		mutedColor.Render(history.TruncatePath(e.Source, 30)),
	)
}

func commandColor(command string) lipgloss.Color {
	switch command {
	case history.CommandView:
		return colors.leaf
	case history.CommandGraph:
		return colors.accent
	case history.CommandServe:
		return colors.root
	case history.CommandExport:
		return colors.dependent
	default:
		return colors.text
	}
}

// RunPicker runs the interactive history picker and returns the selected path
func RunPicker(entries []history.Entry) (string, error) {
	p := tea.NewProgram(NewPickerModel(entries))

	finalModel, err := p.Run()
	if err != nil {
		return "", err
	}
	return finalModel.(PickerModel).SelectedPath(), nil
}
