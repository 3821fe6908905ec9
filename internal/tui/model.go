package tui

import (
	"fmt"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/reflow/wordwrap"

	"github.com/CaptShanks/sqitchprism/internal/config"
	"github.com/CaptShanks/sqitchprism/internal/graph"
	"github.com/CaptShanks/sqitchprism/internal/parser"
	"github.com/CaptShanks/sqitchprism/internal/updater"
)

// ChangeKind classifies a change by its position in the dependency graph
type ChangeKind string

const (
	KindRoot      ChangeKind = "root"      // requires nothing
	KindDependent ChangeKind = "dependent" // requires and is required
	KindLeaf      ChangeKind = "leaf"      // nothing requires it
	KindDangling  ChangeKind = "dangling"  // requires a change missing from the plan
)

// filterableKinds is the ordered list of kinds available for filtering
var filterableKinds = []ChangeKind{KindRoot, KindDependent, KindLeaf, KindDangling}

// Model represents the TUI state
type Model struct {
	plan    *parser.Plan
	graph   *graph.Graph
	index   *planIndex
	source  string // file name shown in the header
	diagram string // mermaid text of the whole plan

	cursor           int
	expanded         map[int]bool
	viewport         viewport.Model
	ready            bool
	width            int
	height           int
	pendingG         bool  // 'g' pressed, waiting for second 'g'
	changeLineStarts []int // rendered line offset per displayed change
	contentLineCount int

	searching     bool
	searchInput   textinput.Model
	searchQuery   string
	searchMatches []int
	currentMatch  int

	kindFilters  map[ChangeKind]bool // true = show changes of this kind
	filtering    bool
	filterCursor int

	sortOrder  SortOrder
	sorting    bool
	sortCursor int

	showDiagram bool

	currentVersion     string
	updateAvailable    string
	skipUpdateCheck    bool
	updateIntervalDays int
}

// UpdateAvailableMsg is sent when an update check finds a newer version.
type UpdateAvailableMsg struct {
	Version string
}

// SortOrder defines how changes are ordered
type SortOrder string

const (
	SortDefault      SortOrder = "default"
	SortByName       SortOrder = "name"
	SortByRequires   SortOrder = "requires"
	SortByDependents SortOrder = "dependents"
)

var sortOptions = []SortOrder{SortDefault, SortByName, SortByRequires, SortByDependents}

// NewModel creates a new TUI model for a parsed plan
func NewModel(plan *parser.Plan, source, version string) Model {
	ti := textinput.New()
	ti.Placeholder = "Search..."
	ti.CharLimit = 100
	ti.Width = 40

	g := graph.Build(plan.Changes)

	return Model{
		plan:           plan,
		graph:          g,
		index:          newPlanIndex(plan, g),
		source:         source,
		diagram:        graph.NewMermaidFormatter(graph.DirectionLR).Format(g),
		expanded:       make(map[int]bool),
		searchInput:    ti,
		searchMatches:  []int{},
		kindFilters:    nil, // nil = show all
		sortOrder:      SortDefault,
		currentVersion: version,
	}
}

// kindsOf returns every kind that applies to change i; the first is its display kind
func (m *Model) kindsOf(i int) []ChangeKind {
	return m.index.kinds[i]
}

func (m *Model) kindOf(i int) ChangeKind {
	return m.kindsOf(i)[0]
}

// hasKindFilter reports whether at least one kind is checked
func (m *Model) hasKindFilter() bool {
	for _, on := range m.kindFilters {
		if on {
			return true
		}
	}
	return false
}

// filteredChanges returns indices into plan.Changes that pass the kind filter.
// With no kind checked everything is shown.
func (m *Model) filteredChanges() []int {
	active := m.hasKindFilter()
	var indices []int
	for i := range m.plan.Changes {
		if !active {
			indices = append(indices, i)
			continue
		}
		for _, k := range m.kindsOf(i) {
			if m.kindFilters[k] {
				indices = append(indices, i)
				break
			}
		}
	}
	return indices
}

// sortedChanges returns filtered indices sorted by the current sort order
func (m *Model) sortedChanges() []int {
	filtered := m.filteredChanges()
	if m.sortOrder == SortDefault || m.sortOrder == "" {
		return filtered
	}
	sort.SliceStable(filtered, func(i, j int) bool {
		ci := m.plan.Changes[filtered[i]]
		cj := m.plan.Changes[filtered[j]]
		switch m.sortOrder {
		case SortByName:
			return ci.Name < cj.Name
		case SortByRequires:
			return len(ci.Requires) > len(cj.Requires)
		case SortByDependents:
			return len(m.index.dependentsOf(ci.Name)) > len(m.index.dependentsOf(cj.Name))
		}
		return false
	})
	return filtered
}

// displayedChangeIndices returns the change indices to display: all sorted
// changes, or only the search matches while a query is active.
func (m *Model) displayedChangeIndices() []int {
	sorted := m.sortedChanges()
	if m.searchQuery == "" {
		return sorted
	}
	result := make([]int, 0, len(m.searchMatches))
	for _, displayIdx := range m.searchMatches {
		if displayIdx >= 0 && displayIdx < len(sorted) {
			result = append(result, sorted[displayIdx])
		}
	}
	return result
}

// Init initializes the model
func (m Model) Init() tea.Cmd {
	if m.currentVersion == "" || m.skipUpdateCheck || updater.IsSkipUpdateCheck() {
		return nil
	}
	interval := m.updateIntervalDays
	if interval <= 0 {
		interval = updater.UpdateCheckIntervalDays()
	}
	return checkUpdateCmd(m.currentVersion, interval)
}

// WithUpdateCheck applies the update-check settings from the config file
func (m Model) WithUpdateCheck(c config.UpdateCheckConfig) Model {
	m.skipUpdateCheck = c.Skip
	m.updateIntervalDays = c.IntervalDays
	return m
}

// WithDirection re-renders the diagram pane with the given layout direction
func (m Model) WithDirection(dir graph.Direction) Model {
	m.diagram = graph.NewMermaidFormatter(dir).Format(m.graph)
	return m
}

func checkUpdateCmd(version string, intervalDays int) tea.Cmd {
	return func() tea.Msg {
		latest, hasUpdate, err := updater.CheckLatestWithCache(version, intervalDays)
		if err != nil || !hasUpdate {
			return nil
		}
		return UpdateAvailableMsg{Version: latest}
	}
}

const headerHeight = 4 // title + summary + blank line

func (m Model) footerHeight() int {
	if m.updateAvailable != "" {
		return 4 // help + nudge
	}
	return 3
}

// Update handles messages
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case UpdateAvailableMsg:
		m.updateAvailable = msg.Version
		if m.ready && m.height > 0 {
			m.viewport.Height = m.height - headerHeight - m.footerHeight()
		}
		return m, nil

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

		if !m.ready {
			m.viewport = viewport.New(msg.Width-4, msg.Height-headerHeight-m.footerHeight())
			m.viewport.YPosition = headerHeight
			m.ready = true
		} else {
			m.viewport.Width = msg.Width - 4
			m.viewport.Height = msg.Height - headerHeight - m.footerHeight()
		}
		m.updateViewportContent()

	case tea.KeyMsg:
		if m.filtering {
			return m.handleFilterKey(msg)
		}
		if m.sorting {
			return m.handleSortKey(msg)
		}
		if !m.searching {
			return m.handleNormalKey(msg)
		}
		switch msg.String() {
		case "enter":
			m.searching = false
			m.searchQuery = m.searchInput.Value()
			m.performSearch()
			m.clampCursorAndRefreshSearch()
			m.updateViewportContent()
		case "esc":
			m.searching = false
			m.searchInput.SetValue("")
			m.searchQuery = ""
			m.searchMatches = []int{}
			m.clampCursorAndRefreshSearch()
			m.updateViewportContent()
		case "up":
			return handleKeyUpModel(m), nil
		case "down":
			return handleKeyDownModel(m), nil
		default:
			m.searchInput, cmd = m.searchInput.Update(msg)
			m.searchQuery = m.searchInput.Value()
			m.performSearch()
			m.clampCursorAndRefreshSearch()
			m.updateViewportContent()
			cmds = append(cmds, cmd)
		}

	case tea.MouseMsg:
		m.viewport, cmd = m.viewport.Update(msg)
		cmds = append(cmds, cmd)
	}

	return m, tea.Batch(cmds...)
}

// normalKeyHandler handles a single key in normal mode
type normalKeyHandler func(m Model) (Model, tea.Cmd)

var normalKeyHandlers = map[string]normalKeyHandler{
	"q":         func(m Model) (Model, tea.Cmd) { return m, tea.Quit },
	"ctrl+c":    func(m Model) (Model, tea.Cmd) { return m, tea.Quit },
	"up":        handleKeyUp,
	"k":         handleKeyUp,
	"down":      handleKeyDown,
	"j":         handleKeyDown,
	"enter":     handleKeyEnter,
	" ":         handleKeyEnter,
	"e":         handleKeyExpandAll,
	"c":         handleKeyCollapseAll,
	"f":         handleKeyFilter,
	"s":         handleKeySort,
	"m":         handleKeyDiagram,
	"/":         handleKeySearch,
	"n":         handleKeyNextMatch,
	"N":         handleKeyPrevMatch,
	"esc":       handleKeyEsc,
	"backspace": handleKeyCollapseCurrent,
	"h":         handleKeyCollapseCurrent,
	"left":      handleKeyCollapseCurrent,
	"l":         handleKeyExpandCurrent,
	"right":     handleKeyExpandCurrent,
	"d":         handleKeyHalfPageDown,
	"ctrl+d":    handleKeyHalfPageDown,
	"u":         handleKeyHalfPageUp,
	"ctrl+u":    handleKeyHalfPageUp,
	"g":         handleKeyG,
	"G":         handleKeyGG,
	"pgup":      handleKeyPgUp,
	"pgdown":    handleKeyPgDown,
}

func handleKeyUp(m Model) (Model, tea.Cmd) {
	return handleKeyUpModel(m), nil
}

func handleKeyUpModel(m Model) Model {
	if m.cursor > 0 {
		m.cursor--
		m.updateViewportContent()
		m.ensureCursorVisible()
	} else {
		m.viewport.SetYOffset(m.viewport.YOffset - 1)
	}
	return m
}

func handleKeyDown(m Model) (Model, tea.Cmd) {
	return handleKeyDownModel(m), nil
}

func handleKeyDownModel(m Model) Model {
	if m.cursor < len(m.displayedChangeIndices())-1 {
		m.cursor++
		m.updateViewportContent()
		m.ensureCursorVisible()
	} else {
		m.viewport.SetYOffset(m.viewport.YOffset + 1)
	}
	return m
}

func (m *Model) currentChange() (int, bool) {
	displayed := m.displayedChangeIndices()
	if m.cursor < 0 || m.cursor >= len(displayed) {
		return 0, false
	}
	return displayed[m.cursor], true
}

func handleKeyEnter(m Model) (Model, tea.Cmd) {
	if idx, ok := m.currentChange(); ok {
		m.expanded[idx] = !m.expanded[idx]
	}
	m.updateViewportContent()
	m.scrollForExpanded()
	return m, nil
}

func handleKeyExpandCurrent(m Model) (Model, tea.Cmd) {
	if idx, ok := m.currentChange(); ok {
		m.expanded[idx] = true
	}
	m.updateViewportContent()
	m.scrollForExpanded()
	return m, nil
}

func handleKeyCollapseCurrent(m Model) (Model, tea.Cmd) {
	if idx, ok := m.currentChange(); ok {
		m.expanded[idx] = false
	}
	m.updateViewportContent()
	m.ensureCursorVisible()
	return m, nil
}

func handleKeyExpandAll(m Model) (Model, tea.Cmd) {
	for _, idx := range m.displayedChangeIndices() {
		m.expanded[idx] = true
	}
	m.updateViewportContent()
	m.ensureCursorVisible()
	return m, nil
}

func handleKeyCollapseAll(m Model) (Model, tea.Cmd) {
	for _, idx := range m.displayedChangeIndices() {
		m.expanded[idx] = false
	}
	m.updateViewportContent()
	m.ensureCursorVisible()
	return m, nil
}

func handleKeyFilter(m Model) (Model, tea.Cmd) {
	m.filtering = true
	m.filterCursor = 0
	if m.kindFilters == nil {
		m.kindFilters = make(map[ChangeKind]bool)
	}
	return m, nil
}

func handleKeySort(m Model) (Model, tea.Cmd) {
	m.sorting = true
	m.sortCursor = 0
	for i, opt := range sortOptions {
		if opt == m.sortOrder {
			m.sortCursor = i
			break
		}
	}
	return m, nil
}

func handleKeyDiagram(m Model) (Model, tea.Cmd) {
	m.showDiagram = !m.showDiagram
	m.updateViewportContent()
	if m.showDiagram {
		m.viewport.GotoTop()
	} else {
		m.ensureCursorVisible()
	}
	return m, nil
}

func handleKeySearch(m Model) (Model, tea.Cmd) {
	m.searching = true
	m.searchInput.Focus()
	return m, textinput.Blink
}

func handleKeyNextMatch(m Model) (Model, tea.Cmd) {
	m.nextMatch()
	return m, nil
}

func handleKeyPrevMatch(m Model) (Model, tea.Cmd) {
	m.prevMatch()
	return m, nil
}

func handleKeyEsc(m Model) (Model, tea.Cmd) {
	switch {
	case m.showDiagram:
		m.showDiagram = false
		m.updateViewportContent()
	case m.hasKindFilter():
		m.kindFilters = nil
		m.clampCursorAndRefreshSearch()
		m.updateViewportContent()
	default:
		m.clearSearch()
	}
	return m, nil
}

func handleKeyHalfPageDown(m Model) (Model, tea.Cmd) {
	m.viewport.SetYOffset(m.viewport.YOffset + m.viewport.Height/2)
	return m, nil
}

func handleKeyHalfPageUp(m Model) (Model, tea.Cmd) {
	newOffset := m.viewport.YOffset - m.viewport.Height/2
	if newOffset < 0 {
		newOffset = 0
	}
	m.viewport.SetYOffset(newOffset)
	return m, nil
}

func handleKeyG(m Model) (Model, tea.Cmd) {
	if m.pendingG {
		m.cursor = 0
		m.updateViewportContent()
		m.viewport.GotoTop()
		m.pendingG = false
	} else {
		m.pendingG = true
	}
	return m, nil
}

func handleKeyGG(m Model) (Model, tea.Cmd) {
	if displayed := m.displayedChangeIndices(); len(displayed) > 0 {
		m.cursor = len(displayed) - 1
	}
	m.updateViewportContent()
	m.ensureCursorVisible()
	m.pendingG = false
	return m, nil
}

func handleKeyPgUp(m Model) (Model, tea.Cmd) {
	m.viewport.SetYOffset(m.viewport.YOffset - m.viewport.Height)
	return m, nil
}

func handleKeyPgDown(m Model) (Model, tea.Cmd) {
	m.viewport.SetYOffset(m.viewport.YOffset + m.viewport.Height)
	return m, nil
}

// handleNormalKey handles key presses in normal (non-search) mode
func (m Model) handleNormalKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	key := msg.String()
	if key != "g" {
		m.pendingG = false
	}
	if handler, ok := normalKeyHandlers[key]; ok {
		return handler(m)
	}
	return m, nil
}

// handleFilterKey handles key presses in the filter picker
func (m Model) handleFilterKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		m.kindFilters = nil
		m.filtering = false
	case "enter":
		m.filtering = false
	case "up", "k":
		if m.filterCursor > 0 {
			m.filterCursor--
		}
		return m, nil
	case "down", "j":
		if m.filterCursor < len(filterableKinds)-1 {
			m.filterCursor++
		}
		return m, nil
	case " ":
		kind := filterableKinds[m.filterCursor]
		m.kindFilters[kind] = !m.kindFilters[kind]
		return m, nil
	case "a":
		for _, kind := range filterableKinds {
			m.kindFilters[kind] = true
		}
		return m, nil
	case "c":
		m.kindFilters = make(map[ChangeKind]bool)
		return m, nil
	default:
		return m, nil
	}

	m.clampCursorAndRefreshSearch()
	m.updateViewportContent()
	return m, nil
}

// handleSortKey handles key presses in the sort picker
func (m Model) handleSortKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		m.sorting = false
		m.updateViewportContent()
	case "enter", " ":
		m.sortOrder = sortOptions[m.sortCursor]
		m.sorting = false
		m.clampCursorAndRefreshSearch()
		m.updateViewportContent()
	case "up", "k":
		if m.sortCursor > 0 {
			m.sortCursor--
		}
	case "down", "j":
		if m.sortCursor < len(sortOptions)-1 {
			m.sortCursor++
		}
	}
	return m, nil
}

// clampCursorAndRefreshSearch keeps the cursor in range after a filter or sort change
func (m *Model) clampCursorAndRefreshSearch() {
	if m.searchQuery != "" {
		m.performSearch()
	}
	displayed := m.displayedChangeIndices()
	if m.cursor >= len(displayed) {
		if len(displayed) > 0 {
			m.cursor = len(displayed) - 1
		} else {
			m.cursor = 0
		}
	}
}

func (m *Model) nextMatch() {
	if m.searchQuery == "" || len(m.searchMatches) == 0 {
		return
	}
	m.currentMatch = (m.currentMatch + 1) % len(m.searchMatches)
	m.cursor = m.currentMatch
	m.updateViewportContent()
	m.ensureCursorVisible()
}

func (m *Model) prevMatch() {
	if m.searchQuery == "" || len(m.searchMatches) == 0 {
		return
	}
	m.currentMatch--
	if m.currentMatch < 0 {
		m.currentMatch = len(m.searchMatches) - 1
	}
	m.cursor = m.currentMatch
	m.updateViewportContent()
	m.ensureCursorVisible()
}

func (m *Model) clearSearch() {
	m.searchQuery = ""
	m.searchMatches = []int{}
	m.searchInput.SetValue("")
	m.updateViewportContent()
}

// fuzzyMatch returns true if all characters in query appear in text in order
// (not necessarily consecutive). E.g. "usr" matches "users".
func fuzzyMatch(text, query string) bool {
	text = strings.ToLower(text)
	query = strings.ToLower(query)
	if query == "" {
		return true
	}
	qi := 0
	for i := 0; i < len(text) && qi < len(query); i++ {
		if text[i] == query[qi] {
			qi++
		}
	}
	return qi == len(query)
}

// performSearch matches every query term against a change's name,
// requirements and note
func (m *Model) performSearch() {
	m.searchMatches = []int{}
	m.currentMatch = 0

	terms := strings.Fields(strings.ToLower(m.searchQuery))
	if len(terms) == 0 {
		return
	}

	for displayIdx, changeIdx := range m.sortedChanges() {
		c := m.plan.Changes[changeIdx]
		searchable := c.Name + " " + strings.Join(c.Requires, " ") + " " + c.Description

		allMatch := true
		for _, term := range terms {
			if !fuzzyMatch(searchable, term) {
				allMatch = false
				break
			}
		}
		if allMatch {
			m.searchMatches = append(m.searchMatches, displayIdx)
		}
	}

	if len(m.searchMatches) > 0 {
		m.cursor = 0
	}
}

func (m *Model) updateViewportContent() {
	if !m.ready {
		return
	}
	if m.showDiagram {
		m.viewport.SetContent(m.renderDiagram())
		return
	}
	m.viewport.SetContent(m.renderChanges())
}

// ensureCursorVisible scrolls the viewport to make the current cursor visible
func (m *Model) ensureCursorVisible() {
	if !m.ready || m.showDiagram || m.cursor < 0 || m.cursor >= len(m.changeLineStarts) {
		return
	}

	lineNum := m.changeLineStarts[m.cursor]
	topLine := m.viewport.YOffset
	bottomLine := topLine + m.viewport.Height - 1

	if lineNum < topLine {
		m.viewport.SetYOffset(lineNum)
	} else if lineNum > bottomLine {
		newOffset := lineNum - m.viewport.Height + 1
		if newOffset < 0 {
			newOffset = 0
		}
		m.viewport.SetYOffset(newOffset)
	}
}

// scrollForExpanded keeps an expanded change's body on screen when possible
func (m *Model) scrollForExpanded() {
	if !m.ready || m.cursor < 0 || m.cursor >= len(m.changeLineStarts) {
		return
	}

	idx, ok := m.currentChange()
	if ok && m.expanded[idx] {
		lineNum := m.changeLineStarts[m.cursor]
		endLine := m.contentLineCount
		if m.cursor+1 < len(m.changeLineStarts) {
			endLine = m.changeLineStarts[m.cursor+1]
		}
		if endLine > m.viewport.YOffset+m.viewport.Height-1 {
			m.viewport.SetYOffset(lineNum)
			return
		}
	}

	m.ensureCursorVisible()
}

func (m *Model) renderChanges() string {
	var b strings.Builder
	lineCount := 0

	displayed := m.displayedChangeIndices()
	m.changeLineStarts = make([]int, len(displayed))

	if len(displayed) == 0 {
		switch {
		case len(m.plan.Changes) == 0:
			b.WriteString(mutedColor.Render("The plan has no changes."))
		case m.searchQuery != "":
			b.WriteString(mutedColor.Render(fmt.Sprintf("No changes match search '%s'. Press Esc to clear.", m.searchQuery)))
		default:
			b.WriteString(mutedColor.Render("No changes match the current filters. Press 'f' to change filters."))
		}
		b.WriteString("\n")
		return b.String()
	}

	for displayIdx, changeIdx := range displayed {
		m.changeLineStarts[displayIdx] = lineCount
		c := m.plan.Changes[changeIdx]
		expanded := m.expanded[changeIdx]

		if displayIdx == m.cursor {
			b.WriteString(m.renderSelectedChangeLine(changeIdx, expanded))
		} else {
			b.WriteString(m.renderChangeLine(changeIdx, expanded))
		}
		b.WriteString("\n")
		lineCount++

		if expanded {
			body := m.renderChangeBody(c)
			b.WriteString(body)
			lineCount += strings.Count(body, "\n")
		}
	}

	m.contentLineCount = lineCount

	b.WriteString("\n")
	b.WriteString(mutedColor.Render("── End of Plan ──"))
	b.WriteString("\n")

	// room to scroll the last change's body fully into view
	for i := 0; i < m.viewport.Height; i++ {
		b.WriteString("\n")
	}

	return b.String()
}

// renderChangeBody renders the expanded details of a change
func (m Model) renderChangeBody(c parser.Change) string {
	var b strings.Builder
	indent := "    "
	width := m.viewport.Width - len(indent)
	if width < 20 {
		width = 20
	}

	if c.Description != "" {
		for _, line := range strings.Split(wordwrap.String(c.Description, width), "\n") {
			b.WriteString(indent + textStyle.Render(line) + "\n")
		}
	}

	b.WriteString(indent + labelStyle.Render("requires:   "))
	if len(c.Requires) == 0 {
		b.WriteString(mutedColor.Render("(none)"))
	} else {
		parts := make([]string, len(c.Requires))
		for i, req := range c.Requires {
			if m.index.isDangling(req) {
				parts[i] = lipgloss.NewStyle().Foreground(colors.dangling).Render(req + " (missing)")
			} else {
				parts[i] = textStyle.Render(req)
			}
		}
		b.WriteString(strings.Join(parts, mutedColor.Render(", ")))
	}
	b.WriteString("\n")

	b.WriteString(indent + labelStyle.Render("required by: "))
	if deps := m.index.dependentsOf(c.Name); len(deps) == 0 {
		b.WriteString(mutedColor.Render("(none)"))
	} else {
		b.WriteString(textStyle.Render(strings.Join(deps, ", ")))
	}
	b.WriteString("\n")

	b.WriteString(indent + mutedColor.Render(fmt.Sprintf("line %d", c.Line)) + "\n")
	return b.String()
}

func (m Model) renderDiagram() string {
	return diagramStyle.Render(strings.TrimRight(m.diagram, "\n")) + "\n"
}

// renderSelectedChangeLine renders a change line with full-width background highlight
func (m Model) renderSelectedChangeLine(idx int, expanded bool) string {
	c := m.plan.Changes[idx]
	kind := m.kindOf(idx)

	var content strings.Builder
	if expanded {
		content.WriteString("▼ ")
	} else {
		content.WriteString("▶ ")
	}
	content.WriteString(kindGlyph(kind))
	content.WriteString(" ")
	content.WriteString(c.Name)
	content.WriteString(" ")
	content.WriteString(requiresSummary(c))

	line := content.String()
	targetWidth := m.width - 4
	if pad := targetWidth - lipgloss.Width(line); targetWidth > 0 && pad > 0 {
		line += strings.Repeat(" ", pad)
	}

	return selectedStyle.
		Foreground(GetKindColor(kind)).
		Bold(true).
		Render(line)
}

func (m Model) renderChangeLine(idx int, expanded bool) string {
	c := m.plan.Changes[idx]
	kind := m.kindOf(idx)

	var b strings.Builder
	if expanded {
		b.WriteString(expandedIndicator)
	} else {
		b.WriteString(collapsedIndicator)
	}
	b.WriteString(" ")
	b.WriteString(GetKindSymbol(kind))
	b.WriteString(" ")

	name := GetChangeStyle(kind).Render(c.Name)
	if m.searchQuery != "" {
		name = highlightMatch(c.Name, m.searchQuery, GetChangeStyle(kind))
	}
	b.WriteString(name)
	b.WriteString(" ")
	b.WriteString(mutedColor.Render(requiresSummary(c)))

	return b.String()
}

func requiresSummary(c parser.Change) string {
	switch len(c.Requires) {
	case 0:
		return ""
	case 1:
		return "← " + c.Requires[0]
	default:
		return fmt.Sprintf("← %s (+%d)", c.Requires[0], len(c.Requires)-1)
	}
}

func highlightMatch(text, query string, base lipgloss.Style) string {
	start, end := indexFold(text, query)
	if start == -1 {
		return base.Render(text)
	}
	return base.Render(text[:start]) + matchStyle.Render(text[start:end]) + base.Render(text[end:])
}

// indexFold returns the byte range of the first case-insensitive match of
// query in text, or -1, -1. Offsets always fall on rune boundaries of text,
// even when folding changes the encoded length of a rune.
func indexFold(text, query string) (int, int) {
	n := utf8.RuneCountInString(query)
	if n == 0 {
		return -1, -1
	}
	for start := range text {
		end := start
		for k := 0; k < n && end < len(text); k++ {
			_, size := utf8.DecodeRuneInString(text[end:])
			end += size
		}
		if strings.EqualFold(text[start:end], query) {
			return start, end
		}
	}
	return -1, -1
}

func sortOrderLabel(opt SortOrder) string {
	switch opt {
	case SortDefault:
		return "default (plan order)"
	case SortByName:
		return "by name"
	case SortByRequires:
		return "by requirement count"
	case SortByDependents:
		return "by dependents"
	default:
		return string(opt)
	}
}

func sortOrderHint(opt SortOrder) string {
	switch opt {
	case SortDefault:
		return "- as deployed by sqitch"
	case SortByName:
		return "- alphabetical"
	case SortByRequires:
		return "- most prerequisites first"
	case SortByDependents:
		return "- most depended-on first"
	default:
		return ""
	}
}

func filterKindLabel(kind ChangeKind) string {
	switch kind {
	case KindRoot:
		return "roots (no requirements)"
	case KindDependent:
		return "dependents (requires and required)"
	case KindLeaf:
		return "leaves (nothing requires them)"
	case KindDangling:
		return "missing requirements"
	default:
		return string(kind)
	}
}

func (m Model) viewFilterPicker() string {
	var b strings.Builder
	b.WriteString(searchStyle.Render("Filter by kind (Space: toggle, a: all, c: clear, Enter: apply, Esc: clear all and close)"))
	b.WriteString("\n\n")
	for i, kind := range filterableKinds {
		checked := "[ ]"
		if m.kindFilters[kind] {
			checked = "[x]"
		}
		rowStyle := textStyle
		if i == m.filterCursor {
			rowStyle = rowStyle.Background(colors.selectedBg)
		}
		b.WriteString(rowStyle.Render("  "+checked+" ") + GetChangeStyle(kind).Render(filterKindLabel(kind)))
		b.WriteString("\n")
	}
	b.WriteString(helpStyle.Render("j/k: navigate • Space: toggle • a: select all • c: clear all • Enter: apply • Esc: close"))
	return appStyle.Render(b.String())
}

func (m Model) viewSortPicker() string {
	var b strings.Builder
	b.WriteString(searchStyle.Render("Sort by (Enter/Space: select, Esc: close)"))
	b.WriteString("\n\n")
	for i, opt := range sortOptions {
		marker := "  "
		if opt == m.sortOrder {
			marker = "● "
		}
		rowStyle := textStyle
		if i == m.sortCursor {
			rowStyle = rowStyle.Background(colors.selectedBg)
		}
		b.WriteString(rowStyle.Render(marker+sortOrderLabel(opt)) + " " + mutedColor.Render(sortOrderHint(opt)))
		b.WriteString("\n")
	}
	b.WriteString(helpStyle.Render("j/k: navigate • Enter/Space: select • Esc: close"))
	return appStyle.Render(b.String())
}

func (m Model) viewHeader() string {
	var b strings.Builder
	title := "🔷 Sqitch-Prism - Sqitch Plan Viewer"
	if project := m.plan.Project(); project != "" {
		title += " · " + project
	}
	b.WriteString(headerStyle.Render(title))
	b.WriteString("\n")

	summary := fmt.Sprintf("  %d changes, %d dependencies", len(m.graph.Nodes), len(m.graph.Edges))
	if dangling := len(m.index.dangling); dangling > 0 {
		summary += ", " + lipgloss.NewStyle().Foreground(colors.dangling).Render(fmt.Sprintf("%d missing", dangling))
	}
	if m.source != "" {
		summary += mutedColor.Render("  " + m.source)
	}
	b.WriteString(summaryStyle.Render(summary))
	b.WriteString("\n\n")
	return b.String()
}

func (m Model) viewStatusLines() string {
	var b strings.Builder
	if m.hasKindFilter() {
		var labels []string
		for _, kind := range filterableKinds {
			if m.kindFilters[kind] {
				labels = append(labels, string(kind))
			}
		}
		if len(labels) > 0 {
			b.WriteString(searchStyle.Render(fmt.Sprintf("Filter: %s • f: change • Esc: clear", strings.Join(labels, ", "))) + "\n\n")
		}
	}
	if m.sortOrder != SortDefault && m.sortOrder != "" {
		b.WriteString(searchStyle.Render(fmt.Sprintf("Sort: %s • s: change", sortOrderLabel(m.sortOrder))) + "\n\n")
	}
	if m.searching {
		b.WriteString(searchStyle.Render("Search: ") + m.searchInput.View() + "\n\n")
	} else if m.searchQuery != "" {
		b.WriteString(searchStyle.Render(fmt.Sprintf("Search: %q (%d/%d matches)", m.searchQuery, m.currentMatch+1, len(m.searchMatches))) + "\n\n")
	}
	return b.String()
}

func (m Model) viewHelpFooter() string {
	if m.showDiagram {
		return "mermaid source • j/k/d/u: scroll • m/Esc: back to changes • q: quit"
	}
	return "j/k/↑↓: navigate • l/→: expand • h/←: collapse • e/c: all • gg/G: top/bottom • /: search • f: filter • s: sort • m: mermaid • q: quit"
}

func (m Model) viewUpdateNudge() string {
	if m.updateAvailable == "" {
		return ""
	}
	nudgeStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("86")).Italic(true)
	return "\n" + nudgeStyle.Render(fmt.Sprintf("Update available: v%s. Run 'sqitchprism upgrade' to update.", m.updateAvailable))
}

// View renders the UI
func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}
	if m.filtering {
		return m.viewFilterPicker()
	}
	if m.sorting {
		return m.viewSortPicker()
	}

	var b strings.Builder
	b.WriteString(m.viewHeader())
	b.WriteString(m.viewStatusLines())
	b.WriteString(m.viewport.View())
	b.WriteString("\n")
	b.WriteString(helpStyle.Render(m.viewHelpFooter()))
	b.WriteString(m.viewUpdateNudge())
	return appStyle.Render(b.String())
}
