package tui

import (
	"github.com/charmbracelet/lipgloss"
)

// palette holds every color the viewer uses
type palette struct {
	root      lipgloss.Color
	dependent lipgloss.Color
	dangling  lipgloss.Color
	leaf      lipgloss.Color

	selectedBg lipgloss.Color
	header     lipgloss.Color
	border     lipgloss.Color
	muted      lipgloss.Color
	text       lipgloss.Color
	accent     lipgloss.Color
}

// Soft, low-contrast palette inspired by Tokyo Night / Catppuccin
var darkPalette = palette{
	root:      lipgloss.Color("#9ece6a"), // Soft sage green
	dependent: lipgloss.Color("#e0af68"), // Warm amber
	dangling:  lipgloss.Color("#f7768e"), // Soft coral red
	leaf:      lipgloss.Color("#7dcfff"), // Soft sky blue

	selectedBg: lipgloss.Color("#292e42"),
	header:     lipgloss.Color("#7aa2f7"),
	border:     lipgloss.Color("#3b4261"),
	muted:      lipgloss.Color("#565f89"),
	text:       lipgloss.Color("#a9b1d6"),
	accent:     lipgloss.Color("#bb9af7"),
}

// Catppuccin Latte
var lightPalette = palette{
	root:      lipgloss.Color("#40a02b"),
	dependent: lipgloss.Color("#df8e1d"),
	dangling:  lipgloss.Color("#d20f39"),
	leaf:      lipgloss.Color("#04a5e5"),

	selectedBg: lipgloss.Color("#ccd0da"),
	header:     lipgloss.Color("#1e66f5"),
	border:     lipgloss.Color("#bcc0cc"),
	muted:      lipgloss.Color("#8c8fa1"),
	text:       lipgloss.Color("#4c4f69"),
	accent:     lipgloss.Color("#8839ef"),
}

var colors palette

// Styles, rebuilt by applyPalette
var (
	appStyle           lipgloss.Style
	headerStyle        lipgloss.Style
	summaryStyle       lipgloss.Style
	selectedStyle      lipgloss.Style
	mutedColor         lipgloss.Style
	textStyle          lipgloss.Style
	labelStyle         lipgloss.Style
	helpStyle          lipgloss.Style
	searchStyle        lipgloss.Style
	matchStyle         lipgloss.Style
	diagramStyle       lipgloss.Style
	expandedIndicator  string
	collapsedIndicator string
)

func init() {
	applyPalette(darkPalette)
}

// SetLightPalette switches the viewer to light-terminal colors
func SetLightPalette() {
	applyPalette(lightPalette)
}

// SetDarkPalette switches the viewer to dark-terminal colors
func SetDarkPalette() {
	applyPalette(darkPalette)
}

func applyPalette(p palette) {
	colors = p

	appStyle = lipgloss.NewStyle().
		Padding(1, 2)

	headerStyle = lipgloss.NewStyle().
		Bold(true).
		Foreground(p.header).
		MarginBottom(1)

	summaryStyle = lipgloss.NewStyle().
		Foreground(p.text).
		MarginBottom(1)

	selectedStyle = lipgloss.NewStyle().
		Background(p.selectedBg)

	mutedColor = lipgloss.NewStyle().
		Foreground(p.muted)

	textStyle = lipgloss.NewStyle().
		Foreground(p.text)

	labelStyle = lipgloss.NewStyle().
		Foreground(p.header)

	helpStyle = lipgloss.NewStyle().
		Foreground(p.muted).
		MarginTop(1)

	searchStyle = lipgloss.NewStyle().
		Foreground(p.header).
		Bold(true)

	matchStyle = lipgloss.NewStyle().
		Background(p.border).
		Foreground(p.root).
		Bold(true)

	diagramStyle = lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(p.border).
		Foreground(p.accent).
		Padding(0, 1)

	expandedIndicator = lipgloss.NewStyle().Foreground(p.muted).Render("▼")
	collapsedIndicator = lipgloss.NewStyle().Foreground(p.muted).Render("▶")
}

// GetKindColor returns the color for a change kind
func GetKindColor(kind ChangeKind) lipgloss.Color {
	switch kind {
	case KindRoot:
		return colors.root
	case KindDangling:
		return colors.dangling
	case KindLeaf:
		return colors.leaf
	default:
		return colors.dependent
	}
}

// GetKindSymbol returns the colored marker for a change kind
func GetKindSymbol(kind ChangeKind) string {
	return lipgloss.NewStyle().Foreground(GetKindColor(kind)).Render(kindGlyph(kind))
}

// GetChangeStyle returns the name style for a change kind
func GetChangeStyle(kind ChangeKind) lipgloss.Style {
	return lipgloss.NewStyle().
		Bold(true).
		Foreground(GetKindColor(kind))
}

func kindGlyph(kind ChangeKind) string {
	switch kind {
	case KindRoot:
		return "●"
	case KindDangling:
		return "!"
	case KindLeaf:
		return "◆"
	default:
		return "→"
	}
}
