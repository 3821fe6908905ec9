package graph

import (
	"fmt"
	"strings"
)

// Direction is the layout direction hint passed to the renderer
type Direction string

const (
	DirectionLR Direction = "LR"
	DirectionTD Direction = "TD"
)

// Format names accepted by FormatterFor
const (
	FormatMermaid = "mermaid"
	FormatDOT     = "dot"
)

// Formatter serializes a graph into a diagram description language
type Formatter interface {
	Name() string
	Format(g *Graph) string
}

// FormatterFor returns the formatter registered under name
func FormatterFor(name string, dir Direction) (Formatter, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", FormatMermaid:
		return NewMermaidFormatter(dir), nil
	case FormatDOT:
		return NewDOTFormatter(dir), nil
	default:
		return nil, fmt.Errorf("unknown format %q (want %s or %s)", name, FormatMermaid, FormatDOT)
	}
}

// ParseDirection normalizes a direction flag value
func ParseDirection(s string) (Direction, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "", "LR":
		return DirectionLR, nil
	case "TD", "TB":
		return DirectionTD, nil
	default:
		return "", fmt.Errorf("unknown direction %q (want LR or TD)", s)
	}
}

// MermaidFormatter emits Mermaid flowchart syntax. Labels are written
// verbatim, so names containing Mermaid metacharacters corrupt the output.
type MermaidFormatter struct {
	direction Direction
}

// NewMermaidFormatter creates a Mermaid formatter; an empty direction means LR
func NewMermaidFormatter(dir Direction) *MermaidFormatter {
	if dir == "" {
		dir = DirectionLR
	}
	return &MermaidFormatter{direction: dir}
}

func (f *MermaidFormatter) Name() string {
	return FormatMermaid
}

// Format writes the header, one node line per node, then one edge line per edge
func (f *MermaidFormatter) Format(g *Graph) string {
	var b strings.Builder
	fmt.Fprintf(&b, "graph %s\n", f.direction)
	for _, n := range g.Nodes {
		fmt.Fprintf(&b, "%s[%s]\n", n.ID, n.Label)
	}
	for _, e := range g.Edges {
		fmt.Fprintf(&b, "%s --> %s\n", e.From, e.To)
	}
	return b.String()
}

// DOTFormatter emits a Graphviz digraph
type DOTFormatter struct {
	direction Direction
}

// NewDOTFormatter creates a DOT formatter; an empty direction means LR
func NewDOTFormatter(dir Direction) *DOTFormatter {
	if dir == "" {
		dir = DirectionLR
	}
	return &DOTFormatter{direction: dir}
}

func (f *DOTFormatter) Name() string {
	return FormatDOT
}

// Format writes a digraph with quoted ids; DOT requires quotes to be escaped
func (f *DOTFormatter) Format(g *Graph) string {
	rankdir := "LR"
	if f.direction == DirectionTD {
		rankdir = "TB"
	}

	var b strings.Builder
	b.WriteString("digraph plan {\n")
	fmt.Fprintf(&b, "  rankdir=%s;\n", rankdir)
	for _, n := range g.Nodes {
		if n.Title != "" {
			fmt.Fprintf(&b, "  %s [label=%s, tooltip=%s];\n", dotQuote(n.ID), dotQuote(n.Label), dotQuote(n.Title))
		} else {
			fmt.Fprintf(&b, "  %s [label=%s];\n", dotQuote(n.ID), dotQuote(n.Label))
		}
	}
	for _, e := range g.Edges {
		fmt.Fprintf(&b, "  %s -> %s;\n", dotQuote(e.From), dotQuote(e.To))
	}
	b.WriteString("}\n")
	return b.String()
}

func dotQuote(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, `"`, `\"`)
	return `"` + s + `"`
}
