// Package graph turns parsed plan changes into a dependency graph and
// serializes it for diagram renderers such as Mermaid and Graphviz.
package graph

import (
	"github.com/CaptShanks/sqitchprism/internal/parser"
)

// Node is one change in the diagram
type Node struct {
	ID    string
	Label string
	Title string // change note, usable as a tooltip
}

// Edge points from a prerequisite to the change that requires it
type Edge struct {
	From string
	To   string
}

// Graph holds nodes in plan order and edges grouped by dependent change
type Graph struct {
	Nodes []Node
	Edges []Edge
}

// Build creates a graph from changes. Prerequisites that name no change
// still get an edge; nothing is validated or deduplicated.
func Build(changes []parser.Change) *Graph {
	g := &Graph{
		Nodes: make([]Node, 0, len(changes)),
		Edges: []Edge{},
	}

	for _, c := range changes {
		g.Nodes = append(g.Nodes, Node{
			ID:    c.Name,
			Label: c.Name,
			Title: c.Description,
		})
	}

	for _, c := range changes {
		for _, req := range c.Requires {
			g.Edges = append(g.Edges, Edge{From: req, To: c.Name})
		}
	}

	return g
}

// BuildGraph parses plan text and returns its Mermaid diagram
func BuildGraph(planText string) string {
	return Render(planText, NewMermaidFormatter(DirectionLR))
}

// Render parses plan text and serializes its graph with f
func Render(planText string, f Formatter) string {
	return f.Format(Build(parser.ParseChanges(planText)))
}

// Dependents returns the changes that list name as a prerequisite, in edge order
func (g *Graph) Dependents(name string) []string {
	var out []string
	for _, e := range g.Edges {
		if e.From == name {
			out = append(out, e.To)
		}
	}
	return out
}

// Dangling returns prerequisite names that match no node, in first-seen order
func (g *Graph) Dangling() []string {
	known := make(map[string]bool, len(g.Nodes))
	for _, n := range g.Nodes {
		known[n.ID] = true
	}

	seen := make(map[string]bool)
	var out []string
	for _, e := range g.Edges {
		if known[e.From] || seen[e.From] {
			continue
		}
		seen[e.From] = true
		out = append(out, e.From)
	}
	return out
}

// DanglingSet returns the names from Dangling as a set
func (g *Graph) DanglingSet() map[string]bool {
	set := make(map[string]bool)
	for _, name := range g.Dangling() {
		set[name] = true
	}
	return set
}

// DependentsByName maps every prerequisite to the changes that require it,
// in edge order. It is Dependents for all names in one pass.
func (g *Graph) DependentsByName() map[string][]string {
	out := make(map[string][]string)
	for _, e := range g.Edges {
		out[e.From] = append(out[e.From], e.To)
	}
	return out
}

// IsDangling reports whether name is referenced as a prerequisite but has no node.
// It scans the whole graph; use DanglingSet for repeated lookups.
func (g *Graph) IsDangling(name string) bool {
	for _, d := range g.Dangling() {
		if d == name {
			return true
		}
	}
	return false
}
