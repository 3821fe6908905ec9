package tui

import (
	"github.com/CaptShanks/sqitchprism/internal/graph"
	"github.com/CaptShanks/sqitchprism/internal/parser"
)

// planIndex caches graph lookups so rendering and sorting stay linear in
// the plan size. It is built once per plan and never mutated.
type planIndex struct {
	dangling   map[string]bool
	dependents map[string][]string
	kinds      [][]ChangeKind // per change; the first is its display kind
}

func newPlanIndex(plan *parser.Plan, g *graph.Graph) *planIndex {
	idx := &planIndex{
		dangling:   g.DanglingSet(),
		dependents: g.DependentsByName(),
		kinds:      make([][]ChangeKind, len(plan.Changes)),
	}
	for i, c := range plan.Changes {
		idx.kinds[i] = idx.classify(c)
	}
	return idx
}

func (idx *planIndex) classify(c parser.Change) []ChangeKind {
	var kinds []ChangeKind
	for _, req := range c.Requires {
		if idx.dangling[req] {
			kinds = append(kinds, KindDangling)
			break
		}
	}

	dependents := len(idx.dependents[c.Name])
	switch {
	case len(c.Requires) == 0:
		kinds = append(kinds, KindRoot)
	case dependents > 0:
		kinds = append(kinds, KindDependent)
	}
	if dependents == 0 {
		kinds = append(kinds, KindLeaf)
	}
	return kinds
}

func (idx *planIndex) isDangling(name string) bool {
	return idx.dangling[name]
}

func (idx *planIndex) dependentsOf(name string) []string {
	return idx.dependents[name]
}
