package graph

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/CaptShanks/sqitchprism/internal/parser"
)

const flipr = `%syntax-version=1.0.0
%project=flipr

appschema 2013-12-30T23:19:24Z Marge <marge@example.com> # Add schema for all flipr objects.
users [appschema] 2013-12-31T20:55:23Z Marge <marge@example.com> # Creates table to track our users.
@v1.0.0-dev1 2013-12-31T21:38:08Z Marge <marge@example.com> # Tag v1.0.0-dev1.
flips [appschema users] 2014-01-01T10:01:10Z Marge <marge@example.com> # Adds table for storing flips.
`

func TestBuild_SingleEdge(t *testing.T) {
	g := Build([]parser.Change{
		{Name: "a", Requires: []string{}},
		{Name: "b", Requires: []string{"a"}},
	})

	require.Len(t, g.Nodes, 2)
	assert.Equal(t, "a", g.Nodes[0].ID)
	assert.Equal(t, "b", g.Nodes[1].ID)
	assert.Equal(t, []Edge{{From: "a", To: "b"}}, g.Edges)
}

func TestBuild_NodeFields(t *testing.T) {
	g := Build([]parser.Change{{Name: "users", Description: "Creates table"}})

	require.Len(t, g.Nodes, 1)
	assert.Equal(t, Node{ID: "users", Label: "users", Title: "Creates table"}, g.Nodes[0])
}

func TestBuild_EdgeOrderGroupsByDependent(t *testing.T) {
	g := Build([]parser.Change{
		{Name: "c", Requires: []string{"x", "y"}},
		{Name: "d", Requires: []string{"c"}},
		{Name: "e", Requires: []string{"y", "x"}},
	})

	assert.Equal(t, []Edge{
		{From: "x", To: "c"},
		{From: "y", To: "c"},
		{From: "c", To: "d"},
		{From: "y", To: "e"},
		{From: "x", To: "e"},
	}, g.Edges)
}

func TestBuild_NoDeduplication(t *testing.T) {
	g := Build([]parser.Change{{Name: "b", Requires: []string{"a", "a"}}})
	assert.Len(t, g.Edges, 2)
}

func TestBuildGraph_Flipr(t *testing.T) {
	want := "graph LR\n" +
		"appschema[appschema]\n" +
		"users[users]\n" +
		"flips[flips]\n" +
		"appschema --> users\n" +
		"appschema --> flips\n" +
		"users --> flips\n"

	assert.Equal(t, want, BuildGraph(flipr))
}

func TestBuildGraph_EmptyInputIsHeaderOnly(t *testing.T) {
	for _, input := range []string{"", "\n\n", "%project=x\n@tag\n"} {
		assert.Equal(t, "graph LR\n", BuildGraph(input), "input %q", input)
	}
}

func TestBuildGraph_AlwaysStartsWithHeader(t *testing.T) {
	for _, input := range []string{"a", "a [b]", "  [weird] line", flipr} {
		assert.True(t, strings.HasPrefix(BuildGraph(input), "graph LR\n"), "input %q", input)
	}
}

func TestBuildGraph_Idempotent(t *testing.T) {
	assert.Equal(t, BuildGraph(flipr), BuildGraph(flipr))
}

func TestBuildGraph_DanglingReferenceIsEmitted(t *testing.T) {
	out := BuildGraph("b [missing]\n")
	assert.Equal(t, "graph LR\nb[b]\nmissing --> b\n", out)
}

func TestDependentsAndDangling(t *testing.T) {
	g := Build(parser.ParseChanges(flipr + "extra [ghost appschema]\n"))

	assert.Equal(t, []string{"users", "flips", "extra"}, g.Dependents("appschema"))
	assert.Empty(t, g.Dependents("flips"))
	assert.Equal(t, []string{"ghost"}, g.Dangling())
	assert.True(t, g.IsDangling("ghost"))
	assert.False(t, g.IsDangling("users"))
}

func TestDanglingSetAndDependentsByName(t *testing.T) {
	g := Build(parser.ParseChanges(flipr + "extra [ghost appschema]\n"))

	assert.Equal(t, map[string]bool{"ghost": true}, g.DanglingSet())
	deps := g.DependentsByName()
	for _, name := range []string{"appschema", "users", "flips", "ghost"} {
		assert.Equal(t, g.Dependents(name), deps[name], name)
	}
	assert.Empty(t, deps["extra"])
}

func TestMermaidFormatter_Direction(t *testing.T) {
	g := Build([]parser.Change{{Name: "a"}})
	assert.Equal(t, "graph TD\na[a]\n", NewMermaidFormatter(DirectionTD).Format(g))
	assert.Equal(t, "graph LR\na[a]\n", NewMermaidFormatter("").Format(g))
}

func TestDOTFormatter(t *testing.T) {
	g := Build([]parser.Change{
		{Name: "a", Description: `say "hi"`},
		{Name: "b", Requires: []string{"a"}},
	})

	want := "digraph plan {\n" +
		"  rankdir=LR;\n" +
		"  \"a\" [label=\"a\", tooltip=\"say \\\"hi\\\"\"];\n" +
		"  \"b\" [label=\"b\"];\n" +
		"  \"a\" -> \"b\";\n" +
		"}\n"
	assert.Equal(t, want, NewDOTFormatter(DirectionLR).Format(g))
}

func TestFormatterFor(t *testing.T) {
	f, err := FormatterFor("", DirectionLR)
	require.NoError(t, err)
	assert.Equal(t, FormatMermaid, f.Name())

	f, err = FormatterFor("DOT", DirectionTD)
	require.NoError(t, err)
	assert.Equal(t, FormatDOT, f.Name())

	_, err = FormatterFor("plantuml", DirectionLR)
	assert.Error(t, err)
}

func TestParseDirection(t *testing.T) {
	tests := []struct {
		in   string
		want Direction
		ok   bool
	}{
		{"", DirectionLR, true},
		{"lr", DirectionLR, true},
		{"TD", DirectionTD, true},
		{"tb", DirectionTD, true},
		{"RL", "", false},
	}
	for _, tt := range tests {
		got, err := ParseDirection(tt.in)
		if tt.ok {
			require.NoError(t, err, tt.in)
			assert.Equal(t, tt.want, got)
		} else {
			assert.Error(t, err, tt.in)
		}
	}
}
