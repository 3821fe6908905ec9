package export

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/CaptShanks/sqitchprism/internal/graph"
	"github.com/CaptShanks/sqitchprism/internal/parser"
)

const testPlan = `%syntax-version=1.0.0
%project=flipr

appschema 2013-12-30T23:19:24Z Marge <marge@example.com> # Add schema for all flipr objects.
users [appschema] 2013-12-31T20:55:23Z Marge <marge@example.com> # Creates table to track our users.
flips [appschema users] 2014-01-01T10:01:10Z Marge <marge@example.com> # Adds table for storing flips.
`

func mustParse(t *testing.T, text string) *parser.Plan {
	t.Helper()
	plan, err := parser.Parse(text)
	require.NoError(t, err)
	return plan
}

func TestTitle(t *testing.T) {
	assert.Equal(t, "flipr", Title(mustParse(t, testPlan), "db/sqitch.plan"))
	assert.Equal(t, "sqitch.plan", Title(mustParse(t, "a\n"), "db/sqitch.plan"))
	assert.Equal(t, "sqitch plan", Title(mustParse(t, "a\n"), "-"))
}

func TestMarkdown_DiagramBlock(t *testing.T) {
	md := Markdown(mustParse(t, testPlan), "sqitch.plan", graph.NewMermaidFormatter(graph.DirectionLR))

	assert.True(t, strings.HasPrefix(md, "# flipr\n"))
	assert.Contains(t, md, "```mermaid\n"+graph.BuildGraph(testPlan)+"```\n")
	assert.Contains(t, md, "3 changes, 3 dependencies.")
	assert.NotContains(t, md, "Missing requirements")
}

func TestMarkdown_DOTBlock(t *testing.T) {
	md := Markdown(mustParse(t, testPlan), "", graph.NewDOTFormatter(graph.DirectionLR))

	assert.Contains(t, md, "```dot\ndigraph plan {\n")
	assert.NotContains(t, md, "Source:")
}

func TestMarkdown_Table(t *testing.T) {
	md := Markdown(mustParse(t, testPlan), "sqitch.plan", graph.NewMermaidFormatter(graph.DirectionLR))

	assert.Contains(t, md, "| # | Change | Requires | Description |\n|---|---|---|---|\n")
	assert.Contains(t, md, "| 1 | `appschema` | - | Add schema for all flipr objects. |\n")
	assert.Contains(t, md, "| 3 | `flips` | `appschema`, `users` | Adds table for storing flips. |\n")
}

func TestMarkdown_DanglingAndPipes(t *testing.T) {
	md := Markdown(mustParse(t, "audit [ghost] # a | b\n"), "x.plan", graph.NewMermaidFormatter(graph.DirectionLR))

	assert.Contains(t, md, "**Missing requirements:** `ghost`")
	assert.Contains(t, md, "| 1 | `audit` | `ghost` (missing) | a \\| b |")
}

func TestMarkdown_EmptyPlan(t *testing.T) {
	md := Markdown(mustParse(t, "%project=empty\n"), "", graph.NewMermaidFormatter(graph.DirectionLR))

	assert.Contains(t, md, "```mermaid\ngraph LR\n```")
	assert.Contains(t, md, "_The plan has no changes._")
	assert.NotContains(t, md, "| # |")
}

func TestHTML(t *testing.T) {
	md := Markdown(mustParse(t, testPlan), "sqitch.plan", graph.NewMermaidFormatter(graph.DirectionLR))

	page, err := HTML("flipr", md)
	require.NoError(t, err)

	assert.Contains(t, page, "<title>flipr</title>")
	assert.Contains(t, page, "<h1>flipr</h1>")
	assert.Contains(t, page, `<code class="language-mermaid">`)
	assert.Contains(t, page, "appschema --&gt; users")
	assert.Contains(t, page, "<table>")
	assert.Contains(t, page, "<td><code>appschema</code></td>")
	assert.Contains(t, page, "mermaid@10")
}
