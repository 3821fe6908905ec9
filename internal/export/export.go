// Package export writes a plan's dependency graph as a Markdown or HTML document.
package export

import (
	"bytes"
	"fmt"
	"html/template"
	"path/filepath"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"

	"github.com/CaptShanks/sqitchprism/internal/graph"
	"github.com/CaptShanks/sqitchprism/internal/parser"
)

// Title returns the document title: the project pragma, else the file name
func Title(plan *parser.Plan, source string) string {
	if project := plan.Project(); project != "" {
		return project
	}
	if source != "" && source != "-" {
		return filepath.Base(source)
	}
	return "sqitch plan"
}

// Markdown renders plan as a Markdown document with a fenced diagram block
// in f's language followed by a table of changes.
func Markdown(plan *parser.Plan, source string, f graph.Formatter) string {
	g := graph.Build(plan.Changes)

	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n\n", Title(plan, source))
	if source != "" && source != "-" {
		fmt.Fprintf(&b, "Source: `%s`\n\n", source)
	}
	fmt.Fprintf(&b, "%d changes, %d dependencies.\n\n", len(g.Nodes), len(g.Edges))

	if dangling := g.Dangling(); len(dangling) > 0 {
		b.WriteString("**Missing requirements:** ")
		for i, name := range dangling {
			if i > 0 {
				b.WriteString(", ")
			}
			fmt.Fprintf(&b, "`%s`", name)
		}
		b.WriteString("\n\n")
	}

	fmt.Fprintf(&b, "```%s\n", f.Name())
	b.WriteString(f.Format(g))
	b.WriteString("```\n\n")

	if len(plan.Changes) == 0 {
		b.WriteString("_The plan has no changes._\n")
		return b.String()
	}

	b.WriteString("| # | Change | Requires | Description |\n")
	b.WriteString("|---|---|---|---|\n")
	for i, c := range plan.Changes {
		requires := "-"
		if len(c.Requires) > 0 {
			parts := make([]string, len(c.Requires))
			for j, req := range c.Requires {
				parts[j] = "`" + escapeCell(req) + "`"
				if g.IsDangling(req) {
					parts[j] += " (missing)"
				}
			}
			requires = strings.Join(parts, ", ")
		}
		fmt.Fprintf(&b, "| %d | `%s` | %s | %s |\n", i+1, escapeCell(c.Name), requires, escapeCell(c.Description))
	}
	return b.String()
}

// escapeCell keeps pipes from splitting a table cell
func escapeCell(s string) string {
	return strings.ReplaceAll(s, "|", `\|`)
}

var pageTemplate = template.Must(template.New("page").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
  <meta charset="utf-8">
  <title>{{.Title}}</title>
  <style>
    body { max-width: 72rem; margin: 2rem auto; padding: 0 1rem; font-family: ui-sans-serif, system-ui, sans-serif; color: #24292f; }
    table { border-collapse: collapse; }
    th, td { border: 1px solid #d0d7de; padding: 0.3rem 0.6rem; text-align: left; vertical-align: top; }
    pre { background: #f6f8fa; padding: 1rem; overflow-x: auto; }
  </style>
</head>
<body>
{{.Body}}
<script type="module">
  import mermaid from "https://cdn.jsdelivr.net/npm/mermaid@10/dist/mermaid.esm.min.mjs";
  mermaid.initialize({ startOnLoad: false });
  for (const code of document.querySelectorAll("pre > code.language-mermaid")) {
    const div = document.createElement("div");
    div.className = "mermaid";
    div.textContent = code.textContent;
    code.parentElement.replaceWith(div);
  }
  await mermaid.run();
</script>
</body>
</html>
`))

// HTML converts a Markdown document into a standalone page that renders
// mermaid code blocks in the browser.
func HTML(title, markdown string) (string, error) {
	md := goldmark.New(goldmark.WithExtensions(extension.GFM))

	var body bytes.Buffer
	if err := md.Convert([]byte(markdown), &body); err != nil {
		return "", fmt.Errorf("converting markdown: %w", err)
	}

	var page bytes.Buffer
	err := pageTemplate.Execute(&page, struct {
		Title string
		Body  template.HTML
	}{
		Title: title,
		Body:  template.HTML(body.String()),
	})
	if err != nil {
		return "", fmt.Errorf("rendering page: %w", err)
	}
	return page.String(), nil
}
