package parser

import (
	"strings"
)

// DirectiveKind distinguishes the two kinds of non-change lines
type DirectiveKind string

const (
	DirectivePragma DirectiveKind = "pragma" // %key=value
	DirectiveTag    DirectiveKind = "tag"    // @tag ...
)

const (
	pragmaMarker = "%"
	tagMarker    = "@"
	designator   = "#"
)

// Change represents a single change line in the plan
type Change struct {
	Name        string
	Requires    []string
	Description string
	Line        int // 1-based line number in the source text
}

// Directive is a pragma or tag line. Directives never produce a Change.
type Directive struct {
	Kind DirectiveKind
	Text string
	Line int
}

// Plan represents a parsed Sqitch plan
type Plan struct {
	Changes    []Change
	Directives []Directive
	RawPlan    string
}

// Project returns the value of the %project pragma, or "" if absent
func (p *Plan) Project() string {
	for _, d := range p.Directives {
		if d.Kind != DirectivePragma {
			continue
		}
		key, value, ok := strings.Cut(d.Text, "=")
		if ok && strings.TrimSpace(key) == "project" {
			return strings.TrimSpace(value)
		}
	}
	return ""
}

// Parse parses the full text of a plan file. It never rejects content:
// unusual lines degrade to empty requirements or descriptions.
func Parse(input string) (*Plan, error) {
	plan := &Plan{
		RawPlan: input,
	}

	for i, line := range strings.Split(input, "\n") {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			continue
		}

		switch {
		case strings.HasPrefix(trimmed, pragmaMarker):
			plan.Directives = append(plan.Directives, Directive{
				Kind: DirectivePragma,
				Text: strings.TrimPrefix(trimmed, pragmaMarker),
				Line: i + 1,
			})
		case strings.HasPrefix(trimmed, tagMarker):
			plan.Directives = append(plan.Directives, Directive{
				Kind: DirectiveTag,
				Text: strings.TrimPrefix(trimmed, tagMarker),
				Line: i + 1,
			})
		default:
			change := ParseLine(trimmed)
			change.Line = i + 1
			plan.Changes = append(plan.Changes, change)
		}
	}

	return plan, nil
}

// ParseChanges returns only the changes of a plan, in source order
func ParseChanges(input string) []Change {
	plan, _ := Parse(input)
	return plan.Changes
}

// ParseLine tokenizes one retained change line. The line is split on single
// spaces, so runs of spaces produce empty tokens; callers pass it trimmed.
func ParseLine(line string) Change {
	parts := strings.Split(strings.TrimSpace(line), " ")

	change := Change{
		Name:     parts[0],
		Requires: []string{},
	}
	rest := parts[1:]

	if len(rest) > 0 && strings.HasPrefix(rest[0], "[") {
		change.Requires = scanRequires(rest)
	}
	change.Description = extractDescription(rest)

	return change
}

// groupState tracks where the requirement scanner is relative to the
// bracket group that opens the token list.
type groupState int

const (
	outsideGroup groupState = iota
	insideGroup
	closedGroup
)

// scanRequires collects prerequisite names from the first bracket group.
// Only that group is read: "[a] [b]" yields just "a". A group that never
// closes swallows every remaining token.
func scanRequires(tokens []string) []string {
	requires := []string{}
	state := outsideGroup

	for _, tok := range tokens {
		if state == closedGroup {
			break
		}

		opens := strings.HasPrefix(tok, "[")
		closes := strings.HasSuffix(tok, "]")

		switch {
		case closes:
			tok = strings.TrimSuffix(tok, "]")
			if opens {
				tok = strings.TrimPrefix(tok, "[")
			}
			requires = append(requires, tok)
			state = closedGroup
		case opens:
			requires = append(requires, strings.TrimPrefix(tok, "["))
			state = insideGroup
		case state == insideGroup:
			requires = append(requires, tok)
		default:
			// unreachable: scans start on a "[" token
			return requires
		}
	}

	return requires
}

// extractDescription joins everything after the "#" designator token
func extractDescription(tokens []string) string {
	idx := -1
	for i, tok := range tokens {
		if tok == designator {
			idx = i
			break
		}
	}
	if idx < 0 {
		return ""
	}
	return strings.ReplaceAll(strings.Join(tokens[idx+1:], " "), "\r", "")
}
