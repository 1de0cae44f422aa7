package providers

import (
	"context"
	"regexp"
	"strconv"
	"strings"
)

// Outline derives topics from the document's own structure: markdown headings,
// numbered sections, unit/week labels and bullet lists. It needs no network and
// serves as the development provider and the last fallback.
type Outline struct{}

func NewOutline() *Outline { return &Outline{} }

func (o *Outline) Name() string { return "outline" }

var (
	mdHeadingRE   = regexp.MustCompile(`^(#{1,6})\s+(.+)$`)
	numberedRE    = regexp.MustCompile(`^(\d{1,3}(?:\.\d{1,3})+\.?|\d{1,3}[.)])\s+(.+)$`)
	sectionRE     = regexp.MustCompile(`(?i)^(week|unit|module|chapter|part|lecture|section|topic)\s+[\divxlc]+\b\s*[:.\-–]?\s*(.*)$`)
	bulletRE      = regexp.MustCompile(`^([-*•+])\s+(.+)$`)
	hoursRE       = regexp.MustCompile(`(?i)\(?\s*(\d+(?:\.\d+)?)\s*(?:h|hr|hrs|hour|hours)\b\s*\)?`)
	highWordsRE   = regexp.MustCompile(`(?i)\b(core|essential|required|fundamental|foundation(?:al)?|key|critical|important)\b`)
	lowWordsRE    = regexp.MustCompile(`(?i)\b(optional|supplementary|supplemental|bonus|extra|further reading|appendix|elective)\b`)
	trailingSepRE = regexp.MustCompile(`[\s:;,.\-–]+$`)
)

type outlineNode struct {
	level int
	node  map[string]any
}

func (o *Outline) ExtractTopics(ctx context.Context, text string) (any, error) {
	if strings.TrimSpace(text) == "" {
		return nil, ErrEmptyInput
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	roots := []any{}
	var stack []outlineNode
	headingLevel := -1

	attach := func(level int, node map[string]any) {
		for len(stack) > 0 && stack[len(stack)-1].level >= level {
			stack = stack[:len(stack)-1]
		}
		if len(stack) == 0 {
			roots = append(roots, node)
		} else {
			parent := stack[len(stack)-1].node
			parent["subtopics"] = append(parent["subtopics"].([]any), node)
		}
		stack = append(stack, outlineNode{level: level, node: node})
	}

	for _, line := range strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n") {
		if strings.TrimSpace(line) == "" {
			continue
		}
		indent := leadingIndent(line)
		trimmed := strings.TrimSpace(line)

		if m := mdHeadingRE.FindStringSubmatch(trimmed); m != nil {
			headingLevel = len(m[1]) - 1
			attach(headingLevel, newOutlineNode(m[2]))
			continue
		}
		if m := sectionRE.FindStringSubmatch(trimmed); m != nil {
			title := strings.TrimSpace(m[2])
			if title == "" {
				title = trimmed
			}
			headingLevel = 0
			attach(headingLevel, newOutlineNode(title))
			continue
		}
		if m := bulletRE.FindStringSubmatch(trimmed); m != nil {
			attach(headingLevel+1+indent/2, newOutlineNode(m[2]))
			continue
		}
		if m := numberedRE.FindStringSubmatch(trimmed); m != nil && len(trimmed) <= 120 {
			depth := strings.Count(strings.TrimRight(m[1], ".)"), ".")
			headingLevel = depth
			attach(depth, newOutlineNode(m[2]))
			continue
		}
	}

	if len(roots) == 0 {
		return nil, ErrNoTopics
	}
	clearParentHours(roots)
	return roots, nil
}

func newOutlineNode(title string) map[string]any {
	node := map[string]any{
		"importance":      "Medium",
		"estimated_hours": nil,
		"subtopics":       []any{},
	}
	if m := hoursRE.FindStringSubmatchIndex(title); m != nil {
		if h, err := strconv.ParseFloat(title[m[2]:m[3]], 64); err == nil {
			node["estimated_hours"] = h
		}
		title = title[:m[0]] + title[m[1]:]
	}
	switch {
	case lowWordsRE.MatchString(title):
		node["importance"] = "Low"
	case highWordsRE.MatchString(title):
		node["importance"] = "High"
	}
	title = strings.Join(strings.Fields(title), " ")
	title = trailingSepRE.ReplaceAllString(title, "")
	node["name"] = strings.Trim(title, "*_` ")
	return node
}

// clearParentHours drops hour hints on nodes that gained subtopics, so their
// effort is derived from the children.
func clearParentHours(nodes []any) {
	for _, n := range nodes {
		m := n.(map[string]any)
		subs := m["subtopics"].([]any)
		if len(subs) > 0 {
			m["estimated_hours"] = nil
			clearParentHours(subs)
		}
	}
}

func leadingIndent(line string) int {
	n := 0
	for _, r := range line {
		switch r {
		case ' ':
			n++
		case '\t':
			n += 4
		default:
			return n
		}
	}
	return n
}
