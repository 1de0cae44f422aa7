package providers

import (
	"strings"
	"unicode/utf8"
)

const systemPrompt = "You extract course structure from syllabi. Reply with one JSON object and nothing else."

const instructions = `Read the syllabus below and return its topic hierarchy.

Rules:
- Follow the section structure of the syllabus. Nest subtopics under the topic they belong to.
- Give every node an "importance" of "High", "Medium" or "Low". Use explicit weighting, time allocation and required/optional cues first; otherwise judge how foundational the material is.
- Give "estimated_hours" (a number) only to nodes without subtopics. Nodes that have subtopics use null.
- Leaf nodes have "subtopics": [].
- Use short, descriptive names taken from the syllabus.

Return exactly this shape:
{"topics":[{"name":"...","importance":"High","estimated_hours":null,"subtopics":[{"name":"...","importance":"Medium","estimated_hours":2.5,"subtopics":[]}]}]}

Syllabus:
---
`

func buildUserPrompt(text string, maxChars int) string {
	text = strings.TrimSpace(text)
	if maxChars > 0 && len(text) > maxChars {
		cut := maxChars
		for cut > 0 && !utf8.RuneStart(text[cut]) {
			cut--
		}
		text = text[:cut]
	}
	var b strings.Builder
	b.Grow(len(instructions) + len(text) + 8)
	b.WriteString(instructions)
	b.WriteString(text)
	b.WriteString("\n---")
	return b.String()
}
