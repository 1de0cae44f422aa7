package syllabus

import "strings"

const (
	// UnknownTopicName replaces missing or blank topic names.
	UnknownTopicName = "Unknown Topic"
	// DefaultLeafHours is the estimate given to a leaf that has none.
	DefaultLeafHours = 0.5
)

type Importance string

const (
	ImportanceHigh   Importance = "High"
	ImportanceMedium Importance = "Medium"
	ImportanceLow    Importance = "Low"
)

// ParseImportance is case-insensitive and falls back to Medium.
func ParseImportance(raw string) Importance {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "high":
		return ImportanceHigh
	case "low":
		return ImportanceLow
	default:
		return ImportanceMedium
	}
}

func (i Importance) IsHigh() bool { return strings.EqualFold(string(i), string(ImportanceHigh)) }

// Topic is one node of a course outline. A node without subtopics is a leaf.
type Topic struct {
	Name           string     `json:"name"`
	Importance     Importance `json:"importance"`
	EstimatedHours *float64   `json:"estimated_hours"`
	ScheduledDate  *Date      `json:"scheduled_date,omitempty"`
	Completed      bool       `json:"completed"`
	Subtopics      []*Topic   `json:"subtopics"`
}

func (t *Topic) IsLeaf() bool { return t == nil || len(t.Subtopics) == 0 }

// Hours returns the estimate or def when unset.
func (t *Topic) Hours(def float64) float64 {
	if t == nil || t.EstimatedHours == nil {
		return def
	}
	return *t.EstimatedHours
}

// Walk visits topics in pre-order. Returning false from fn skips that node's subtree.
func Walk(topics []*Topic, fn func(t *Topic, depth int) bool) {
	walk(topics, 0, fn)
}

func walk(topics []*Topic, depth int, fn func(t *Topic, depth int) bool) {
	for _, t := range topics {
		if t == nil {
			continue
		}
		if !fn(t, depth) {
			continue
		}
		walk(t.Subtopics, depth+1, fn)
	}
}

// Leaves returns the leaf nodes in traversal order.
func Leaves(topics []*Topic) []*Topic {
	var out []*Topic
	Walk(topics, func(t *Topic, _ int) bool {
		if t.IsLeaf() {
			out = append(out, t)
		}
		return true
	})
	return out
}

// At resolves a node by its child-index path from the top level.
func At(topics []*Topic, path []int) (*Topic, bool) {
	if len(path) == 0 {
		return nil, false
	}
	level := topics
	var cur *Topic
	for _, idx := range path {
		if idx < 0 || idx >= len(level) || level[idx] == nil {
			return nil, false
		}
		cur = level[idx]
		level = cur.Subtopics
	}
	return cur, true
}

// SetCompleted marks the node at path and its whole subtree, then recomputes
// every ancestor on the path as the conjunction of its children.
func SetCompleted(topics []*Topic, path []int, completed bool) bool {
	node, ok := At(topics, path)
	if !ok {
		return false
	}
	Walk([]*Topic{node}, func(t *Topic, _ int) bool {
		t.Completed = completed
		return true
	})
	for i := len(path) - 1; i > 0; i-- {
		parent, _ := At(topics, path[:i])
		all := true
		for _, c := range parent.Subtopics {
			if c != nil && !c.Completed {
				all = false
				break
			}
		}
		parent.Completed = all
	}
	return true
}
