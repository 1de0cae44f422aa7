package analyzer

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/yungbote/blueprintx-backend/internal/domain/syllabus"
	"github.com/yungbote/blueprintx-backend/internal/platform/logger"
)

// ErrInvalidTree is returned when the input is not a sequence of topic nodes at all,
// or when it exceeds the configured depth or node ceilings.
var ErrInvalidTree = errors.New("invalid topic tree")

const (
	DefaultMaxDepth = 64
	DefaultMaxNodes = 10000
)

type Options struct {
	// LeafDefaultHours is assigned to leaves that carry no usable estimate.
	LeafDefaultHours float64
	MaxDepth         int
	MaxNodes         int
}

func DefaultOptions() Options {
	return Options{
		LeafDefaultHours: syllabus.DefaultLeafHours,
		MaxDepth:         DefaultMaxDepth,
		MaxNodes:         DefaultMaxNodes,
	}
}

// NodeIssue describes a raw node that was dropped or a field that was coerced to its default.
type NodeIssue struct {
	Path   string `json:"path"`
	Reason string `json:"reason"`
}

type Result struct {
	Topics []*syllabus.Topic `json:"topics"`
	// TotalHours is nil when the aggregate is not positive.
	TotalHours     *float64          `json:"total_study_hours"`
	PriorityTopics []*syllabus.Topic `json:"priority_topics"`
	Dropped        []NodeIssue       `json:"dropped_nodes,omitempty"`
	Coerced        []NodeIssue       `json:"coerced_fields,omitempty"`
}

type Analyzer struct {
	log  *logger.Logger
	opts Options
}

func New(log *logger.Logger, opts Options) *Analyzer {
	if log == nil {
		log = logger.Nop()
	}
	def := DefaultOptions()
	if opts.LeafDefaultHours <= 0 {
		opts.LeafDefaultHours = def.LeafDefaultHours
	}
	if opts.MaxDepth <= 0 {
		opts.MaxDepth = def.MaxDepth
	}
	if opts.MaxNodes <= 0 {
		opts.MaxNodes = def.MaxNodes
	}
	return &Analyzer{log: log.With("component", "TopicAnalyzer"), opts: opts}
}

// NormalizeJSON decodes b (numbers kept as json.Number) and normalizes it.
func (a *Analyzer) NormalizeJSON(b []byte) (*Result, error) {
	dec := json.NewDecoder(bytes.NewReader(b))
	dec.UseNumber()
	var raw any
	if err := dec.Decode(&raw); err != nil {
		return nil, fmt.Errorf("%w: decode: %v", ErrInvalidTree, err)
	}
	return a.Normalize(raw)
}

// Normalize validates a raw topic tree, reconciles hours bottom-up and collects
// high-importance topics. Malformed nodes are dropped and reported; only input
// that is not a node sequence fails.
func (a *Analyzer) Normalize(raw any) (*Result, error) {
	nodes, ok := asSequence(raw)
	if !ok {
		return nil, fmt.Errorf("%w: expected a list of topics, got %s", ErrInvalidTree, typeName(raw))
	}

	w := &walker{a: a}
	topics, sum, priority, err := w.level(nodes, "topics", 0)
	if err != nil {
		return nil, err
	}

	res := &Result{
		Topics:         topics,
		PriorityTopics: dedupeByName(priority),
		Dropped:        w.dropped,
		Coerced:        w.coerced,
	}
	if sum > 0 {
		total := sum
		res.TotalHours = &total
	}
	if len(w.dropped) > 0 || len(w.coerced) > 0 {
		a.log.Warn("topic tree normalized with issues",
			"dropped", len(w.dropped),
			"coerced", len(w.coerced),
			"nodes", w.nodes,
		)
	}
	return res, nil
}

type walker struct {
	a       *Analyzer
	nodes   int
	dropped []NodeIssue
	coerced []NodeIssue
}

func (w *walker) drop(path, reason string) {
	w.dropped = append(w.dropped, NodeIssue{Path: path, Reason: reason})
	w.a.log.Warn("dropping malformed topic node", "path", path, "reason", reason)
}

func (w *walker) coerce(path, reason string) {
	w.coerced = append(w.coerced, NodeIssue{Path: path, Reason: reason})
	w.a.log.Debug("coerced topic field", "path", path, "reason", reason)
}

// level processes one sibling sequence and returns the built nodes, the sum of
// their contributed hours and their priority nodes in pre-order.
func (w *walker) level(raw []any, path string, depth int) ([]*syllabus.Topic, float64, []*syllabus.Topic, error) {
	if depth >= w.a.opts.MaxDepth {
		return nil, 0, nil, fmt.Errorf("%w: nesting deeper than %d at %s", ErrInvalidTree, w.a.opts.MaxDepth, path)
	}

	out := make([]*syllabus.Topic, 0, len(raw))
	var sum float64
	var priority []*syllabus.Topic

	for i, item := range raw {
		w.nodes++
		if w.nodes > w.a.opts.MaxNodes {
			return nil, 0, nil, fmt.Errorf("%w: more than %d nodes", ErrInvalidTree, w.a.opts.MaxNodes)
		}
		p := fmt.Sprintf("%s[%d]", path, i)

		m, ok := item.(map[string]any)
		if !ok {
			w.drop(p, "node is not an object")
			continue
		}

		name := syllabus.UnknownTopicName
		if v, present := m["name"]; present && v != nil {
			s, ok := v.(string)
			if !ok {
				w.drop(p, "name is not a string")
				continue
			}
			if s = strings.TrimSpace(s); s != "" {
				name = s
			}
		}

		var rawChildren []any
		if v, present := m["subtopics"]; present && v != nil {
			seq, ok := asSequence(v)
			if !ok {
				w.drop(p, "subtopics is not a list")
				continue
			}
			rawChildren = seq
		}

		children := []*syllabus.Topic{}
		var childSum float64
		var childPriority []*syllabus.Topic
		if len(rawChildren) > 0 {
			var err error
			children, childSum, childPriority, err = w.level(rawChildren, p+".subtopics", depth+1)
			if err != nil {
				return nil, 0, nil, err
			}
		}

		own, hasOwn := coerceHours(m["estimated_hours"])
		if !hasOwn {
			if v, present := m["estimated_hours"]; present && v != nil {
				w.coerce(p+".estimated_hours", fmt.Sprintf("unusable value %v", v))
			}
		}

		var hours float64
		switch {
		case hasOwn:
			// explicit estimates win over derived sums, on parents too
			hours = own
		case len(children) == 0:
			hours = w.a.opts.LeafDefaultHours
		default:
			hours = childSum
		}

		// scheduled_date is never read from input; only the scheduler assigns dates
		node := &syllabus.Topic{
			Name:           name,
			Importance:     coerceImportance(m["importance"]),
			EstimatedHours: &hours,
			Completed:      coerceBool(m["completed"]),
			Subtopics:      children,
		}

		out = append(out, node)
		sum += hours
		if node.Importance.IsHigh() {
			priority = append(priority, node)
		}
		priority = append(priority, childPriority...)
	}
	return out, sum, priority, nil
}

// dedupeByName keeps the position of the first occurrence and the value of the last.
func dedupeByName(in []*syllabus.Topic) []*syllabus.Topic {
	out := make([]*syllabus.Topic, 0, len(in))
	pos := make(map[string]int, len(in))
	for _, t := range in {
		if i, ok := pos[t.Name]; ok {
			out[i] = t
			continue
		}
		pos[t.Name] = len(out)
		out = append(out, t)
	}
	return out
}
