package analyzer

import (
	"encoding/json"
	"errors"
	"reflect"
	"testing"

	"github.com/yungbote/blueprintx-backend/internal/domain/syllabus"
	"github.com/yungbote/blueprintx-backend/internal/platform/logger"
)

func newTestAnalyzer(t *testing.T) *Analyzer {
	t.Helper()
	return New(logger.Nop(), DefaultOptions())
}

func mustNormalizeJSON(t *testing.T, a *Analyzer, src string) *Result {
	t.Helper()
	res, err := a.NormalizeJSON([]byte(src))
	if err != nil {
		t.Fatalf("NormalizeJSON: %v", err)
	}
	return res
}

func hoursOf(t *testing.T, tp *syllabus.Topic) float64 {
	t.Helper()
	if tp.EstimatedHours == nil {
		t.Fatalf("topic %q has nil hours", tp.Name)
	}
	return *tp.EstimatedHours
}

func TestNormalize_BadHoursFallsBackToDefault(t *testing.T) {
	a := newTestAnalyzer(t)
	res := mustNormalizeJSON(t, a, `[{"name":"A","estimated_hours":"bad","subtopics":[]}]`)

	if len(res.Topics) != 1 {
		t.Fatalf("expected 1 topic, got %d", len(res.Topics))
	}
	if got := hoursOf(t, res.Topics[0]); got != 0.5 {
		t.Fatalf("expected 0.5 hours, got %v", got)
	}
	if len(res.Coerced) != 1 || res.Coerced[0].Path != "topics[0].estimated_hours" {
		t.Fatalf("expected coerced hours to be reported, got %+v", res.Coerced)
	}
	if len(res.Dropped) != 0 {
		t.Fatalf("unexpected dropped nodes: %+v", res.Dropped)
	}
}

func TestNormalize_HourCoercion(t *testing.T) {
	cases := []struct {
		name string
		in   any
		want float64
	}{
		{name: "float", in: 1.25, want: 1.25},
		{name: "int", in: 3, want: 3},
		{name: "numeric string", in: " 2.5 ", want: 2.5},
		{name: "json number", in: json.Number("4"), want: 4},
		{name: "zero", in: 0.0, want: 0},
		{name: "negative", in: -1.0, want: 0.5},
		{name: "bool", in: true, want: 0.5},
		{name: "null", in: nil, want: 0.5},
		{name: "empty string", in: "", want: 0.5},
		{name: "nan string", in: "NaN", want: 0.5},
	}
	a := newTestAnalyzer(t)
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			res, err := a.Normalize([]any{map[string]any{"name": "leaf", "estimated_hours": tc.in}})
			if err != nil {
				t.Fatalf("Normalize: %v", err)
			}
			if got := hoursOf(t, res.Topics[0]); got != tc.want {
				t.Fatalf("got=%v want=%v", got, tc.want)
			}
		})
	}
}

func TestNormalize_HourConservationForLeaves(t *testing.T) {
	a := newTestAnalyzer(t)
	res := mustNormalizeJSON(t, a, `[
		{"name":"a","estimated_hours":1.5},
		{"name":"b"},
		{"name":"c","estimated_hours":"2"},
		{"name":"d","estimated_hours":0.25,"subtopics":[]}
	]`)
	if res.TotalHours == nil {
		t.Fatalf("expected total hours")
	}
	want := 1.5 + 0.5 + 2 + 0.25
	if *res.TotalHours != want {
		t.Fatalf("total=%v want=%v", *res.TotalHours, want)
	}
	var sum float64
	for _, tp := range res.Topics {
		sum += hoursOf(t, tp)
	}
	if sum != *res.TotalHours {
		t.Fatalf("leaf sum %v != total %v", sum, *res.TotalHours)
	}
}

func TestNormalize_ParentHours(t *testing.T) {
	a := newTestAnalyzer(t)
	res := mustNormalizeJSON(t, a, `[
		{"name":"derived","subtopics":[
			{"name":"x","estimated_hours":1},
			{"name":"y","subtopics":[{"name":"y1","estimated_hours":2},{"name":"y2"}]}
		]},
		{"name":"override","estimated_hours":10,"subtopics":[
			{"name":"z","estimated_hours":1},
			{"name":"w","estimated_hours":2}
		]}
	]`)

	derived := res.Topics[0]
	if got := hoursOf(t, derived.Subtopics[1]); got != 2.5 {
		t.Fatalf("nested parent: got=%v want=2.5", got)
	}
	if got := hoursOf(t, derived); got != 3.5 {
		t.Fatalf("derived parent: got=%v want=3.5", got)
	}
	if got := hoursOf(t, res.Topics[1]); got != 10 {
		t.Fatalf("override parent: got=%v want=10", got)
	}
	if res.TotalHours == nil || *res.TotalHours != 13.5 {
		t.Fatalf("total: %v", res.TotalHours)
	}
}

func TestNormalize_TotalNilWhenZero(t *testing.T) {
	a := newTestAnalyzer(t)
	res := mustNormalizeJSON(t, a, `[{"name":"a","estimated_hours":0},{"name":"b","estimated_hours":"0"}]`)
	if res.TotalHours != nil {
		t.Fatalf("expected nil total, got %v", *res.TotalHours)
	}

	res = mustNormalizeJSON(t, a, `[]`)
	if res.TotalHours != nil || len(res.Topics) != 0 {
		t.Fatalf("empty input: %+v", res)
	}
	if res.Topics == nil {
		t.Fatalf("expected empty, non-nil topics")
	}
}

func TestNormalize_DefaultsNameAndImportance(t *testing.T) {
	a := newTestAnalyzer(t)
	res := mustNormalizeJSON(t, a, `[
		{"importance":"HIGH"},
		{"name":"   ","importance":"urgent"},
		{"name":"c","importance":3},
		{"name":null,"importance":"low"}
	]`)
	want := []struct {
		name string
		imp  syllabus.Importance
	}{
		{syllabus.UnknownTopicName, syllabus.ImportanceHigh},
		{syllabus.UnknownTopicName, syllabus.ImportanceMedium},
		{"c", syllabus.ImportanceMedium},
		{syllabus.UnknownTopicName, syllabus.ImportanceLow},
	}
	if len(res.Topics) != len(want) {
		t.Fatalf("expected %d topics, got %d", len(want), len(res.Topics))
	}
	for i, w := range want {
		if res.Topics[i].Name != w.name || res.Topics[i].Importance != w.imp {
			t.Fatalf("topic %d: got (%q,%q) want (%q,%q)", i, res.Topics[i].Name, res.Topics[i].Importance, w.name, w.imp)
		}
	}
}

func TestNormalize_DropsMalformedNodes(t *testing.T) {
	a := newTestAnalyzer(t)
	res := mustNormalizeJSON(t, a, `[
		"just a string",
		{"name":"ok","estimated_hours":1},
		{"name":42},
		{"name":"bad children","subtopics":"nope"},
		{"name":"parent","subtopics":[7,{"name":"kid","estimated_hours":2}]}
	]`)

	if len(res.Topics) != 2 {
		t.Fatalf("expected 2 surviving topics, got %d", len(res.Topics))
	}
	if res.Topics[0].Name != "ok" || res.Topics[1].Name != "parent" {
		t.Fatalf("unexpected survivors: %q, %q", res.Topics[0].Name, res.Topics[1].Name)
	}
	parent := res.Topics[1]
	if len(parent.Subtopics) != 1 || hoursOf(t, parent) != 2 {
		t.Fatalf("parent should keep one child with 2h: %+v", parent)
	}

	wantPaths := []string{"topics[0]", "topics[2]", "topics[3]", "topics[4].subtopics[0]"}
	if len(res.Dropped) != len(wantPaths) {
		t.Fatalf("dropped: %+v", res.Dropped)
	}
	for i, p := range wantPaths {
		if res.Dropped[i].Path != p {
			t.Fatalf("dropped[%d]: got=%q want=%q", i, res.Dropped[i].Path, p)
		}
	}
}

func TestNormalize_ParentWithOnlyMalformedChildrenBecomesLeaf(t *testing.T) {
	a := newTestAnalyzer(t)
	res := mustNormalizeJSON(t, a, `[{"name":"p","subtopics":[1,2]}]`)
	if !res.Topics[0].IsLeaf() {
		t.Fatalf("expected leaf")
	}
	if got := hoursOf(t, res.Topics[0]); got != 0.5 {
		t.Fatalf("got=%v want=0.5", got)
	}
}

func TestNormalize_PriorityOrderAndDedup(t *testing.T) {
	a := newTestAnalyzer(t)
	res := mustNormalizeJSON(t, a, `[
		{"name":"Algebra","importance":"High","subtopics":[
			{"name":"Proofs","importance":"high","estimated_hours":1},
			{"name":"Sets","importance":"Low"}
		]},
		{"name":"Geometry","importance":"Medium","subtopics":[
			{"name":"Proofs","importance":"HIGH","estimated_hours":3}
		]},
		{"name":"Limits","importance":"High"}
	]`)

	var names []string
	for _, p := range res.PriorityTopics {
		names = append(names, p.Name)
	}
	if !reflect.DeepEqual(names, []string{"Algebra", "Proofs", "Limits"}) {
		t.Fatalf("priority names: %v", names)
	}
	// last occurrence wins for duplicated names
	if got := hoursOf(t, res.PriorityTopics[1]); got != 3 {
		t.Fatalf("expected last-seen Proofs (3h), got %v", got)
	}
	if res.PriorityTopics[1] != res.Topics[1].Subtopics[0] {
		t.Fatalf("priority entry should reference the node in the tree")
	}
}

func TestNormalize_InvalidTree(t *testing.T) {
	a := newTestAnalyzer(t)
	cases := []struct {
		name string
		in   any
	}{
		{name: "nil", in: nil},
		{name: "object", in: map[string]any{"name": "x"}},
		{name: "string", in: "topics"},
		{name: "number", in: 3.0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			res, err := a.Normalize(tc.in)
			if !errors.Is(err, ErrInvalidTree) {
				t.Fatalf("expected ErrInvalidTree, got %v", err)
			}
			if res != nil {
				t.Fatalf("expected no partial result")
			}
		})
	}

	if _, err := a.NormalizeJSON([]byte(`{not json`)); !errors.Is(err, ErrInvalidTree) {
		t.Fatalf("expected ErrInvalidTree for bad json, got %v", err)
	}
}

func TestNormalize_Ceilings(t *testing.T) {
	a := New(logger.Nop(), Options{MaxDepth: 3, MaxNodes: 5})

	deep := map[string]any{"name": "d3"}
	for i := 2; i >= 0; i-- {
		deep = map[string]any{"name": "d", "subtopics": []any{deep}}
	}
	if _, err := a.Normalize([]any{deep}); !errors.Is(err, ErrInvalidTree) {
		t.Fatalf("expected depth ceiling error, got %v", err)
	}

	wide := make([]any, 6)
	for i := range wide {
		wide[i] = map[string]any{"name": "n"}
	}
	if _, err := a.Normalize(wide); !errors.Is(err, ErrInvalidTree) {
		t.Fatalf("expected node ceiling error, got %v", err)
	}
	if _, err := a.Normalize(wide[:5]); err != nil {
		t.Fatalf("five nodes should pass: %v", err)
	}
}

func TestNormalize_AcceptsTypedMapSlice(t *testing.T) {
	a := newTestAnalyzer(t)
	res, err := a.Normalize([]map[string]any{
		{"name": "a", "estimated_hours": 1, "subtopics": []map[string]any{{"name": "b", "estimated_hours": 2}}},
	})
	if err != nil {
		t.Fatalf("Normalize: %v", err)
	}
	if got := hoursOf(t, res.Topics[0]); got != 1 {
		t.Fatalf("override: got=%v", got)
	}
}

func TestNormalize_RevalidationIsIdempotent(t *testing.T) {
	a := newTestAnalyzer(t)
	first := mustNormalizeJSON(t, a, `[
		{"name":"A","importance":"high","subtopics":[
			{"name":"A1","estimated_hours":"1.5"},
			{"name":"A2","importance":"LOW"},
			"garbage"
		]},
		{"name":"B","estimated_hours":4,"subtopics":[{"name":"B1","estimated_hours":1}]},
		{"estimated_hours":"bad"}
	]`)

	b, err := json.Marshal(first.Topics)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	second := mustNormalizeJSON(t, a, string(b))

	if !reflect.DeepEqual(first.Topics, second.Topics) {
		a, _ := json.Marshal(first.Topics)
		b, _ := json.Marshal(second.Topics)
		t.Fatalf("re-validation changed the tree:\nfirst=%s\nsecond=%s", a, b)
	}
	if !reflect.DeepEqual(first.TotalHours, second.TotalHours) {
		t.Fatalf("total changed: %v vs %v", first.TotalHours, second.TotalHours)
	}
	if len(second.Dropped) != 0 || len(second.Coerced) != 0 {
		t.Fatalf("second pass should be clean: dropped=%+v coerced=%+v", second.Dropped, second.Coerced)
	}
}

func TestNormalize_DropsIncomingDatesKeepsCompletion(t *testing.T) {
	a := newTestAnalyzer(t)
	res := mustNormalizeJSON(t, a, `[
		{"name":"P","scheduled_date":"2030-01-01","subtopics":[
			{"name":"L","completed":true,"scheduled_date":"2024-03-04","estimated_hours":1},
			{"name":"M","scheduled_date":"not a date"}
		]}
	]`)

	syllabus.Walk(res.Topics, func(tp *syllabus.Topic, _ int) bool {
		if tp.ScheduledDate != nil {
			t.Fatalf("%q carries scheduled_date %s after normalization", tp.Name, tp.ScheduledDate)
		}
		return true
	})
	if len(res.Coerced) != 0 {
		t.Fatalf("dates should be ignored, not coerced: %+v", res.Coerced)
	}

	parent := res.Topics[0]
	if parent.Completed {
		t.Fatalf("parent completion must not be inferred")
	}
	if !parent.Subtopics[0].Completed || parent.Subtopics[1].Completed {
		t.Fatalf("completion flags not carried: %+v %+v", parent.Subtopics[0], parent.Subtopics[1])
	}
}
