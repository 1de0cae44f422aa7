package services

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/yungbote/blueprintx-backend/internal/data/repos"
	"github.com/yungbote/blueprintx-backend/internal/data/repos/testutil"
	types "github.com/yungbote/blueprintx-backend/internal/domain/syllabus"
	"github.com/yungbote/blueprintx-backend/internal/modules/syllabus/analyzer"
	"github.com/yungbote/blueprintx-backend/internal/modules/syllabus/scheduler"
	"github.com/yungbote/blueprintx-backend/internal/observability"
	"github.com/yungbote/blueprintx-backend/internal/platform/apierr"
)

func decodeTopics(t *testing.T, b []byte) []*types.Topic {
	t.Helper()
	var out []*types.Topic
	if err := json.Unmarshal(b, &out); err != nil {
		t.Fatalf("decode topics: %v", err)
	}
	return out
}

func TestCreatePlanFromRawTopics(t *testing.T) {
	f := newFixture(t, nil, "stub", nil, &stubProvider{name: "stub", raw: rawTree()})
	ctx := context.Background()
	start := types.NewDate(2024, time.January, 1)
	daily := 2.0

	view, err := f.plans.Create(ctx, uuid.New(), CreatePlanInput{
		Topics:     json.RawMessage(`[{"name":"A","estimated_hours":1},{"name":"B","estimated_hours":1.5},{"name":"C","estimated_hours":1}]`),
		StartDate:  &start,
		DailyHours: &daily,
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if view.Plan.CompletionDate != "2024-01-03" || view.Plan.StartDate != "2024-01-01" {
		t.Fatalf("dates: start=%s completion=%s", view.Plan.StartDate, view.Plan.CompletionDate)
	}
	if view.Plan.Title != "Study plan" || string(view.Plan.DaysOff) != "[]" {
		t.Fatalf("defaults: title=%q days_off=%s", view.Plan.Title, view.Plan.DaysOff)
	}
	if view.Plan.TotalEstimatedHours == nil || *view.Plan.TotalEstimatedHours != 3.5 {
		t.Fatalf("total: %v", view.Plan.TotalEstimatedHours)
	}
	if len(view.Agenda) != 3 || view.Agenda[1].Topics[0].Name != "B" {
		t.Fatalf("agenda: %+v", view.Agenda)
	}
}

func TestCreatePlanFromAnalysisAppliesDefaults(t *testing.T) {
	f := newFixture(t, nil, "stub", nil, &stubProvider{name: "stub", raw: rawTree()})
	ctx := context.Background()
	userID := uuid.New()

	svc := f.plans.(*studyPlanService)
	svc.now = func() time.Time { return time.Date(2024, time.January, 6, 15, 0, 0, 0, time.UTC) } // Saturday

	a, err := f.analysis.Analyze(ctx, userID, AnalyzeInput{Text: "x", Filename: "calc.pdf"})
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	view, err := f.plans.Create(ctx, userID, CreatePlanInput{
		AnalysisID: &a.ID,
		DaysOff:    []int{5, 6},
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	// Saturday start rolls to Monday; Limits (2h) fills Monday, Series goes Tuesday.
	if view.Plan.StartDate != "2024-01-06" || view.Plan.CompletionDate != "2024-01-09" {
		t.Fatalf("dates: start=%s completion=%s", view.Plan.StartDate, view.Plan.CompletionDate)
	}
	if view.Plan.Title != "calc.pdf" || view.Plan.DailyHours != 2.0 {
		t.Fatalf("defaults: %+v", view.Plan)
	}

	// the stored analysis keeps its unscheduled tree
	stored, err := f.analysis.Get(ctx, userID, a.ID)
	if err != nil {
		t.Fatalf("Get analysis: %v", err)
	}
	for _, tp := range decodeTopics(t, stored.Topics) {
		if tp.ScheduledDate != nil {
			t.Fatalf("analysis tree was mutated: %+v", tp)
		}
	}

	_, err = f.plans.Create(ctx, uuid.New(), CreatePlanInput{AnalysisID: &a.ID})
	if apierr.From(err, "").Status != http.StatusNotFound {
		t.Fatalf("expected 404 for another user's analysis, got %v", err)
	}
}

func TestCreatePlanRejectsBadInput(t *testing.T) {
	f := newFixture(t, nil, "stub", nil, &stubProvider{name: "stub", raw: rawTree()})
	ctx := context.Background()
	zero := 0.0

	cases := []struct {
		name string
		in   CreatePlanInput
		code string
	}{
		{name: "no topics", in: CreatePlanInput{}, code: "missing_topics"},
		{name: "every day off", in: CreatePlanInput{Topics: json.RawMessage(`[]`), DaysOff: []int{0, 1, 2, 3, 4, 5, 6}}, code: "invalid_configuration"},
		{name: "zero budget", in: CreatePlanInput{Topics: json.RawMessage(`[]`), DailyHours: &zero}, code: "invalid_configuration"},
		{name: "not a list", in: CreatePlanInput{Topics: json.RawMessage(`{"name":"x"}`)}, code: "invalid_tree"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := f.plans.Create(ctx, uuid.New(), tc.in)
			var ae *apierr.Error
			if !errors.As(err, &ae) || ae.Code != tc.code {
				t.Fatalf("expected %s, got %v", tc.code, err)
			}
		})
	}
}

func TestSetCompletionAndDelete(t *testing.T) {
	f := newFixture(t, nil, "stub", nil, &stubProvider{name: "stub", raw: rawTree()})
	ctx := context.Background()
	userID := uuid.New()
	start := types.NewDate(2024, time.January, 1)

	view, err := f.plans.Create(ctx, userID, CreatePlanInput{
		Topics:    json.RawMessage(`[{"name":"P","subtopics":[{"name":"a","estimated_hours":1},{"name":"b","estimated_hours":1}]}]`),
		StartDate: &start,
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	id := view.Plan.ID

	if _, err := f.plans.SetCompletion(ctx, userID, id, []int{0, 0}, true); err != nil {
		t.Fatalf("SetCompletion: %v", err)
	}
	got, err := f.plans.SetCompletion(ctx, userID, id, []int{0, 1}, true)
	if err != nil {
		t.Fatalf("SetCompletion: %v", err)
	}
	tree := decodeTopics(t, got.Plan.Topics)
	if !tree[0].Completed {
		t.Fatalf("parent should be complete: %+v", tree[0])
	}

	reloaded, err := f.plans.Get(ctx, userID, id)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if !decodeTopics(t, reloaded.Plan.Topics)[0].Completed {
		t.Fatalf("completion not persisted")
	}
	if len(reloaded.Agenda) != 1 || len(reloaded.Agenda[0].Topics) != 2 {
		t.Fatalf("agenda: %+v", reloaded.Agenda)
	}

	if _, err := f.plans.SetCompletion(ctx, userID, id, []int{4}, true); apierr.From(err, "").Code != "invalid_path" {
		t.Fatalf("expected invalid_path, got %v", err)
	}
	if _, err := f.plans.SetCompletion(ctx, uuid.New(), id, []int{0}, true); apierr.From(err, "").Status != http.StatusNotFound {
		t.Fatalf("expected 404, got %v", err)
	}

	if err := f.plans.Delete(ctx, userID, id); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := f.plans.Get(ctx, userID, id); apierr.From(err, "").Status != http.StatusNotFound {
		t.Fatalf("expected 404 after delete, got %v", err)
	}
}

type failingScheduler struct{ err error }

func (s failingScheduler) Schedule([]*types.Topic, scheduler.Params) (*scheduler.Result, error) {
	return nil, s.err
}

func scheduleCount(t *testing.T, m *observability.Metrics, outcome string) float64 {
	t.Helper()
	families, err := m.Registry().Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	for _, mf := range families {
		if mf.GetName() != "test_study_schedules_total" {
			continue
		}
		for _, metric := range mf.GetMetric() {
			for _, lp := range metric.GetLabel() {
				if lp.GetName() == "outcome" && lp.GetValue() == outcome {
					return metric.GetCounter().GetValue()
				}
			}
		}
	}
	return 0
}

func TestCreatePlanScheduleOutcomeMetrics(t *testing.T) {
	log := testutil.Logger(t)
	db := testutil.DB(t)
	an := analyzer.New(log, analyzer.DefaultOptions())
	topics := json.RawMessage(`[{"name":"A","estimated_hours":1}]`)
	zero := 0.0

	cases := []struct {
		name    string
		sched   PlanScheduler
		daily   *float64
		outcome string
		code    string
	}{
		{name: "bad configuration", sched: scheduler.New(log), daily: &zero, outcome: "invalid_configuration", code: "invalid_configuration"},
		{name: "other failure", sched: failingScheduler{err: errors.New("calendar unavailable")}, outcome: "error"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			m := observability.NewMetrics("test")
			svc := NewStudyPlanService(db, log, repos.NewStudyPlanRepo(db, log), repos.NewAnalysisRepo(db, log), an, tc.sched, m, 2.0)

			_, err := svc.Create(context.Background(), uuid.New(), CreatePlanInput{Topics: topics, DailyHours: tc.daily})
			if err == nil {
				t.Fatalf("expected error")
			}
			var ae *apierr.Error
			if tc.code != "" && (!errors.As(err, &ae) || ae.Code != tc.code) {
				t.Fatalf("expected %s, got %v", tc.code, err)
			}
			if tc.code == "" && errors.As(err, &ae) {
				t.Fatalf("unexpected api error %s", ae.Code)
			}

			for _, outcome := range []string{"invalid_configuration", "error", "ok"} {
				want := 0.0
				if outcome == tc.outcome {
					want = 1
				}
				if got := scheduleCount(t, m, outcome); got != want {
					t.Fatalf("outcome %s: got %v want %v", outcome, got, want)
				}
			}
		})
	}
}
