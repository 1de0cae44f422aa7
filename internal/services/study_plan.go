package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/yungbote/blueprintx-backend/internal/data/repos"
	types "github.com/yungbote/blueprintx-backend/internal/domain/syllabus"
	"github.com/yungbote/blueprintx-backend/internal/modules/syllabus/analyzer"
	"github.com/yungbote/blueprintx-backend/internal/modules/syllabus/scheduler"
	"github.com/yungbote/blueprintx-backend/internal/observability"
	"github.com/yungbote/blueprintx-backend/internal/platform/apierr"
	"github.com/yungbote/blueprintx-backend/internal/platform/logger"
)

type CreatePlanInput struct {
	AnalysisID *uuid.UUID
	// Topics is a raw topic list; it goes through the analyzer before scheduling.
	Topics     json.RawMessage
	Title      string
	StartDate  *types.Date
	DailyHours *float64
	DaysOff    []int
}

type PlanView struct {
	Plan   *types.StudyPlan `json:"plan"`
	Agenda []scheduler.Day  `json:"agenda"`
}

type StudyPlanService interface {
	Create(ctx context.Context, userID uuid.UUID, in CreatePlanInput) (*PlanView, error)
	List(ctx context.Context, userID uuid.UUID, limit int) ([]*types.StudyPlan, error)
	Get(ctx context.Context, userID, id uuid.UUID) (*PlanView, error)
	SetCompletion(ctx context.Context, userID, id uuid.UUID, path []int, completed bool) (*PlanView, error)
	Delete(ctx context.Context, userID, id uuid.UUID) error
}

// PlanScheduler places the leaves of a topic tree on the calendar.
type PlanScheduler interface {
	Schedule(topics []*types.Topic, p scheduler.Params) (*scheduler.Result, error)
}

type studyPlanService struct {
	db           *gorm.DB
	log          *logger.Logger
	plans        repos.StudyPlanRepo
	analyses     repos.AnalysisRepo
	analyzer     *analyzer.Analyzer
	scheduler    PlanScheduler
	metrics      *observability.Metrics
	defaultDaily float64
	now          func() time.Time
}

func NewStudyPlanService(
	db *gorm.DB,
	log *logger.Logger,
	plans repos.StudyPlanRepo,
	analyses repos.AnalysisRepo,
	an *analyzer.Analyzer,
	sched PlanScheduler,
	metrics *observability.Metrics,
	defaultDailyHours float64,
) StudyPlanService {
	if defaultDailyHours <= 0 {
		defaultDailyHours = scheduler.DefaultDailyHours
	}
	return &studyPlanService{
		db:           db,
		log:          log.With("service", "StudyPlanService"),
		plans:        plans,
		analyses:     analyses,
		analyzer:     an,
		scheduler:    sched,
		metrics:      metrics,
		defaultDaily: defaultDailyHours,
		now:          time.Now,
	}
}

func (s *studyPlanService) Create(ctx context.Context, userID uuid.UUID, in CreatePlanInput) (*PlanView, error) {
	ctx, span := observability.Tracer().Start(ctx, "StudyPlanService.Create")
	defer span.End()

	topics, title, err := s.resolveTopics(ctx, userID, in)
	if err != nil {
		return nil, err
	}
	if topics == nil {
		topics = []*types.Topic{}
	}

	params := scheduler.Params{
		StartDate:  types.DateOf(s.now().UTC()),
		DailyHours: s.defaultDaily,
		DaysOff:    []int{},
	}
	if in.StartDate != nil && !in.StartDate.IsZero() {
		params.StartDate = *in.StartDate
	}
	if in.DailyHours != nil {
		params.DailyHours = *in.DailyHours
	}
	if in.DaysOff != nil {
		params.DaysOff = in.DaysOff
	}

	res, err := s.scheduler.Schedule(topics, params)
	if err != nil {
		if errors.Is(err, scheduler.ErrInvalidConfiguration) {
			s.metrics.ObserveSchedule("invalid_configuration", 0)
			return nil, apierr.New(http.StatusBadRequest, "invalid_configuration", err)
		}
		s.metrics.ObserveSchedule("error", 0)
		return nil, err
	}
	s.metrics.ObserveSchedule("ok", res.LeafCount)
	span.SetAttributes(
		attribute.Int("plan.leaves", res.LeafCount),
		attribute.String("plan.completion_date", res.CompletionDate.String()),
	)

	topicsJSON, err := json.Marshal(res.Topics)
	if err != nil {
		return nil, fmt.Errorf("marshal topics: %w", err)
	}
	daysOffJSON, err := json.Marshal(params.DaysOff)
	if err != nil {
		return nil, fmt.Errorf("marshal days off: %w", err)
	}

	plan := &types.StudyPlan{
		UserID:              userID,
		AnalysisID:          in.AnalysisID,
		Title:               title,
		StartDate:           params.StartDate.String(),
		DailyHours:          params.DailyHours,
		DaysOff:             datatypes.JSON(daysOffJSON),
		Topics:              datatypes.JSON(topicsJSON),
		CompletionDate:      res.CompletionDate.String(),
		TotalEstimatedHours: totalHours(res.Topics),
	}
	if _, err := s.plans.Create(ctx, nil, plan); err != nil {
		s.log.Error("Failed to persist study plan", "error", err, "user_id", userID)
		return nil, apierr.New(http.StatusInternalServerError, "persist_failed", err)
	}
	s.log.Info("Study plan scheduled",
		"plan_id", plan.ID,
		"leaves", res.LeafCount,
		"completion_date", plan.CompletionDate,
	)
	return &PlanView{Plan: plan, Agenda: scheduler.Agenda(res.Topics)}, nil
}

func (s *studyPlanService) resolveTopics(ctx context.Context, userID uuid.UUID, in CreatePlanInput) ([]*types.Topic, string, error) {
	title := strings.TrimSpace(in.Title)
	switch {
	case in.AnalysisID != nil:
		a, err := s.analyses.GetByID(ctx, nil, userID, *in.AnalysisID)
		if err != nil {
			return nil, "", fmt.Errorf("get analysis: %w", err)
		}
		if a == nil {
			return nil, "", apierr.New(http.StatusNotFound, "not_found", errors.New("analysis not found"))
		}
		var topics []*types.Topic
		if err := json.Unmarshal(a.Topics, &topics); err != nil {
			return nil, "", fmt.Errorf("decode stored topics: %w", err)
		}
		if title == "" {
			title = a.Filename
		}
		return topics, title, nil
	case len(in.Topics) > 0:
		res, err := s.analyzer.NormalizeJSON(in.Topics)
		if err != nil {
			return nil, "", mapAnalysisError(err)
		}
		if title == "" {
			title = "Study plan"
		}
		return res.Topics, title, nil
	default:
		return nil, "", apierr.New(http.StatusBadRequest, "missing_topics", errors.New("analysis_id or topics is required"))
	}
}

func (s *studyPlanService) List(ctx context.Context, userID uuid.UUID, limit int) ([]*types.StudyPlan, error) {
	if limit <= 0 || limit > 100 {
		limit = 100
	}
	out, err := s.plans.ListByUser(ctx, nil, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("list study plans: %w", err)
	}
	return out, nil
}

func (s *studyPlanService) Get(ctx context.Context, userID, id uuid.UUID) (*PlanView, error) {
	plan, err := s.plans.GetByID(ctx, nil, userID, id)
	if err != nil {
		return nil, fmt.Errorf("get study plan: %w", err)
	}
	if plan == nil {
		return nil, errPlanNotFound()
	}
	return planView(plan)
}

// SetCompletion toggles one node; descendants follow it and ancestors are
// recomputed from their children.
func (s *studyPlanService) SetCompletion(ctx context.Context, userID, id uuid.UUID, path []int, completed bool) (*PlanView, error) {
	if len(path) == 0 {
		return nil, apierr.New(http.StatusBadRequest, "invalid_path", errors.New("path is required"))
	}
	var out *types.StudyPlan
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		plan, err := s.plans.GetByID(ctx, tx, userID, id)
		if err != nil {
			return err
		}
		if plan == nil {
			return errPlanNotFound()
		}
		var topics []*types.Topic
		if err := json.Unmarshal(plan.Topics, &topics); err != nil {
			return fmt.Errorf("decode stored topics: %w", err)
		}
		if !types.SetCompleted(topics, path, completed) {
			return apierr.New(http.StatusBadRequest, "invalid_path", fmt.Errorf("no topic at path %v", path))
		}
		b, err := json.Marshal(topics)
		if err != nil {
			return err
		}
		if _, err := s.plans.UpdateTopics(ctx, tx, userID, id, datatypes.JSON(b)); err != nil {
			return err
		}
		plan.Topics = datatypes.JSON(b)
		out = plan
		return nil
	})
	if err != nil {
		return nil, err
	}
	return planView(out)
}

func (s *studyPlanService) Delete(ctx context.Context, userID, id uuid.UUID) error {
	ok, err := s.plans.SoftDelete(ctx, nil, userID, id)
	if err != nil {
		return fmt.Errorf("delete study plan: %w", err)
	}
	if !ok {
		return errPlanNotFound()
	}
	return nil
}

func planView(plan *types.StudyPlan) (*PlanView, error) {
	var topics []*types.Topic
	if err := json.Unmarshal(plan.Topics, &topics); err != nil {
		return nil, fmt.Errorf("decode stored topics: %w", err)
	}
	return &PlanView{Plan: plan, Agenda: scheduler.Agenda(topics)}, nil
}

func errPlanNotFound() error {
	return apierr.New(http.StatusNotFound, "not_found", errors.New("study plan not found"))
}

func totalHours(topics []*types.Topic) *float64 {
	sum := 0.0
	for _, t := range topics {
		sum += t.Hours(0)
	}
	if sum <= 0 {
		return nil
	}
	return &sum
}
