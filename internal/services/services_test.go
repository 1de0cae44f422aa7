package services

import (
	"context"
	"sync"
	"testing"

	"gorm.io/gorm"

	"github.com/yungbote/blueprintx-backend/internal/data/repos"
	"github.com/yungbote/blueprintx-backend/internal/data/repos/testutil"
	"github.com/yungbote/blueprintx-backend/internal/modules/syllabus/analyzer"
	"github.com/yungbote/blueprintx-backend/internal/modules/syllabus/providers"
	"github.com/yungbote/blueprintx-backend/internal/modules/syllabus/scheduler"
	"github.com/yungbote/blueprintx-backend/internal/observability"
)

type stubProvider struct {
	name  string
	raw   any
	err   error
	mu    sync.Mutex
	calls int
}

func (p *stubProvider) Name() string { return p.name }

func (p *stubProvider) ExtractTopics(ctx context.Context, text string) (any, error) {
	p.mu.Lock()
	p.calls++
	p.mu.Unlock()
	return p.raw, p.err
}

func (p *stubProvider) Calls() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.calls
}

type memCache struct {
	mu   sync.Mutex
	data map[string][]byte
}

func newMemCache() *memCache { return &memCache{data: map[string][]byte{}} }

func (c *memCache) Get(ctx context.Context, provider, hash string) ([]byte, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	b, ok := c.data[provider+":"+hash]
	return b, ok, nil
}

func (c *memCache) Set(ctx context.Context, provider, hash string, payload []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data[provider+":"+hash] = payload
	return nil
}

type fixture struct {
	db       *gorm.DB
	metrics  *observability.Metrics
	analysis AnalysisService
	plans    StudyPlanService
}

func newFixture(t *testing.T, cache RawTopicCache, def string, fallbacks []string, ps ...providers.Provider) *fixture {
	t.Helper()
	log := testutil.Logger(t)
	db := testutil.DB(t)

	reg, err := providers.NewRegistry(log, def, fallbacks, ps...)
	if err != nil {
		t.Fatalf("NewRegistry: %v", err)
	}
	an := analyzer.New(log, analyzer.DefaultOptions())
	m := observability.NewMetrics("test")
	analysisRepo := repos.NewAnalysisRepo(db, log)

	return &fixture{
		db:       db,
		metrics:  m,
		analysis: NewAnalysisService(log, analysisRepo, reg, an, cache, m),
		plans: NewStudyPlanService(db, log,
			repos.NewStudyPlanRepo(db, log), analysisRepo,
			an, scheduler.New(log), m, 2.0),
	}
}

func rawTree() []any {
	return []any{
		map[string]any{"name": "Limits", "importance": "High", "estimated_hours": 2.0},
		map[string]any{"name": "Series"},
	}
}
