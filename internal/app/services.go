package app

import (
	"fmt"

	"gorm.io/gorm"

	"github.com/yungbote/blueprintx-backend/internal/modules/syllabus/analyzer"
	"github.com/yungbote/blueprintx-backend/internal/modules/syllabus/providers"
	"github.com/yungbote/blueprintx-backend/internal/modules/syllabus/scheduler"
	"github.com/yungbote/blueprintx-backend/internal/observability"
	"github.com/yungbote/blueprintx-backend/internal/platform/logger"
	"github.com/yungbote/blueprintx-backend/internal/services"
)

type Services struct {
	Auth      services.AuthService
	Analysis  services.AnalysisService
	StudyPlan services.StudyPlanService

	Providers *providers.Registry
}

func wireServices(db *gorm.DB, log *logger.Logger, cfg Config, repos Repos, clients Clients, metrics *observability.Metrics) (Services, error) {
	log.Info("Wiring services...")

	authService, err := services.NewAuthService(log, repos.User, cfg.JWTSecretKey, cfg.AccessTokenTTL)
	if err != nil {
		return Services{}, fmt.Errorf("init auth service: %w", err)
	}

	registry, err := wireProviders(log, cfg, clients)
	if err != nil {
		return Services{}, err
	}

	an := analyzer.New(log, analyzer.Options{
		LeafDefaultHours: analyzer.DefaultOptions().LeafDefaultHours,
		MaxDepth:         cfg.AnalyzerMaxDepth,
		MaxNodes:         cfg.AnalyzerMaxNodes,
	})

	var cache services.RawTopicCache
	if clients.AnalysisCache != nil {
		cache = clients.AnalysisCache
	}

	analysisService := services.NewAnalysisService(log, repos.Analysis, registry, an, cache, metrics)
	studyPlanService := services.NewStudyPlanService(db, log, repos.StudyPlan, repos.Analysis, an,
		scheduler.New(log), metrics, cfg.DefaultDailyHours)

	return Services{
		Auth:      authService,
		Analysis:  analysisService,
		StudyPlan: studyPlanService,
		Providers: registry,
	}, nil
}

// defaultMaxInputChars bounds the syllabus text sent to an LLM.
const defaultMaxInputChars = 60000

func wireProviders(log *logger.Logger, cfg Config, clients Clients) (*providers.Registry, error) {
	var ps []providers.Provider
	for _, p := range cfg.Providers {
		switch p.Kind {
		case ProviderKindOutline:
			ps = append(ps, providers.NewOutline())
		case ProviderKindOpenAI:
			c, ok := clients.LLM[p.Name]
			if !ok {
				return nil, fmt.Errorf("provider %s has no client", p.Name)
			}
			maxChars := p.MaxInputChars
			if maxChars <= 0 {
				maxChars = defaultMaxInputChars
			}
			ps = append(ps, providers.NewLLM(log, p.Name, c, maxChars, providers.DefaultBreakerConfig()))
		}
	}
	registry, err := providers.NewRegistry(log, cfg.DefaultProvider, cfg.FallbackProviders, ps...)
	if err != nil {
		return nil, fmt.Errorf("init provider registry: %w", err)
	}
	log.Info("Analysis providers ready", "default", registry.Default(), "available", registry.Names())
	return registry, nil
}
