package app

import (
	"context"

	"gorm.io/gorm"

	apphttp "github.com/yungbote/blueprintx-backend/internal/http"
	httpH "github.com/yungbote/blueprintx-backend/internal/http/handlers"
	httpMW "github.com/yungbote/blueprintx-backend/internal/http/middleware"
	"github.com/yungbote/blueprintx-backend/internal/observability"
	"github.com/yungbote/blueprintx-backend/internal/platform/logger"
)

type Middleware struct {
	Auth *httpMW.AuthMiddleware
}

type Handlers struct {
	Health    *httpH.HealthHandler
	Auth      *httpH.AuthHandler
	Syllabus  *httpH.SyllabusHandler
	Analysis  *httpH.AnalysisHandler
	StudyPlan *httpH.StudyPlanHandler
}

func wireHandlers(log *logger.Logger, cfg Config, db *gorm.DB, services Services, clients Clients) Handlers {
	log.Info("Wiring handlers...")
	checks := map[string]httpH.Check{
		"database": func(ctx context.Context) error {
			sqlDB, err := db.DB()
			if err != nil {
				return err
			}
			return sqlDB.PingContext(ctx)
		},
	}
	if clients.AnalysisCache != nil {
		checks["redis"] = clients.AnalysisCache.Ping
	}
	return Handlers{
		Health:    httpH.NewHealthHandler(checks),
		Auth:      httpH.NewAuthHandler(log, services.Auth),
		Syllabus:  httpH.NewSyllabusHandler(log, services.Analysis, cfg.MaxUploadBytes),
		Analysis:  httpH.NewAnalysisHandler(log, services.Analysis),
		StudyPlan: httpH.NewStudyPlanHandler(log, services.StudyPlan),
	}
}

func wireMiddleware(log *logger.Logger, services Services) Middleware {
	log.Info("Wiring middleware...")
	return Middleware{
		Auth: httpMW.NewAuthMiddleware(log, services.Auth),
	}
}

func wireServer(log *logger.Logger, cfg Config, handlers Handlers, middleware Middleware, metrics *observability.Metrics) *apphttp.Server {
	serviceName := ""
	if cfg.Otel.Enabled {
		serviceName = cfg.Otel.ServiceName
	}
	return apphttp.NewServer(apphttp.RouterConfig{
		Log:              log,
		ServiceName:      serviceName,
		CORSOrigins:      cfg.CORSOrigins,
		Metrics:          metrics,
		AuthMiddleware:   middleware.Auth,
		AuthHandler:      handlers.Auth,
		SyllabusHandler:  handlers.Syllabus,
		AnalysisHandler:  handlers.Analysis,
		StudyPlanHandler: handlers.StudyPlan,
		HealthHandler:    handlers.Health,
	})
}
