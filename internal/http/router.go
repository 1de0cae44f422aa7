package http

import (
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	httpH "github.com/yungbote/blueprintx-backend/internal/http/handlers"
	httpMW "github.com/yungbote/blueprintx-backend/internal/http/middleware"
	"github.com/yungbote/blueprintx-backend/internal/observability"
	"github.com/yungbote/blueprintx-backend/internal/platform/logger"
)

type RouterConfig struct {
	Log            *logger.Logger
	ServiceName    string
	CORSOrigins    []string
	Metrics        *observability.Metrics
	AuthMiddleware *httpMW.AuthMiddleware

	AuthHandler      *httpH.AuthHandler
	SyllabusHandler  *httpH.SyllabusHandler
	AnalysisHandler  *httpH.AnalysisHandler
	StudyPlanHandler *httpH.StudyPlanHandler

	HealthHandler *httpH.HealthHandler
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	if cfg.ServiceName != "" {
		r.Use(otelgin.Middleware(cfg.ServiceName))
	}
	r.Use(httpMW.AttachTraceContext())
	r.Use(httpMW.Metrics(cfg.Metrics))
	r.Use(httpMW.RequestLogger(cfg.Log))
	r.Use(httpMW.CORS(cfg.CORSOrigins))

	// Health
	if cfg.HealthHandler != nil {
		r.GET("/healthcheck", cfg.HealthHandler.HealthCheck)
		r.GET("/readyz", cfg.HealthHandler.Ready)
	}
	if cfg.Metrics != nil {
		r.GET("/metrics", gin.WrapH(cfg.Metrics.Handler()))
	}

	// Accounts
	if cfg.AuthHandler != nil {
		public := r.Group("/api/auth")
		public.POST("/signup", cfg.AuthHandler.Signup)
		public.POST("/login", cfg.AuthHandler.Login)
	}

	protected := r.Group("/api")
	if cfg.AuthMiddleware != nil {
		protected.Use(cfg.AuthMiddleware.RequireAuth())
	}
	{
		// Syllabus analysis
		if cfg.SyllabusHandler != nil {
			protected.POST("/syllabus/upload", cfg.SyllabusHandler.Upload)
			protected.POST("/syllabus/analyze", cfg.SyllabusHandler.Analyze)
			protected.POST("/syllabus/normalize", cfg.SyllabusHandler.Normalize)
		}
		if cfg.AnalysisHandler != nil {
			protected.GET("/analyses", cfg.AnalysisHandler.List)
			protected.GET("/analyses/:id", cfg.AnalysisHandler.Get)
			protected.DELETE("/analyses/:id", cfg.AnalysisHandler.Delete)
		}

		// Study plans
		if cfg.StudyPlanHandler != nil {
			protected.POST("/study-plans", cfg.StudyPlanHandler.Create)
			protected.GET("/study-plans", cfg.StudyPlanHandler.List)
			protected.GET("/study-plans/:id", cfg.StudyPlanHandler.Get)
			protected.PATCH("/study-plans/:id/topics/completion", cfg.StudyPlanHandler.SetCompletion)
			protected.DELETE("/study-plans/:id", cfg.StudyPlanHandler.Delete)
		}
	}

	return r
}
