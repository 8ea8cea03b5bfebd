package http

import (
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	httpH "github.com/yungbote/originality-backend/internal/http/handlers"
	httpMW "github.com/yungbote/originality-backend/internal/http/middleware"
	"github.com/yungbote/originality-backend/internal/observability"
	"github.com/yungbote/originality-backend/internal/platform/logger"
)

type RouterConfig struct {
	Log         *logger.Logger
	Metrics     *observability.Metrics
	ServiceName string
	CORSOrigins []string

	// MaxBodyBytes limits non-multipart API request bodies. <= 0 disables it.
	MaxBodyBytes int64

	AuthHandler     *httpH.AuthHandler
	AuthMiddleware  *httpMW.AuthMiddleware
	RealtimeHandler *httpH.RealtimeHandler

	DocumentHandler *httpH.DocumentHandler
	AnalysisHandler *httpH.AnalysisHandler
	ProviderHandler *httpH.ProviderHandler
	JobHandler      *httpH.JobHandler

	HealthHandler *httpH.HealthHandler
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	if cfg.ServiceName != "" {
		r.Use(otelgin.Middleware(cfg.ServiceName))
	}
	r.Use(httpMW.AttachTraceContext())
	if cfg.Log != nil {
		r.Use(httpMW.RequestLogger(cfg.Log))
	}
	r.Use(httpMW.Metrics(cfg.Metrics))
	r.Use(httpMW.CORS(cfg.CORSOrigins))

	// Health
	if cfg.HealthHandler != nil {
		r.GET("/healthcheck", cfg.HealthHandler.HealthCheck)
	}
	if cfg.Metrics != nil {
		r.GET("/metrics", gin.WrapH(cfg.Metrics.Handler()))
	}

	api := r.Group("/api")
	api.Use(httpMW.BodyLimit(cfg.MaxBodyBytes))
	{
		// Auth (public)
		if cfg.AuthHandler != nil {
			api.POST("/register", cfg.AuthHandler.Register)
			api.POST("/login", cfg.AuthHandler.Login)
			api.POST("/refresh", cfg.AuthHandler.Refresh)
		}
	}

	protected := api.Group("/")
	{
		if cfg.AuthMiddleware != nil {
			protected.Use(cfg.AuthMiddleware.RequireAuth())
		}

		if cfg.AuthHandler != nil {
			protected.POST("/logout", cfg.AuthHandler.Logout)
			protected.GET("/me", cfg.AuthHandler.Me)
		}

		// Realtime (SSE)
		if cfg.RealtimeHandler != nil {
			protected.GET("/sse/stream", cfg.RealtimeHandler.SSEStream)
		}

		if cfg.ProviderHandler != nil {
			protected.GET("/providers", cfg.ProviderHandler.List)
		}

		// Documents
		if cfg.DocumentHandler != nil {
			protected.POST("/documents", cfg.DocumentHandler.Upload)
			protected.POST("/documents/text", cfg.DocumentHandler.CreateText)
			protected.GET("/documents", cfg.DocumentHandler.List)
			protected.GET("/documents/:id", cfg.DocumentHandler.Get)
			protected.PATCH("/documents/:id", cfg.DocumentHandler.Update)
			protected.DELETE("/documents/:id", cfg.DocumentHandler.Delete)
			protected.GET("/documents/:id/chunks", cfg.DocumentHandler.Chunks)
		}

		// Analyses
		if cfg.AnalysisHandler != nil {
			protected.POST("/analyses", cfg.AnalysisHandler.Analyze)
			protected.POST("/comparisons", cfg.AnalysisHandler.Compare)
			protected.POST("/rewrites", cfg.AnalysisHandler.Rewrite)
			protected.POST("/reconstructions", cfg.AnalysisHandler.Reconstruct)
			protected.GET("/analyses", cfg.AnalysisHandler.List)
			protected.GET("/analyses/:id", cfg.AnalysisHandler.Get)
			protected.DELETE("/analyses/:id", cfg.AnalysisHandler.Delete)
			protected.GET("/analyses/:id/report", cfg.AnalysisHandler.Report)
		}

		// Job
		if cfg.JobHandler != nil {
			protected.GET("/jobs/:id", cfg.JobHandler.GetJob)
		}
	}

	return r
}
