package app

import (
	"gorm.io/gorm"

	"github.com/yungbote/originality-backend/internal/http"
	httpH "github.com/yungbote/originality-backend/internal/http/handlers"
	httpMW "github.com/yungbote/originality-backend/internal/http/middleware"
	"github.com/yungbote/originality-backend/internal/llm/router"
	"github.com/yungbote/originality-backend/internal/observability"
	"github.com/yungbote/originality-backend/internal/platform/logger"
	"github.com/yungbote/originality-backend/internal/realtime"
)

type Middleware struct {
	Auth *httpMW.AuthMiddleware
}

type Handlers struct {
	Health   *httpH.HealthHandler
	Auth     *httpH.AuthHandler
	Realtime *httpH.RealtimeHandler
	Document *httpH.DocumentHandler
	Analysis *httpH.AnalysisHandler
	Provider *httpH.ProviderHandler
	Job      *httpH.JobHandler
}

func wireHandlers(db *gorm.DB, log *logger.Logger, cfg Config, services Services, models *router.Router, sseHub *realtime.SSEHub) Handlers {
	log.Info("Wiring handlers...")
	return Handlers{
		Health:   httpH.NewHealthHandler(db),
		Auth:     httpH.NewAuthHandler(services.Auth),
		Realtime: httpH.NewRealtimeHandler(log, sseHub),
		Document: httpH.NewDocumentHandler(services.Documents, cfg.MaxUploadBytes),
		Analysis: httpH.NewAnalysisHandler(services.Analyses, services.Reports),
		Provider: httpH.NewProviderHandler(models),
		Job:      httpH.NewJobHandler(services.JobService),
	}
}

func wireMiddleware(log *logger.Logger, services Services) Middleware {
	log.Info("Wiring middleware...")
	return Middleware{
		Auth: httpMW.NewAuthMiddleware(log, services.Auth),
	}
}

func wireServer(log *logger.Logger, cfg Config, metrics *observability.Metrics, handlers Handlers, middleware Middleware) *http.Server {
	serviceName := ""
	if cfg.OtelEnabled {
		serviceName = cfg.OtelServiceName
	}
	return http.NewServer(http.RouterConfig{
		Log:             log,
		Metrics:         metrics,
		ServiceName:     serviceName,
		CORSOrigins:     cfg.CORSAllowedOrigins,
		MaxBodyBytes:    cfg.MaxBodyBytes,
		HealthHandler:   handlers.Health,
		AuthHandler:     handlers.Auth,
		AuthMiddleware:  middleware.Auth,
		RealtimeHandler: handlers.Realtime,
		DocumentHandler: handlers.Document,
		AnalysisHandler: handlers.Analysis,
		ProviderHandler: handlers.Provider,
		JobHandler:      handlers.Job,
	})
}
