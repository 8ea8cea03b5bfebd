package app

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/yungbote/originality-backend/internal/data/db"
	"github.com/yungbote/originality-backend/internal/data/repos"
	"github.com/yungbote/originality-backend/internal/http"
	"github.com/yungbote/originality-backend/internal/observability"
	"github.com/yungbote/originality-backend/internal/platform/logger"
	"github.com/yungbote/originality-backend/internal/realtime"
)

type App struct {
	Log      *logger.Logger
	DB       *gorm.DB
	Server   *http.Server
	Cfg      Config
	Repos    repos.Repos
	Clients  Clients
	Services Services
	SSEHub   *realtime.SSEHub
	Metrics  *observability.Metrics

	otelShutdown func(context.Context) error
	cancel       context.CancelFunc
}

func New(ctx context.Context) (*App, error) {
	cfg, err := LoadConfig(ctx)
	if err != nil {
		return nil, err
	}
	log, err := logger.NewWithLevel(cfg.LogMode, cfg.LogLevel)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}
	cfg.Log(log)

	otelShutdown := observability.InitOTel(ctx, log, observability.OtelConfig{
		Enabled:     cfg.OtelEnabled,
		ServiceName: cfg.OtelServiceName,
		Environment: cfg.OtelEnvironment,
		Version:     cfg.OtelVersion,
		Endpoint:    cfg.OtelEndpoint,
		Headers:     cfg.OtelHeaders,
		Insecure:    cfg.OtelInsecure,
		SampleRatio: cfg.OtelSampleRatio,
	})

	theDB, err := db.Open(db.Config{Driver: cfg.DBDriver, DSN: cfg.DBDSN}, log)
	if err != nil {
		log.Sync()
		return nil, fmt.Errorf("init db: %w", err)
	}

	metrics := observability.NewMetrics()
	ssehub := realtime.NewSSEHub(log)
	reposet := repos.New(theDB, log)

	clients, err := wireClients(ctx, log, cfg, metrics)
	if err != nil {
		_ = db.Close(theDB)
		log.Sync()
		return nil, err
	}

	serviceset, err := wireServices(theDB, log, cfg, reposet, clients, ssehub, metrics)
	if err != nil {
		clients.Close()
		_ = db.Close(theDB)
		log.Sync()
		return nil, err
	}

	handlerset := wireHandlers(theDB, log, cfg, serviceset, clients.Models, ssehub)
	middleware := wireMiddleware(log, serviceset)
	server := wireServer(log, cfg, metrics, handlerset, middleware)

	return &App{
		Log:          log,
		DB:           theDB,
		Server:       server,
		Cfg:          cfg,
		Repos:        reposet,
		Clients:      clients,
		Services:     serviceset,
		SSEHub:       ssehub,
		Metrics:      metrics,
		otelShutdown: otelShutdown,
	}, nil
}

// Start launches background work: the job worker and, with redis, the SSE
// bus forwarder that feeds the local hub.
func (a *App) Start(ctx context.Context) error {
	if a == nil || a.cancel != nil {
		return nil
	}
	ctx, cancel := context.WithCancel(ctx)
	a.cancel = cancel

	if a.Clients.SSEBus != nil {
		if err := a.Clients.SSEBus.StartForwarder(ctx, a.SSEHub.Broadcast); err != nil {
			cancel()
			a.cancel = nil
			return fmt.Errorf("start sse forwarder: %w", err)
		}
	}
	if a.Services.JobWorker != nil {
		a.Services.JobWorker.Start(ctx)
	}
	return nil
}

// Run serves HTTP until ctx is cancelled.
func (a *App) Run(ctx context.Context) error {
	if a == nil || a.Server == nil {
		return fmt.Errorf("app not initialized")
	}
	return a.Server.Run(ctx, a.Cfg.HTTPAddr)
}

func (a *App) Close() {
	if a == nil {
		return
	}
	if a.cancel != nil {
		a.cancel()
		a.cancel = nil
	}
	if a.Services.JobWorker != nil {
		a.Services.JobWorker.Stop()
	}
	a.Clients.Close()
	if a.otelShutdown != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		_ = a.otelShutdown(shutdownCtx)
		cancel()
	}
	_ = db.Close(a.DB)
	if a.Log != nil {
		a.Log.Sync()
	}
}
