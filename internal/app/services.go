package app

import (
	"fmt"

	"gorm.io/gorm"

	"github.com/yungbote/originality-backend/internal/data/repos"
	"github.com/yungbote/originality-backend/internal/ingestion/extractor"
	jobanalysis "github.com/yungbote/originality-backend/internal/jobs/analysis"
	"github.com/yungbote/originality-backend/internal/jobs/runtime"
	"github.com/yungbote/originality-backend/internal/jobs/worker"
	"github.com/yungbote/originality-backend/internal/observability"
	"github.com/yungbote/originality-backend/internal/platform/logger"
	"github.com/yungbote/originality-backend/internal/realtime"
	"github.com/yungbote/originality-backend/internal/services"
)

type Services struct {
	Auth       services.AuthService
	Documents  services.DocumentService
	Analyses   services.AnalysisService
	Reports    services.ReportService
	JobService services.JobService

	Emitter   realtime.Emitter
	JobWorker *worker.Worker
}

func wireServices(db *gorm.DB, log *logger.Logger, cfg Config, reposet repos.Repos, clients Clients, sseHub *realtime.SSEHub, metrics *observability.Metrics) (Services, error) {
	log.Info("Wiring services...")

	// Emitter: publish through redis when configured so every instance's hub
	// sees the event; otherwise broadcast locally.
	var emitter realtime.Emitter = &realtime.HubEmitter{Hub: sseHub}
	if clients.SSEBus != nil {
		emitter = &realtime.BusEmitter{Bus: clients.SSEBus, Fallback: sseHub}
	}
	notify := services.NewJobNotifier(emitter)

	auth := services.NewAuthService(db, log, reposet.User, reposet.UserToken, cfg.JWTSecretKey, cfg.AccessTokenTTL, cfg.RefreshTokenTTL)
	jobs := services.NewJobService(db, log, reposet.JobRun, notify)

	ex := extractor.New(clients.Models.Transcriber())
	docs := services.NewDocumentService(db, log, reposet.Document, ex, cfg.MaxUploadBytes, cfg.ChunkWords)

	analyses := services.NewAnalysisService(db, log, reposet.Analysis, reposet.Document, jobs, clients.Models, emitter, metrics, services.AnalysisConfig{
		ChunkWords:    cfg.ChunkWords,
		MinChunkWords: cfg.MinChunkWords,
		MaxChunks:     cfg.MaxChunks,
		Concurrency:   cfg.AnalysisConcurrency,
		MaxWords:      cfg.MaxWords,
		Temperature:   cfg.AnalysisTemperature,
	})
	reports := services.NewReportService(log, analyses)

	registry := runtime.NewRegistry()
	if err := registry.Register(jobanalysis.New(log, analyses)); err != nil {
		return Services{}, fmt.Errorf("register analysis job: %w", err)
	}
	jobWorker := worker.NewWorker(db, log, reposet.JobRun, registry, notify, metrics, worker.Config{
		Concurrency:  cfg.WorkerConcurrency,
		PollInterval: cfg.WorkerPoll,
		RetryDelay:   cfg.WorkerRetryDelay,
		StaleRunning: cfg.WorkerStale,
	})

	return Services{
		Auth:       auth,
		Documents:  docs,
		Analyses:   analyses,
		Reports:    reports,
		JobService: jobs,
		Emitter:    emitter,
		JobWorker:  jobWorker,
	}, nil
}
