package worker

import (
	"context"
	"fmt"
	"sync"
	"time"

	"gorm.io/gorm"

	"github.com/yungbote/originality-backend/internal/data/repos"
	types "github.com/yungbote/originality-backend/internal/domain"
	"github.com/yungbote/originality-backend/internal/domain/jobs"
	"github.com/yungbote/originality-backend/internal/jobs/runtime"
	"github.com/yungbote/originality-backend/internal/pkg/dbctx"
	"github.com/yungbote/originality-backend/internal/platform/logger"
	"github.com/yungbote/originality-backend/internal/services"
)

type Config struct {
	Concurrency  int
	PollInterval time.Duration
	// RetryDelay is how long a failed run waits before it is claimed again.
	RetryDelay time.Duration
	// StaleRunning reclaims running jobs whose heartbeat is older than this.
	StaleRunning      time.Duration
	HeartbeatInterval time.Duration
}

func (c Config) withDefaults() Config {
	if c.Concurrency < 1 {
		c.Concurrency = 1
	}
	if c.PollInterval <= 0 {
		c.PollInterval = time.Second
	}
	if c.RetryDelay <= 0 {
		c.RetryDelay = 30 * time.Second
	}
	if c.StaleRunning <= 0 {
		c.StaleRunning = 10 * time.Minute
	}
	if c.HeartbeatInterval <= 0 {
		c.HeartbeatInterval = 15 * time.Second
	}
	return c
}

// JobObserver records finished job runs.
type JobObserver interface {
	ObserveJob(jobType, outcome string, d time.Duration)
}

type Worker struct {
	db       *gorm.DB
	log      *logger.Logger
	repo     repos.JobRunRepo
	registry *runtime.Registry
	notify   services.JobNotifier
	observer JobObserver
	cfg      Config

	mu     sync.Mutex
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewWorker(db *gorm.DB, baseLog *logger.Logger, repo repos.JobRunRepo, registry *runtime.Registry, notify services.JobNotifier, observer JobObserver, cfg Config) *Worker {
	return &Worker{
		db:       db,
		log:      baseLog.With("component", "JobWorker"),
		repo:     repo,
		registry: registry,
		notify:   notify,
		observer: observer,
		cfg:      cfg.withDefaults(),
	}
}

// Start launches the pool. Calling Start on a running worker is a no-op.
func (w *Worker) Start(ctx context.Context) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.cancel != nil {
		return
	}
	ctx, w.cancel = context.WithCancel(ctx)
	w.log.Info("Starting job worker pool", "concurrency", w.cfg.Concurrency, "job_types", w.registry.Types())
	for i := 0; i < w.cfg.Concurrency; i++ {
		w.wg.Add(1)
		go w.runLoop(ctx, i+1)
	}
}

// Stop cancels the pool and waits for in-flight jobs to return.
func (w *Worker) Stop() {
	w.mu.Lock()
	cancel := w.cancel
	w.cancel = nil
	w.mu.Unlock()
	if cancel == nil {
		return
	}
	cancel()
	w.wg.Wait()
	w.log.Info("Job worker pool stopped")
}

func (w *Worker) runLoop(ctx context.Context, workerID int) {
	defer w.wg.Done()
	ticker := time.NewTicker(w.cfg.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			// Drain the queue before waiting for the next tick.
			for ctx.Err() == nil {
				ran, err := w.RunOnce(ctx)
				if err != nil {
					w.log.Warn("ClaimNextRunnable failed", "worker_id", workerID, "error", err)
					break
				}
				if !ran {
					break
				}
			}
		}
	}
}

// RunOnce claims one runnable job and executes it. It reports false when the
// queue is empty.
func (w *Worker) RunOnce(ctx context.Context) (bool, error) {
	w.failExhausted(ctx)
	job, err := w.repo.ClaimNextRunnable(dbctx.New(ctx), w.cfg.RetryDelay, w.cfg.StaleRunning)
	if err != nil {
		return false, err
	}
	if job == nil {
		return false, nil
	}
	w.execute(ctx, job)
	return true, nil
}

// failExhausted closes out runs that crashed on their final attempt. Errors
// are logged; the claim that follows does not depend on the sweep.
func (w *Worker) failExhausted(ctx context.Context) {
	expired, err := w.repo.FailExhaustedStale(dbctx.New(ctx), w.cfg.StaleRunning)
	if err != nil {
		w.log.Warn("FailExhaustedStale failed", "error", err)
	}
	for _, job := range expired {
		w.log.Warn("Job abandoned after last attempt", "job_id", job.ID, "job_type", job.JobType, "attempts", job.Attempts)
		if h, ok := w.registry.Get(job.JobType); ok {
			if e, ok := h.(runtime.Expirer); ok {
				if err := e.Expire(ctx, job, job.Error); err != nil {
					w.log.Warn("Expire failed", "job_id", job.ID, "error", err)
				}
			}
		}
		if w.notify != nil {
			w.notify.JobFailed(job.OwnerUserID, job, job.Stage, job.Error)
		}
		w.observe(job, "error", time.Now())
	}
}

func (w *Worker) execute(ctx context.Context, job *types.JobRun) {
	started := time.Now()
	jc := runtime.NewContext(ctx, w.db, job, w.repo, w.notify)
	log := w.log.With("job_id", job.ID, "job_type", job.JobType, "attempt", job.Attempts)

	h, ok := w.registry.Get(job.JobType)
	if !ok {
		log.Warn("No handler registered for job_type")
		jc.Fail("dispatch", fmt.Errorf("no handler registered for job_type=%s", job.JobType))
		w.observe(job, "error", started)
		return
	}

	hbCtx, stopHeartbeat := context.WithCancel(ctx)
	var hb sync.WaitGroup
	hb.Add(1)
	go func() {
		defer hb.Done()
		w.heartbeat(hbCtx, job)
	}()

	func() {
		defer func() {
			if r := recover(); r != nil {
				log.Error("Job handler panic", "panic", r)
				jc.Fail("panic", fmt.Errorf("panic: %v", r))
			}
		}()
		if err := h.Run(jc); err != nil {
			// Handlers usually fail the job themselves; this catches the rest.
			jc.Fail("run", err)
			return
		}
		if job.Status == jobs.StatusRunning {
			jc.Succeed("done", nil)
		}
	}()

	stopHeartbeat()
	hb.Wait()

	outcome := "ok"
	if job.Status != jobs.StatusSucceeded {
		outcome = "error"
		log.Warn("Job failed", "error", job.Error, "duration", time.Since(started))
	} else {
		log.Info("Job finished", "duration", time.Since(started))
	}
	w.observe(job, outcome, started)
}

func (w *Worker) heartbeat(ctx context.Context, job *types.JobRun) {
	t := time.NewTicker(w.cfg.HeartbeatInterval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			if err := w.repo.Heartbeat(dbctx.New(ctx), job.ID); err != nil && ctx.Err() == nil {
				w.log.Warn("Job heartbeat failed", "job_id", job.ID, "error", err)
			}
		}
	}
}

func (w *Worker) observe(job *types.JobRun, outcome string, started time.Time) {
	if w.observer != nil {
		w.observer.ObserveJob(job.JobType, outcome, time.Since(started))
	}
}
