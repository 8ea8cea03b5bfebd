package analysis

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/yungbote/originality-backend/internal/data/repos"
	"github.com/yungbote/originality-backend/internal/data/repos/testutil"
	"github.com/yungbote/originality-backend/internal/domain/analyses"
	"github.com/yungbote/originality-backend/internal/domain/jobs"
	"github.com/yungbote/originality-backend/internal/jobs/runtime"
	"github.com/yungbote/originality-backend/internal/jobs/worker"
	"github.com/yungbote/originality-backend/internal/llm"
	"github.com/yungbote/originality-backend/internal/llm/mock"
	"github.com/yungbote/originality-backend/internal/llm/router"
	"github.com/yungbote/originality-backend/internal/pkg/dbctx"
	"github.com/yungbote/originality-backend/internal/services"
)

func TestQueuedAnalysisRunsOnWorker(t *testing.T) {
	ctx := context.Background()
	db := testutil.DB(t)
	log := testutil.Logger(t)
	rp := repos.New(db, log)
	owner := testutil.SeedUser(t, db, "queue@example.com").ID

	notify := services.NewJobNotifier(nil)
	jobSvc := services.NewJobService(db, log, rp.JobRun, notify)
	models := router.NewStatic("mock", &router.Route{Provider: "mock", Type: llm.TypeMock, DefaultModel: "mock-1", Engine: mock.New()})
	svc := services.NewAnalysisService(db, log, rp.Analysis, rp.Document, jobSvc, models, nil, nil, services.AnalysisConfig{})

	a, err := svc.Analyze(ctx, owner, services.AnalyzeRequest{
		Source: services.Source{Text: "First paragraph.\n\nSecond paragraph."},
		Kind:   "originality",
		Async:  true,
	})
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}

	reg := runtime.NewRegistry()
	if err := reg.Register(New(log, svc)); err != nil {
		t.Fatalf("Register: %v", err)
	}
	w := worker.NewWorker(db, log, rp.JobRun, reg, notify, nil, worker.Config{})
	if ran, err := w.RunOnce(ctx); err != nil || !ran {
		t.Fatalf("RunOnce: ran=%v err=%v", ran, err)
	}

	done, err := svc.Get(ctx, owner, a.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if done.Status != analyses.StatusSucceeded || done.Score == nil {
		t.Fatalf("analysis not finished: %+v", done)
	}
	job, err := jobSvc.GetForOwner(dbctx.New(ctx), owner, *a.JobID)
	if err != nil {
		t.Fatalf("GetForOwner: %v", err)
	}
	if job.Status != jobs.StatusSucceeded || job.Progress != 100 {
		t.Fatalf("job not finished: %+v", job)
	}
	var res map[string]any
	if err := json.Unmarshal(job.Result, &res); err != nil {
		t.Fatalf("decode job result: %v", err)
	}
	if res["analysis_id"] != a.ID.String() || res["status"] != analyses.StatusSucceeded {
		t.Fatalf("unexpected job result: %v", res)
	}
}

func TestMissingAnalysisIDFailsJob(t *testing.T) {
	ctx := context.Background()
	db := testutil.DB(t)
	log := testutil.Logger(t)
	rp := repos.New(db, log)
	owner := testutil.SeedUser(t, db, "queue@example.com").ID
	jobSvc := services.NewJobService(db, log, rp.JobRun, services.NewJobNotifier(nil))

	job, err := jobSvc.Enqueue(dbctx.New(ctx), owner, services.JobTypeAnalysisRun, "analysis", nil, map[string]any{})
	if err != nil {
		t.Fatalf("Enqueue: %v", err)
	}
	reg := runtime.NewRegistry()
	_ = reg.Register(New(log, nil))
	w := worker.NewWorker(db, log, rp.JobRun, reg, nil, nil, worker.Config{})
	if _, err := w.RunOnce(ctx); err != nil {
		t.Fatalf("RunOnce: %v", err)
	}
	got, err := jobSvc.GetForOwner(dbctx.New(ctx), owner, job.ID)
	if err != nil {
		t.Fatalf("GetForOwner: %v", err)
	}
	if got.Status != jobs.StatusFailed || got.Stage != "validate" {
		t.Fatalf("unexpected job: %+v", got)
	}
}

func TestCrashOnFinalAttemptFailsAnalysis(t *testing.T) {
	ctx := context.Background()
	db := testutil.DB(t)
	log := testutil.Logger(t)
	rp := repos.New(db, log)
	owner := testutil.SeedUser(t, db, "crash@example.com").ID

	notify := services.NewJobNotifier(nil)
	jobSvc := services.NewJobService(db, log, rp.JobRun, notify)
	models := router.NewStatic("mock", &router.Route{Provider: "mock", Type: llm.TypeMock, DefaultModel: "mock-1", Engine: mock.New()})
	svc := services.NewAnalysisService(db, log, rp.Analysis, rp.Document, jobSvc, models, nil, nil, services.AnalysisConfig{})

	a, err := svc.Analyze(ctx, owner, services.AnalyzeRequest{
		Source: services.Source{Text: "A passage that takes the worker down."},
		Kind:   "quality",
		Async:  true,
	})
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	// The last allowed attempt was claimed and its worker never came back.
	old := time.Now().Add(-time.Hour)
	if err := rp.JobRun.UpdateFields(dbctx.New(ctx), *a.JobID, map[string]interface{}{
		"status":       jobs.StatusRunning,
		"attempts":     3,
		"heartbeat_at": old,
	}); err != nil {
		t.Fatalf("UpdateFields: %v", err)
	}

	reg := runtime.NewRegistry()
	if err := reg.Register(New(log, svc)); err != nil {
		t.Fatalf("Register: %v", err)
	}
	w := worker.NewWorker(db, log, rp.JobRun, reg, notify, nil, worker.Config{StaleRunning: time.Minute})
	if ran, err := w.RunOnce(ctx); err != nil || ran {
		t.Fatalf("RunOnce: ran=%v err=%v", ran, err)
	}

	job, err := jobSvc.GetForOwner(dbctx.New(ctx), owner, *a.JobID)
	if err != nil {
		t.Fatalf("GetForOwner: %v", err)
	}
	if job.Status != jobs.StatusFailed || job.Attempts != 3 {
		t.Fatalf("job = %+v", job)
	}
	got, err := svc.Get(ctx, owner, a.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Status != analyses.StatusFailed || got.Error == "" {
		t.Fatalf("analysis = %+v", got)
	}
}
