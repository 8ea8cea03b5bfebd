package worker

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"go.uber.org/goleak"
	"gorm.io/gorm"

	"github.com/yungbote/originality-backend/internal/data/repos"
	"github.com/yungbote/originality-backend/internal/data/repos/testutil"
	types "github.com/yungbote/originality-backend/internal/domain"
	"github.com/yungbote/originality-backend/internal/domain/jobs"
	"github.com/yungbote/originality-backend/internal/jobs/runtime"
	"github.com/yungbote/originality-backend/internal/pkg/dbctx"
	"github.com/yungbote/originality-backend/internal/services"
)

type countingObserver struct {
	mu       sync.Mutex
	outcomes map[string]int
}

func (o *countingObserver) ObserveJob(_ string, outcome string, _ time.Duration) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.outcomes == nil {
		o.outcomes = map[string]int{}
	}
	o.outcomes[outcome]++
}

func (o *countingObserver) get(outcome string) int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.outcomes[outcome]
}

type env struct {
	db    *gorm.DB
	repos repos.Repos
	jobs  services.JobService
	owner uuid.UUID
}

func newEnv(t *testing.T) *env {
	t.Helper()
	db := testutil.DB(t)
	log := testutil.Logger(t)
	rp := repos.New(db, log)
	return &env{
		db:    db,
		repos: rp,
		jobs:  services.NewJobService(db, log, rp.JobRun, services.NewJobNotifier(nil)),
		owner: testutil.SeedUser(t, db, "worker@example.com").ID,
	}
}

func (e *env) enqueue(t *testing.T, jobType string, payload map[string]any) *types.JobRun {
	t.Helper()
	job, err := e.jobs.Enqueue(dbctx.New(context.Background()), e.owner, jobType, "", nil, payload)
	if err != nil {
		t.Fatalf("Enqueue: %v", err)
	}
	return job
}

func (e *env) reload(t *testing.T, id uuid.UUID) *types.JobRun {
	t.Helper()
	job, err := e.repos.JobRun.GetByID(dbctx.New(context.Background()), id)
	if err != nil || job == nil {
		t.Fatalf("GetByID: %v", err)
	}
	return job
}

func TestRunOnceDispatchesAndRecords(t *testing.T) {
	e := newEnv(t)
	reg := runtime.NewRegistry()
	_ = reg.Register(runtime.HandlerFunc{JobType: "echo", Fn: func(jc *runtime.Context) error {
		v, _ := jc.Payload()["value"].(string)
		jc.Progress("echo", 50, "half way")
		jc.Succeed("done", map[string]any{"echo": v})
		return nil
	}})
	_ = reg.Register(runtime.HandlerFunc{JobType: "boom", Fn: func(*runtime.Context) error {
		panic("kaboom")
	}})
	_ = reg.Register(runtime.HandlerFunc{JobType: "bad", Fn: func(*runtime.Context) error {
		return errors.New("handler error")
	}})
	obs := &countingObserver{}
	w := NewWorker(e.db, testutil.Logger(t), e.repos.JobRun, reg, nil, obs, Config{RetryDelay: time.Hour})

	echo := e.enqueue(t, "echo", map[string]any{"value": "hi"})
	boom := e.enqueue(t, "boom", nil)
	bad := e.enqueue(t, "bad", nil)
	orphan := e.enqueue(t, "unknown", nil)

	ctx := context.Background()
	for i := 0; i < 4; i++ {
		ran, err := w.RunOnce(ctx)
		if err != nil || !ran {
			t.Fatalf("RunOnce #%d: ran=%v err=%v", i, ran, err)
		}
	}
	if ran, _ := w.RunOnce(ctx); ran {
		t.Fatalf("queue should be empty; failed jobs wait for the retry delay")
	}

	if got := e.reload(t, echo.ID); got.Status != jobs.StatusSucceeded || got.Progress != 100 || string(got.Result) != `{"echo":"hi"}` {
		t.Fatalf("echo job: %+v result=%s", got, got.Result)
	}
	if got := e.reload(t, boom.ID); got.Status != jobs.StatusFailed || got.Stage != "panic" {
		t.Fatalf("boom job: %+v", got)
	}
	if got := e.reload(t, bad.ID); got.Status != jobs.StatusFailed || got.Error != "handler error" {
		t.Fatalf("bad job: %+v", got)
	}
	if got := e.reload(t, orphan.ID); got.Status != jobs.StatusFailed || got.Stage != "dispatch" {
		t.Fatalf("orphan job: %+v", got)
	}
	if obs.get("ok") != 1 || obs.get("error") != 3 {
		t.Fatalf("observer outcomes: %+v", obs.outcomes)
	}
}

func TestHandlerReturningNilSucceeds(t *testing.T) {
	e := newEnv(t)
	reg := runtime.NewRegistry()
	_ = reg.Register(runtime.HandlerFunc{JobType: "quiet", Fn: func(*runtime.Context) error { return nil }})
	w := NewWorker(e.db, testutil.Logger(t), e.repos.JobRun, reg, nil, nil, Config{})
	job := e.enqueue(t, "quiet", nil)
	if _, err := w.RunOnce(context.Background()); err != nil {
		t.Fatalf("RunOnce: %v", err)
	}
	if got := e.reload(t, job.ID); got.Status != jobs.StatusSucceeded {
		t.Fatalf("status = %s", got.Status)
	}
}

func TestStartStopDrainsQueue(t *testing.T) {
	e := newEnv(t)
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	var mu sync.Mutex
	seen := map[string]bool{}
	reg := runtime.NewRegistry()
	_ = reg.Register(runtime.HandlerFunc{JobType: "mark", Fn: func(jc *runtime.Context) error {
		mu.Lock()
		seen[jc.Job.ID.String()] = true
		mu.Unlock()
		jc.Succeed("done", nil)
		return nil
	}})
	w := NewWorker(e.db, testutil.Logger(t), e.repos.JobRun, reg, nil, nil, Config{
		Concurrency:       2,
		PollInterval:      5 * time.Millisecond,
		HeartbeatInterval: time.Millisecond,
	})
	ids := []uuid.UUID{e.enqueue(t, "mark", nil).ID, e.enqueue(t, "mark", nil).ID, e.enqueue(t, "mark", nil).ID}

	w.Start(context.Background())
	w.Start(context.Background())
	deadline := time.Now().Add(5 * time.Second)
	for {
		mu.Lock()
		n := len(seen)
		mu.Unlock()
		if n == len(ids) {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("worker processed %d of %d jobs", n, len(ids))
		}
		time.Sleep(5 * time.Millisecond)
	}
	w.Stop()
	w.Stop()

	for _, id := range ids {
		if got := e.reload(t, id); got.Status != jobs.StatusSucceeded || got.Attempts != 1 {
			t.Fatalf("job %s: status=%s attempts=%d", id, got.Status, got.Attempts)
		}
	}
}
