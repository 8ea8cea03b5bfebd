package jobs

import (
	"context"
	"testing"
	"time"

	"github.com/yungbote/originality-backend/internal/data/repos/testutil"
	types "github.com/yungbote/originality-backend/internal/domain"
	"github.com/yungbote/originality-backend/internal/domain/jobs"
	"github.com/yungbote/originality-backend/internal/pkg/dbctx"
)

func TestJobRunRepoClaimLifecycle(t *testing.T) {
	db := testutil.DB(t)
	u := testutil.SeedUser(t, db, "jobs@example.com")
	repo := NewJobRunRepo(db, testutil.Logger(t))
	dbc := dbctx.New(context.Background())

	first := &types.JobRun{OwnerUserID: u.ID, JobType: "analyze"}
	if _, err := repo.Create(dbc, []*types.JobRun{first}); err != nil {
		t.Fatalf("Create: %v", err)
	}
	time.Sleep(2 * time.Millisecond)
	second := &types.JobRun{OwnerUserID: u.ID, JobType: "analyze"}
	if _, err := repo.Create(dbc, []*types.JobRun{second}); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if first.Status != jobs.StatusQueued || first.MaxAttempts != 3 {
		t.Fatalf("defaults not applied: %+v", first)
	}

	claimed, err := repo.ClaimNextRunnable(dbc, time.Minute, time.Minute)
	if err != nil || claimed == nil {
		t.Fatalf("ClaimNextRunnable: job=%v err=%v", claimed, err)
	}
	if claimed.ID != first.ID || claimed.Status != jobs.StatusRunning || claimed.Attempts != 1 {
		t.Fatalf("claimed = %+v", claimed)
	}

	next, err := repo.ClaimNextRunnable(dbc, time.Minute, time.Minute)
	if err != nil || next == nil || next.ID != second.ID {
		t.Fatalf("second claim = %v err=%v", next, err)
	}
	if none, err := repo.ClaimNextRunnable(dbc, time.Minute, time.Minute); err != nil || none != nil {
		t.Fatalf("expected nothing runnable, got %v err=%v", none, err)
	}

	// A failed job becomes runnable again once the retry delay passes.
	past := time.Now().Add(-time.Hour)
	if err := repo.UpdateFields(dbc, first.ID, map[string]interface{}{
		"status":        jobs.StatusFailed,
		"last_error_at": past,
	}); err != nil {
		t.Fatalf("UpdateFields: %v", err)
	}
	retry, err := repo.ClaimNextRunnable(dbc, time.Minute, time.Minute)
	if err != nil || retry == nil || retry.ID != first.ID || retry.Attempts != 2 {
		t.Fatalf("retry claim = %+v err=%v", retry, err)
	}

	ok, err := repo.UpdateFieldsUnlessStatus(dbc, first.ID, []string{jobs.StatusRunning}, map[string]interface{}{"stage": "x"})
	if err != nil || ok {
		t.Fatalf("UpdateFieldsUnlessStatus should skip running job: ok=%v err=%v", ok, err)
	}
	if err := repo.Heartbeat(dbc, first.ID); err != nil {
		t.Fatalf("Heartbeat: %v", err)
	}

	got, err := repo.GetForOwner(dbc, u.ID, first.ID)
	if err != nil || got == nil || got.Status != jobs.StatusRunning {
		t.Fatalf("GetForOwner = %+v err=%v", got, err)
	}
}

func TestJobRunRepoExhaustedAttemptsNotClaimed(t *testing.T) {
	db := testutil.DB(t)
	u := testutil.SeedUser(t, db, "exhausted@example.com")
	repo := NewJobRunRepo(db, testutil.Logger(t))
	dbc := dbctx.New(context.Background())

	j := &types.JobRun{OwnerUserID: u.ID, JobType: "analyze", Status: jobs.StatusFailed, Attempts: 3, MaxAttempts: 3}
	if _, err := repo.Create(dbc, []*types.JobRun{j}); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if got, err := repo.ClaimNextRunnable(dbc, 0, time.Minute); err != nil || got != nil {
		t.Fatalf("claimed exhausted job: %v err=%v", got, err)
	}
}

func TestJobRunRepoStaleRunningRespectsMaxAttempts(t *testing.T) {
	db := testutil.DB(t)
	u := testutil.SeedUser(t, db, "stale@example.com")
	repo := NewJobRunRepo(db, testutil.Logger(t))
	dbc := dbctx.New(context.Background())

	old := time.Now().Add(-time.Hour)
	crashed := &types.JobRun{OwnerUserID: u.ID, JobType: "analyze", Status: jobs.StatusRunning, Attempts: 3, MaxAttempts: 3, HeartbeatAt: &old}
	retryable := &types.JobRun{OwnerUserID: u.ID, JobType: "analyze", Status: jobs.StatusRunning, Attempts: 1, MaxAttempts: 3, HeartbeatAt: &old}
	if _, err := repo.Create(dbc, []*types.JobRun{crashed, retryable}); err != nil {
		t.Fatalf("Create: %v", err)
	}

	for i := 0; i < 3; i++ {
		got, err := repo.ClaimNextRunnable(dbc, time.Minute, time.Minute)
		if err != nil {
			t.Fatalf("ClaimNextRunnable: %v", err)
		}
		if got == nil {
			break
		}
		if got.ID == crashed.ID || got.Attempts > got.MaxAttempts {
			t.Fatalf("claimed job with attempts=%d max=%d", got.Attempts, got.MaxAttempts)
		}
	}

	failed, err := repo.FailExhaustedStale(dbc, time.Minute)
	if err != nil {
		t.Fatalf("FailExhaustedStale: %v", err)
	}
	if len(failed) != 1 || failed[0].ID != crashed.ID {
		t.Fatalf("failed = %+v", failed)
	}
	got, err := repo.GetByID(dbc, crashed.ID)
	if err != nil || got.Status != jobs.StatusFailed || got.Error != StaleExhaustedError {
		t.Fatalf("crashed job = %+v err=%v", got, err)
	}
	if again, err := repo.FailExhaustedStale(dbc, time.Minute); err != nil || len(again) != 0 {
		t.Fatalf("second sweep = %v err=%v", again, err)
	}
	if none, err := repo.ClaimNextRunnable(dbc, 0, time.Minute); err != nil || none != nil {
		t.Fatalf("exhausted failed job claimed: %v err=%v", none, err)
	}
}
