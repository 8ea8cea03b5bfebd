package jobs

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/yungbote/originality-backend/internal/domain"
	"github.com/yungbote/originality-backend/internal/domain/jobs"
	"github.com/yungbote/originality-backend/internal/pkg/dbctx"
	"github.com/yungbote/originality-backend/internal/platform/logger"
)

type JobRunRepo interface {
	Create(dbc dbctx.Context, rows []*types.JobRun) ([]*types.JobRun, error)
	GetByID(dbc dbctx.Context, id uuid.UUID) (*types.JobRun, error)
	GetForOwner(dbc dbctx.Context, ownerUserID, id uuid.UUID) (*types.JobRun, error)
	ClaimNextRunnable(dbc dbctx.Context, retryDelay time.Duration, staleRunning time.Duration) (*types.JobRun, error)
	FailExhaustedStale(dbc dbctx.Context, staleRunning time.Duration) ([]*types.JobRun, error)
	UpdateFields(dbc dbctx.Context, id uuid.UUID, updates map[string]interface{}) error
	UpdateFieldsUnlessStatus(dbc dbctx.Context, id uuid.UUID, disallowedStatuses []string, updates map[string]interface{}) (bool, error)
	Heartbeat(dbc dbctx.Context, id uuid.UUID) error
}

type jobRunRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewJobRunRepo(db *gorm.DB, baseLog *logger.Logger) JobRunRepo {
	return &jobRunRepo{
		db:  db,
		log: baseLog.With("repo", "JobRunRepo"),
	}
}

func (r *jobRunRepo) tx(dbc dbctx.Context) *gorm.DB {
	if dbc.Tx != nil {
		return dbc.Tx.WithContext(dbc.Ctx)
	}
	return r.db.WithContext(dbc.Ctx)
}

func (r *jobRunRepo) Create(dbc dbctx.Context, rows []*types.JobRun) ([]*types.JobRun, error) {
	if len(rows) == 0 {
		return []*types.JobRun{}, nil
	}
	for _, j := range rows {
		if j.Status == "" {
			j.Status = jobs.StatusQueued
		}
		if j.Stage == "" {
			j.Stage = "queued"
		}
		if j.MaxAttempts <= 0 {
			j.MaxAttempts = 3
		}
	}
	if err := r.tx(dbc).Create(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *jobRunRepo) GetByID(dbc dbctx.Context, id uuid.UUID) (*types.JobRun, error) {
	if id == uuid.Nil {
		return nil, nil
	}
	return r.first(r.tx(dbc).Where("id = ?", id))
}

func (r *jobRunRepo) GetForOwner(dbc dbctx.Context, ownerUserID, id uuid.UUID) (*types.JobRun, error) {
	if ownerUserID == uuid.Nil || id == uuid.Nil {
		return nil, nil
	}
	return r.first(r.tx(dbc).Where("id = ? AND owner_user_id = ?", id, ownerUserID))
}

func (r *jobRunRepo) first(q *gorm.DB) (*types.JobRun, error) {
	var job types.JobRun
	err := q.First(&job).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &job, nil
}

// ClaimNextRunnable picks the oldest runnable job: queued, failed with
// attempts left and past the retry delay, or running with a stale heartbeat
// and attempts left.
// The claim is a conditional update on the row's (status, attempts), so two
// workers racing for the same row cannot both win. It works the same on
// sqlite and postgres.
func (r *jobRunRepo) ClaimNextRunnable(dbc dbctx.Context, retryDelay time.Duration, staleRunning time.Duration) (*types.JobRun, error) {
	now := time.Now()
	retryCutoff := now.Add(-retryDelay)
	staleCutoff := now.Add(-staleRunning)

	for i := 0; i < 5; i++ {
		var job types.JobRun
		err := r.tx(dbc).
			Where(`
        (
          status = ?
          OR (
            status = ?
            AND attempts < max_attempts
            AND (last_error_at IS NULL OR last_error_at < ?)
          )
          OR (
            status = ?
            AND attempts < max_attempts
            AND heartbeat_at IS NOT NULL
            AND heartbeat_at < ?
          )
        )
      `, jobs.StatusQueued, jobs.StatusFailed, retryCutoff, jobs.StatusRunning, staleCutoff).
			Order("created_at ASC").
			First(&job).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		if err != nil {
			return nil, err
		}

		res := r.tx(dbc).Model(&types.JobRun{}).
			Where("id = ? AND status = ? AND attempts = ?", job.ID, job.Status, job.Attempts).
			Updates(map[string]interface{}{
				"status":       jobs.StatusRunning,
				"attempts":     gorm.Expr("attempts + 1"),
				"locked_at":    now,
				"heartbeat_at": now,
				"updated_at":   now,
			})
		if res.Error != nil {
			return nil, res.Error
		}
		if res.RowsAffected == 0 {
			// Lost the race; look again.
			continue
		}
		job.Status = jobs.StatusRunning
		job.Attempts++
		job.LockedAt = &now
		job.HeartbeatAt = &now
		return &job, nil
	}
	return nil, nil
}

// StaleExhaustedError is recorded on runs whose worker went away during the
// last allowed attempt.
const StaleExhaustedError = "worker stopped responding on the last attempt"

// FailExhaustedStale fails running jobs whose heartbeat went stale on their
// final attempt and returns the rows it changed.
func (r *jobRunRepo) FailExhaustedStale(dbc dbctx.Context, staleRunning time.Duration) ([]*types.JobRun, error) {
	now := time.Now()
	cutoff := now.Add(-staleRunning)

	var rows []*types.JobRun
	err := r.tx(dbc).
		Where("status = ? AND attempts >= max_attempts AND heartbeat_at IS NOT NULL AND heartbeat_at < ?", jobs.StatusRunning, cutoff).
		Order("created_at ASC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	out := make([]*types.JobRun, 0, len(rows))
	for _, job := range rows {
		res := r.tx(dbc).Model(&types.JobRun{}).
			Where("id = ? AND status = ? AND heartbeat_at < ?", job.ID, jobs.StatusRunning, cutoff).
			Updates(map[string]interface{}{
				"status":        jobs.StatusFailed,
				"stage":         "stale",
				"error":         StaleExhaustedError,
				"last_error_at": now,
				"updated_at":    now,
			})
		if res.Error != nil {
			return out, res.Error
		}
		if res.RowsAffected == 0 {
			continue
		}
		job.Status = jobs.StatusFailed
		job.Stage = "stale"
		job.Error = StaleExhaustedError
		job.LastErrorAt = &now
		out = append(out, job)
	}
	return out, nil
}

func (r *jobRunRepo) UpdateFields(dbc dbctx.Context, id uuid.UUID, updates map[string]interface{}) error {
	if id == uuid.Nil {
		return nil
	}
	if updates == nil {
		updates = map[string]interface{}{}
	}
	if _, ok := updates["updated_at"]; !ok {
		updates["updated_at"] = time.Now()
	}
	return r.tx(dbc).
		Model(&types.JobRun{}).
		Where("id = ?", id).
		Updates(updates).Error
}

func (r *jobRunRepo) UpdateFieldsUnlessStatus(dbc dbctx.Context, id uuid.UUID, disallowedStatuses []string, updates map[string]interface{}) (bool, error) {
	if id == uuid.Nil {
		return false, nil
	}
	if updates == nil {
		updates = map[string]interface{}{}
	}
	if _, ok := updates["updated_at"]; !ok {
		updates["updated_at"] = time.Now()
	}

	q := r.tx(dbc).
		Model(&types.JobRun{}).
		Where("id = ?", id)
	if len(disallowedStatuses) == 1 {
		q = q.Where("status <> ?", disallowedStatuses[0])
	} else if len(disallowedStatuses) > 1 {
		q = q.Where("status NOT IN ?", disallowedStatuses)
	}

	res := q.Updates(updates)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *jobRunRepo) Heartbeat(dbc dbctx.Context, id uuid.UUID) error {
	if id == uuid.Nil {
		return nil
	}
	now := time.Now()
	return r.tx(dbc).
		Model(&types.JobRun{}).
		Where("id = ? AND status = ?", id, jobs.StatusRunning).
		Updates(map[string]interface{}{
			"heartbeat_at": now,
			"updated_at":   now,
		}).Error
}
