package services

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/yungbote/originality-backend/internal/data/repos"
	types "github.com/yungbote/originality-backend/internal/domain"
	"github.com/yungbote/originality-backend/internal/pkg/dbctx"
	"github.com/yungbote/originality-backend/internal/platform/apierr"
	"github.com/yungbote/originality-backend/internal/platform/logger"
)

type JobService interface {
	Enqueue(dbc dbctx.Context, ownerUserID uuid.UUID, jobType string, entityType string, entityID *uuid.UUID, payload map[string]any) (*types.JobRun, error)
	GetForOwner(dbc dbctx.Context, ownerUserID, jobID uuid.UUID) (*types.JobRun, error)
}

type jobService struct {
	db     *gorm.DB
	log    *logger.Logger
	repo   repos.JobRunRepo
	notify JobNotifier
}

func NewJobService(db *gorm.DB, baseLog *logger.Logger, repo repos.JobRunRepo, notify JobNotifier) JobService {
	return &jobService{
		db:     db,
		log:    baseLog.With("service", "JobService"),
		repo:   repo,
		notify: notify,
	}
}

// Enqueue stores a queued JobRun; the worker pool picks it up on its next poll.
func (s *jobService) Enqueue(dbc dbctx.Context, ownerUserID uuid.UUID, jobType string, entityType string, entityID *uuid.UUID, payload map[string]any) (*types.JobRun, error) {
	if ownerUserID == uuid.Nil {
		return nil, fmt.Errorf("missing owner_user_id")
	}
	jobType = strings.TrimSpace(jobType)
	if jobType == "" {
		return nil, fmt.Errorf("missing job_type")
	}
	if payload == nil {
		payload = map[string]any{}
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encode payload: %w", err)
	}
	rows, err := s.repo.Create(dbc, []*types.JobRun{{
		OwnerUserID: ownerUserID,
		JobType:     jobType,
		EntityType:  entityType,
		EntityID:    entityID,
		Payload:     datatypes.JSON(raw),
	}})
	if err != nil {
		return nil, fmt.Errorf("create job: %w", err)
	}
	job := rows[0]
	s.log.Info("Job enqueued", "job_id", job.ID, "job_type", job.JobType, "entity_id", entityID)
	if s.notify != nil {
		s.notify.JobCreated(ownerUserID, job)
	}
	return job, nil
}

func (s *jobService) GetForOwner(dbc dbctx.Context, ownerUserID, jobID uuid.UUID) (*types.JobRun, error) {
	job, err := s.repo.GetForOwner(dbc, ownerUserID, jobID)
	if err != nil {
		return nil, err
	}
	if job == nil {
		return nil, apierr.NotFound("job_not_found", "job")
	}
	return job, nil
}
