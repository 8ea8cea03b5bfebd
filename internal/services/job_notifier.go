package services

import (
	"context"

	"github.com/google/uuid"

	types "github.com/yungbote/originality-backend/internal/domain"
	"github.com/yungbote/originality-backend/internal/realtime"
)

type JobNotifier interface {
	JobCreated(userID uuid.UUID, job *types.JobRun)
	JobProgress(userID uuid.UUID, job *types.JobRun, stage string, progress int, message string)
	JobFailed(userID uuid.UUID, job *types.JobRun, stage string, errorMessage string)
	JobDone(userID uuid.UUID, job *types.JobRun)
}

type jobNotifier struct {
	emit realtime.Emitter
}

func NewJobNotifier(emit realtime.Emitter) JobNotifier {
	if emit == nil {
		emit = realtime.NopEmitter{}
	}
	return &jobNotifier{emit: emit}
}

func (n *jobNotifier) JobCreated(userID uuid.UUID, job *types.JobRun) {
	realtime.ToUser(context.Background(), n.emit, userID, realtime.SSEEventJobCreated, map[string]any{"job": job})
}

func (n *jobNotifier) JobProgress(userID uuid.UUID, job *types.JobRun, stage string, progress int, message string) {
	realtime.ToUser(context.Background(), n.emit, userID, realtime.SSEEventJobProgress, map[string]any{
		"job_id":   job.ID,
		"job_type": job.JobType,
		"stage":    stage,
		"progress": progress,
		"message":  message,
	})
}

func (n *jobNotifier) JobFailed(userID uuid.UUID, job *types.JobRun, stage string, errorMessage string) {
	realtime.ToUser(context.Background(), n.emit, userID, realtime.SSEEventJobFailed, map[string]any{
		"job_id":   job.ID,
		"job_type": job.JobType,
		"stage":    stage,
		"error":    errorMessage,
	})
}

func (n *jobNotifier) JobDone(userID uuid.UUID, job *types.JobRun) {
	realtime.ToUser(context.Background(), n.emit, userID, realtime.SSEEventJobDone, map[string]any{
		"job_id":   job.ID,
		"job_type": job.JobType,
		"job":      job,
	})
}
