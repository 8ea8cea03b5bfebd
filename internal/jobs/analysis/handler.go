// Package analysis runs queued analyses on the job worker.
package analysis

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	types "github.com/yungbote/originality-backend/internal/domain"
	"github.com/yungbote/originality-backend/internal/domain/analyses"
	"github.com/yungbote/originality-backend/internal/jobs/runtime"
	"github.com/yungbote/originality-backend/internal/platform/logger"
	"github.com/yungbote/originality-backend/internal/services"
)

type Handler struct {
	log      *logger.Logger
	analyses services.AnalysisService
}

func New(baseLog *logger.Logger, analyses services.AnalysisService) *Handler {
	return &Handler{log: baseLog.With("job", services.JobTypeAnalysisRun), analyses: analyses}
}

func (h *Handler) Type() string { return services.JobTypeAnalysisRun }

func (h *Handler) Run(jc *runtime.Context) error {
	id, ok := jc.PayloadUUID("analysis_id")
	if !ok {
		jc.Fail("validate", fmt.Errorf("payload missing analysis_id"))
		return nil
	}
	jc.Progress("start", 0, "starting analysis")
	a, err := h.analyses.Run(jc.Ctx, id, jc.Progress)
	if err != nil {
		jc.Fail("analyze", err)
		return nil
	}
	result := map[string]any{
		"analysis_id": a.ID,
		"type":        a.Type,
		"status":      a.Status,
	}
	if a.Score != nil {
		result["score"] = *a.Score
	}
	if a.Status != analyses.StatusSucceeded {
		jc.Fail("analyze", fmt.Errorf("analysis ended as %s", a.Status))
		return nil
	}
	jc.Succeed("done", result)
	return nil
}

// Expire fails the analysis behind a run that will not be retried.
func (h *Handler) Expire(ctx context.Context, job *types.JobRun, reason string) error {
	var payload struct {
		AnalysisID uuid.UUID `json:"analysis_id"`
	}
	if err := json.Unmarshal(job.Payload, &payload); err != nil {
		return fmt.Errorf("decode payload: %w", err)
	}
	if payload.AnalysisID == uuid.Nil {
		return fmt.Errorf("payload missing analysis_id")
	}
	return h.analyses.Abandon(ctx, payload.AnalysisID, reason)
}
