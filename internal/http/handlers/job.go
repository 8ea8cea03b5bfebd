package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/yungbote/originality-backend/internal/http/response"
	"github.com/yungbote/originality-backend/internal/pkg/dbctx"
	"github.com/yungbote/originality-backend/internal/services"
)

type JobHandler struct {
	jobs services.JobService
}

func NewJobHandler(jobs services.JobService) *JobHandler {
	return &JobHandler{jobs: jobs}
}

// GET /api/jobs/:id
func (h *JobHandler) GetJob(c *gin.Context) {
	jobID, err := pathUUID(c, "id", "invalid_job_id")
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	job, err := h.jobs.GetForOwner(dbctx.New(c.Request.Context()), ownerID(c), jobID)
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	response.RespondOK(c, gin.H{"job": job})
}
