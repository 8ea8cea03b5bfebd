package handlers

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/yungbote/originality-backend/internal/data/repos"
	types "github.com/yungbote/originality-backend/internal/domain"
	"github.com/yungbote/originality-backend/internal/domain/analyses"
	"github.com/yungbote/originality-backend/internal/http/response"
	"github.com/yungbote/originality-backend/internal/platform/apierr"
	"github.com/yungbote/originality-backend/internal/realtime"
	"github.com/yungbote/originality-backend/internal/services"
)

type AnalysisHandler struct {
	analyses services.AnalysisService
	reports  services.ReportService
}

func NewAnalysisHandler(analyses services.AnalysisService, reports services.ReportService) *AnalysisHandler {
	return &AnalysisHandler{analyses: analyses, reports: reports}
}

// respondAnalysis sends 202 for queued analyses and 200 for finished ones.
func respondAnalysis(c *gin.Context, a *types.Analysis) {
	if a.JobID != nil && a.Status == analyses.StatusPending {
		response.RespondAccepted(c, gin.H{"analysis": a, "job_id": a.JobID})
		return
	}
	response.RespondOK(c, gin.H{"analysis": a})
}

// POST /api/analyses
func (h *AnalysisHandler) Analyze(c *gin.Context) {
	var req services.AnalyzeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondErr(c, bindErr(err))
		return
	}
	a, err := h.analyses.Analyze(c.Request.Context(), ownerID(c), req)
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	respondAnalysis(c, a)
}

// POST /api/comparisons
func (h *AnalysisHandler) Compare(c *gin.Context) {
	var req services.CompareRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondErr(c, bindErr(err))
		return
	}
	a, err := h.analyses.Compare(c.Request.Context(), ownerID(c), req)
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	respondAnalysis(c, a)
}

// POST /api/reconstructions
func (h *AnalysisHandler) Reconstruct(c *gin.Context) {
	var req services.ReconstructRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondErr(c, bindErr(err))
		return
	}
	a, err := h.analyses.Reconstruct(c.Request.Context(), ownerID(c), req)
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	respondAnalysis(c, a)
}

// POST /api/rewrites. With stream=true the response is text/event-stream:
// RewriteDelta events, then RewriteDone carrying the stored analysis.
func (h *AnalysisHandler) Rewrite(c *gin.Context) {
	var req services.RewriteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondErr(c, bindErr(err))
		return
	}
	if !req.Stream {
		a, err := h.analyses.Rewrite(c.Request.Context(), ownerID(c), req, nil)
		if err != nil {
			response.RespondErr(c, err)
			return
		}
		respondAnalysis(c, a)
		return
	}

	sw := &sseWriter{c: c}
	a, err := h.analyses.Rewrite(c.Request.Context(), ownerID(c), req, func(delta string) {
		sw.send(realtime.SSEEventRewriteDelta, gin.H{"delta": delta})
	})
	if err != nil {
		if !sw.started {
			response.RespondErr(c, err)
			return
		}
		status, code := apierr.Classify(err)
		sw.send(realtime.SSEEventError, gin.H{"message": err.Error(), "code": code, "status": status})
		_ = c.Error(err)
		return
	}
	sw.send(realtime.SSEEventRewriteDone, gin.H{"analysis": a})
}

// sseWriter switches the response to an event stream on first use.
type sseWriter struct {
	c       *gin.Context
	started bool
	failed  bool
}

func (w *sseWriter) send(event realtime.SSEEvent, data any) {
	if w.failed {
		return
	}
	if !w.started {
		h := w.c.Writer.Header()
		h.Set("Content-Type", "text/event-stream")
		h.Set("Cache-Control", "no-cache")
		h.Set("Connection", "keep-alive")
		h.Set("X-Accel-Buffering", "no")
		w.c.Status(http.StatusOK)
		w.started = true
	}
	if err := realtime.WriteEvent(w.c.Writer, realtime.SSEMessage{Event: event, Data: data}); err != nil {
		w.failed = true
		return
	}
	w.c.Writer.Flush()
}

// GET /api/analyses?type=&kind=&document_id=&limit=&offset=
func (h *AnalysisHandler) List(c *gin.Context) {
	f := repos.AnalysisListFilter{
		Type: strings.TrimSpace(c.Query("type")),
		Kind: strings.ToLower(strings.TrimSpace(c.Query("kind"))),
	}
	var err error
	if f.Limit, err = queryInt(c, "limit", 50); err != nil {
		response.RespondErr(c, err)
		return
	}
	if f.Offset, err = queryInt(c, "offset", 0); err != nil {
		response.RespondErr(c, err)
		return
	}
	if raw := strings.TrimSpace(c.Query("document_id")); raw != "" {
		id, perr := uuid.Parse(raw)
		if perr != nil {
			response.RespondErr(c, apierr.BadRequest("invalid_document_id", "document_id must be a uuid"))
			return
		}
		f.DocumentID = &id
	}
	rows, total, err := h.analyses.List(c.Request.Context(), ownerID(c), f)
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	response.RespondOK(c, gin.H{"analyses": rows, "total": total})
}

// GET /api/analyses/:id
func (h *AnalysisHandler) Get(c *gin.Context) {
	id, err := pathUUID(c, "id", "invalid_analysis_id")
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	a, err := h.analyses.Get(c.Request.Context(), ownerID(c), id)
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	response.RespondOK(c, gin.H{"analysis": a})
}

// DELETE /api/analyses/:id
func (h *AnalysisHandler) Delete(c *gin.Context) {
	id, err := pathUUID(c, "id", "invalid_analysis_id")
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	if err := h.analyses.Delete(c.Request.Context(), ownerID(c), id); err != nil {
		response.RespondErr(c, err)
		return
	}
	response.RespondOK(c, gin.H{"ok": true})
}

// GET /api/analyses/:id/report?format=md|html|png&download=1
func (h *AnalysisHandler) Report(c *gin.Context) {
	id, err := pathUUID(c, "id", "invalid_analysis_id")
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	format := c.DefaultQuery("format", "md")
	body, contentType, err := h.reports.Render(c.Request.Context(), ownerID(c), id, format)
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	if c.Query("download") != "" {
		ext := strings.ToLower(format)
		if ext == "markdown" {
			ext = "md"
		}
		c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="analysis-%s.%s"`, id, ext))
	}
	c.Data(http.StatusOK, contentType, body)
}
