package runtime

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/yungbote/originality-backend/internal/data/repos"
	types "github.com/yungbote/originality-backend/internal/domain"
	"github.com/yungbote/originality-backend/internal/domain/jobs"
	"github.com/yungbote/originality-backend/internal/pkg/dbctx"
	"github.com/yungbote/originality-backend/internal/platform/ctxutil"
	"github.com/yungbote/originality-backend/internal/services"
)

/*
Context is the handle a job handler gets for one claimed job_run.
Handlers never write job_run directly; they report through Progress, Fail
and Succeed so the row and the SSE notifications stay in step.
*/
type Context struct {
	Ctx    context.Context
	DB     *gorm.DB
	Job    *types.JobRun
	Repo   repos.JobRunRepo
	Notify services.JobNotifier

	payload map[string]any
	// mu serializes status writes; chunked analyses report from several
	// goroutines.
	mu sync.Mutex
}

// NewContext decodes the job payload eagerly. A malformed payload leaves an
// empty map; handlers validate the fields they need.
func NewContext(ctx context.Context, db *gorm.DB, job *types.JobRun, repo repos.JobRunRepo, notify services.JobNotifier) *Context {
	c := &Context{
		Ctx:    ctxutil.Default(ctx),
		DB:     db,
		Job:    job,
		Repo:   repo,
		Notify: notify,
	}
	_ = c.decodePayload()
	c.applyTraceData()
	return c
}

func (c *Context) decodePayload() error {
	c.payload = map[string]any{}
	if c.Job == nil || len(c.Job.Payload) == 0 {
		return nil
	}
	var m map[string]any
	if err := json.Unmarshal(c.Job.Payload, &m); err != nil {
		return err
	}
	if m != nil {
		c.payload = m
	}
	return nil
}

// applyTraceData carries the enqueuing request's trace id into worker logs.
func (c *Context) applyTraceData() {
	p := c.Payload()
	traceID, _ := p["trace_id"].(string)
	reqID, _ := p["request_id"].(string)
	traceID, reqID = strings.TrimSpace(traceID), strings.TrimSpace(reqID)
	if traceID == "" && reqID == "" {
		return
	}
	c.Ctx = ctxutil.WithTraceData(c.Ctx, &ctxutil.TraceData{TraceID: traceID, RequestID: reqID})
}

// Payload never returns nil.
func (c *Context) Payload() map[string]any {
	if c.payload == nil {
		c.payload = map[string]any{}
	}
	return c.payload
}

func (c *Context) PayloadUUID(key string) (uuid.UUID, bool) {
	v, ok := c.Payload()[key]
	if !ok || v == nil {
		return uuid.Nil, false
	}
	id, err := uuid.Parse(strings.TrimSpace(fmt.Sprint(v)))
	if err != nil || id == uuid.Nil {
		return uuid.Nil, false
	}
	return id, true
}

func (c *Context) dbc() dbctx.Context {
	// Status writes must land even after the worker context is canceled.
	return dbctx.New(context.WithoutCancel(c.Ctx))
}

// Progress records a non-terminal update. Finished jobs are left alone.
func (c *Context) Progress(stage string, pct int, msg string) {
	if c == nil || c.Job == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	pct = min(max(pct, 0), 100)
	now := time.Now()
	if c.Repo != nil && c.Job.ID != uuid.Nil {
		ok, err := c.Repo.UpdateFieldsUnlessStatus(c.dbc(), c.Job.ID, []string{jobs.StatusSucceeded, jobs.StatusFailed}, map[string]interface{}{
			"stage":        stage,
			"progress":     pct,
			"message":      msg,
			"heartbeat_at": now,
			"updated_at":   now,
		})
		if err != nil || !ok {
			return
		}
	}
	c.Job.Stage = stage
	c.Job.Progress = pct
	c.Job.Message = msg
	c.Job.HeartbeatAt = &now
	c.Job.UpdatedAt = now
	if c.Notify != nil {
		c.Notify.JobProgress(c.Job.OwnerUserID, c.Job, stage, pct, msg)
	}
}

// Fail marks the run failed. The claim query retries failed runs until
// max_attempts is reached.
func (c *Context) Fail(stage string, err error) {
	if c == nil || c.Job == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	now := time.Now()
	msg := ""
	if err != nil {
		msg = err.Error()
	}
	if c.Repo != nil && c.Job.ID != uuid.Nil {
		ok, uerr := c.Repo.UpdateFieldsUnlessStatus(c.dbc(), c.Job.ID, []string{jobs.StatusSucceeded}, map[string]interface{}{
			"status":        jobs.StatusFailed,
			"stage":         stage,
			"message":       "",
			"error":         msg,
			"last_error_at": now,
			"locked_at":     nil,
			"updated_at":    now,
		})
		if uerr != nil || !ok {
			return
		}
	}
	c.Job.Status = jobs.StatusFailed
	c.Job.Stage = stage
	c.Job.Message = ""
	c.Job.Error = msg
	c.Job.LastErrorAt = &now
	c.Job.LockedAt = nil
	c.Job.UpdatedAt = now
	if c.Notify != nil {
		c.Notify.JobFailed(c.Job.OwnerUserID, c.Job, stage, msg)
	}
}

func (c *Context) Succeed(finalStage string, result any) {
	if c == nil || c.Job == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	now := time.Now()
	var res datatypes.JSON
	if result != nil {
		if b, err := json.Marshal(result); err == nil {
			res = datatypes.JSON(b)
		}
	}
	if c.Repo != nil && c.Job.ID != uuid.Nil {
		ok, err := c.Repo.UpdateFieldsUnlessStatus(c.dbc(), c.Job.ID, []string{jobs.StatusSucceeded}, map[string]interface{}{
			"status":       jobs.StatusSucceeded,
			"stage":        finalStage,
			"progress":     100,
			"message":      "",
			"error":        "",
			"result":       res,
			"locked_at":    nil,
			"heartbeat_at": now,
			"updated_at":   now,
		})
		if err != nil || !ok {
			return
		}
	}
	c.Job.Status = jobs.StatusSucceeded
	c.Job.Stage = finalStage
	c.Job.Progress = 100
	c.Job.Message = ""
	c.Job.Error = ""
	c.Job.Result = res
	c.Job.LockedAt = nil
	c.Job.HeartbeatAt = &now
	c.Job.UpdatedAt = now
	if c.Notify != nil {
		c.Notify.JobDone(c.Job.OwnerUserID, c.Job)
	}
}
