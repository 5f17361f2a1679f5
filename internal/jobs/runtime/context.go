package runtime

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"

	"github.com/yungbote/library-backend/internal/data/repos"
	types "github.com/yungbote/library-backend/internal/domain"
	"github.com/yungbote/library-backend/internal/platform/ctxutil"
	"github.com/yungbote/library-backend/internal/platform/dbctx"
	"github.com/yungbote/library-backend/internal/services"
)

// Context is what a handler sees of one claimed job run. Handlers report
// progress and outcome through it and never write job_run rows directly.
type Context struct {
	Ctx context.Context
	Job *types.JobRun

	repo   repos.JobRunRepo
	notify services.JobNotifier

	fields   map[string]any
	fieldErr error
	done     bool
}

func NewContext(ctx context.Context, job *types.JobRun, repo repos.JobRunRepo, notify services.JobNotifier) *Context {
	if ctx == nil {
		ctx = context.Background()
	}
	c := &Context{Ctx: ctx, Job: job, repo: repo, notify: notify, fields: map[string]any{}}
	if job != nil && len(job.Payload) > 0 {
		if err := json.Unmarshal(job.Payload, &c.fields); err != nil || c.fields == nil {
			c.fields = map[string]any{}
			if err != nil {
				c.fieldErr = fmt.Errorf("decode payload: %w", err)
			}
		}
	}
	td := &ctxutil.TraceData{TraceID: c.PayloadString("trace_id"), RequestID: c.PayloadString("request_id")}
	if td.TraceID != "" || td.RequestID != "" {
		c.Ctx = ctxutil.WithTraceData(c.Ctx, td)
	}
	return c
}

// Payload is the decoded payload object; empty when it could not be decoded.
func (c *Context) Payload() map[string]any { return c.fields }

func (c *Context) PayloadError() error { return c.fieldErr }

// DecodePayload unmarshals the raw payload into dst.
func (c *Context) DecodePayload(dst any) error {
	if c.Job == nil || len(c.Job.Payload) == 0 {
		return nil
	}
	return json.Unmarshal(c.Job.Payload, dst)
}

// PayloadString stringifies non-string scalars.
func (c *Context) PayloadString(key string) string {
	switch v := c.fields[key].(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(v)
	default:
		return strings.TrimSpace(fmt.Sprint(v))
	}
}

func (c *Context) PayloadUUID(key string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.PayloadString(key))
	if err != nil || id == uuid.Nil {
		return uuid.Nil, false
	}
	return id, true
}

// Terminal reports whether Succeed or Fail already ran.
func (c *Context) Terminal() bool { return c != nil && c.done }

// write persists updates unless the row already succeeded. It uses a
// detached context so outcomes land during worker shutdown.
func (c *Context) write(updates map[string]interface{}) bool {
	if c.repo == nil || c.Job.ID == uuid.Nil {
		return true
	}
	dbc := dbctx.Context{Ctx: context.WithoutCancel(c.Ctx)}
	ok, err := c.repo.Transition(dbc, c.Job.ID, updates, types.JobStatusSucceeded)
	return err == nil && ok
}

func (c *Context) Progress(stage string, pct int, msg string) {
	if c == nil || c.Job == nil {
		return
	}
	now := time.Now().UTC()
	if !c.write(map[string]interface{}{"stage": stage, "progress": pct, "message": msg, "heartbeat_at": now, "updated_at": now}) {
		return
	}
	j := c.Job
	j.Stage, j.Progress, j.Message = stage, pct, msg
	j.HeartbeatAt, j.UpdatedAt = &now, now
	if c.notify != nil {
		c.notify.JobProgress(j, stage, pct, msg)
	}
}

// Fail records a failed attempt. The worker retries it after the retry delay
// while attempts remain.
func (c *Context) Fail(stage string, err error) {
	if c == nil || c.Job == nil || c.done {
		return
	}
	c.done = true
	reason := "unknown error"
	if err != nil {
		reason = err.Error()
	}
	now := time.Now().UTC()
	if !c.write(map[string]interface{}{
		"status":        types.JobStatusFailed,
		"stage":         stage,
		"message":       "",
		"error":         reason,
		"last_error_at": now,
		"locked_at":     nil,
		"updated_at":    now,
	}) {
		return
	}
	j := c.Job
	j.Status, j.Stage, j.Message, j.Error = types.JobStatusFailed, stage, "", reason
	j.LastErrorAt, j.LockedAt, j.UpdatedAt = &now, nil, now
	if c.notify != nil {
		c.notify.JobFailed(j, stage, reason)
	}
}

// Succeed stores result as JSON; an unmarshalable result is stored as {}.
func (c *Context) Succeed(stage string, result any) {
	if c == nil || c.Job == nil || c.done {
		return
	}
	c.done = true
	res := datatypes.JSON(`{}`)
	if result != nil {
		if b, err := json.Marshal(result); err == nil {
			res = b
		}
	}
	now := time.Now().UTC()
	if !c.write(map[string]interface{}{
		"status":       types.JobStatusSucceeded,
		"stage":        stage,
		"progress":     100,
		"message":      "",
		"error":        "",
		"result":       res,
		"locked_at":    nil,
		"heartbeat_at": now,
		"updated_at":   now,
	}) {
		return
	}
	j := c.Job
	j.Status, j.Stage, j.Progress = types.JobStatusSucceeded, stage, 100
	j.Message, j.Error, j.Result = "", "", res
	j.LockedAt, j.HeartbeatAt, j.UpdatedAt = nil, &now, now
	if c.notify != nil {
		c.notify.JobDone(j)
	}
}
