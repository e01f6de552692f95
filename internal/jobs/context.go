package jobs

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/memoapp/planner-backend/internal/repos"
	"github.com/memoapp/planner-backend/internal/types"
)

// Context is the execution handle for one claimed job run. Handlers report
// their outcome through Succeed/Fail instead of touching job_run directly.
type Context struct {
	Ctx     context.Context
	DB      *gorm.DB
	Job     *types.JobRun
	Repo    repos.JobRunRepo
	payload map[string]any
}

func NewContext(ctx context.Context, db *gorm.DB, job *types.JobRun, repo repos.JobRunRepo) *Context {
	c := &Context{
		Ctx:  ctx,
		DB:   db,
		Job:  job,
		Repo: repo,
	}
	_ = c.decodePayload()
	return c
}

func (c *Context) decodePayload() error {
	if c.Job == nil || len(c.Job.Payload) == 0 {
		c.payload = map[string]any{}
		return nil
	}
	var m map[string]any
	if err := json.Unmarshal(c.Job.Payload, &m); err != nil {
		c.payload = map[string]any{}
		return err
	}
	c.payload = m
	return nil
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
	s, ok := v.(string)
	if !ok {
		return uuid.Nil, false
	}
	id, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, false
	}
	return id, true
}

func (c *Context) Heartbeat() {
	if c.Job == nil {
		return
	}
	_ = c.Repo.Heartbeat(c.Ctx, nil, c.Job.ID)
}

func (c *Context) Succeed(result map[string]any) error {
	if c.Job == nil || c.Job.ID == uuid.Nil {
		return nil
	}
	updates := map[string]interface{}{
		"status":    types.JobStatusSucceeded,
		"locked_at": nil,
	}
	if result != nil {
		raw, err := json.Marshal(result)
		if err == nil {
			updates["result"] = datatypes.JSON(raw)
		}
	}
	return c.Repo.UpdateFields(c.Ctx, nil, c.Job.ID, updates)
}

func (c *Context) Fail(runErr error) error {
	if c.Job == nil || c.Job.ID == uuid.Nil {
		return nil
	}
	msg := "unknown error"
	if runErr != nil {
		msg = runErr.Error()
	}
	now := time.Now()
	return c.Repo.UpdateFields(c.Ctx, nil, c.Job.ID, map[string]interface{}{
		"status":        types.JobStatusFailed,
		"last_error":    msg,
		"last_error_at": now,
		"locked_at":     nil,
	})
}
