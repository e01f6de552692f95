package jobs

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/memoapp/planner-backend/internal/logger"
	"github.com/memoapp/planner-backend/internal/repos"
)

type Worker struct {
	db       *gorm.DB
	log      *logger.Logger
	repo     repos.JobRunRepo
	registry *Registry
}

func NewWorker(db *gorm.DB, baseLog *logger.Logger, repo repos.JobRunRepo, registry *Registry) *Worker {
	return &Worker{
		db:       db,
		log:      baseLog.With("component", "JobWorker"),
		repo:     repo,
		registry: registry,
	}
}

func (w *Worker) Start(ctx context.Context) {
	go func() {
		ticker := time.NewTicker(1 * time.Second)
		defer ticker.Stop()
		const maxAttempts = 5
		retryDelay := 30 * time.Second
		staleRunning := 2 * time.Minute
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				job, err := w.repo.ClaimNextRunnable(ctx, nil, maxAttempts, retryDelay, staleRunning)
				if err != nil {
					w.log.Warn("ClaimNextRunnable failed", "error", err)
					continue
				}
				if job == nil {
					continue
				}
				jc := NewContext(ctx, w.db, job, w.repo)
				h, ok := w.registry.Get(job.JobType)
				if !ok {
					w.log.Warn("No handler registered for job_type", "job_type", job.JobType, "job_id", job.ID)
					_ = jc.Fail(fmt.Errorf("no handler registered for job_type=%s", job.JobType))
					continue
				}
				w.run(jc, h)
			}
		}
	}()
}

// run executes one handler, converting panics into failed runs so the worker
// loop survives.
func (w *Worker) run(jc *Context, h Handler) {
	defer func() {
		if r := recover(); r != nil {
			w.log.Error("Job handler panic", "job_id", jc.Job.ID, "job_type", jc.Job.JobType, "panic", r)
			_ = jc.Fail(fmt.Errorf("panic: %v", r))
		}
	}()
	if err := h.Run(jc); err != nil {
		w.log.Warn("Job failed", "job_id", jc.Job.ID, "job_type", jc.Job.JobType, "error", err)
		_ = jc.Fail(err)
		return
	}
}
