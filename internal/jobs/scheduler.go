package jobs

import (
	"context"
	"time"

	"github.com/memoapp/planner-backend/internal/logger"
	"github.com/memoapp/planner-backend/internal/repos"
	"github.com/memoapp/planner-backend/internal/types"
)

// Scheduler enqueues the recurring maintenance jobs. Enqueueing goes through
// job_run rows, so restarts and multiple instances stay safe: a run is only
// queued when the latest row of its type is finished and older than the
// interval.
type Scheduler struct {
	log       *logger.Logger
	repo      repos.JobRunRepo
	intervals map[string]time.Duration
}

func NewScheduler(baseLog *logger.Logger, repo repos.JobRunRepo) *Scheduler {
	return &Scheduler{
		log:  baseLog.With("component", "JobScheduler"),
		repo: repo,
		intervals: map[string]time.Duration{
			JobTypeMissedSessionSweep: 15 * time.Minute,
			JobTypeAdaptationSweep:    24 * time.Hour,
			JobTypePriorityRecalc:     24 * time.Hour,
		},
	}
}

func (s *Scheduler) Start(ctx context.Context) {
	go func() {
		ticker := time.NewTicker(1 * time.Minute)
		defer ticker.Stop()
		s.tick(ctx)
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.tick(ctx)
			}
		}
	}()
}

func (s *Scheduler) tick(ctx context.Context) {
	now := time.Now()
	for jobType, interval := range s.intervals {
		latest, err := s.repo.GetLatestByType(ctx, nil, jobType)
		if err != nil {
			s.log.Warn("GetLatestByType failed", "job_type", jobType, "error", err)
			continue
		}
		if latest != nil {
			switch latest.Status {
			case types.JobStatusQueued, types.JobStatusRunning:
				continue
			}
			if now.Sub(latest.CreatedAt) < interval {
				continue
			}
		}
		if _, err := s.repo.Create(ctx, nil, []*types.JobRun{{JobType: jobType}}); err != nil {
			s.log.Warn("Enqueue failed", "job_type", jobType, "error", err)
			continue
		}
		s.log.Info("Enqueued job", "job_type", jobType)
	}
}
