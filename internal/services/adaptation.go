package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"

	redisclient "github.com/memoapp/planner-backend/internal/clients/redis"
	"github.com/memoapp/planner-backend/internal/logger"
	"github.com/memoapp/planner-backend/internal/repos"
	"github.com/memoapp/planner-backend/internal/scheduling"
	"github.com/memoapp/planner-backend/internal/types"
)

type AdaptationResult struct {
	Changed            bool        `json:"changed"`
	Events             int         `json:"events"`
	AffectedSubjectIDs []uuid.UUID `json:"affected_subject_ids"`
	SessionsRemoved    int         `json:"sessions_removed"`
	SessionsAdded      int         `json:"sessions_added"`
}

type AdaptationService interface {
	// Adapt replans the future sessions of subjects touched by events since
	// the last run. Sessions of unaffected subjects are left untouched.
	Adapt(ctx context.Context, userID uuid.UUID) (*AdaptationResult, error)
	// AdaptAll runs Adapt for every user, skipping those without an active
	// schedule.
	AdaptAll(ctx context.Context, concurrency int) error
}

type adaptationService struct {
	db           *gorm.DB
	log          *logger.Logger
	scheduleRepo repos.ScheduleRepo
	sessionRepo  repos.StudySessionRepo
	examRepo     repos.ExamRepo
	userRepo     repos.UserRepo
	settingRepo  repos.PlannerSettingRepo
	prioritySvc  PriorityService
	plannerSvc   PlannerService
	locker       *redisclient.UserLocker
}

func NewAdaptationService(
	db *gorm.DB,
	baseLog *logger.Logger,
	scheduleRepo repos.ScheduleRepo,
	sessionRepo repos.StudySessionRepo,
	examRepo repos.ExamRepo,
	userRepo repos.UserRepo,
	settingRepo repos.PlannerSettingRepo,
	prioritySvc PriorityService,
	plannerSvc PlannerService,
	locker *redisclient.UserLocker,
) AdaptationService {
	return &adaptationService{
		db:           db,
		log:          baseLog.With("service", "AdaptationService"),
		scheduleRepo: scheduleRepo,
		sessionRepo:  sessionRepo,
		examRepo:     examRepo,
		userRepo:     userRepo,
		settingRepo:  settingRepo,
		prioritySvc:  prioritySvc,
		plannerSvc:   plannerSvc,
		locker:       locker,
	}
}

func (s *adaptationService) Adapt(ctx context.Context, userID uuid.UUID) (*AdaptationResult, error) {
	if s.locker != nil {
		release, err := s.locker.Acquire(ctx, userID, "adapt")
		if err != nil {
			return nil, err
		}
		defer release()
	}

	schedule, err := s.scheduleRepo.GetActiveByUser(ctx, nil, userID)
	if err != nil {
		return nil, fmt.Errorf("get active schedule: %w", err)
	}
	if schedule == nil {
		return nil, &NoActiveScheduleError{UserID: userID}
	}

	since := schedule.GeneratedAt
	if schedule.ActivatedAt != nil {
		since = *schedule.ActivatedAt
	}
	if schedule.LastAdaptedAt != nil {
		since = *schedule.LastAdaptedAt
	}

	finished, err := s.sessionRepo.ListFinishedSince(ctx, nil, userID, since)
	if err != nil {
		return nil, fmt.Errorf("list finished sessions: %w", err)
	}
	exams, err := s.examRepo.ListResultsSince(ctx, nil, userID, since)
	if err != nil {
		return nil, fmt.Errorf("list exam results: %w", err)
	}
	events := len(finished) + len(exams)
	if events == 0 {
		return &AdaptationResult{Changed: false}, nil
	}

	affected := map[uuid.UUID]bool{}
	for _, f := range finished {
		affected[f.SubjectID] = true
	}
	for _, e := range exams {
		affected[e.SubjectID] = true
	}
	affectedIDs := make([]uuid.UUID, 0, len(affected))
	for id := range affected {
		affectedIDs = append(affectedIDs, id)
	}

	if _, err := s.prioritySvc.RecalculateForUser(ctx, userID); err != nil {
		return nil, err
	}

	// The replan starts tomorrow. Today's sessions, whatever their state,
	// stay in place so nothing is ever planned into the past or on top of
	// a session already worked through today.
	now := time.Now()
	replanFrom := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location()).AddDate(0, 0, 1)
	result := &AdaptationResult{Changed: true, Events: events, AffectedSubjectIDs: affectedIDs}
	horizon := int(schedule.EndDate.Sub(replanFrom).Hours()/24) + 1
	if horizon <= 0 {
		// Nothing left to replan in this schedule's window.
		if err := s.scheduleRepo.UpdateFields(ctx, nil, schedule.ID, map[string]interface{}{"last_adapted_at": now}); err != nil {
			return nil, err
		}
		result.Changed = false
		return result, nil
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		all, err := s.sessionRepo.ListBySchedule(ctx, tx, schedule.ID)
		if err != nil {
			return err
		}
		removable := 0
		occupied := map[string][]scheduling.Window{}
		for _, sess := range all {
			if sess.Status == types.SessionStatusCancelled || sess.StartsAt.Before(replanFrom) {
				continue
			}
			if sess.Status == types.SessionStatusScheduled && affected[sess.SubjectID] && !sess.Pinned {
				removable++
				continue
			}
			// Survivors block their slots for the replan.
			day := time.Date(sess.StartsAt.Year(), sess.StartsAt.Month(), sess.StartsAt.Day(), 0, 0, 0, 0, sess.StartsAt.Location())
			key := day.Format("2006-01-02")
			occupied[key] = append(occupied[key], scheduling.Window{
				StartMinute: sess.StartsAt.Hour()*60 + sess.StartsAt.Minute(),
				EndMinute:   sess.EndsAt.Hour()*60 + sess.EndsAt.Minute(),
			})
		}
		if err := s.sessionRepo.DeleteFutureScheduled(ctx, tx, schedule.ID, affectedIDs, replanFrom); err != nil {
			return fmt.Errorf("drop replanned sessions: %w", err)
		}
		result.SessionsRemoved = removable

		setting, err := s.settingRepo.GetByUser(ctx, tx, userID)
		if err != nil {
			return fmt.Errorf("load settings: %w", err)
		}
		if setting == nil {
			setting = defaultSetting(userID)
		}
		days, err := s.plannerSvc.BuildDays(ctx, tx, userID, setting, replanFrom, horizon, occupied)
		if err != nil {
			return err
		}
		ranked, err := s.prioritySvc.RankSubjects(ctx, tx, userID)
		if err != nil {
			return err
		}
		var demands []scheduling.SubjectDemand
		for _, r := range ranked {
			if !affected[r.SubjectID] {
				continue
			}
			demands = append(demands, scheduling.SubjectDemand{
				SubjectID:   r.SubjectID,
				Coefficient: r.Coefficient,
				Weight:      r.Score,
			})
		}
		if len(demands) > 0 {
			planned, err := scheduling.Generate(days, demands, s.plannerSvc.GeneratorConfig(setting))
			if err != nil {
				return err
			}
			sessions := plannedToSessions(schedule, planned)
			if _, err := s.sessionRepo.CreateBatch(ctx, tx, sessions); err != nil {
				return fmt.Errorf("create replanned sessions: %w", err)
			}
			result.SessionsAdded = len(sessions)
		}
		return s.scheduleRepo.UpdateFields(ctx, tx, schedule.ID, map[string]interface{}{"last_adapted_at": now})
	})
	if err != nil {
		return nil, err
	}
	s.log.Info("Adapted schedule",
		"user_id", userID,
		"schedule_id", schedule.ID,
		"events", events,
		"removed", result.SessionsRemoved,
		"added", result.SessionsAdded)
	return result, nil
}

func (s *adaptationService) AdaptAll(ctx context.Context, concurrency int) error {
	userIDs, err := s.userRepo.ListIDs(ctx, nil)
	if err != nil {
		return fmt.Errorf("list users: %w", err)
	}
	if concurrency <= 0 {
		concurrency = 4
	}
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)
	for _, id := range userIDs {
		userID := id
		g.Go(func() error {
			_, err := s.Adapt(gctx, userID)
			var noActive *NoActiveScheduleError
			if errors.As(err, &noActive) || errors.Is(err, redisclient.ErrLockHeld) {
				return nil
			}
			if err != nil {
				return fmt.Errorf("adapt user %s: %w", userID, err)
			}
			return nil
		})
	}
	return g.Wait()
}
