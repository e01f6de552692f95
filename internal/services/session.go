package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/memoapp/planner-backend/internal/logger"
	"github.com/memoapp/planner-backend/internal/repos"
	"github.com/memoapp/planner-backend/internal/scheduling"
	"github.com/memoapp/planner-backend/internal/types"
)

type SessionService interface {
	Start(ctx context.Context, userID, sessionID uuid.UUID) (*types.StudySession, error)
	Pause(ctx context.Context, userID, sessionID uuid.UUID) (*types.StudySession, error)
	Resume(ctx context.Context, userID, sessionID uuid.UUID) (*types.StudySession, error)
	Complete(ctx context.Context, userID, sessionID uuid.UUID) (*types.StudySession, int, error)
	Skip(ctx context.Context, userID, sessionID uuid.UUID) (*types.StudySession, error)
	Pin(ctx context.Context, userID, sessionID uuid.UUID) (*types.StudySession, error)
	Reschedule(ctx context.Context, userID, sessionID uuid.UUID, newStart time.Time) (*types.StudySession, error)
	Today(ctx context.Context, userID uuid.UUID) ([]*types.StudySession, error)
	Range(ctx context.Context, userID uuid.UUID, from, to time.Time) ([]*types.StudySession, error)
	// SweepMissed marks scheduled sessions whose window fully passed as
	// missed. Safe to run repeatedly.
	SweepMissed(ctx context.Context, now time.Time) (int, error)
}

type sessionService struct {
	db          *gorm.DB
	log         *logger.Logger
	sessionRepo repos.StudySessionRepo
	subjectRepo repos.SubjectRepo
	settingRepo repos.PlannerSettingRepo
	prayerRepo  repos.PrayerTimeRepo
	pointsSvc   PointsService
}

func NewSessionService(
	db *gorm.DB,
	baseLog *logger.Logger,
	sessionRepo repos.StudySessionRepo,
	subjectRepo repos.SubjectRepo,
	settingRepo repos.PlannerSettingRepo,
	prayerRepo repos.PrayerTimeRepo,
	pointsSvc PointsService,
) SessionService {
	return &sessionService{
		db:          db,
		log:         baseLog.With("service", "SessionService"),
		sessionRepo: sessionRepo,
		subjectRepo: subjectRepo,
		settingRepo: settingRepo,
		prayerRepo:  prayerRepo,
		pointsSvc:   pointsSvc,
	}
}

func (s *sessionService) owned(ctx context.Context, tx *gorm.DB, userID, sessionID uuid.UUID) (*types.StudySession, error) {
	session, err := s.sessionRepo.GetByID(ctx, tx, sessionID)
	if err != nil {
		return nil, err
	}
	if session == nil || session.UserID != userID {
		return nil, ErrNotFound
	}
	return session, nil
}

func (s *sessionService) Start(ctx context.Context, userID, sessionID uuid.UUID) (*types.StudySession, error) {
	var out *types.StudySession
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		session, err := s.owned(ctx, tx, userID, sessionID)
		if err != nil {
			return err
		}
		// Retry-safe: starting an already running session is a no-op and
		// starting a paused one resumes it.
		switch session.Status {
		case types.SessionStatusStarted:
			out = session
			return nil
		case types.SessionStatusPaused:
			if err := s.sessionRepo.UpdateFields(ctx, tx, sessionID, map[string]interface{}{
				"status": types.SessionStatusStarted,
			}); err != nil {
				return err
			}
			session.Status = types.SessionStatusStarted
			out = session
			return nil
		case types.SessionStatusScheduled:
		default:
			return &InvalidTransitionError{From: session.Status, To: types.SessionStatusStarted}
		}
		running, err := s.sessionRepo.ListByUserStatuses(ctx, tx, userID, []string{types.SessionStatusStarted, types.SessionStatusPaused})
		if err != nil {
			return err
		}
		if len(running) > 0 {
			return &SessionAlreadyActiveError{ActiveID: running[0].ID}
		}
		now := time.Now()
		if err := s.sessionRepo.UpdateFields(ctx, tx, sessionID, map[string]interface{}{
			"status":     types.SessionStatusStarted,
			"started_at": now,
		}); err != nil {
			return err
		}
		session.Status = types.SessionStatusStarted
		session.StartedAt = &now
		out = session
		return nil
	})
	return out, err
}

func (s *sessionService) Pause(ctx context.Context, userID, sessionID uuid.UUID) (*types.StudySession, error) {
	var out *types.StudySession
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		session, err := s.owned(ctx, tx, userID, sessionID)
		if err != nil {
			return err
		}
		if session.Status != types.SessionStatusStarted {
			return &InvalidTransitionError{From: session.Status, To: types.SessionStatusPaused}
		}
		now := time.Now()
		if err := s.sessionRepo.UpdateFields(ctx, tx, sessionID, map[string]interface{}{
			"status":    types.SessionStatusPaused,
			"paused_at": now,
		}); err != nil {
			return err
		}
		session.Status = types.SessionStatusPaused
		session.PausedAt = &now
		out = session
		return nil
	})
	return out, err
}

func (s *sessionService) Resume(ctx context.Context, userID, sessionID uuid.UUID) (*types.StudySession, error) {
	var out *types.StudySession
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		session, err := s.owned(ctx, tx, userID, sessionID)
		if err != nil {
			return err
		}
		if session.Status != types.SessionStatusPaused {
			return &InvalidTransitionError{From: session.Status, To: types.SessionStatusStarted}
		}
		now := time.Now()
		pause := session.PauseSeconds
		if session.PausedAt != nil {
			pause += int(now.Sub(*session.PausedAt).Seconds())
		}
		if err := s.sessionRepo.UpdateFields(ctx, tx, sessionID, map[string]interface{}{
			"status":        types.SessionStatusStarted,
			"paused_at":     nil,
			"pause_seconds": pause,
		}); err != nil {
			return err
		}
		session.Status = types.SessionStatusStarted
		session.PausedAt = nil
		session.PauseSeconds = pause
		out = session
		return nil
	})
	return out, err
}

// Complete closes a running or paused session, records the actual study
// minutes net of pauses, touches the subject's last-studied marker and awards
// completion points.
func (s *sessionService) Complete(ctx context.Context, userID, sessionID uuid.UUID) (*types.StudySession, int, error) {
	var out *types.StudySession
	var awarded int
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		session, err := s.owned(ctx, tx, userID, sessionID)
		if err != nil {
			return err
		}
		if session.Status != types.SessionStatusStarted && session.Status != types.SessionStatusPaused {
			return &InvalidTransitionError{From: session.Status, To: types.SessionStatusCompleted}
		}
		now := time.Now()
		pause := session.PauseSeconds
		if session.Status == types.SessionStatusPaused && session.PausedAt != nil {
			pause += int(now.Sub(*session.PausedAt).Seconds())
		}
		actual := 0
		if session.StartedAt != nil {
			actual = int((now.Sub(*session.StartedAt).Seconds() - float64(pause)) / 60)
		}
		if actual < 0 {
			actual = 0
		}
		if err := s.sessionRepo.UpdateFields(ctx, tx, sessionID, map[string]interface{}{
			"status":         types.SessionStatusCompleted,
			"completed_at":   now,
			"paused_at":      nil,
			"pause_seconds":  pause,
			"actual_minutes": actual,
		}); err != nil {
			return err
		}
		if err := s.subjectRepo.TouchLastStudied(ctx, tx, session.SubjectID, now); err != nil {
			return err
		}
		session.Status = types.SessionStatusCompleted
		session.CompletedAt = &now
		session.PausedAt = nil
		session.PauseSeconds = pause
		session.ActualMinutes = actual
		awarded, err = s.pointsSvc.AwardSessionCompletion(ctx, tx, session)
		if err != nil {
			return err
		}
		out = session
		return nil
	})
	return out, awarded, err
}

func (s *sessionService) Skip(ctx context.Context, userID, sessionID uuid.UUID) (*types.StudySession, error) {
	var out *types.StudySession
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		session, err := s.owned(ctx, tx, userID, sessionID)
		if err != nil {
			return err
		}
		switch session.Status {
		case types.SessionStatusScheduled, types.SessionStatusStarted, types.SessionStatusPaused:
		default:
			return &InvalidTransitionError{From: session.Status, To: types.SessionStatusSkipped}
		}
		if err := s.sessionRepo.UpdateFields(ctx, tx, sessionID, map[string]interface{}{
			"status": types.SessionStatusSkipped,
		}); err != nil {
			return err
		}
		session.Status = types.SessionStatusSkipped
		out = session
		return nil
	})
	return out, err
}

// Pin marks a session as immovable for the adaptation engine.
func (s *sessionService) Pin(ctx context.Context, userID, sessionID uuid.UUID) (*types.StudySession, error) {
	session, err := s.owned(ctx, nil, userID, sessionID)
	if err != nil {
		return nil, err
	}
	if session.Status != types.SessionStatusScheduled {
		return nil, &InvalidTransitionError{From: session.Status, To: "pinned"}
	}
	if err := s.sessionRepo.UpdateFields(ctx, nil, sessionID, map[string]interface{}{"pinned": true}); err != nil {
		return nil, err
	}
	session.Pinned = true
	return session, nil
}

// Reschedule moves a scheduled session to a new start, refusing placements
// that overlap the user's other sessions or a prayer window.
func (s *sessionService) Reschedule(ctx context.Context, userID, sessionID uuid.UUID, newStart time.Time) (*types.StudySession, error) {
	var out *types.StudySession
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		session, err := s.owned(ctx, tx, userID, sessionID)
		if err != nil {
			return err
		}
		if session.Status != types.SessionStatusScheduled {
			return &InvalidTransitionError{From: session.Status, To: "rescheduled"}
		}
		newEnd := newStart.Add(time.Duration(session.PlannedMinutes) * time.Minute)

		dayStart := time.Date(newStart.Year(), newStart.Month(), newStart.Day(), 0, 0, 0, 0, newStart.Location())
		neighbors, err := s.sessionRepo.ListByUserRange(ctx, tx, userID, dayStart, dayStart.AddDate(0, 0, 1))
		if err != nil {
			return err
		}
		for _, n := range neighbors {
			if n.ID == session.ID {
				continue
			}
			switch n.Status {
			case types.SessionStatusCancelled, types.SessionStatusSkipped, types.SessionStatusMissed:
				continue
			}
			if scheduling.Overlaps(newStart, newEnd, n.StartsAt, n.EndsAt) {
				return &scheduling.OverlapError{StartsAt: newStart, EndsAt: newEnd, Against: fmt.Sprintf("session %s", n.ID)}
			}
		}

		setting, err := s.settingRepo.GetByUser(ctx, tx, userID)
		if err != nil {
			return err
		}
		if setting != nil && setting.RespectPrayerTimes {
			prayers, err := s.prayerRepo.ListByUserRange(ctx, tx, userID, dayStart, dayStart.AddDate(0, 0, 1))
			if err != nil {
				return err
			}
			for _, p := range prayers {
				minute, err := parseClock(p.StartTime)
				if err != nil {
					continue
				}
				pStart := dayStart.Add(time.Duration(minute) * time.Minute)
				pEnd := pStart.Add(time.Duration(setting.PrayerDurationMinutes) * time.Minute)
				if scheduling.Overlaps(newStart, newEnd, pStart, pEnd) {
					return &scheduling.OverlapError{StartsAt: newStart, EndsAt: newEnd, Against: fmt.Sprintf("%s prayer", p.Name)}
				}
			}
		}

		if err := s.sessionRepo.UpdateFields(ctx, tx, sessionID, map[string]interface{}{
			"starts_at": newStart,
			"ends_at":   newEnd,
		}); err != nil {
			return err
		}
		session.StartsAt = newStart
		session.EndsAt = newEnd
		out = session
		return nil
	})
	return out, err
}

func (s *sessionService) Today(ctx context.Context, userID uuid.UUID) ([]*types.StudySession, error) {
	now := time.Now()
	dayStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	return s.sessionRepo.ListByUserRange(ctx, nil, userID, dayStart, dayStart.AddDate(0, 0, 1))
}

func (s *sessionService) Range(ctx context.Context, userID uuid.UUID, from, to time.Time) ([]*types.StudySession, error) {
	if !to.After(from) {
		return nil, &scheduling.InvalidInputError{Field: "range", Reason: "to must be after from"}
	}
	return s.sessionRepo.ListByUserRange(ctx, nil, userID, from, to)
}

func (s *sessionService) SweepMissed(ctx context.Context, now time.Time) (int, error) {
	stale, err := s.sessionRepo.ListScheduledEndedBefore(ctx, nil, now, 500)
	if err != nil {
		return 0, err
	}
	marked := 0
	for _, session := range stale {
		if err := s.sessionRepo.UpdateFields(ctx, nil, session.ID, map[string]interface{}{
			"status": types.SessionStatusMissed,
		}); err != nil {
			return marked, err
		}
		marked++
	}
	if marked > 0 {
		s.log.Info("Marked missed sessions", "count", marked)
	}
	return marked, nil
}
