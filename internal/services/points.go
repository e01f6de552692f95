package services

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/memoapp/planner-backend/internal/config"
	"github.com/memoapp/planner-backend/internal/logger"
	"github.com/memoapp/planner-backend/internal/repos"
	"github.com/memoapp/planner-backend/internal/types"
)

type PointsService interface {
	// AwardSessionCompletion scores one completed study session. Returns the
	// awarded amount, zero when the event was already scored.
	AwardSessionCompletion(ctx context.Context, tx *gorm.DB, session *types.StudySession) (int, error)
	AwardReviewAnswer(ctx context.Context, tx *gorm.DB, userID, reviewSessionID, cardID uuid.UUID) (int, error)
	History(ctx context.Context, userID uuid.UUID, limit int) ([]*types.PointsEntry, error)
	Total(ctx context.Context, userID uuid.UUID) (int64, error)
}

type pointsService struct {
	db          *gorm.DB
	log         *logger.Logger
	pointsRepo  repos.PointsEntryRepo
	sessionRepo repos.StudySessionRepo
	tuning      config.PointsTuning
}

func NewPointsService(
	db *gorm.DB,
	baseLog *logger.Logger,
	pointsRepo repos.PointsEntryRepo,
	sessionRepo repos.StudySessionRepo,
	tuning config.PointsTuning,
) PointsService {
	return &pointsService{
		db:          db,
		log:         baseLog.With("service", "PointsService"),
		pointsRepo:  pointsRepo,
		sessionRepo: sessionRepo,
		tuning:      tuning,
	}
}

func (s *pointsService) AwardSessionCompletion(ctx context.Context, tx *gorm.DB, session *types.StudySession) (int, error) {
	if session == nil || session.Status != types.SessionStatusCompleted {
		return 0, fmt.Errorf("session is not completed")
	}
	amount := s.tuning.CompletionBase
	breakdown := map[string]int{"base": s.tuning.CompletionBase}

	if session.ActualMinutes >= s.tuning.LongSessionMinutes {
		amount += s.tuning.LongSessionBonus
		breakdown["long_session"] = s.tuning.LongSessionBonus
	}
	if session.StartedAt != nil {
		slack := time.Duration(s.tuning.OnTimeSlackMinutes) * time.Minute
		diff := session.StartedAt.Sub(session.StartsAt)
		if diff < 0 {
			diff = -diff
		}
		if diff <= slack {
			amount += s.tuning.OnTimeBonus
			breakdown["on_time"] = s.tuning.OnTimeBonus
		}
	}
	streak, err := s.studyStreakDays(ctx, tx, session)
	if err != nil {
		return 0, err
	}
	if streak >= s.tuning.StreakDays {
		amount += s.tuning.StreakBonus
		breakdown["streak"] = s.tuning.StreakBonus
	}
	if amount > s.tuning.CompletionCap {
		amount = s.tuning.CompletionCap
	}

	meta, _ := json.Marshal(map[string]any{
		"breakdown":   breakdown,
		"session_id":  session.ID,
		"subject_id":  session.SubjectID,
		"streak_days": streak,
	})
	entry := &types.PointsEntry{
		UserID:   session.UserID,
		Amount:   amount,
		Reason:   types.PointsReasonSessionCompleted,
		EventKey: fmt.Sprintf("session_completed:%s", session.ID),
		Metadata: datatypes.JSON(meta),
	}
	created, err := s.pointsRepo.CreateIfAbsent(ctx, tx, entry)
	if err != nil {
		return 0, fmt.Errorf("award completion points: %w", err)
	}
	if !created {
		return 0, nil
	}
	return amount, nil
}

// studyStreakDays counts consecutive calendar days with a completed session,
// ending on the day of the given session.
func (s *pointsService) studyStreakDays(ctx context.Context, tx *gorm.DB, session *types.StudySession) (int, error) {
	lookback := s.tuning.StreakDays + 7
	day := time.Date(session.StartsAt.Year(), session.StartsAt.Month(), session.StartsAt.Day(), 0, 0, 0, 0, session.StartsAt.Location())
	since := day.AddDate(0, 0, -lookback)
	completed, err := s.sessionRepo.ListCompletedSince(ctx, tx, session.UserID, since)
	if err != nil {
		return 0, fmt.Errorf("list completed sessions: %w", err)
	}
	studied := map[string]bool{day.Format("2006-01-02"): true}
	for _, c := range completed {
		at := c.StartsAt
		if c.CompletedAt != nil {
			at = *c.CompletedAt
		}
		studied[at.Format("2006-01-02")] = true
	}
	streak := 0
	for d := day; studied[d.Format("2006-01-02")]; d = d.AddDate(0, 0, -1) {
		streak++
	}
	return streak, nil
}

func (s *pointsService) AwardReviewAnswer(ctx context.Context, tx *gorm.DB, userID, reviewSessionID, cardID uuid.UUID) (int, error) {
	meta, _ := json.Marshal(map[string]any{
		"review_session_id": reviewSessionID,
		"flashcard_id":      cardID,
	})
	entry := &types.PointsEntry{
		UserID:   userID,
		Amount:   s.tuning.ReviewAnswer,
		Reason:   types.PointsReasonReviewAnswer,
		EventKey: fmt.Sprintf("review_answer:%s:%s", reviewSessionID, cardID),
		Metadata: datatypes.JSON(meta),
	}
	created, err := s.pointsRepo.CreateIfAbsent(ctx, tx, entry)
	if err != nil {
		return 0, fmt.Errorf("award review points: %w", err)
	}
	if !created {
		return 0, nil
	}
	return s.tuning.ReviewAnswer, nil
}

func (s *pointsService) History(ctx context.Context, userID uuid.UUID, limit int) ([]*types.PointsEntry, error) {
	return s.pointsRepo.ListByUser(ctx, nil, userID, limit)
}

func (s *pointsService) Total(ctx context.Context, userID uuid.UUID) (int64, error) {
	return s.pointsRepo.TotalByUser(ctx, nil, userID)
}
