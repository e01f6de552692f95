package services

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/memoapp/planner-backend/internal/config"
	"github.com/memoapp/planner-backend/internal/logger"
	"github.com/memoapp/planner-backend/internal/repos"
	"github.com/memoapp/planner-backend/internal/scheduling"
	"github.com/memoapp/planner-backend/internal/types"
)

type PriorityService interface {
	RecalculateSubject(ctx context.Context, userID, subjectID uuid.UUID) (*types.PriorityScore, error)
	RecalculateForUser(ctx context.Context, userID uuid.UUID) ([]*types.PriorityScore, error)
	RecalculateAll(ctx context.Context, concurrency int) error
	Latest(ctx context.Context, userID uuid.UUID) ([]*types.PriorityScore, error)
	History(ctx context.Context, userID, subjectID uuid.UUID, limit int) ([]*types.PriorityScore, error)
	// RankSubjects scores the user's subjects without persisting snapshots.
	RankSubjects(ctx context.Context, tx *gorm.DB, userID uuid.UUID) ([]scheduling.RankedSubject, error)
}

type priorityService struct {
	db          *gorm.DB
	log         *logger.Logger
	subjectRepo repos.SubjectRepo
	scoreRepo   repos.PriorityScoreRepo
	userRepo    repos.UserRepo
	tuning      config.PriorityTuning
}

func NewPriorityService(
	db *gorm.DB,
	baseLog *logger.Logger,
	subjectRepo repos.SubjectRepo,
	scoreRepo repos.PriorityScoreRepo,
	userRepo repos.UserRepo,
	tuning config.PriorityTuning,
) PriorityService {
	return &priorityService{
		db:          db,
		log:         baseLog.With("service", "PriorityService"),
		subjectRepo: subjectRepo,
		scoreRepo:   scoreRepo,
		userRepo:    userRepo,
		tuning:      tuning,
	}
}

func (s *priorityService) weights() scheduling.Weights {
	return scheduling.Weights{
		Urgency:     s.tuning.UrgencyWeight,
		Weakness:    s.tuning.WeaknessWeight,
		Coefficient: s.tuning.CoefficientWeight,
		Staleness:   s.tuning.StalenessWeight,
	}
}

func (s *priorityService) RankSubjects(ctx context.Context, tx *gorm.DB, userID uuid.UUID) ([]scheduling.RankedSubject, error) {
	subjects, err := s.subjectRepo.ListActiveByUser(ctx, tx, userID)
	if err != nil {
		return nil, fmt.Errorf("list subjects: %w", err)
	}
	facts := make([]scheduling.SubjectFacts, 0, len(subjects))
	for _, sub := range subjects {
		if sub.Coefficient < 0 {
			return nil, &scheduling.InvalidInputError{
				Field:  "coefficient",
				Reason: fmt.Sprintf("subject %s has a negative coefficient", sub.ID),
			}
		}
		facts = append(facts, scheduling.SubjectFacts{
			SubjectID:        sub.ID,
			Coefficient:      sub.Coefficient,
			PerformanceScore: sub.PerformanceScore,
			ExamDate:         sub.ExamDate,
			LastStudiedAt:    sub.LastStudiedAt,
		})
	}
	return scheduling.Rank(facts, s.weights(), s.tuning.MaxCoefficient, s.tuning.TargetCycleDays, time.Now()), nil
}

func (s *priorityService) RecalculateSubject(ctx context.Context, userID, subjectID uuid.UUID) (*types.PriorityScore, error) {
	subject, err := s.subjectRepo.GetByID(ctx, nil, subjectID)
	if err != nil {
		return nil, fmt.Errorf("get subject: %w", err)
	}
	if subject == nil || subject.UserID != userID {
		return nil, ErrNotFound
	}
	if subject.Coefficient < 0 {
		return nil, &scheduling.InvalidInputError{
			Field:  "coefficient",
			Reason: fmt.Sprintf("subject %s has a negative coefficient", subject.ID),
		}
	}
	now := time.Now()
	score, breakdown := scheduling.Score(scheduling.SubjectFacts{
		SubjectID:        subject.ID,
		Coefficient:      subject.Coefficient,
		PerformanceScore: subject.PerformanceScore,
		ExamDate:         subject.ExamDate,
		LastStudiedAt:    subject.LastStudiedAt,
	}, s.weights(), s.tuning.MaxCoefficient, s.tuning.TargetCycleDays, now)

	row, err := s.snapshotRow(userID, subject.ID, score, breakdown, now)
	if err != nil {
		return nil, err
	}
	created, err := s.scoreRepo.CreateBatch(ctx, nil, []*types.PriorityScore{row})
	if err != nil {
		return nil, fmt.Errorf("persist priority snapshot: %w", err)
	}
	return created[0], nil
}

func (s *priorityService) RecalculateForUser(ctx context.Context, userID uuid.UUID) ([]*types.PriorityScore, error) {
	ranked, err := s.RankSubjects(ctx, nil, userID)
	if err != nil {
		return nil, err
	}
	now := time.Now()
	rows := make([]*types.PriorityScore, 0, len(ranked))
	for _, r := range ranked {
		row, err := s.snapshotRow(userID, r.SubjectID, r.Score, r.Factors, now)
		if err != nil {
			return nil, err
		}
		rows = append(rows, row)
	}
	if len(rows) == 0 {
		return []*types.PriorityScore{}, nil
	}
	created, err := s.scoreRepo.CreateBatch(ctx, nil, rows)
	if err != nil {
		return nil, fmt.Errorf("persist priority snapshots: %w", err)
	}
	s.log.Debug("Recalculated priorities", "user_id", userID, "subjects", len(created))
	return created, nil
}

// RecalculateAll refreshes every user's snapshots with bounded concurrency.
// Used by the nightly batch job.
func (s *priorityService) RecalculateAll(ctx context.Context, concurrency int) error {
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
			if _, err := s.RecalculateForUser(gctx, userID); err != nil {
				return fmt.Errorf("recalculate user %s: %w", userID, err)
			}
			return nil
		})
	}
	return g.Wait()
}

func (s *priorityService) Latest(ctx context.Context, userID uuid.UUID) ([]*types.PriorityScore, error) {
	return s.scoreRepo.LatestPerSubject(ctx, nil, userID)
}

func (s *priorityService) History(ctx context.Context, userID, subjectID uuid.UUID, limit int) ([]*types.PriorityScore, error) {
	return s.scoreRepo.HistoryBySubject(ctx, nil, userID, subjectID, limit)
}

func (s *priorityService) snapshotRow(userID, subjectID uuid.UUID, score float64, breakdown scheduling.FactorBreakdown, at time.Time) (*types.PriorityScore, error) {
	raw, err := json.Marshal(breakdown)
	if err != nil {
		return nil, fmt.Errorf("marshal factor breakdown: %w", err)
	}
	return &types.PriorityScore{
		UserID:     userID,
		SubjectID:  subjectID,
		Score:      score,
		Factors:    datatypes.JSON(raw),
		ComputedAt: at,
	}, nil
}
