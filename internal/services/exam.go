package services

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/memoapp/planner-backend/internal/logger"
	"github.com/memoapp/planner-backend/internal/repos"
	"github.com/memoapp/planner-backend/internal/scheduling"
	"github.com/memoapp/planner-backend/internal/types"
)

// examBlendWeight is how much a new exam result pulls the subject's rolling
// performance score towards the exam percentage.
const examBlendWeight = 0.3

type CreateExamInput struct {
	SubjectID   uuid.UUID `json:"subject_id"`
	Title       string    `json:"title"`
	ScheduledAt time.Time `json:"scheduled_at"`
	MaxScore    float64   `json:"max_score"`
}

type ExamService interface {
	Create(ctx context.Context, userID uuid.UUID, input CreateExamInput) (*types.Exam, error)
	List(ctx context.Context, userID uuid.UUID) ([]*types.Exam, error)
	Get(ctx context.Context, userID, examID uuid.UUID) (*types.Exam, error)
	// RecordResult stores the score and folds it into the subject's
	// performance score. The exam date stops driving urgency afterwards.
	RecordResult(ctx context.Context, userID, examID uuid.UUID, score float64) (*types.Exam, error)
}

type examService struct {
	db          *gorm.DB
	log         *logger.Logger
	examRepo    repos.ExamRepo
	subjectRepo repos.SubjectRepo
}

func NewExamService(db *gorm.DB, baseLog *logger.Logger, examRepo repos.ExamRepo, subjectRepo repos.SubjectRepo) ExamService {
	return &examService{
		db:          db,
		log:         baseLog.With("service", "ExamService"),
		examRepo:    examRepo,
		subjectRepo: subjectRepo,
	}
}

func (s *examService) Create(ctx context.Context, userID uuid.UUID, input CreateExamInput) (*types.Exam, error) {
	if input.Title == "" {
		return nil, &scheduling.InvalidInputError{Field: "title", Reason: "must not be empty"}
	}
	if input.ScheduledAt.IsZero() {
		return nil, &scheduling.InvalidInputError{Field: "scheduled_at", Reason: "must be set"}
	}
	subject, err := s.subjectRepo.GetByID(ctx, nil, input.SubjectID)
	if err != nil {
		return nil, err
	}
	if subject == nil || subject.UserID != userID {
		return nil, ErrNotFound
	}
	maxScore := input.MaxScore
	if maxScore <= 0 {
		maxScore = 100
	}

	var exam *types.Exam
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		exam, err = s.examRepo.Create(ctx, tx, &types.Exam{
			UserID:      userID,
			SubjectID:   input.SubjectID,
			Title:       input.Title,
			ScheduledAt: input.ScheduledAt,
			MaxScore:    maxScore,
		})
		if err != nil {
			return fmt.Errorf("create exam: %w", err)
		}
		// The nearest upcoming exam drives the subject's urgency.
		if subject.ExamDate == nil || input.ScheduledAt.Before(*subject.ExamDate) {
			return s.subjectRepo.UpdateFields(ctx, tx, subject.ID, map[string]interface{}{
				"exam_date": input.ScheduledAt,
			})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return exam, nil
}

func (s *examService) List(ctx context.Context, userID uuid.UUID) ([]*types.Exam, error) {
	return s.examRepo.ListByUser(ctx, nil, userID)
}

func (s *examService) Get(ctx context.Context, userID, examID uuid.UUID) (*types.Exam, error) {
	exam, err := s.examRepo.GetByID(ctx, nil, examID)
	if err != nil {
		return nil, err
	}
	if exam == nil || exam.UserID != userID {
		return nil, ErrNotFound
	}
	return exam, nil
}

func (s *examService) RecordResult(ctx context.Context, userID, examID uuid.UUID, score float64) (*types.Exam, error) {
	exam, err := s.Get(ctx, userID, examID)
	if err != nil {
		return nil, err
	}
	if exam.ResultAt != nil {
		return nil, fmt.Errorf("exam %s already has a result", examID)
	}
	if score < 0 || score > exam.MaxScore {
		return nil, &scheduling.InvalidInputError{
			Field:  "score",
			Reason: fmt.Sprintf("must be between 0 and %.0f", exam.MaxScore),
		}
	}
	subject, err := s.subjectRepo.GetByID(ctx, nil, exam.SubjectID)
	if err != nil {
		return nil, err
	}
	if subject == nil {
		return nil, ErrNotFound
	}

	now := time.Now()
	percent := score / exam.MaxScore * 100
	blended := (1-examBlendWeight)*subject.PerformanceScore + examBlendWeight*percent
	blended = math.Round(blended*100) / 100

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.examRepo.UpdateFields(ctx, tx, exam.ID, map[string]interface{}{
			"score":     score,
			"result_at": now,
		}); err != nil {
			return fmt.Errorf("record result: %w", err)
		}
		return s.subjectRepo.UpdateFields(ctx, tx, subject.ID, map[string]interface{}{
			"performance_score": blended,
		})
	})
	if err != nil {
		return nil, err
	}
	exam.Score = &score
	exam.ResultAt = &now
	s.log.Info("Recorded exam result",
		"user_id", userID,
		"exam_id", exam.ID,
		"subject_id", subject.ID,
		"percent", percent,
		"performance_score", blended)
	return exam, nil
}
