package repos

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/memoapp/planner-backend/internal/logger"
	"github.com/memoapp/planner-backend/internal/types"
)

type FlashcardProgressRepo interface {
	GetByUserCard(ctx context.Context, tx *gorm.DB, userID, cardID uuid.UUID) (*types.FlashcardProgress, error)
	Save(ctx context.Context, tx *gorm.DB, progress *types.FlashcardProgress) (*types.FlashcardProgress, error)
	// ListDue returns progress rows due at or before the cutoff, most overdue
	// first and hardest (lowest ease) first within a day.
	ListDue(ctx context.Context, tx *gorm.DB, userID uuid.UUID, deckID *uuid.UUID, cutoff time.Time, limit int) ([]*types.FlashcardProgress, error)
	CountDueBetween(ctx context.Context, tx *gorm.DB, userID uuid.UUID, from, to time.Time) (int64, error)
	CountByState(ctx context.Context, tx *gorm.DB, userID uuid.UUID) (map[string]int64, error)
}

type flashcardProgressRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewFlashcardProgressRepo(db *gorm.DB, baseLog *logger.Logger) FlashcardProgressRepo {
	return &flashcardProgressRepo{
		db:  db,
		log: baseLog.With("repo", "FlashcardProgressRepo"),
	}
}

func (r *flashcardProgressRepo) GetByUserCard(ctx context.Context, tx *gorm.DB, userID, cardID uuid.UUID) (*types.FlashcardProgress, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var progress types.FlashcardProgress
	err := transaction.WithContext(ctx).
		Where("user_id = ? AND flashcard_id = ?", userID, cardID).
		First(&progress).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &progress, nil
}

func (r *flashcardProgressRepo) Save(ctx context.Context, tx *gorm.DB, progress *types.FlashcardProgress) (*types.FlashcardProgress, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if err := transaction.WithContext(ctx).Save(progress).Error; err != nil {
		return nil, err
	}
	return progress, nil
}

func (r *flashcardProgressRepo) ListDue(ctx context.Context, tx *gorm.DB, userID uuid.UUID, deckID *uuid.UUID, cutoff time.Time, limit int) ([]*types.FlashcardProgress, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	q := transaction.WithContext(ctx).
		Where("flashcard_progress.user_id = ? AND flashcard_progress.due_at <= ?", userID, cutoff).
		Order("flashcard_progress.due_at ASC, flashcard_progress.ease ASC")
	if deckID != nil {
		q = q.Joins("JOIN flashcard ON flashcard.id = flashcard_progress.flashcard_id").
			Where("flashcard.deck_id = ?", *deckID)
	}
	if limit > 0 {
		q = q.Limit(limit)
	}
	var out []*types.FlashcardProgress
	if err := q.Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *flashcardProgressRepo) CountDueBetween(ctx context.Context, tx *gorm.DB, userID uuid.UUID, from, to time.Time) (int64, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var count int64
	if err := transaction.WithContext(ctx).
		Model(&types.FlashcardProgress{}).
		Where("user_id = ? AND due_at >= ? AND due_at < ?", userID, from, to).
		Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

func (r *flashcardProgressRepo) CountByState(ctx context.Context, tx *gorm.DB, userID uuid.UUID) (map[string]int64, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var rows []struct {
		State string
		Count int64
	}
	if err := transaction.WithContext(ctx).
		Model(&types.FlashcardProgress{}).
		Select("state, COUNT(*) AS count").
		Where("user_id = ?", userID).
		Group("state").
		Scan(&rows).Error; err != nil {
		return nil, err
	}
	out := map[string]int64{}
	for _, row := range rows {
		out[row.State] = row.Count
	}
	return out, nil
}
