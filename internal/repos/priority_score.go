package repos

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/memoapp/planner-backend/internal/logger"
	"github.com/memoapp/planner-backend/internal/types"
)

type PriorityScoreRepo interface {
	CreateBatch(ctx context.Context, tx *gorm.DB, scores []*types.PriorityScore) ([]*types.PriorityScore, error)
	LatestPerSubject(ctx context.Context, tx *gorm.DB, userID uuid.UUID) ([]*types.PriorityScore, error)
	HistoryBySubject(ctx context.Context, tx *gorm.DB, userID, subjectID uuid.UUID, limit int) ([]*types.PriorityScore, error)
	LatestComputedAt(ctx context.Context, tx *gorm.DB, userID uuid.UUID) (*time.Time, error)
}

type priorityScoreRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewPriorityScoreRepo(db *gorm.DB, baseLog *logger.Logger) PriorityScoreRepo {
	return &priorityScoreRepo{
		db:  db,
		log: baseLog.With("repo", "PriorityScoreRepo"),
	}
}

func (r *priorityScoreRepo) CreateBatch(ctx context.Context, tx *gorm.DB, scores []*types.PriorityScore) ([]*types.PriorityScore, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if len(scores) == 0 {
		return []*types.PriorityScore{}, nil
	}
	if err := transaction.WithContext(ctx).Create(&scores).Error; err != nil {
		return nil, err
	}
	return scores, nil
}

// LatestPerSubject returns the most recent snapshot per subject for a user.
func (r *priorityScoreRepo) LatestPerSubject(ctx context.Context, tx *gorm.DB, userID uuid.UUID) ([]*types.PriorityScore, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var out []*types.PriorityScore
	sub := transaction.
		Model(&types.PriorityScore{}).
		Select("subject_id, MAX(computed_at) AS max_computed_at").
		Where("user_id = ?", userID).
		Group("subject_id")
	if err := transaction.WithContext(ctx).
		Joins("JOIN (?) latest ON latest.subject_id = priority_score.subject_id AND latest.max_computed_at = priority_score.computed_at", sub).
		Where("priority_score.user_id = ?", userID).
		Order("priority_score.score DESC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *priorityScoreRepo) HistoryBySubject(ctx context.Context, tx *gorm.DB, userID, subjectID uuid.UUID, limit int) ([]*types.PriorityScore, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	q := transaction.WithContext(ctx).
		Where("user_id = ? AND subject_id = ?", userID, subjectID).
		Order("computed_at DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	var out []*types.PriorityScore
	if err := q.Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *priorityScoreRepo) LatestComputedAt(ctx context.Context, tx *gorm.DB, userID uuid.UUID) (*time.Time, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var row struct {
		ComputedAt *time.Time
	}
	if err := transaction.WithContext(ctx).
		Model(&types.PriorityScore{}).
		Select("MAX(computed_at) AS computed_at").
		Where("user_id = ?", userID).
		Scan(&row).Error; err != nil {
		return nil, err
	}
	return row.ComputedAt, nil
}
