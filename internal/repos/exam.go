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

type ExamRepo interface {
	Create(ctx context.Context, tx *gorm.DB, exam *types.Exam) (*types.Exam, error)
	GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.Exam, error)
	ListByUser(ctx context.Context, tx *gorm.DB, userID uuid.UUID) ([]*types.Exam, error)
	ListResultsSince(ctx context.Context, tx *gorm.DB, userID uuid.UUID, since time.Time) ([]*types.Exam, error)
	UpdateFields(ctx context.Context, tx *gorm.DB, id uuid.UUID, updates map[string]interface{}) error
}

type examRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewExamRepo(db *gorm.DB, baseLog *logger.Logger) ExamRepo {
	return &examRepo{
		db:  db,
		log: baseLog.With("repo", "ExamRepo"),
	}
}

func (r *examRepo) Create(ctx context.Context, tx *gorm.DB, exam *types.Exam) (*types.Exam, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if err := transaction.WithContext(ctx).Create(exam).Error; err != nil {
		return nil, err
	}
	return exam, nil
}

func (r *examRepo) GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.Exam, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var exam types.Exam
	err := transaction.WithContext(ctx).Where("id = ?", id).First(&exam).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &exam, nil
}

func (r *examRepo) ListByUser(ctx context.Context, tx *gorm.DB, userID uuid.UUID) ([]*types.Exam, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var out []*types.Exam
	if err := transaction.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("scheduled_at ASC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *examRepo) ListResultsSince(ctx context.Context, tx *gorm.DB, userID uuid.UUID, since time.Time) ([]*types.Exam, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var out []*types.Exam
	if err := transaction.WithContext(ctx).
		Where("user_id = ? AND result_at IS NOT NULL AND result_at > ?", userID, since).
		Order("result_at ASC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *examRepo) UpdateFields(ctx context.Context, tx *gorm.DB, id uuid.UUID, updates map[string]interface{}) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if id == uuid.Nil {
		return nil
	}
	if updates == nil {
		updates = map[string]interface{}{}
	}
	if _, ok := updates["updated_at"]; !ok {
		updates["updated_at"] = time.Now()
	}
	return transaction.WithContext(ctx).
		Model(&types.Exam{}).
		Where("id = ?", id).
		Updates(updates).Error
}
