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

type SubjectRepo interface {
	Create(ctx context.Context, tx *gorm.DB, subject *types.Subject) (*types.Subject, error)
	GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.Subject, error)
	GetByIDs(ctx context.Context, tx *gorm.DB, ids []uuid.UUID) ([]*types.Subject, error)
	ListActiveByUser(ctx context.Context, tx *gorm.DB, userID uuid.UUID) ([]*types.Subject, error)
	UpdateFields(ctx context.Context, tx *gorm.DB, id uuid.UUID, updates map[string]interface{}) error
	TouchLastStudied(ctx context.Context, tx *gorm.DB, id uuid.UUID, at time.Time) error
}

type subjectRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewSubjectRepo(db *gorm.DB, baseLog *logger.Logger) SubjectRepo {
	return &subjectRepo{
		db:  db,
		log: baseLog.With("repo", "SubjectRepo"),
	}
}

func (r *subjectRepo) Create(ctx context.Context, tx *gorm.DB, subject *types.Subject) (*types.Subject, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if err := transaction.WithContext(ctx).Create(subject).Error; err != nil {
		return nil, err
	}
	return subject, nil
}

func (r *subjectRepo) GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.Subject, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var subject types.Subject
	err := transaction.WithContext(ctx).Where("id = ?", id).First(&subject).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &subject, nil
}

func (r *subjectRepo) GetByIDs(ctx context.Context, tx *gorm.DB, ids []uuid.UUID) ([]*types.Subject, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var out []*types.Subject
	if len(ids) == 0 {
		return out, nil
	}
	if err := transaction.WithContext(ctx).Where("id IN ?", ids).Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *subjectRepo) ListActiveByUser(ctx context.Context, tx *gorm.DB, userID uuid.UUID) ([]*types.Subject, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var out []*types.Subject
	if err := transaction.WithContext(ctx).
		Where("user_id = ? AND archived = ?", userID, false).
		Order("created_at ASC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *subjectRepo) UpdateFields(ctx context.Context, tx *gorm.DB, id uuid.UUID, updates map[string]interface{}) error {
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
		Model(&types.Subject{}).
		Where("id = ?", id).
		Updates(updates).Error
}

func (r *subjectRepo) TouchLastStudied(ctx context.Context, tx *gorm.DB, id uuid.UUID, at time.Time) error {
	return r.UpdateFields(ctx, tx, id, map[string]interface{}{"last_studied_at": at})
}
