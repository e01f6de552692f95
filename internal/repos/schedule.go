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

type ScheduleRepo interface {
	Create(ctx context.Context, tx *gorm.DB, schedule *types.Schedule) (*types.Schedule, error)
	GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.Schedule, error)
	GetActiveByUser(ctx context.Context, tx *gorm.DB, userID uuid.UUID) (*types.Schedule, error)
	ListByUser(ctx context.Context, tx *gorm.DB, userID uuid.UUID) ([]*types.Schedule, error)
	UpdateFields(ctx context.Context, tx *gorm.DB, id uuid.UUID, updates map[string]interface{}) error
	SupersedeActiveExcept(ctx context.Context, tx *gorm.DB, userID, keepID uuid.UUID, at time.Time) error
	Delete(ctx context.Context, tx *gorm.DB, id uuid.UUID) error
}

type scheduleRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewScheduleRepo(db *gorm.DB, baseLog *logger.Logger) ScheduleRepo {
	return &scheduleRepo{
		db:  db,
		log: baseLog.With("repo", "ScheduleRepo"),
	}
}

func (r *scheduleRepo) Create(ctx context.Context, tx *gorm.DB, schedule *types.Schedule) (*types.Schedule, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if err := transaction.WithContext(ctx).Create(schedule).Error; err != nil {
		return nil, err
	}
	return schedule, nil
}

func (r *scheduleRepo) GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.Schedule, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var schedule types.Schedule
	err := transaction.WithContext(ctx).Where("id = ?", id).First(&schedule).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &schedule, nil
}

func (r *scheduleRepo) GetActiveByUser(ctx context.Context, tx *gorm.DB, userID uuid.UUID) (*types.Schedule, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var schedule types.Schedule
	err := transaction.WithContext(ctx).
		Where("user_id = ? AND status = ?", userID, types.ScheduleStatusActive).
		First(&schedule).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &schedule, nil
}

func (r *scheduleRepo) ListByUser(ctx context.Context, tx *gorm.DB, userID uuid.UUID) ([]*types.Schedule, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var out []*types.Schedule
	if err := transaction.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *scheduleRepo) UpdateFields(ctx context.Context, tx *gorm.DB, id uuid.UUID, updates map[string]interface{}) error {
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
		Model(&types.Schedule{}).
		Where("id = ?", id).
		Updates(updates).Error
}

// SupersedeActiveExcept demotes every active schedule of the user except
// keepID. Running it inside the activation transaction keeps the one-active
// invariant.
func (r *scheduleRepo) SupersedeActiveExcept(ctx context.Context, tx *gorm.DB, userID, keepID uuid.UUID, at time.Time) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	return transaction.WithContext(ctx).
		Model(&types.Schedule{}).
		Where("user_id = ? AND status = ? AND id <> ?", userID, types.ScheduleStatusActive, keepID).
		Updates(map[string]interface{}{
			"status":     types.ScheduleStatusSuperseded,
			"updated_at": at,
		}).Error
}

func (r *scheduleRepo) Delete(ctx context.Context, tx *gorm.DB, id uuid.UUID) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	return transaction.WithContext(ctx).Where("id = ?", id).Delete(&types.Schedule{}).Error
}
