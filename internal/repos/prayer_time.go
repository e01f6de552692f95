package repos

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/memoapp/planner-backend/internal/logger"
	"github.com/memoapp/planner-backend/internal/types"
)

type PrayerTimeRepo interface {
	CreateBatch(ctx context.Context, tx *gorm.DB, rows []*types.PrayerTime) ([]*types.PrayerTime, error)
	ListByUserRange(ctx context.Context, tx *gorm.DB, userID uuid.UUID, from, to time.Time) ([]*types.PrayerTime, error)
	DeleteByUserDate(ctx context.Context, tx *gorm.DB, userID uuid.UUID, date time.Time) error
}

type prayerTimeRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewPrayerTimeRepo(db *gorm.DB, baseLog *logger.Logger) PrayerTimeRepo {
	return &prayerTimeRepo{
		db:  db,
		log: baseLog.With("repo", "PrayerTimeRepo"),
	}
}

func (r *prayerTimeRepo) CreateBatch(ctx context.Context, tx *gorm.DB, rows []*types.PrayerTime) ([]*types.PrayerTime, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if len(rows) == 0 {
		return []*types.PrayerTime{}, nil
	}
	if err := transaction.WithContext(ctx).Create(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *prayerTimeRepo) ListByUserRange(ctx context.Context, tx *gorm.DB, userID uuid.UUID, from, to time.Time) ([]*types.PrayerTime, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var out []*types.PrayerTime
	if err := transaction.WithContext(ctx).
		Where("user_id = ? AND date >= ? AND date <= ?", userID, from, to).
		Order("date ASC, start_time ASC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *prayerTimeRepo) DeleteByUserDate(ctx context.Context, tx *gorm.DB, userID uuid.UUID, date time.Time) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	return transaction.WithContext(ctx).
		Where("user_id = ? AND date = ?", userID, date).
		Delete(&types.PrayerTime{}).Error
}
