package repos

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/memoapp/planner-backend/internal/logger"
	"github.com/memoapp/planner-backend/internal/types"
)

type PointsEntryRepo interface {
	// CreateIfAbsent inserts the entry unless its event key already exists.
	// Returns true when a row was written.
	CreateIfAbsent(ctx context.Context, tx *gorm.DB, entry *types.PointsEntry) (bool, error)
	ListByUser(ctx context.Context, tx *gorm.DB, userID uuid.UUID, limit int) ([]*types.PointsEntry, error)
	TotalByUser(ctx context.Context, tx *gorm.DB, userID uuid.UUID) (int64, error)
}

type pointsEntryRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewPointsEntryRepo(db *gorm.DB, baseLog *logger.Logger) PointsEntryRepo {
	return &pointsEntryRepo{
		db:  db,
		log: baseLog.With("repo", "PointsEntryRepo"),
	}
}

func (r *pointsEntryRepo) CreateIfAbsent(ctx context.Context, tx *gorm.DB, entry *types.PointsEntry) (bool, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	res := transaction.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "event_key"}},
			DoNothing: true,
		}).
		Create(entry)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *pointsEntryRepo) ListByUser(ctx context.Context, tx *gorm.DB, userID uuid.UUID, limit int) ([]*types.PointsEntry, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	q := transaction.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	var out []*types.PointsEntry
	if err := q.Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *pointsEntryRepo) TotalByUser(ctx context.Context, tx *gorm.DB, userID uuid.UUID) (int64, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var row struct {
		Total int64
	}
	if err := transaction.WithContext(ctx).
		Model(&types.PointsEntry{}).
		Select("COALESCE(SUM(amount), 0) AS total").
		Where("user_id = ?", userID).
		Scan(&row).Error; err != nil {
		return 0, err
	}
	return row.Total, nil
}
