package repos

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/memoapp/planner-backend/internal/logger"
	"github.com/memoapp/planner-backend/internal/types"
)

type PlannerSettingRepo interface {
	GetByUser(ctx context.Context, tx *gorm.DB, userID uuid.UUID) (*types.PlannerSetting, error)
	Upsert(ctx context.Context, tx *gorm.DB, setting *types.PlannerSetting) (*types.PlannerSetting, error)
}

type plannerSettingRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewPlannerSettingRepo(db *gorm.DB, baseLog *logger.Logger) PlannerSettingRepo {
	return &plannerSettingRepo{
		db:  db,
		log: baseLog.With("repo", "PlannerSettingRepo"),
	}
}

func (r *plannerSettingRepo) GetByUser(ctx context.Context, tx *gorm.DB, userID uuid.UUID) (*types.PlannerSetting, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var setting types.PlannerSetting
	err := transaction.WithContext(ctx).Where("user_id = ?", userID).First(&setting).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &setting, nil
}

func (r *plannerSettingRepo) Upsert(ctx context.Context, tx *gorm.DB, setting *types.PlannerSetting) (*types.PlannerSetting, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if err := transaction.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}},
			UpdateAll: true,
		}).
		Create(setting).Error; err != nil {
		return nil, err
	}
	return setting, nil
}
