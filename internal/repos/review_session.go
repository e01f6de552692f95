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

type ReviewSessionRepo interface {
	Create(ctx context.Context, tx *gorm.DB, session *types.ReviewSession) (*types.ReviewSession, error)
	GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.ReviewSession, error)
	GetActiveByUser(ctx context.Context, tx *gorm.DB, userID uuid.UUID) (*types.ReviewSession, error)
	UpdateFields(ctx context.Context, tx *gorm.DB, id uuid.UUID, updates map[string]interface{}) error
	CreateAnswer(ctx context.Context, tx *gorm.DB, answer *types.ReviewAnswer) (*types.ReviewAnswer, error)
	ListAnswersBySession(ctx context.Context, tx *gorm.DB, sessionID uuid.UUID) ([]*types.ReviewAnswer, error)
	CountAnswersByUserSince(ctx context.Context, tx *gorm.DB, userID uuid.UUID, since time.Time) (total int64, correct int64, err error)
}

type reviewSessionRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewReviewSessionRepo(db *gorm.DB, baseLog *logger.Logger) ReviewSessionRepo {
	return &reviewSessionRepo{
		db:  db,
		log: baseLog.With("repo", "ReviewSessionRepo"),
	}
}

func (r *reviewSessionRepo) Create(ctx context.Context, tx *gorm.DB, session *types.ReviewSession) (*types.ReviewSession, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if err := transaction.WithContext(ctx).Create(session).Error; err != nil {
		return nil, err
	}
	return session, nil
}

func (r *reviewSessionRepo) GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.ReviewSession, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var session types.ReviewSession
	err := transaction.WithContext(ctx).Where("id = ?", id).First(&session).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &session, nil
}

func (r *reviewSessionRepo) GetActiveByUser(ctx context.Context, tx *gorm.DB, userID uuid.UUID) (*types.ReviewSession, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var session types.ReviewSession
	err := transaction.WithContext(ctx).
		Where("user_id = ? AND status = ?", userID, types.ReviewStatusActive).
		Order("started_at DESC").
		First(&session).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &session, nil
}

func (r *reviewSessionRepo) UpdateFields(ctx context.Context, tx *gorm.DB, id uuid.UUID, updates map[string]interface{}) error {
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
		Model(&types.ReviewSession{}).
		Where("id = ?", id).
		Updates(updates).Error
}

func (r *reviewSessionRepo) CreateAnswer(ctx context.Context, tx *gorm.DB, answer *types.ReviewAnswer) (*types.ReviewAnswer, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if err := transaction.WithContext(ctx).Create(answer).Error; err != nil {
		return nil, err
	}
	return answer, nil
}

func (r *reviewSessionRepo) ListAnswersBySession(ctx context.Context, tx *gorm.DB, sessionID uuid.UUID) ([]*types.ReviewAnswer, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var out []*types.ReviewAnswer
	if err := transaction.WithContext(ctx).
		Where("review_session_id = ?", sessionID).
		Order("answered_at ASC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *reviewSessionRepo) CountAnswersByUserSince(ctx context.Context, tx *gorm.DB, userID uuid.UUID, since time.Time) (int64, int64, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var row struct {
		Total   int64
		Correct int64
	}
	if err := transaction.WithContext(ctx).
		Model(&types.ReviewAnswer{}).
		Select("COUNT(*) AS total, SUM(CASE WHEN quality >= 3 THEN 1 ELSE 0 END) AS correct").
		Joins("JOIN review_session ON review_session.id = review_answer.review_session_id").
		Where("review_session.user_id = ? AND review_answer.answered_at > ?", userID, since).
		Scan(&row).Error; err != nil {
		return 0, 0, err
	}
	return row.Total, row.Correct, nil
}
