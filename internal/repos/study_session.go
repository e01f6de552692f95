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

type StudySessionRepo interface {
	CreateBatch(ctx context.Context, tx *gorm.DB, sessions []*types.StudySession) ([]*types.StudySession, error)
	GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.StudySession, error)
	ListBySchedule(ctx context.Context, tx *gorm.DB, scheduleID uuid.UUID) ([]*types.StudySession, error)
	ListByUserRange(ctx context.Context, tx *gorm.DB, userID uuid.UUID, from, to time.Time) ([]*types.StudySession, error)
	ListByUserStatuses(ctx context.Context, tx *gorm.DB, userID uuid.UUID, statuses []string) ([]*types.StudySession, error)
	ListFinishedSince(ctx context.Context, tx *gorm.DB, userID uuid.UUID, since time.Time) ([]*types.StudySession, error)
	ListScheduledEndedBefore(ctx context.Context, tx *gorm.DB, cutoff time.Time, limit int) ([]*types.StudySession, error)
	ListCompletedSince(ctx context.Context, tx *gorm.DB, userID uuid.UUID, since time.Time) ([]*types.StudySession, error)
	UpdateFields(ctx context.Context, tx *gorm.DB, id uuid.UUID, updates map[string]interface{}) error
	CancelPending(ctx context.Context, tx *gorm.DB, scheduleID uuid.UUID, at time.Time) error
	DeleteFutureScheduled(ctx context.Context, tx *gorm.DB, scheduleID uuid.UUID, subjectIDs []uuid.UUID, from time.Time) error
	DeleteBySchedule(ctx context.Context, tx *gorm.DB, scheduleID uuid.UUID) error
}

type studySessionRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewStudySessionRepo(db *gorm.DB, baseLog *logger.Logger) StudySessionRepo {
	return &studySessionRepo{
		db:  db,
		log: baseLog.With("repo", "StudySessionRepo"),
	}
}

func (r *studySessionRepo) CreateBatch(ctx context.Context, tx *gorm.DB, sessions []*types.StudySession) ([]*types.StudySession, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if len(sessions) == 0 {
		return []*types.StudySession{}, nil
	}
	if err := transaction.WithContext(ctx).Create(&sessions).Error; err != nil {
		return nil, err
	}
	return sessions, nil
}

func (r *studySessionRepo) GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.StudySession, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var session types.StudySession
	err := transaction.WithContext(ctx).Where("id = ?", id).First(&session).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &session, nil
}

func (r *studySessionRepo) ListBySchedule(ctx context.Context, tx *gorm.DB, scheduleID uuid.UUID) ([]*types.StudySession, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var out []*types.StudySession
	if err := transaction.WithContext(ctx).
		Where("schedule_id = ?", scheduleID).
		Order("starts_at ASC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *studySessionRepo) ListByUserRange(ctx context.Context, tx *gorm.DB, userID uuid.UUID, from, to time.Time) ([]*types.StudySession, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var out []*types.StudySession
	if err := transaction.WithContext(ctx).
		Where("user_id = ? AND starts_at >= ? AND starts_at < ?", userID, from, to).
		Order("starts_at ASC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *studySessionRepo) ListByUserStatuses(ctx context.Context, tx *gorm.DB, userID uuid.UUID, statuses []string) ([]*types.StudySession, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var out []*types.StudySession
	if err := transaction.WithContext(ctx).
		Where("user_id = ? AND status IN ?", userID, statuses).
		Order("starts_at ASC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

// ListFinishedSince returns sessions that reached a terminal study outcome
// after the cutoff. These are the adaptation engine's input events.
func (r *studySessionRepo) ListFinishedSince(ctx context.Context, tx *gorm.DB, userID uuid.UUID, since time.Time) ([]*types.StudySession, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var out []*types.StudySession
	if err := transaction.WithContext(ctx).
		Where("user_id = ? AND status IN ? AND updated_at > ?",
			userID,
			[]string{types.SessionStatusCompleted, types.SessionStatusMissed, types.SessionStatusSkipped},
			since).
		Order("updated_at ASC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *studySessionRepo) ListScheduledEndedBefore(ctx context.Context, tx *gorm.DB, cutoff time.Time, limit int) ([]*types.StudySession, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	q := transaction.WithContext(ctx).
		Where("status = ? AND ends_at < ?", types.SessionStatusScheduled, cutoff).
		Order("ends_at ASC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	var out []*types.StudySession
	if err := q.Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *studySessionRepo) ListCompletedSince(ctx context.Context, tx *gorm.DB, userID uuid.UUID, since time.Time) ([]*types.StudySession, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var out []*types.StudySession
	if err := transaction.WithContext(ctx).
		Where("user_id = ? AND status = ? AND completed_at > ?", userID, types.SessionStatusCompleted, since).
		Order("completed_at ASC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *studySessionRepo) UpdateFields(ctx context.Context, tx *gorm.DB, id uuid.UUID, updates map[string]interface{}) error {
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
		Model(&types.StudySession{}).
		Where("id = ?", id).
		Updates(updates).Error
}

// CancelPending cancels the not-yet-started sessions of a schedule. In-flight
// and finished sessions keep their state.
func (r *studySessionRepo) CancelPending(ctx context.Context, tx *gorm.DB, scheduleID uuid.UUID, at time.Time) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	return transaction.WithContext(ctx).
		Model(&types.StudySession{}).
		Where("schedule_id = ? AND status = ?", scheduleID, types.SessionStatusScheduled).
		Updates(map[string]interface{}{
			"status":     types.SessionStatusCancelled,
			"updated_at": at,
		}).Error
}

// DeleteFutureScheduled removes unpinned scheduled sessions of the given
// subjects starting at or after the cutoff so the adaptation engine can
// replan them.
func (r *studySessionRepo) DeleteFutureScheduled(ctx context.Context, tx *gorm.DB, scheduleID uuid.UUID, subjectIDs []uuid.UUID, from time.Time) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if len(subjectIDs) == 0 {
		return nil
	}
	return transaction.WithContext(ctx).
		Where("schedule_id = ? AND subject_id IN ? AND status = ? AND pinned = ? AND starts_at >= ?",
			scheduleID, subjectIDs, types.SessionStatusScheduled, false, from).
		Delete(&types.StudySession{}).Error
}

func (r *studySessionRepo) DeleteBySchedule(ctx context.Context, tx *gorm.DB, scheduleID uuid.UUID) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	return transaction.WithContext(ctx).
		Where("schedule_id = ?", scheduleID).
		Delete(&types.StudySession{}).Error
}
