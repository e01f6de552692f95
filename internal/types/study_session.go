package types

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	SessionStatusScheduled = "scheduled"
	SessionStatusStarted   = "started"
	SessionStatusPaused    = "paused"
	SessionStatusCompleted = "completed"
	SessionStatusSkipped   = "skipped"
	SessionStatusMissed    = "missed"
	SessionStatusCancelled = "cancelled"
)

type StudySession struct {
	ID             uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	ScheduleID     uuid.UUID      `gorm:"type:uuid;not null;index" json:"schedule_id"`
	Schedule       *Schedule      `gorm:"constraint:OnDelete:CASCADE;foreignKey:ScheduleID;references:ID" json:"schedule,omitempty"`
	UserID         uuid.UUID      `gorm:"type:uuid;not null;index" json:"user_id"`
	User           *User          `gorm:"constraint:OnDelete:CASCADE;foreignKey:UserID;references:ID" json:"user,omitempty"`
	SubjectID      uuid.UUID      `gorm:"type:uuid;not null;index" json:"subject_id"`
	Subject        *Subject       `gorm:"constraint:OnDelete:CASCADE;foreignKey:SubjectID;references:ID" json:"subject,omitempty"`
	StartsAt       time.Time      `gorm:"not null;index" json:"starts_at"`
	EndsAt         time.Time      `gorm:"not null" json:"ends_at"`
	PlannedMinutes int            `gorm:"not null" json:"planned_minutes"`
	ActualMinutes  int            `gorm:"not null;default:0" json:"actual_minutes"`
	Status         string         `gorm:"not null;default:'scheduled';index" json:"status"`
	Pinned         bool           `gorm:"not null;default:false" json:"pinned"`
	StartedAt      *time.Time     `gorm:"column:started_at" json:"started_at,omitempty"`
	PausedAt       *time.Time     `gorm:"column:paused_at" json:"paused_at,omitempty"`
	PauseSeconds   int            `gorm:"not null;default:0" json:"pause_seconds"`
	CompletedAt    *time.Time     `gorm:"column:completed_at" json:"completed_at,omitempty"`
	CreatedAt      time.Time      `gorm:"not null" json:"created_at"`
	UpdatedAt      time.Time      `gorm:"not null" json:"updated_at"`
	DeletedAt      gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (StudySession) TableName() string { return "study_session" }

func (s *StudySession) BeforeCreate(tx *gorm.DB) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	return nil
}
