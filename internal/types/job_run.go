package types

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const (
	JobStatusQueued    = "queued"
	JobStatusRunning   = "running"
	JobStatusSucceeded = "succeeded"
	JobStatusFailed    = "failed"
)

type JobRun struct {
	ID          uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	JobType     string         `gorm:"not null;index" json:"job_type"`
	OwnerUserID *uuid.UUID     `gorm:"type:uuid;index" json:"owner_user_id,omitempty"`
	Status      string         `gorm:"not null;default:'queued';index" json:"status"`
	Attempts    int            `gorm:"not null;default:0" json:"attempts"`
	Payload     datatypes.JSON `gorm:"type:jsonb" json:"payload"`
	Result      datatypes.JSON `gorm:"type:jsonb" json:"result"`
	LastError   string         `gorm:"column:last_error" json:"last_error,omitempty"`
	LastErrorAt *time.Time     `gorm:"column:last_error_at" json:"last_error_at,omitempty"`
	RunAfter    *time.Time     `gorm:"column:run_after;index" json:"run_after,omitempty"`
	LockedAt    *time.Time     `gorm:"column:locked_at" json:"locked_at,omitempty"`
	HeartbeatAt *time.Time     `gorm:"column:heartbeat_at" json:"heartbeat_at,omitempty"`
	CreatedAt   time.Time      `gorm:"not null" json:"created_at"`
	UpdatedAt   time.Time      `gorm:"not null" json:"updated_at"`
	DeletedAt   gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (JobRun) TableName() string { return "job_run" }

func (j *JobRun) BeforeCreate(tx *gorm.DB) error {
	if j.ID == uuid.Nil {
		j.ID = uuid.New()
	}
	return nil
}
