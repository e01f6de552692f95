package types

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	ScheduleStatusDraft      = "draft"
	ScheduleStatusActive     = "active"
	ScheduleStatusSuperseded = "superseded"
)

type Schedule struct {
	ID            uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	UserID        uuid.UUID      `gorm:"type:uuid;not null;index" json:"user_id"`
	User          *User          `gorm:"constraint:OnDelete:CASCADE;foreignKey:UserID;references:ID" json:"user,omitempty"`
	Status        string         `gorm:"not null;default:'draft';index" json:"status"`
	StartDate     time.Time      `gorm:"type:date;not null" json:"start_date"`
	EndDate       time.Time      `gorm:"type:date;not null" json:"end_date"`
	GeneratedAt   time.Time      `gorm:"not null" json:"generated_at"`
	ActivatedAt   *time.Time     `gorm:"column:activated_at" json:"activated_at,omitempty"`
	LastAdaptedAt *time.Time     `gorm:"column:last_adapted_at" json:"last_adapted_at,omitempty"`
	CreatedAt     time.Time      `gorm:"not null" json:"created_at"`
	UpdatedAt     time.Time      `gorm:"not null" json:"updated_at"`
	DeletedAt     gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (Schedule) TableName() string { return "schedule" }

func (s *Schedule) BeforeCreate(tx *gorm.DB) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	return nil
}
