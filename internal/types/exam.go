package types

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Exam struct {
	ID          uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	UserID      uuid.UUID      `gorm:"type:uuid;not null;index" json:"user_id"`
	User        *User          `gorm:"constraint:OnDelete:CASCADE;foreignKey:UserID;references:ID" json:"user,omitempty"`
	SubjectID   uuid.UUID      `gorm:"type:uuid;not null;index" json:"subject_id"`
	Subject     *Subject       `gorm:"constraint:OnDelete:CASCADE;foreignKey:SubjectID;references:ID" json:"subject,omitempty"`
	Title       string         `gorm:"not null" json:"title"`
	ScheduledAt time.Time      `gorm:"not null" json:"scheduled_at"`
	Score       *float64       `gorm:"column:score" json:"score,omitempty"`
	MaxScore    float64        `gorm:"not null;default:100" json:"max_score"`
	ResultAt    *time.Time     `gorm:"column:result_at" json:"result_at,omitempty"`
	CreatedAt   time.Time      `gorm:"not null" json:"created_at"`
	UpdatedAt   time.Time      `gorm:"not null" json:"updated_at"`
	DeletedAt   gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (Exam) TableName() string { return "exam" }

func (e *Exam) BeforeCreate(tx *gorm.DB) error {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	return nil
}
