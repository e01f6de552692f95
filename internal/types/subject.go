package types

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Subject struct {
	ID               uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	UserID           uuid.UUID      `gorm:"type:uuid;not null;index" json:"user_id"`
	User             *User          `gorm:"constraint:OnDelete:CASCADE;foreignKey:UserID;references:ID" json:"user,omitempty"`
	Name             string         `gorm:"not null" json:"name"`
	Coefficient      int            `gorm:"not null;default:1" json:"coefficient"`
	PerformanceScore float64        `gorm:"not null;default:50" json:"performance_score"`
	ExamDate         *time.Time     `gorm:"column:exam_date" json:"exam_date,omitempty"`
	LastStudiedAt    *time.Time     `gorm:"column:last_studied_at" json:"last_studied_at,omitempty"`
	Archived         bool           `gorm:"not null;default:false" json:"archived"`
	CreatedAt        time.Time      `gorm:"not null" json:"created_at"`
	UpdatedAt        time.Time      `gorm:"not null" json:"updated_at"`
	DeletedAt        gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (Subject) TableName() string { return "subject" }

func (s *Subject) BeforeCreate(tx *gorm.DB) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	return nil
}
