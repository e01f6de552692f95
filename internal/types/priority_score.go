package types

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// PriorityScore rows are append-only snapshots. Factors holds the per-factor
// breakdown the engine produced for this score.
type PriorityScore struct {
	ID         uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	UserID     uuid.UUID      `gorm:"type:uuid;not null;index:idx_priority_user_subject" json:"user_id"`
	User       *User          `gorm:"constraint:OnDelete:CASCADE;foreignKey:UserID;references:ID" json:"user,omitempty"`
	SubjectID  uuid.UUID      `gorm:"type:uuid;not null;index:idx_priority_user_subject" json:"subject_id"`
	Subject    *Subject       `gorm:"constraint:OnDelete:CASCADE;foreignKey:SubjectID;references:ID" json:"subject,omitempty"`
	Score      float64        `gorm:"not null" json:"score"`
	Factors    datatypes.JSON `gorm:"type:jsonb" json:"factors"`
	ComputedAt time.Time      `gorm:"not null;index" json:"computed_at"`
	CreatedAt  time.Time      `gorm:"not null" json:"created_at"`
	UpdatedAt  time.Time      `gorm:"not null" json:"updated_at"`
	DeletedAt  gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (PriorityScore) TableName() string { return "priority_score" }

func (p *PriorityScore) BeforeCreate(tx *gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}
