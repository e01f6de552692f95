package types

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const (
	PointsReasonSessionCompleted = "session_completed"
	PointsReasonReviewAnswer     = "review_answer"
)

// PointsEntry rows are append-only. EventKey is the natural key of the
// awarding event; the unique index makes repeated awards no-ops.
type PointsEntry struct {
	ID        uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	UserID    uuid.UUID      `gorm:"type:uuid;not null;index" json:"user_id"`
	User      *User          `gorm:"constraint:OnDelete:CASCADE;foreignKey:UserID;references:ID" json:"user,omitempty"`
	Amount    int            `gorm:"not null" json:"amount"`
	Reason    string         `gorm:"not null" json:"reason"`
	EventKey  string         `gorm:"not null;uniqueIndex" json:"event_key"`
	Metadata  datatypes.JSON `gorm:"type:jsonb" json:"metadata"`
	CreatedAt time.Time      `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time      `gorm:"not null" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (PointsEntry) TableName() string { return "points_entry" }

func (p *PointsEntry) BeforeCreate(tx *gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}
