package types

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ReviewAnswer records one graded card inside a review session, after the
// scheduling update was applied.
type ReviewAnswer struct {
	ID              uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	ReviewSessionID uuid.UUID      `gorm:"type:uuid;not null;index:idx_session_card,unique" json:"review_session_id"`
	ReviewSession   *ReviewSession `gorm:"constraint:OnDelete:CASCADE;foreignKey:ReviewSessionID;references:ID" json:"review_session,omitempty"`
	FlashcardID     uuid.UUID      `gorm:"type:uuid;not null;index:idx_session_card,unique" json:"flashcard_id"`
	Flashcard       *Flashcard     `gorm:"constraint:OnDelete:CASCADE;foreignKey:FlashcardID;references:ID" json:"flashcard,omitempty"`
	Answer          string         `gorm:"not null" json:"answer"`
	Quality         int            `gorm:"not null" json:"quality"`
	EaseAfter       float64        `gorm:"not null" json:"ease_after"`
	IntervalAfter   int            `gorm:"not null" json:"interval_after"`
	AnsweredAt      time.Time      `gorm:"not null" json:"answered_at"`
	CreatedAt       time.Time      `gorm:"not null" json:"created_at"`
	UpdatedAt       time.Time      `gorm:"not null" json:"updated_at"`
	DeletedAt       gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (ReviewAnswer) TableName() string { return "review_answer" }

func (a *ReviewAnswer) BeforeCreate(tx *gorm.DB) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	return nil
}
