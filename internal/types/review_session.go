package types

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const (
	ReviewStatusActive    = "active"
	ReviewStatusCompleted = "completed"
	ReviewStatusAbandoned = "abandoned"
)

// ReviewSession is one bounded run through due and new cards. Queue holds the
// ordered card ids fixed at start time.
type ReviewSession struct {
	ID            uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	UserID        uuid.UUID      `gorm:"type:uuid;not null;index" json:"user_id"`
	User          *User          `gorm:"constraint:OnDelete:CASCADE;foreignKey:UserID;references:ID" json:"user,omitempty"`
	DeckID        *uuid.UUID     `gorm:"type:uuid;index" json:"deck_id,omitempty"`
	Deck          *FlashcardDeck `gorm:"constraint:OnDelete:SET NULL;foreignKey:DeckID;references:ID" json:"deck,omitempty"`
	Status        string         `gorm:"not null;default:'active';index" json:"status"`
	Queue         datatypes.JSON `gorm:"type:jsonb" json:"queue"`
	CardsReviewed int            `gorm:"not null;default:0" json:"cards_reviewed"`
	CorrectCount  int            `gorm:"not null;default:0" json:"correct_count"`
	StartedAt     time.Time      `gorm:"not null" json:"started_at"`
	EndedAt       *time.Time     `gorm:"column:ended_at" json:"ended_at,omitempty"`
	CreatedAt     time.Time      `gorm:"not null" json:"created_at"`
	UpdatedAt     time.Time      `gorm:"not null" json:"updated_at"`
	DeletedAt     gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (ReviewSession) TableName() string { return "review_session" }

func (r *ReviewSession) BeforeCreate(tx *gorm.DB) error {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	return nil
}
