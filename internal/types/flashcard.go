package types

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Flashcard struct {
	ID        uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	DeckID    uuid.UUID      `gorm:"type:uuid;not null;index" json:"deck_id"`
	Deck      *FlashcardDeck `gorm:"constraint:OnDelete:CASCADE;foreignKey:DeckID;references:ID" json:"deck,omitempty"`
	Front     string         `gorm:"not null" json:"front"`
	Back      string         `gorm:"not null" json:"back"`
	CreatedAt time.Time      `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time      `gorm:"not null" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (Flashcard) TableName() string { return "flashcard" }

func (f *Flashcard) BeforeCreate(tx *gorm.DB) error {
	if f.ID == uuid.Nil {
		f.ID = uuid.New()
	}
	return nil
}
