package types

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type FlashcardDeck struct {
	ID        uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	UserID    uuid.UUID      `gorm:"type:uuid;not null;index" json:"user_id"`
	User      *User          `gorm:"constraint:OnDelete:CASCADE;foreignKey:UserID;references:ID" json:"user,omitempty"`
	SubjectID *uuid.UUID     `gorm:"type:uuid;index" json:"subject_id,omitempty"`
	Subject   *Subject       `gorm:"constraint:OnDelete:SET NULL;foreignKey:SubjectID;references:ID" json:"subject,omitempty"`
	Name      string         `gorm:"not null" json:"name"`
	CreatedAt time.Time      `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time      `gorm:"not null" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (FlashcardDeck) TableName() string { return "flashcard_deck" }

func (d *FlashcardDeck) BeforeCreate(tx *gorm.DB) error {
	if d.ID == uuid.Nil {
		d.ID = uuid.New()
	}
	return nil
}
