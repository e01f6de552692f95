package types

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	CardStateNew        = "new"
	CardStateLearning   = "learning"
	CardStateReview     = "review"
	CardStateRelearning = "relearning"
)

// FlashcardProgress is the per-user scheduling state of one card.
type FlashcardProgress struct {
	ID             uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	UserID         uuid.UUID      `gorm:"type:uuid;not null;index:idx_user_card,unique" json:"user_id"`
	User           *User          `gorm:"constraint:OnDelete:CASCADE;foreignKey:UserID;references:ID" json:"user,omitempty"`
	FlashcardID    uuid.UUID      `gorm:"type:uuid;not null;index:idx_user_card,unique" json:"flashcard_id"`
	Flashcard      *Flashcard     `gorm:"constraint:OnDelete:CASCADE;foreignKey:FlashcardID;references:ID" json:"flashcard,omitempty"`
	State          string         `gorm:"not null;default:'new'" json:"state"`
	Ease           float64        `gorm:"not null;default:2.5" json:"ease"`
	IntervalDays   int            `gorm:"not null;default:0" json:"interval_days"`
	Repetitions    int            `gorm:"not null;default:0" json:"repetitions"`
	Lapses         int            `gorm:"not null;default:0" json:"lapses"`
	DueAt          time.Time      `gorm:"not null;index" json:"due_at"`
	LastReviewedAt *time.Time     `gorm:"column:last_reviewed_at" json:"last_reviewed_at,omitempty"`
	CreatedAt      time.Time      `gorm:"not null" json:"created_at"`
	UpdatedAt      time.Time      `gorm:"not null" json:"updated_at"`
	DeletedAt      gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (FlashcardProgress) TableName() string { return "flashcard_progress" }

func (p *FlashcardProgress) BeforeCreate(tx *gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}
