package types

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// PrayerTime is one named prayer window on a given day. StartTime is "HH:MM";
// the blocked window extends for the user's configured prayer duration.
type PrayerTime struct {
	ID        uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	UserID    uuid.UUID      `gorm:"type:uuid;not null;index:idx_prayer_user_date" json:"user_id"`
	User      *User          `gorm:"constraint:OnDelete:CASCADE;foreignKey:UserID;references:ID" json:"user,omitempty"`
	Date      time.Time      `gorm:"type:date;not null;index:idx_prayer_user_date" json:"date"`
	Name      string         `gorm:"not null" json:"name"`
	StartTime string         `gorm:"not null" json:"start_time"`
	CreatedAt time.Time      `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time      `gorm:"not null" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (PrayerTime) TableName() string { return "prayer_time" }

func (p *PrayerTime) BeforeCreate(tx *gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}
