package types

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// PlannerSetting holds one row per user. Times are "HH:MM" in the user's
// timezone; StudyDays is a JSON array of weekday numbers (0 = Sunday).
type PlannerSetting struct {
	ID                     uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	UserID                 uuid.UUID      `gorm:"type:uuid;not null;uniqueIndex" json:"user_id"`
	User                   *User          `gorm:"constraint:OnDelete:CASCADE;foreignKey:UserID;references:ID" json:"user,omitempty"`
	StudyDays              datatypes.JSON `gorm:"type:jsonb;column:study_days" json:"study_days"`
	StudyStartTime         string         `gorm:"not null;default:'08:00'" json:"study_start_time"`
	StudyEndTime           string         `gorm:"not null;default:'22:00'" json:"study_end_time"`
	MaxStudyMinutesPerDay  int            `gorm:"not null;default:240" json:"max_study_minutes_per_day"`
	MinBreakMinutes        int            `gorm:"not null;default:10" json:"min_break_minutes"`
	MinSessionMinutes      int            `gorm:"not null;default:30" json:"min_session_minutes"`
	MaxSessionMinutes      int            `gorm:"not null;default:120" json:"max_session_minutes"`
	RespectPrayerTimes     bool           `gorm:"not null;default:true" json:"respect_prayer_times"`
	PrayerDurationMinutes  int            `gorm:"not null;default:20" json:"prayer_duration_minutes"`
	SameSubjectGapMinutes  int            `gorm:"not null;default:120" json:"same_subject_gap_minutes"`
	CreatedAt              time.Time      `gorm:"not null" json:"created_at"`
	UpdatedAt              time.Time      `gorm:"not null" json:"updated_at"`
	DeletedAt              gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (PlannerSetting) TableName() string { return "planner_setting" }

func (p *PlannerSetting) BeforeCreate(tx *gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}
