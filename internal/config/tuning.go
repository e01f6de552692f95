package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/memoapp/planner-backend/internal/logger"
)

// Tuning collects the planner knobs an operator can override with a YAML
// file. Anything left zero in the file keeps its default.
type Tuning struct {
	Priority PriorityTuning `yaml:"priority"`
	Session  SessionTuning  `yaml:"session"`
	Points   PointsTuning   `yaml:"points"`
	Review   ReviewTuning   `yaml:"review"`
}

type PriorityTuning struct {
	UrgencyWeight     float64 `yaml:"urgency_weight"`
	WeaknessWeight    float64 `yaml:"weakness_weight"`
	CoefficientWeight float64 `yaml:"coefficient_weight"`
	StalenessWeight   float64 `yaml:"staleness_weight"`
	// TargetCycleDays is how often every subject should ideally be touched;
	// staleness saturates at this many days since the last study.
	TargetCycleDays int `yaml:"target_cycle_days"`
	MaxCoefficient  int `yaml:"max_coefficient"`
}

type SessionTuning struct {
	BaseMinutes           int     `yaml:"base_minutes"`
	PerCoefficientMinutes int     `yaml:"per_coefficient_minutes"`
	BufferRate            float64 `yaml:"buffer_rate"`
	RoundToMinutes        int     `yaml:"round_to_minutes"`
	HorizonDays           int     `yaml:"horizon_days"`
}

type PointsTuning struct {
	CompletionBase     int `yaml:"completion_base"`
	LongSessionBonus   int `yaml:"long_session_bonus"`
	LongSessionMinutes int `yaml:"long_session_minutes"`
	StreakBonus        int `yaml:"streak_bonus"`
	StreakDays         int `yaml:"streak_days"`
	OnTimeBonus        int `yaml:"on_time_bonus"`
	OnTimeSlackMinutes int `yaml:"on_time_slack_minutes"`
	CompletionCap      int `yaml:"completion_cap"`
	ReviewAnswer       int `yaml:"review_answer"`
}

type ReviewTuning struct {
	MaxDuePerSession int `yaml:"max_due_per_session"`
	MaxNewPerSession int `yaml:"max_new_per_session"`
	ForecastDays     int `yaml:"forecast_days"`
}

func DefaultTuning() Tuning {
	return Tuning{
		Priority: PriorityTuning{
			UrgencyWeight:     0.4,
			WeaknessWeight:    0.3,
			CoefficientWeight: 0.2,
			StalenessWeight:   0.1,
			TargetCycleDays:   4,
			MaxCoefficient:    7,
		},
		Session: SessionTuning{
			BaseMinutes:           30,
			PerCoefficientMinutes: 10,
			BufferRate:            0.20,
			RoundToMinutes:        5,
			HorizonDays:           7,
		},
		Points: PointsTuning{
			CompletionBase:     10,
			LongSessionBonus:   5,
			LongSessionMinutes: 45,
			StreakBonus:        5,
			StreakDays:         3,
			OnTimeBonus:        2,
			OnTimeSlackMinutes: 5,
			CompletionCap:      25,
			ReviewAnswer:       2,
		},
		Review: ReviewTuning{
			MaxDuePerSession: 50,
			MaxNewPerSession: 10,
			ForecastDays:     7,
		},
	}
}

// LoadTuning reads the YAML file at path over the defaults. An empty path or
// a missing file yields the defaults unchanged.
func LoadTuning(path string, log *logger.Logger) (Tuning, error) {
	t := DefaultTuning()
	if path == "" {
		return t, nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			if log != nil {
				log.Warn("Tuning file not found, using defaults", "path", path)
			}
			return t, nil
		}
		return t, fmt.Errorf("read tuning file: %w", err)
	}
	var overrides Tuning
	if err := yaml.Unmarshal(raw, &overrides); err != nil {
		return t, fmt.Errorf("parse tuning file: %w", err)
	}
	t.merge(overrides)
	if log != nil {
		log.Info("Loaded planner tuning overrides", "path", path)
	}
	return t, nil
}

func (t *Tuning) merge(o Tuning) {
	mergeFloat(&t.Priority.UrgencyWeight, o.Priority.UrgencyWeight)
	mergeFloat(&t.Priority.WeaknessWeight, o.Priority.WeaknessWeight)
	mergeFloat(&t.Priority.CoefficientWeight, o.Priority.CoefficientWeight)
	mergeFloat(&t.Priority.StalenessWeight, o.Priority.StalenessWeight)
	mergeInt(&t.Priority.TargetCycleDays, o.Priority.TargetCycleDays)
	mergeInt(&t.Priority.MaxCoefficient, o.Priority.MaxCoefficient)
	mergeInt(&t.Session.BaseMinutes, o.Session.BaseMinutes)
	mergeInt(&t.Session.PerCoefficientMinutes, o.Session.PerCoefficientMinutes)
	mergeFloat(&t.Session.BufferRate, o.Session.BufferRate)
	mergeInt(&t.Session.RoundToMinutes, o.Session.RoundToMinutes)
	mergeInt(&t.Session.HorizonDays, o.Session.HorizonDays)
	mergeInt(&t.Points.CompletionBase, o.Points.CompletionBase)
	mergeInt(&t.Points.LongSessionBonus, o.Points.LongSessionBonus)
	mergeInt(&t.Points.LongSessionMinutes, o.Points.LongSessionMinutes)
	mergeInt(&t.Points.StreakBonus, o.Points.StreakBonus)
	mergeInt(&t.Points.StreakDays, o.Points.StreakDays)
	mergeInt(&t.Points.OnTimeBonus, o.Points.OnTimeBonus)
	mergeInt(&t.Points.OnTimeSlackMinutes, o.Points.OnTimeSlackMinutes)
	mergeInt(&t.Points.CompletionCap, o.Points.CompletionCap)
	mergeInt(&t.Points.ReviewAnswer, o.Points.ReviewAnswer)
	mergeInt(&t.Review.MaxDuePerSession, o.Review.MaxDuePerSession)
	mergeInt(&t.Review.MaxNewPerSession, o.Review.MaxNewPerSession)
	mergeInt(&t.Review.ForecastDays, o.Review.ForecastDays)
}

func mergeInt(dst *int, v int) {
	if v != 0 {
		*dst = v
	}
}

func mergeFloat(dst *float64, v float64) {
	if v != 0 {
		*dst = v
	}
}
