package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/memoapp/planner-backend/internal/scheduling"
	"github.com/memoapp/planner-backend/internal/types"
)

func TestGenerateSchedulePlacesSessionsForAllSubjects(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	user := env.seedUser(t)
	math := env.seedSubject(t, user.ID, "Math", 7, 40, days(10))
	bio := env.seedSubject(t, user.ID, "Biology", 3, 70, days(30))

	view, err := env.planner.GenerateSchedule(ctx, user.ID, GenerateInput{HorizonDays: 7})
	if err != nil {
		t.Fatalf("GenerateSchedule: %v", err)
	}
	if view.Schedule.Status != types.ScheduleStatusDraft {
		t.Fatalf("new schedule status = %s, want draft", view.Schedule.Status)
	}
	if len(view.Sessions) == 0 {
		t.Fatal("expected sessions to be planned")
	}
	minutes := map[string]int{}
	for _, s := range view.Sessions {
		minutes[s.SubjectID.String()] += s.PlannedMinutes
		if s.Status != types.SessionStatusScheduled {
			t.Fatalf("session status = %s, want scheduled", s.Status)
		}
		if s.PlannedMinutes < 30 || s.PlannedMinutes > 120 {
			t.Fatalf("planned minutes %d outside configured bounds", s.PlannedMinutes)
		}
	}
	if minutes[math.ID.String()] == 0 || minutes[bio.ID.String()] == 0 {
		t.Fatalf("every subject should get study time, got %v", minutes)
	}
	if minutes[math.ID.String()] < minutes[bio.ID.String()] {
		t.Fatalf("high-coefficient weak subject got less time (%d) than the strong one (%d)",
			minutes[math.ID.String()], minutes[bio.ID.String()])
	}
}

func TestGenerateScheduleDoesNotPlanIntoThePast(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	user := env.seedUser(t)
	env.seedSubject(t, user.ID, "Math", 5, 40, days(10))

	now := time.Now()
	minuteFloor := time.Date(now.Year(), now.Month(), now.Day(), now.Hour(), now.Minute(), 0, 0, now.Location())

	view, err := env.planner.GenerateSchedule(ctx, user.ID, GenerateInput{HorizonDays: 3})
	if err != nil {
		t.Fatalf("GenerateSchedule: %v", err)
	}
	if len(view.Sessions) == 0 {
		t.Fatal("expected sessions to be planned")
	}
	for _, s := range view.Sessions {
		if s.StartsAt.Before(minuteFloor) {
			t.Fatalf("session %s starts at %v, before generation time %v", s.ID, s.StartsAt, minuteFloor)
		}
	}
}

func TestGenerateScheduleWithoutSubjects(t *testing.T) {
	env := newTestEnv(t)
	user := env.seedUser(t)

	_, err := env.planner.GenerateSchedule(context.Background(), user.ID, GenerateInput{})
	var invalid *scheduling.InvalidInputError
	if !errors.As(err, &invalid) {
		t.Fatalf("expected InvalidInputError, got %v", err)
	}
}

func TestActivateScheduleSupersedesPrevious(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	user := env.seedUser(t)
	env.seedSubject(t, user.ID, "Math", 5, 50, days(14))

	first, err := env.planner.GenerateSchedule(ctx, user.ID, GenerateInput{HorizonDays: 5})
	if err != nil {
		t.Fatalf("generate first: %v", err)
	}
	if _, err := env.planner.ActivateSchedule(ctx, user.ID, first.Schedule.ID); err != nil {
		t.Fatalf("activate first: %v", err)
	}

	second, err := env.planner.GenerateSchedule(ctx, user.ID, GenerateInput{HorizonDays: 5})
	if err != nil {
		t.Fatalf("generate second: %v", err)
	}
	if _, err := env.planner.ActivateSchedule(ctx, user.ID, second.Schedule.ID); err != nil {
		t.Fatalf("activate second: %v", err)
	}

	active, err := env.planner.GetActiveSchedule(ctx, user.ID)
	if err != nil {
		t.Fatalf("GetActiveSchedule: %v", err)
	}
	if active.Schedule.ID != second.Schedule.ID {
		t.Fatalf("active schedule = %s, want %s", active.Schedule.ID, second.Schedule.ID)
	}

	superseded, err := env.scheduleRepo.GetByID(ctx, nil, first.Schedule.ID)
	if err != nil {
		t.Fatalf("reload first: %v", err)
	}
	if superseded.Status != types.ScheduleStatusSuperseded {
		t.Fatalf("first schedule status = %s, want superseded", superseded.Status)
	}
	oldSessions, err := env.sessionRepo.ListBySchedule(ctx, nil, first.Schedule.ID)
	if err != nil {
		t.Fatalf("list first sessions: %v", err)
	}
	for _, s := range oldSessions {
		if s.Status != types.SessionStatusCancelled {
			t.Fatalf("superseded session status = %s, want cancelled", s.Status)
		}
	}
}

func TestActivateScheduleIsIdempotent(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	user := env.seedUser(t)
	env.seedSubject(t, user.ID, "Math", 4, 50, nil)

	view, err := env.planner.GenerateSchedule(ctx, user.ID, GenerateInput{HorizonDays: 3})
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if _, err := env.planner.ActivateSchedule(ctx, user.ID, view.Schedule.ID); err != nil {
		t.Fatalf("first activate: %v", err)
	}
	if _, err := env.planner.ActivateSchedule(ctx, user.ID, view.Schedule.ID); err != nil {
		t.Fatalf("second activate: %v", err)
	}
	sessions, err := env.sessionRepo.ListBySchedule(ctx, nil, view.Schedule.ID)
	if err != nil {
		t.Fatalf("list sessions: %v", err)
	}
	for _, s := range sessions {
		if s.Status != types.SessionStatusScheduled {
			t.Fatalf("re-activation should not touch its own sessions, got %s", s.Status)
		}
	}
}

func TestGetActiveScheduleWhenNoneExists(t *testing.T) {
	env := newTestEnv(t)
	user := env.seedUser(t)

	_, err := env.planner.GetActiveSchedule(context.Background(), user.ID)
	var noActive *NoActiveScheduleError
	if !errors.As(err, &noActive) {
		t.Fatalf("expected NoActiveScheduleError, got %v", err)
	}
}

func TestDeleteScheduleRefusesActive(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	user := env.seedUser(t)
	env.seedSubject(t, user.ID, "Math", 4, 50, nil)

	view, err := env.planner.GenerateSchedule(ctx, user.ID, GenerateInput{HorizonDays: 3})
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if _, err := env.planner.ActivateSchedule(ctx, user.ID, view.Schedule.ID); err != nil {
		t.Fatalf("activate: %v", err)
	}
	err = env.planner.DeleteSchedule(ctx, user.ID, view.Schedule.ID)
	var invalid *scheduling.InvalidInputError
	if !errors.As(err, &invalid) {
		t.Fatalf("expected InvalidInputError deleting active schedule, got %v", err)
	}
}

func TestUpdateSettingsValidation(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	user := env.seedUser(t)

	cases := []struct {
		name   string
		mutate func(s *types.PlannerSetting)
	}{
		{"bad start clock", func(s *types.PlannerSetting) { s.StudyStartTime = "25:99" }},
		{"end before start", func(s *types.PlannerSetting) { s.StudyStartTime = "20:00"; s.StudyEndTime = "08:00" }},
		{"max below min", func(s *types.PlannerSetting) { s.MinSessionMinutes = 60; s.MaxSessionMinutes = 30 }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			setting := defaultSetting(user.ID)
			tc.mutate(setting)
			_, err := env.planner.UpdateSettings(ctx, user.ID, setting)
			var invalid *scheduling.InvalidInputError
			if !errors.As(err, &invalid) {
				t.Fatalf("expected InvalidInputError, got %v", err)
			}
		})
	}
}

func TestUpdateSettingsRoundTrips(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	user := env.seedUser(t)

	setting := defaultSetting(user.ID)
	setting.MaxStudyMinutesPerDay = 180
	setting.StudyStartTime = "09:00"
	if _, err := env.planner.UpdateSettings(ctx, user.ID, setting); err != nil {
		t.Fatalf("UpdateSettings: %v", err)
	}
	got, err := env.planner.GetSettings(ctx, user.ID)
	if err != nil {
		t.Fatalf("GetSettings: %v", err)
	}
	if got.MaxStudyMinutesPerDay != 180 || got.StudyStartTime != "09:00" {
		t.Fatalf("settings did not persist: %+v", got)
	}
}

func TestGenerateScheduleAvoidsPrayerWindows(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	user := env.seedUser(t)
	env.seedSubject(t, user.ID, "Math", 5, 50, days(7))

	start := time.Now().AddDate(0, 0, 1)
	day := time.Date(start.Year(), start.Month(), start.Day(), 0, 0, 0, 0, start.Location())
	rows := []*types.PrayerTime{
		{Name: "dhuhr", StartTime: "12:30"},
		{Name: "asr", StartTime: "15:45"},
	}
	if err := env.planner.SavePrayerTimes(ctx, user.ID, day, rows); err != nil {
		t.Fatalf("SavePrayerTimes: %v", err)
	}

	view, err := env.planner.GenerateSchedule(ctx, user.ID, GenerateInput{StartDate: day, HorizonDays: 2})
	if err != nil {
		t.Fatalf("GenerateSchedule: %v", err)
	}
	// Default prayer duration is 20 minutes.
	blocked := []scheduling.Window{{StartMinute: 12*60 + 30, EndMinute: 12*60 + 50}, {StartMinute: 15*60 + 45, EndMinute: 16*60 + 5}}
	for _, s := range view.Sessions {
		if !sameDate(s.StartsAt, day) {
			continue
		}
		startMin := s.StartsAt.Hour()*60 + s.StartsAt.Minute()
		endMin := s.EndsAt.Hour()*60 + s.EndsAt.Minute()
		for _, b := range blocked {
			if startMin < b.EndMinute && endMin > b.StartMinute {
				t.Fatalf("session %s overlaps prayer window %+v", s.ID, b)
			}
		}
	}
}

func sameDate(a, b time.Time) bool {
	return a.Year() == b.Year() && a.Month() == b.Month() && a.Day() == b.Day()
}
