package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/memoapp/planner-backend/internal/scheduling"
	"github.com/memoapp/planner-backend/internal/types"
)

func TestStartRejectsSecondActiveSession(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	user := env.seedUser(t)
	subject := env.seedSubject(t, user.ID, "Math", 4, 50, nil)
	schedule := env.seedSchedule(t, user.ID, types.ScheduleStatusActive)
	now := time.Now()
	first := env.seedSession(t, schedule, subject.ID, now, 60, types.SessionStatusScheduled)
	second := env.seedSession(t, schedule, subject.ID, now.Add(2*time.Hour), 60, types.SessionStatusScheduled)

	if _, err := env.sessions.Start(ctx, user.ID, first.ID); err != nil {
		t.Fatalf("start first: %v", err)
	}
	_, err := env.sessions.Start(ctx, user.ID, second.ID)
	var active *SessionAlreadyActiveError
	if !errors.As(err, &active) {
		t.Fatalf("expected SessionAlreadyActiveError, got %v", err)
	}
	if active.ActiveID != first.ID {
		t.Fatalf("ActiveID = %s, want %s", active.ActiveID, first.ID)
	}

	// A paused session still blocks starting another one.
	if _, err := env.sessions.Pause(ctx, user.ID, first.ID); err != nil {
		t.Fatalf("pause: %v", err)
	}
	if _, err := env.sessions.Start(ctx, user.ID, second.ID); !errors.As(err, &active) {
		t.Fatalf("expected SessionAlreadyActiveError after pause, got %v", err)
	}
}

func TestStartIsRetrySafe(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	user := env.seedUser(t)
	subject := env.seedSubject(t, user.ID, "Math", 4, 50, nil)
	schedule := env.seedSchedule(t, user.ID, types.ScheduleStatusActive)
	session := env.seedSession(t, schedule, subject.ID, time.Now(), 60, types.SessionStatusScheduled)

	started, err := env.sessions.Start(ctx, user.ID, session.ID)
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	if started.Status != types.SessionStatusStarted {
		t.Fatalf("status = %s, want started", started.Status)
	}

	// A retried start of the running session is a no-op.
	again, err := env.sessions.Start(ctx, user.ID, session.ID)
	if err != nil {
		t.Fatalf("repeated start: %v", err)
	}
	if again.ID != session.ID || again.Status != types.SessionStatusStarted {
		t.Fatalf("repeated start returned %s/%s, want the same running session", again.ID, again.Status)
	}

	// Starting a paused session resumes it.
	if _, err := env.sessions.Pause(ctx, user.ID, session.ID); err != nil {
		t.Fatalf("pause: %v", err)
	}
	resumed, err := env.sessions.Start(ctx, user.ID, session.ID)
	if err != nil {
		t.Fatalf("start after pause: %v", err)
	}
	if resumed.Status != types.SessionStatusStarted {
		t.Fatalf("status after restart = %s, want started", resumed.Status)
	}
}

func TestSessionLifecycleToCompleted(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	user := env.seedUser(t)
	subject := env.seedSubject(t, user.ID, "Math", 4, 50, nil)
	schedule := env.seedSchedule(t, user.ID, types.ScheduleStatusActive)
	session := env.seedSession(t, schedule, subject.ID, time.Now(), 60, types.SessionStatusScheduled)

	if _, err := env.sessions.Start(ctx, user.ID, session.ID); err != nil {
		t.Fatalf("start: %v", err)
	}
	if _, err := env.sessions.Pause(ctx, user.ID, session.ID); err != nil {
		t.Fatalf("pause: %v", err)
	}
	if _, err := env.sessions.Resume(ctx, user.ID, session.ID); err != nil {
		t.Fatalf("resume: %v", err)
	}
	done, awarded, err := env.sessions.Complete(ctx, user.ID, session.ID)
	if err != nil {
		t.Fatalf("complete: %v", err)
	}
	if done.Status != types.SessionStatusCompleted || done.CompletedAt == nil {
		t.Fatalf("completion not recorded: %+v", done)
	}
	if awarded <= 0 {
		t.Fatalf("expected completion points, got %d", awarded)
	}

	// Completion touches the subject's last-studied marker.
	reloaded, err := env.subjectRepo.GetByID(ctx, nil, subject.ID)
	if err != nil {
		t.Fatalf("reload subject: %v", err)
	}
	if reloaded.LastStudiedAt == nil {
		t.Fatal("LastStudiedAt not set after completion")
	}

	// Awarding again for the same session is a no-op.
	again, err := env.points.AwardSessionCompletion(ctx, nil, done)
	if err != nil {
		t.Fatalf("second award: %v", err)
	}
	if again != 0 {
		t.Fatalf("duplicate award returned %d points, want 0", again)
	}
	total, err := env.points.Total(ctx, user.ID)
	if err != nil {
		t.Fatalf("total: %v", err)
	}
	if total != int64(awarded) {
		t.Fatalf("total = %d, want %d", total, awarded)
	}
}

func TestInvalidTransitions(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	user := env.seedUser(t)
	subject := env.seedSubject(t, user.ID, "Math", 4, 50, nil)
	schedule := env.seedSchedule(t, user.ID, types.ScheduleStatusActive)

	scheduled := env.seedSession(t, schedule, subject.ID, time.Now(), 60, types.SessionStatusScheduled)
	completed := env.seedSession(t, schedule, subject.ID, time.Now().Add(2*time.Hour), 60, types.SessionStatusCompleted)

	var invalid *InvalidTransitionError
	if _, _, err := env.sessions.Complete(ctx, user.ID, scheduled.ID); !errors.As(err, &invalid) {
		t.Fatalf("complete from scheduled: expected InvalidTransitionError, got %v", err)
	}
	if _, err := env.sessions.Pause(ctx, user.ID, scheduled.ID); !errors.As(err, &invalid) {
		t.Fatalf("pause from scheduled: expected InvalidTransitionError, got %v", err)
	}
	if _, err := env.sessions.Start(ctx, user.ID, completed.ID); !errors.As(err, &invalid) {
		t.Fatalf("start from completed: expected InvalidTransitionError, got %v", err)
	}
	if _, err := env.sessions.Skip(ctx, user.ID, completed.ID); !errors.As(err, &invalid) {
		t.Fatalf("skip from completed: expected InvalidTransitionError, got %v", err)
	}
}

func TestSessionOwnershipChecked(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	owner := env.seedUser(t)
	other := env.seedUser(t)
	subject := env.seedSubject(t, owner.ID, "Math", 4, 50, nil)
	schedule := env.seedSchedule(t, owner.ID, types.ScheduleStatusActive)
	session := env.seedSession(t, schedule, subject.ID, time.Now(), 60, types.SessionStatusScheduled)

	if _, err := env.sessions.Start(ctx, other.ID, session.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for foreign session, got %v", err)
	}
}

func TestRescheduleRejectsOverlap(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	user := env.seedUser(t)
	subject := env.seedSubject(t, user.ID, "Math", 4, 50, nil)
	schedule := env.seedSchedule(t, user.ID, types.ScheduleStatusActive)

	day := time.Now().AddDate(0, 0, 1)
	morning := time.Date(day.Year(), day.Month(), day.Day(), 9, 0, 0, 0, day.Location())
	env.seedSession(t, schedule, subject.ID, morning, 60, types.SessionStatusScheduled)
	moving := env.seedSession(t, schedule, subject.ID, morning.Add(3*time.Hour), 60, types.SessionStatusScheduled)

	_, err := env.sessions.Reschedule(ctx, user.ID, moving.ID, morning.Add(30*time.Minute))
	var overlap *scheduling.OverlapError
	if !errors.As(err, &overlap) {
		t.Fatalf("expected OverlapError, got %v", err)
	}

	moved, err := env.sessions.Reschedule(ctx, user.ID, moving.ID, morning.Add(5*time.Hour))
	if err != nil {
		t.Fatalf("reschedule to free slot: %v", err)
	}
	if !moved.StartsAt.Equal(morning.Add(5 * time.Hour)) {
		t.Fatalf("StartsAt = %v, want %v", moved.StartsAt, morning.Add(5*time.Hour))
	}
	if moved.EndsAt.Sub(moved.StartsAt) != 60*time.Minute {
		t.Fatalf("rescheduling must keep the planned duration")
	}
}

func TestRescheduleRejectsPrayerWindow(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	user := env.seedUser(t)
	subject := env.seedSubject(t, user.ID, "Math", 4, 50, nil)
	schedule := env.seedSchedule(t, user.ID, types.ScheduleStatusActive)

	setting := defaultSetting(user.ID)
	if _, err := env.planner.UpdateSettings(ctx, user.ID, setting); err != nil {
		t.Fatalf("settings: %v", err)
	}
	day := time.Now().AddDate(0, 0, 1)
	midnight := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, day.Location())
	if err := env.planner.SavePrayerTimes(ctx, user.ID, midnight, []*types.PrayerTime{
		{Name: "dhuhr", StartTime: "13:00"},
	}); err != nil {
		t.Fatalf("prayer times: %v", err)
	}
	session := env.seedSession(t, schedule, subject.ID, midnight.Add(9*time.Hour), 60, types.SessionStatusScheduled)

	_, err := env.sessions.Reschedule(ctx, user.ID, session.ID, midnight.Add(12*time.Hour+30*time.Minute))
	var overlap *scheduling.OverlapError
	if !errors.As(err, &overlap) {
		t.Fatalf("expected OverlapError against prayer window, got %v", err)
	}
}

func TestSweepMissedIsIdempotent(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	user := env.seedUser(t)
	subject := env.seedSubject(t, user.ID, "Math", 4, 50, nil)
	schedule := env.seedSchedule(t, user.ID, types.ScheduleStatusActive)

	now := time.Now()
	past := env.seedSession(t, schedule, subject.ID, now.Add(-3*time.Hour), 60, types.SessionStatusScheduled)
	future := env.seedSession(t, schedule, subject.ID, now.Add(3*time.Hour), 60, types.SessionStatusScheduled)

	marked, err := env.sessions.SweepMissed(ctx, now)
	if err != nil {
		t.Fatalf("sweep: %v", err)
	}
	if marked != 1 {
		t.Fatalf("marked = %d, want 1", marked)
	}
	reloaded, _ := env.sessionRepo.GetByID(ctx, nil, past.ID)
	if reloaded.Status != types.SessionStatusMissed {
		t.Fatalf("past session status = %s, want missed", reloaded.Status)
	}
	untouched, _ := env.sessionRepo.GetByID(ctx, nil, future.ID)
	if untouched.Status != types.SessionStatusScheduled {
		t.Fatalf("future session status = %s, want scheduled", untouched.Status)
	}

	again, err := env.sessions.SweepMissed(ctx, now)
	if err != nil {
		t.Fatalf("second sweep: %v", err)
	}
	if again != 0 {
		t.Fatalf("second sweep marked %d, want 0", again)
	}
}

func TestPinMarksSessionImmovable(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	user := env.seedUser(t)
	subject := env.seedSubject(t, user.ID, "Math", 4, 50, nil)
	schedule := env.seedSchedule(t, user.ID, types.ScheduleStatusActive)
	session := env.seedSession(t, schedule, subject.ID, time.Now().Add(time.Hour), 60, types.SessionStatusScheduled)

	pinned, err := env.sessions.Pin(ctx, user.ID, session.ID)
	if err != nil {
		t.Fatalf("pin: %v", err)
	}
	if !pinned.Pinned {
		t.Fatal("session not pinned")
	}
}
