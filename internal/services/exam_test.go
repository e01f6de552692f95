package services

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/memoapp/planner-backend/internal/scheduling"
)

func TestCreateExamUpdatesSubjectExamDate(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	user := env.seedUser(t)
	subject := env.seedSubject(t, user.ID, "Math", 4, 50, nil)

	at := time.Now().AddDate(0, 0, 12)
	exam, err := env.exams.Create(ctx, user.ID, CreateExamInput{
		SubjectID:   subject.ID,
		Title:       "Midterm",
		ScheduledAt: at,
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if exam.MaxScore != 100 {
		t.Fatalf("default max score = %f, want 100", exam.MaxScore)
	}

	reloaded, err := env.subjectRepo.GetByID(ctx, nil, subject.ID)
	if err != nil {
		t.Fatalf("reload subject: %v", err)
	}
	if reloaded.ExamDate == nil {
		t.Fatal("subject exam date not set")
	}

	// A later exam must not pull the urgency date backwards.
	later := at.AddDate(0, 0, 30)
	if _, err := env.exams.Create(ctx, user.ID, CreateExamInput{
		SubjectID:   subject.ID,
		Title:       "Final",
		ScheduledAt: later,
	}); err != nil {
		t.Fatalf("create later exam: %v", err)
	}
	reloaded, _ = env.subjectRepo.GetByID(ctx, nil, subject.ID)
	if reloaded.ExamDate.After(at.Add(time.Minute)) {
		t.Fatalf("exam date moved to the later exam: %v", reloaded.ExamDate)
	}
}

func TestCreateExamValidation(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	user := env.seedUser(t)
	other := env.seedUser(t)
	subject := env.seedSubject(t, user.ID, "Math", 4, 50, nil)

	var invalid *scheduling.InvalidInputError
	if _, err := env.exams.Create(ctx, user.ID, CreateExamInput{SubjectID: subject.ID, ScheduledAt: time.Now()}); !errors.As(err, &invalid) {
		t.Fatalf("missing title: expected InvalidInputError, got %v", err)
	}
	if _, err := env.exams.Create(ctx, other.ID, CreateExamInput{SubjectID: subject.ID, Title: "x", ScheduledAt: time.Now()}); !errors.Is(err, ErrNotFound) {
		t.Fatalf("foreign subject: expected ErrNotFound, got %v", err)
	}
}

func TestRecordResultBlendsPerformance(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	user := env.seedUser(t)
	subject := env.seedSubject(t, user.ID, "Math", 4, 50, nil)

	exam, err := env.exams.Create(ctx, user.ID, CreateExamInput{
		SubjectID:   subject.ID,
		Title:       "Midterm",
		ScheduledAt: time.Now().AddDate(0, 0, 7),
		MaxScore:    20,
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	updated, err := env.exams.RecordResult(ctx, user.ID, exam.ID, 18)
	if err != nil {
		t.Fatalf("record: %v", err)
	}
	if updated.Score == nil || *updated.Score != 18 || updated.ResultAt == nil {
		t.Fatalf("result not stored: %+v", updated)
	}

	// 0.7 * 50 + 0.3 * 90 = 62.
	reloaded, err := env.subjectRepo.GetByID(ctx, nil, subject.ID)
	if err != nil {
		t.Fatalf("reload subject: %v", err)
	}
	if math.Abs(reloaded.PerformanceScore-62) > 0.001 {
		t.Fatalf("performance = %f, want 62", reloaded.PerformanceScore)
	}

	if _, err := env.exams.RecordResult(ctx, user.ID, exam.ID, 18); err == nil {
		t.Fatal("recording a result twice should fail")
	}
	var invalid *scheduling.InvalidInputError
	exam2, _ := env.exams.Create(ctx, user.ID, CreateExamInput{
		SubjectID: subject.ID, Title: "Quiz", ScheduledAt: time.Now().AddDate(0, 0, 1), MaxScore: 10,
	})
	if _, err := env.exams.RecordResult(ctx, user.ID, exam2.ID, 11); !errors.As(err, &invalid) {
		t.Fatalf("out-of-range score: expected InvalidInputError, got %v", err)
	}
}
