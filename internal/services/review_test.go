package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/memoapp/planner-backend/internal/srs"
	"github.com/memoapp/planner-backend/internal/types"
)

func TestStartReviewSessionTwice(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	user := env.seedUser(t)
	env.seedDeckWithCards(t, user.ID, 3)

	if _, _, err := env.review.StartSession(ctx, user.ID, nil); err != nil {
		t.Fatalf("start: %v", err)
	}
	_, _, err := env.review.StartSession(ctx, user.ID, nil)
	var active *SessionAlreadyActiveError
	if !errors.As(err, &active) {
		t.Fatalf("expected SessionAlreadyActiveError, got %v", err)
	}
}

func TestOneActiveReviewSessionPerUserEnforcedByIndex(t *testing.T) {
	env := newTestEnv(t)
	user := env.seedUser(t)

	// Even a writer that skips the service check cannot create a second
	// active session for the same user.
	first := &types.ReviewSession{UserID: user.ID, Status: types.ReviewStatusActive, StartedAt: time.Now()}
	if err := env.db.Create(first).Error; err != nil {
		t.Fatalf("first insert: %v", err)
	}
	second := &types.ReviewSession{UserID: user.ID, Status: types.ReviewStatusActive, StartedAt: time.Now()}
	if err := env.db.Create(second).Error; err == nil {
		t.Fatal("second active session insert should violate the unique index")
	}

	// Once the first session ends, a new active one is allowed.
	if err := env.db.Model(first).Update("status", types.ReviewStatusCompleted).Error; err != nil {
		t.Fatalf("complete first: %v", err)
	}
	third := &types.ReviewSession{UserID: user.ID, Status: types.ReviewStatusActive, StartedAt: time.Now()}
	if err := env.db.Create(third).Error; err != nil {
		t.Fatalf("insert after completion: %v", err)
	}
}

func TestReviewSessionAnswerFlow(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	user := env.seedUser(t)
	_, cards := env.seedDeckWithCards(t, user.ID, 2)

	session, queue, err := env.review.StartSession(ctx, user.ID, nil)
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	if len(queue) != 2 {
		t.Fatalf("queue length = %d, want 2", len(queue))
	}
	for _, item := range queue {
		if item.State != types.CardStateNew {
			t.Fatalf("fresh card state = %s, want new", item.State)
		}
	}

	good, err := env.review.Answer(ctx, user.ID, session.ID, cards[0].ID, srs.AnswerGood)
	if err != nil {
		t.Fatalf("answer good: %v", err)
	}
	if good.Quality != 4 {
		t.Fatalf("good quality = %d, want 4", good.Quality)
	}
	if good.Progress.IntervalDays != 1 || good.Progress.Repetitions != 1 {
		t.Fatalf("first success should land on 1 day, got %+v", good.Progress)
	}
	if good.Progress.State != types.CardStateLearning {
		t.Fatalf("state = %s, want learning", good.Progress.State)
	}
	if good.PointsAwarded == 0 {
		t.Fatal("expected points for a review answer")
	}
	if good.Remaining != 1 {
		t.Fatalf("remaining = %d, want 1", good.Remaining)
	}

	fail, err := env.review.Answer(ctx, user.ID, session.ID, cards[1].ID, srs.AnswerAgain)
	if err != nil {
		t.Fatalf("answer again: %v", err)
	}
	if fail.Quality != 0 {
		t.Fatalf("again quality = %d, want 0", fail.Quality)
	}
	if fail.Progress.IntervalDays != 1 || fail.Progress.Repetitions != 0 {
		t.Fatalf("failed card should reset, got %+v", fail.Progress)
	}

	reloaded, err := env.review.GetSession(ctx, user.ID, session.ID)
	if err != nil {
		t.Fatalf("reload session: %v", err)
	}
	if reloaded.CardsReviewed != 2 || reloaded.CorrectCount != 1 {
		t.Fatalf("counters = %d/%d, want 2/1", reloaded.CardsReviewed, reloaded.CorrectCount)
	}

	done, err := env.review.CompleteSession(ctx, user.ID, session.ID)
	if err != nil {
		t.Fatalf("complete: %v", err)
	}
	if done.Status != types.ReviewStatusCompleted || done.EndedAt == nil {
		t.Fatalf("completion not recorded: %+v", done)
	}
	if _, err := env.review.CompleteSession(ctx, user.ID, session.ID); err == nil {
		t.Fatal("completing twice should fail")
	}
}

func TestAnswerRejectsCardOutsideQueue(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	user := env.seedUser(t)
	_, cards := env.seedDeckWithCards(t, user.ID, 1)

	session, _, err := env.review.StartSession(ctx, user.ID, nil)
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	if _, err := env.review.Answer(ctx, user.ID, session.ID, user.ID, srs.AnswerGood); err == nil {
		t.Fatal("answering a card outside the queue should fail")
	}
	if _, err := env.review.Answer(ctx, user.ID, session.ID, cards[0].ID, srs.Answer("maybe")); err == nil {
		t.Fatal("unknown answer should fail")
	}
}

func TestDueCardsComeBeforeNewOnes(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	user := env.seedUser(t)
	_, cards := env.seedDeckWithCards(t, user.ID, 3)

	// One card reviewed long ago and overdue.
	overdue := &types.FlashcardProgress{
		UserID:      user.ID,
		FlashcardID: cards[2].ID,
		State:       types.CardStateReview,
		Ease:        2.5,
		Repetitions: 2,
		DueAt:       time.Now().AddDate(0, 0, -2),
	}
	if err := env.db.Create(overdue).Error; err != nil {
		t.Fatalf("seed progress: %v", err)
	}

	queue, err := env.review.DueCards(ctx, user.ID, nil)
	if err != nil {
		t.Fatalf("due cards: %v", err)
	}
	if len(queue) != 3 {
		t.Fatalf("queue length = %d, want 3", len(queue))
	}
	if queue[0].Card.ID != cards[2].ID {
		t.Fatalf("overdue card should lead the queue, got %s", queue[0].Card.ID)
	}
	if queue[0].State != types.CardStateReview {
		t.Fatalf("leading state = %s, want review", queue[0].State)
	}
}

func TestReviewStatsAndForecast(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	user := env.seedUser(t)
	_, cards := env.seedDeckWithCards(t, user.ID, 2)

	session, _, err := env.review.StartSession(ctx, user.ID, nil)
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	if _, err := env.review.Answer(ctx, user.ID, session.ID, cards[0].ID, srs.AnswerGood); err != nil {
		t.Fatalf("answer: %v", err)
	}
	if _, err := env.review.Answer(ctx, user.ID, session.ID, cards[1].ID, srs.AnswerAgain); err != nil {
		t.Fatalf("answer: %v", err)
	}

	stats, err := env.review.Stats(ctx, user.ID)
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if stats.AnswersLast30 != 2 {
		t.Fatalf("answers = %d, want 2", stats.AnswersLast30)
	}
	if stats.RetentionRate != 0.5 {
		t.Fatalf("retention = %f, want 0.5", stats.RetentionRate)
	}

	forecast, err := env.review.Forecast(ctx, user.ID)
	if err != nil {
		t.Fatalf("forecast: %v", err)
	}
	if len(forecast) != 7 {
		t.Fatalf("forecast days = %d, want 7", len(forecast))
	}
	// Both cards were scheduled one day out.
	total := int64(0)
	for _, day := range forecast {
		total += day.Due
	}
	if total != 2 {
		t.Fatalf("forecast total = %d, want 2", total)
	}
}

func TestAbandonSession(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	user := env.seedUser(t)
	env.seedDeckWithCards(t, user.ID, 1)

	session, _, err := env.review.StartSession(ctx, user.ID, nil)
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	abandoned, err := env.review.AbandonSession(ctx, user.ID, session.ID)
	if err != nil {
		t.Fatalf("abandon: %v", err)
	}
	if abandoned.Status != types.ReviewStatusAbandoned {
		t.Fatalf("status = %s, want abandoned", abandoned.Status)
	}

	// Abandoning frees the user to start a fresh session.
	if _, _, err := env.review.StartSession(ctx, user.ID, nil); err != nil {
		t.Fatalf("restart after abandon: %v", err)
	}
}
