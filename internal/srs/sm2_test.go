package srs

import (
	"testing"
	"time"
)

func TestAnswerQualityMapping(t *testing.T) {
	cases := []struct {
		answer  Answer
		quality int
	}{
		{AnswerAgain, 0},
		{AnswerHard, 2},
		{AnswerGood, 4},
		{AnswerEasy, 5},
	}
	for _, tc := range cases {
		q, err := tc.answer.Quality()
		if err != nil {
			t.Fatalf("Quality(%s) returned error: %v", tc.answer, err)
		}
		if q != tc.quality {
			t.Fatalf("Quality(%s) = %d, want %d", tc.answer, q, tc.quality)
		}
	}
	if _, err := Answer("meh").Quality(); err == nil {
		t.Fatalf("expected error for unknown answer")
	}
}

func TestReviewGoodKeepsEaseAndGrowsInterval(t *testing.T) {
	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	card := Card{State: StateReview, Ease: 2.5, IntervalDays: 6, Repetitions: 2}

	res, err := Review(card, AnswerGood, now)
	if err != nil {
		t.Fatalf("Review returned error: %v", err)
	}
	if res.IntervalDays != 15 {
		t.Fatalf("interval = %d, want 15", res.IntervalDays)
	}
	if res.Ease != 2.5 {
		t.Fatalf("ease = %v, want unchanged 2.5", res.Ease)
	}
	if res.Repetitions != 3 {
		t.Fatalf("repetitions = %d, want 3", res.Repetitions)
	}
	if res.State != StateReview {
		t.Fatalf("state = %s, want %s", res.State, StateReview)
	}
	wantDue := now.AddDate(0, 0, 15)
	if !res.DueAt.Equal(wantDue) {
		t.Fatalf("due = %v, want %v", res.DueAt, wantDue)
	}
}

func TestReviewFailResetsCard(t *testing.T) {
	now := time.Now()
	card := Card{State: StateReview, Ease: 2.0, IntervalDays: 15, Repetitions: 4, Lapses: 1}

	res, err := Review(card, AnswerAgain, now)
	if err != nil {
		t.Fatalf("Review returned error: %v", err)
	}
	if res.IntervalDays != 1 {
		t.Fatalf("interval = %d, want 1", res.IntervalDays)
	}
	if res.Repetitions != 0 {
		t.Fatalf("repetitions = %d, want 0", res.Repetitions)
	}
	if res.Lapses != 2 {
		t.Fatalf("lapses = %d, want 2", res.Lapses)
	}
	if res.State != StateRelearning {
		t.Fatalf("state = %s, want %s", res.State, StateRelearning)
	}
	// 2.0 - 0.8 would undershoot the floor.
	if res.Ease != MinEase {
		t.Fatalf("ease = %v, want clamped to %v", res.Ease, MinEase)
	}
}

func TestReviewFirstSuccessesFollowLadder(t *testing.T) {
	now := time.Now()
	card := Card{State: StateNew}

	res, err := Review(card, AnswerGood, now)
	if err != nil {
		t.Fatalf("Review returned error: %v", err)
	}
	if res.IntervalDays != 1 || res.State != StateLearning {
		t.Fatalf("after first success: interval=%d state=%s, want 1/%s", res.IntervalDays, res.State, StateLearning)
	}

	res, err = Review(res.Card, AnswerGood, now)
	if err != nil {
		t.Fatalf("Review returned error: %v", err)
	}
	if res.IntervalDays != 6 || res.State != StateReview {
		t.Fatalf("after second success: interval=%d state=%s, want 6/%s", res.IntervalDays, res.State, StateReview)
	}
}

func TestReviewEasyAppliesBonus(t *testing.T) {
	now := time.Now()
	card := Card{State: StateReview, Ease: 2.5, IntervalDays: 10, Repetitions: 2}

	res, err := Review(card, AnswerEasy, now)
	if err != nil {
		t.Fatalf("Review returned error: %v", err)
	}
	if res.Ease != 2.6 {
		t.Fatalf("ease = %v, want 2.6", res.Ease)
	}
	// round(10 * 2.6) = 26, then the 1.3x easy bonus.
	if res.IntervalDays != 34 {
		t.Fatalf("interval = %d, want 34", res.IntervalDays)
	}
}

func TestReviewEaseCeiling(t *testing.T) {
	now := time.Now()
	card := Card{State: StateReview, Ease: 2.95, IntervalDays: 6, Repetitions: 2}

	res, err := Review(card, AnswerEasy, now)
	if err != nil {
		t.Fatalf("Review returned error: %v", err)
	}
	if res.Ease != MaxEase {
		t.Fatalf("ease = %v, want capped at %v", res.Ease, MaxEase)
	}
}

func TestReviewHardResetsButSoftensEaseLess(t *testing.T) {
	now := time.Now()
	again, err := Review(Card{State: StateReview, Ease: 2.5, IntervalDays: 10, Repetitions: 3}, AnswerAgain, now)
	if err != nil {
		t.Fatalf("Review returned error: %v", err)
	}
	hard, err := Review(Card{State: StateReview, Ease: 2.5, IntervalDays: 10, Repetitions: 3}, AnswerHard, now)
	if err != nil {
		t.Fatalf("Review returned error: %v", err)
	}
	if hard.IntervalDays != 1 || hard.Repetitions != 0 {
		t.Fatalf("hard should reset the card, got interval=%d reps=%d", hard.IntervalDays, hard.Repetitions)
	}
	if hard.Ease <= again.Ease {
		t.Fatalf("hard ease %v should stay above again ease %v", hard.Ease, again.Ease)
	}
}
