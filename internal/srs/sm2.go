// Package srs implements the SM-2 spaced-repetition scheduler used for
// flashcard reviews. It is storage-free; callers persist the returned state.
package srs

import (
	"fmt"
	"math"
	"time"
)

type Answer string

const (
	AnswerAgain Answer = "again"
	AnswerHard  Answer = "hard"
	AnswerGood  Answer = "good"
	AnswerEasy  Answer = "easy"
)

const (
	MinEase = 1.30
	MaxEase = 3.00

	QualityFail = 3 // qualities below this reset the card
)

const (
	StateNew        = "new"
	StateLearning   = "learning"
	StateReview     = "review"
	StateRelearning = "relearning"
)

// Quality maps the four-button answer onto the SM-2 0-5 quality scale.
func (a Answer) Quality() (int, error) {
	switch a {
	case AnswerAgain:
		return 0, nil
	case AnswerHard:
		return 2, nil
	case AnswerGood:
		return 4, nil
	case AnswerEasy:
		return 5, nil
	default:
		return 0, fmt.Errorf("unknown answer %q", a)
	}
}

// Card is the scheduling state of one card for one user.
type Card struct {
	State        string
	Ease         float64
	IntervalDays int
	Repetitions  int
	Lapses       int
}

// Result is the updated card plus when it is next due.
type Result struct {
	Card
	Quality int
	DueAt   time.Time
}

// Review applies one graded answer to a card.
//
// The ease update follows SM-2: EF' = EF + (0.1 - (5-q)*(0.08 + (5-q)*0.02)),
// clamped to [MinEase, MaxEase]. A failing quality resets the repetition
// streak and schedules the card again tomorrow; successes walk the 1 day,
// 6 days, then round(interval * EF) ladder, with a 1.3x bonus for easy.
func Review(c Card, a Answer, now time.Time) (Result, error) {
	q, err := a.Quality()
	if err != nil {
		return Result{}, err
	}
	if c.Ease == 0 {
		c.Ease = 2.5
	}

	delta := 0.1 - float64(5-q)*(0.08+float64(5-q)*0.02)
	ease := clampEase(c.Ease + delta)

	next := c
	next.Ease = ease
	if q < QualityFail {
		if c.State == StateReview {
			next.Lapses = c.Lapses + 1
		}
		next.Repetitions = 0
		next.IntervalDays = 1
		next.State = StateRelearning
	} else {
		next.Repetitions = c.Repetitions + 1
		switch next.Repetitions {
		case 1:
			next.IntervalDays = 1
		case 2:
			next.IntervalDays = 6
		default:
			next.IntervalDays = int(math.Round(float64(c.IntervalDays) * ease))
		}
		if a == AnswerEasy {
			next.IntervalDays = int(math.Round(float64(next.IntervalDays) * 1.3))
		}
		if next.IntervalDays < 1 {
			next.IntervalDays = 1
		}
		if next.Repetitions < 2 {
			next.State = StateLearning
		} else {
			next.State = StateReview
		}
	}

	return Result{
		Card:    next,
		Quality: q,
		DueAt:   now.AddDate(0, 0, next.IntervalDays),
	}, nil
}

func clampEase(e float64) float64 {
	if e < MinEase {
		return MinEase
	}
	if e > MaxEase {
		return MaxEase
	}
	return math.Round(e*100) / 100
}
