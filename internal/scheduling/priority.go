package scheduling

import (
	"math"
	"sort"
	"time"

	"github.com/google/uuid"
)

// Weights controls the blend of the four priority factors. They do not need
// to sum to 1; the score normalizes by their total.
type Weights struct {
	Urgency     float64
	Weakness    float64
	Coefficient float64
	Staleness   float64
}

// SubjectFacts is the storage-free input the priority engine scores.
type SubjectFacts struct {
	SubjectID        uuid.UUID
	Coefficient      int
	PerformanceScore float64
	ExamDate         *time.Time
	LastStudiedAt    *time.Time
}

// FactorBreakdown holds each factor on a 0-100 scale, before weighting.
type FactorBreakdown struct {
	Urgency     float64 `json:"urgency"`
	Weakness    float64 `json:"weakness"`
	Coefficient float64 `json:"coefficient"`
	Staleness   float64 `json:"staleness"`
}

type RankedSubject struct {
	SubjectFacts
	Score   float64
	Factors FactorBreakdown
}

const noExamUrgency = 15

// urgencyScore maps days until the exam into bands. A subject with no
// upcoming exam keeps a small constant urgency so it still gets scheduled.
func urgencyScore(examDate *time.Time, now time.Time) float64 {
	if examDate == nil {
		return noExamUrgency
	}
	days := examDate.Sub(now).Hours() / 24
	if days < 0 {
		return noExamUrgency
	}
	switch {
	case days <= 7:
		return 100
	case days <= 14:
		return 80
	case days <= 30:
		return 60
	case days <= 60:
		return 40
	case days <= 90:
		return 20
	default:
		return 10
	}
}

func stalenessScore(lastStudiedAt *time.Time, targetCycleDays int, now time.Time) float64 {
	if lastStudiedAt == nil {
		return 100
	}
	if targetCycleDays <= 0 {
		targetCycleDays = 1
	}
	days := now.Sub(*lastStudiedAt).Hours() / 24
	if days < 0 {
		days = 0
	}
	ratio := days / float64(targetCycleDays)
	if ratio > 1 {
		ratio = 1
	}
	return ratio * 100
}

// Score computes the weighted priority of one subject along with its factor
// breakdown. The result is on a 0-100 scale.
func Score(f SubjectFacts, w Weights, maxCoefficient, targetCycleDays int, now time.Time) (float64, FactorBreakdown) {
	if maxCoefficient <= 0 {
		maxCoefficient = 7
	}
	b := FactorBreakdown{
		Urgency:     urgencyScore(f.ExamDate, now),
		Weakness:    clamp(100-f.PerformanceScore, 0, 100),
		Coefficient: clamp(float64(f.Coefficient)/float64(maxCoefficient)*100, 0, 100),
		Staleness:   stalenessScore(f.LastStudiedAt, targetCycleDays, now),
	}
	total := w.Urgency + w.Weakness + w.Coefficient + w.Staleness
	if total <= 0 {
		return 0, b
	}
	score := (w.Urgency*b.Urgency + w.Weakness*b.Weakness + w.Coefficient*b.Coefficient + w.Staleness*b.Staleness) / total
	return math.Round(score*100) / 100, b
}

// Rank scores every subject and orders them by score descending. Ties break
// on coefficient descending, then earliest exam date, then subject id, so the
// ordering is deterministic for identical inputs.
func Rank(facts []SubjectFacts, w Weights, maxCoefficient, targetCycleDays int, now time.Time) []RankedSubject {
	out := make([]RankedSubject, 0, len(facts))
	for _, f := range facts {
		score, breakdown := Score(f, w, maxCoefficient, targetCycleDays, now)
		out = append(out, RankedSubject{SubjectFacts: f, Score: score, Factors: breakdown})
	}
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.Score != b.Score {
			return a.Score > b.Score
		}
		if a.Coefficient != b.Coefficient {
			return a.Coefficient > b.Coefficient
		}
		ae, be := examOrInfinity(a.ExamDate), examOrInfinity(b.ExamDate)
		if !ae.Equal(be) {
			return ae.Before(be)
		}
		return a.SubjectID.String() < b.SubjectID.String()
	})
	return out
}

func examOrInfinity(t *time.Time) time.Time {
	if t == nil {
		return time.Unix(1<<62, 0)
	}
	return *t
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
