package scheduling

import (
	"testing"
	"time"

	"github.com/google/uuid"
)

var testWeights = Weights{Urgency: 0.4, Weakness: 0.3, Coefficient: 0.2, Staleness: 0.1}

func TestScoreUrgencyBands(t *testing.T) {
	now := time.Date(2026, 4, 1, 12, 0, 0, 0, time.UTC)
	cases := []struct {
		name     string
		daysOut  int
		urgency  float64
	}{
		{"5 days out", 5, 100},
		{"10 days out", 10, 80},
		{"25 days out", 25, 60},
		{"45 days out", 45, 40},
		{"80 days out", 80, 20},
		{"half a year out", 180, 10},
	}
	for _, tc := range cases {
		exam := now.AddDate(0, 0, tc.daysOut)
		_, b := Score(SubjectFacts{Coefficient: 3, PerformanceScore: 50, ExamDate: &exam}, testWeights, 7, 4, now)
		if b.Urgency != tc.urgency {
			t.Fatalf("%s: urgency = %v, want %v", tc.name, b.Urgency, tc.urgency)
		}
	}

	_, b := Score(SubjectFacts{Coefficient: 3, PerformanceScore: 50}, testWeights, 7, 4, now)
	if b.Urgency != noExamUrgency {
		t.Fatalf("no exam: urgency = %v, want %v", b.Urgency, float64(noExamUrgency))
	}
}

func TestScoreNeverStudiedIsFullyStale(t *testing.T) {
	now := time.Now()
	_, b := Score(SubjectFacts{Coefficient: 1, PerformanceScore: 90}, testWeights, 7, 4, now)
	if b.Staleness != 100 {
		t.Fatalf("staleness = %v, want 100", b.Staleness)
	}

	recent := now.Add(-24 * time.Hour)
	_, b = Score(SubjectFacts{Coefficient: 1, PerformanceScore: 90, LastStudiedAt: &recent}, testWeights, 7, 4, now)
	if b.Staleness != 25 {
		t.Fatalf("staleness after 1 of 4 cycle days = %v, want 25", b.Staleness)
	}
}

func TestRankWeakUrgentBeatsStrongIdle(t *testing.T) {
	now := time.Date(2026, 4, 1, 12, 0, 0, 0, time.UTC)
	examSoon := now.AddDate(0, 0, 5)
	studied := now.AddDate(0, 0, -1)

	weakUrgent := SubjectFacts{
		SubjectID:        uuid.MustParse("11111111-1111-1111-1111-111111111111"),
		Coefficient:      4,
		PerformanceScore: 35,
		ExamDate:         &examSoon,
	}
	strongIdle := SubjectFacts{
		SubjectID:        uuid.MustParse("22222222-2222-2222-2222-222222222222"),
		Coefficient:      4,
		PerformanceScore: 85,
		LastStudiedAt:    &studied,
	}

	ranked := Rank([]SubjectFacts{strongIdle, weakUrgent}, testWeights, 7, 4, now)
	if ranked[0].SubjectID != weakUrgent.SubjectID {
		t.Fatalf("expected weak urgent subject first, got %s", ranked[0].SubjectID)
	}
	if ranked[0].Score <= ranked[1].Score {
		t.Fatalf("expected a strict score gap, got %v vs %v", ranked[0].Score, ranked[1].Score)
	}
}

func TestRankDeterministicTieBreaks(t *testing.T) {
	now := time.Date(2026, 4, 1, 12, 0, 0, 0, time.UTC)
	examA := now.AddDate(0, 0, 20)
	examB := now.AddDate(0, 0, 25)

	// Same factors except the exam date, both inside the same urgency band,
	// so scores tie and the earlier exam must win.
	a := SubjectFacts{
		SubjectID:        uuid.MustParse("aaaaaaaa-0000-0000-0000-000000000001"),
		Coefficient:      5,
		PerformanceScore: 60,
		ExamDate:         &examA,
	}
	b := SubjectFacts{
		SubjectID:        uuid.MustParse("bbbbbbbb-0000-0000-0000-000000000002"),
		Coefficient:      5,
		PerformanceScore: 60,
		ExamDate:         &examB,
	}

	first := Rank([]SubjectFacts{b, a}, testWeights, 7, 4, now)
	second := Rank([]SubjectFacts{a, b}, testWeights, 7, 4, now)
	if first[0].SubjectID != a.SubjectID {
		t.Fatalf("earlier exam should rank first, got %s", first[0].SubjectID)
	}
	for i := range first {
		if first[i].SubjectID != second[i].SubjectID {
			t.Fatalf("ranking is input-order dependent at %d", i)
		}
	}

	// Higher coefficient wins before the exam-date tie-break.
	c := a
	c.SubjectID = uuid.MustParse("cccccccc-0000-0000-0000-000000000003")
	c.Coefficient = 6
	c.PerformanceScore = 64.5
	ranked := Rank([]SubjectFacts{a, c}, testWeights, 7, 4, now)
	if ranked[0].Score == ranked[1].Score && ranked[0].Coefficient < ranked[1].Coefficient {
		t.Fatalf("coefficient tie-break not applied")
	}
}

func TestScoreIsDeterministic(t *testing.T) {
	now := time.Now()
	exam := now.AddDate(0, 0, 12)
	last := now.AddDate(0, 0, -2)
	f := SubjectFacts{SubjectID: uuid.New(), Coefficient: 6, PerformanceScore: 42.5, ExamDate: &exam, LastStudiedAt: &last}

	s1, b1 := Score(f, testWeights, 7, 4, now)
	s2, b2 := Score(f, testWeights, 7, 4, now)
	if s1 != s2 || b1 != b2 {
		t.Fatalf("score not deterministic: %v/%v vs %v/%v", s1, b1, s2, b2)
	}
}
