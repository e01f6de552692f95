package scheduling

import (
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
)

func testConfig() GeneratorConfig {
	return GeneratorConfig{
		MinSessionMinutes:     30,
		MaxSessionMinutes:     120,
		MaxDailyMinutes:       240,
		BreakMinutes:          10,
		SameSubjectGapMinutes: 120,
		BaseMinutes:           30,
		PerCoefficientMinutes: 10,
		BufferRate:            0.20,
		RoundToMinutes:        5,
	}
}

func testDays(n int) []Day {
	base := time.Date(2026, 4, 6, 0, 0, 0, 0, time.UTC)
	days := make([]Day, 0, n)
	for i := 0; i < n; i++ {
		days = append(days, Day{
			Date:        base.AddDate(0, 0, i),
			StartMinute: 8 * 60,
			EndMinute:   22 * 60,
		})
	}
	return days
}

func TestSessionMinutesScalesWithCoefficient(t *testing.T) {
	cfg := testConfig()
	cases := []struct {
		coefficient int
		want        int
	}{
		{1, 35},  // 30 * 1.2 = 36, rounded to 5
		{4, 70},  // 60 * 1.2
		{7, 110}, // 90 * 1.2 = 108, rounded to 5
	}
	for _, tc := range cases {
		if got := SessionMinutes(tc.coefficient, cfg); got != tc.want {
			t.Fatalf("SessionMinutes(%d) = %d, want %d", tc.coefficient, got, tc.want)
		}
	}

	cfg.MaxSessionMinutes = 60
	if got := SessionMinutes(7, cfg); got != 60 {
		t.Fatalf("SessionMinutes should clamp to max, got %d", got)
	}
}

func TestGenerateProducesNoOverlaps(t *testing.T) {
	cfg := testConfig()
	demands := []SubjectDemand{
		{SubjectID: uuid.MustParse("11111111-1111-1111-1111-111111111111"), Coefficient: 6, Weight: 80},
		{SubjectID: uuid.MustParse("22222222-2222-2222-2222-222222222222"), Coefficient: 4, Weight: 60},
		{SubjectID: uuid.MustParse("33333333-3333-3333-3333-333333333333"), Coefficient: 2, Weight: 40},
	}
	planned, err := Generate(testDays(7), demands, cfg)
	if err != nil {
		t.Fatalf("Generate returned error: %v", err)
	}
	if len(planned) == 0 {
		t.Fatalf("expected sessions to be planned")
	}
	byDay := map[time.Time][]PlannedSession{}
	for _, p := range planned {
		byDay[p.Date] = append(byDay[p.Date], p)
	}
	for date, sessions := range byDay {
		for i := 0; i < len(sessions); i++ {
			for j := i + 1; j < len(sessions); j++ {
				a, b := sessions[i], sessions[j]
				if a.StartMinute < b.EndMinute && a.EndMinute > b.StartMinute {
					t.Fatalf("overlap on %s: [%d,%d) vs [%d,%d)", date, a.StartMinute, a.EndMinute, b.StartMinute, b.EndMinute)
				}
			}
		}
	}
}

func TestGenerateRespectsBlockedWindows(t *testing.T) {
	cfg := testConfig()
	days := testDays(3)
	// Midday prayer window on every day.
	for i := range days {
		days[i].Blocked = []Window{{StartMinute: 12 * 60, EndMinute: 12*60 + 20}}
	}
	demands := []SubjectDemand{
		{SubjectID: uuid.New(), Coefficient: 5, Weight: 70},
		{SubjectID: uuid.New(), Coefficient: 5, Weight: 65},
	}
	planned, err := Generate(days, demands, cfg)
	if err != nil {
		t.Fatalf("Generate returned error: %v", err)
	}
	for _, p := range planned {
		if p.StartMinute < 12*60+20 && p.EndMinute > 12*60 {
			t.Fatalf("session [%d,%d) intersects blocked window", p.StartMinute, p.EndMinute)
		}
	}
}

func TestGenerateRespectsDailyCap(t *testing.T) {
	cfg := testConfig()
	cfg.MaxDailyMinutes = 90
	demands := []SubjectDemand{
		{SubjectID: uuid.New(), Coefficient: 4, Weight: 90},
		{SubjectID: uuid.New(), Coefficient: 4, Weight: 85},
	}
	planned, err := Generate(testDays(5), demands, cfg)
	if err != nil {
		t.Fatalf("Generate returned error: %v", err)
	}
	perDay := map[time.Time]int{}
	for _, p := range planned {
		perDay[p.Date] += p.Minutes
	}
	for date, minutes := range perDay {
		if minutes > cfg.MaxDailyMinutes {
			t.Fatalf("day %s has %d planned minutes, cap is %d", date, minutes, cfg.MaxDailyMinutes)
		}
	}
}

func TestGenerateRespectsSameSubjectGap(t *testing.T) {
	cfg := testConfig()
	subject := uuid.New()
	planned, err := Generate(testDays(2), []SubjectDemand{
		{SubjectID: subject, Coefficient: 3, Weight: 50, TargetMinutes: 300},
	}, cfg)
	if err != nil {
		t.Fatalf("Generate returned error: %v", err)
	}
	byDay := map[time.Time][]PlannedSession{}
	for _, p := range planned {
		byDay[p.Date] = append(byDay[p.Date], p)
	}
	for date, sessions := range byDay {
		for i := 1; i < len(sessions); i++ {
			gap := sessions[i].StartMinute - sessions[i-1].EndMinute
			if gap < cfg.SameSubjectGapMinutes {
				t.Fatalf("day %s: gap between same-subject sessions is %d, want >= %d", date, gap, cfg.SameSubjectGapMinutes)
			}
		}
	}
}

func TestGenerateCapacityExceeded(t *testing.T) {
	cfg := testConfig()
	days := []Day{{
		Date:        time.Date(2026, 4, 6, 0, 0, 0, 0, time.UTC),
		StartMinute: 9 * 60,
		EndMinute:   9*60 + 20, // shorter than any session
	}}
	_, err := Generate(days, []SubjectDemand{
		{SubjectID: uuid.New(), Coefficient: 5, Weight: 50},
	}, cfg)
	var capErr *CapacityExceededError
	if !errors.As(err, &capErr) {
		t.Fatalf("expected CapacityExceededError, got %v", err)
	}
}

func TestGenerateEmptyInputs(t *testing.T) {
	cfg := testConfig()
	planned, err := Generate(testDays(3), nil, cfg)
	if err != nil {
		t.Fatalf("Generate returned error: %v", err)
	}
	if len(planned) != 0 {
		t.Fatalf("expected no sessions for empty demand")
	}
}

func TestGenerateWorksAroundOccupiedWindows(t *testing.T) {
	cfg := testConfig()
	days := testDays(1)
	days[0].Occupied = []Window{{StartMinute: 8 * 60, EndMinute: 11 * 60}}
	planned, err := Generate(days, []SubjectDemand{
		{SubjectID: uuid.New(), Coefficient: 3, Weight: 50},
	}, cfg)
	if err != nil {
		t.Fatalf("Generate returned error: %v", err)
	}
	for _, p := range planned {
		if p.StartMinute < 11*60+cfg.BreakMinutes {
			t.Fatalf("session [%d,%d) ignores occupied window", p.StartMinute, p.EndMinute)
		}
	}
}
