package scheduling

import (
	"math"
	"sort"
	"time"

	"github.com/google/uuid"
)

// GeneratorConfig bundles the session-shaping knobs. All durations are
// minutes.
type GeneratorConfig struct {
	MinSessionMinutes     int
	MaxSessionMinutes     int
	MaxDailyMinutes       int
	BreakMinutes          int
	SameSubjectGapMinutes int
	BaseMinutes           int
	PerCoefficientMinutes int
	BufferRate            float64
	RoundToMinutes        int
}

// Window is a half-open [StartMinute, EndMinute) range within one day,
// expressed as minutes since midnight.
type Window struct {
	StartMinute int
	EndMinute   int
}

// Day is one plannable day: the study window minus blocked windows, plus any
// minutes already consumed by sessions the generator must work around.
type Day struct {
	Date        time.Time
	StartMinute int
	EndMinute   int
	Blocked     []Window
	Occupied    []Window
}

// SubjectDemand is one subject competing for time. Weight is its priority
// score; TargetMinutes of zero lets the generator derive a fair share.
type SubjectDemand struct {
	SubjectID     uuid.UUID
	Coefficient   int
	Weight        float64
	TargetMinutes int
}

// PlannedSession is one placed block, still storage-free.
type PlannedSession struct {
	SubjectID   uuid.UUID
	Date        time.Time
	StartMinute int
	EndMinute   int
	Minutes     int
}

// SessionMinutes derives a subject's session length from its coefficient:
// base plus a per-step increment, inflated by the buffer rate, rounded, then
// clamped to the configured bounds.
func SessionMinutes(coefficient int, cfg GeneratorConfig) int {
	if coefficient < 1 {
		coefficient = 1
	}
	raw := float64(cfg.BaseMinutes+(coefficient-1)*cfg.PerCoefficientMinutes) * (1 + cfg.BufferRate)
	m := roundTo(int(math.Round(raw)), cfg.RoundToMinutes)
	if cfg.MinSessionMinutes > 0 && m < cfg.MinSessionMinutes {
		m = cfg.MinSessionMinutes
	}
	if cfg.MaxSessionMinutes > 0 && m > cfg.MaxSessionMinutes {
		m = cfg.MaxSessionMinutes
	}
	return m
}

func roundTo(v, step int) int {
	if step <= 0 {
		return v
	}
	return ((v + step/2) / step) * step
}

type dayState struct {
	day          Day
	occupied     []Window
	usedMinutes  int
	sessionCount int
	lastEnd      map[uuid.UUID]int
}

// Generate places sessions greedily: subjects are visited round-robin in
// weight order, each placement going to the least-loaded day that still has a
// fitting slot. It never produces overlapping sessions and respects blocked
// windows, the daily cap, the inter-session break, and the same-subject gap.
//
// It returns CapacityExceededError if a demanded subject cannot be placed
// even once.
func Generate(days []Day, demands []SubjectDemand, cfg GeneratorConfig) ([]PlannedSession, error) {
	if cfg.MinSessionMinutes <= 0 {
		return nil, &InvalidInputError{Field: "MinSessionMinutes", Reason: "must be positive"}
	}
	if cfg.MaxSessionMinutes < cfg.MinSessionMinutes {
		return nil, &InvalidInputError{Field: "MaxSessionMinutes", Reason: "must be >= MinSessionMinutes"}
	}
	if len(demands) == 0 || len(days) == 0 {
		return []PlannedSession{}, nil
	}

	states := make([]*dayState, 0, len(days))
	capacity := 0
	for _, d := range days {
		if d.EndMinute <= d.StartMinute {
			continue
		}
		st := &dayState{
			day:      d,
			occupied: append(append([]Window{}, d.Blocked...), d.Occupied...),
			lastEnd:  map[uuid.UUID]int{},
		}
		for _, o := range d.Occupied {
			st.usedMinutes += o.EndMinute - o.StartMinute
		}
		sort.Slice(st.occupied, func(i, j int) bool { return st.occupied[i].StartMinute < st.occupied[j].StartMinute })
		states = append(states, st)
		capacity += dayCapacity(st, cfg)
	}
	if len(states) == 0 {
		return nil, &CapacityExceededError{SubjectID: demands[0].SubjectID, RequiredMinutes: cfg.MinSessionMinutes, HorizonDays: len(days)}
	}

	ordered := append([]SubjectDemand{}, demands...)
	sort.SliceStable(ordered, func(i, j int) bool {
		if ordered[i].Weight != ordered[j].Weight {
			return ordered[i].Weight > ordered[j].Weight
		}
		if ordered[i].Coefficient != ordered[j].Coefficient {
			return ordered[i].Coefficient > ordered[j].Coefficient
		}
		return ordered[i].SubjectID.String() < ordered[j].SubjectID.String()
	})

	remaining := map[uuid.UUID]int{}
	sessionLen := map[uuid.UUID]int{}
	totalWeight := 0.0
	for _, d := range ordered {
		totalWeight += d.Weight
	}
	for _, d := range ordered {
		length := SessionMinutes(d.Coefficient, cfg)
		sessionLen[d.SubjectID] = length
		target := d.TargetMinutes
		if target <= 0 {
			share := 1.0 / float64(len(ordered))
			if totalWeight > 0 {
				share = d.Weight / totalWeight
			}
			target = int(math.Round(share * float64(capacity)))
		}
		if target < length {
			target = length
		}
		remaining[d.SubjectID] = target
	}

	var placed []PlannedSession
	for {
		progress := false
		for _, d := range ordered {
			if remaining[d.SubjectID] <= 0 {
				continue
			}
			length := sessionLen[d.SubjectID]
			if s := placeOnBestDay(states, d.SubjectID, length, cfg); s != nil {
				placed = append(placed, *s)
				remaining[d.SubjectID] -= s.Minutes
				progress = true
			} else {
				// Nothing left for this subject anywhere in the horizon.
				remaining[d.SubjectID] = 0
			}
		}
		if !progress {
			break
		}
	}

	counts := map[uuid.UUID]int{}
	for _, p := range placed {
		counts[p.SubjectID]++
	}
	for _, d := range ordered {
		if counts[d.SubjectID] == 0 {
			return nil, &CapacityExceededError{
				SubjectID:       d.SubjectID,
				RequiredMinutes: sessionLen[d.SubjectID],
				HorizonDays:     len(days),
			}
		}
	}

	sort.Slice(placed, func(i, j int) bool {
		if !placed[i].Date.Equal(placed[j].Date) {
			return placed[i].Date.Before(placed[j].Date)
		}
		return placed[i].StartMinute < placed[j].StartMinute
	})
	return placed, nil
}

func dayCapacity(st *dayState, cfg GeneratorConfig) int {
	avail := st.day.EndMinute - st.day.StartMinute
	for _, b := range st.occupied {
		s, e := b.StartMinute, b.EndMinute
		if s < st.day.StartMinute {
			s = st.day.StartMinute
		}
		if e > st.day.EndMinute {
			e = st.day.EndMinute
		}
		if e > s {
			avail -= e - s
		}
	}
	if cfg.MaxDailyMinutes > 0 {
		budget := cfg.MaxDailyMinutes - st.usedMinutes
		if budget < 0 {
			budget = 0
		}
		if avail > budget {
			avail = budget
		}
	}
	return avail
}

// placeOnBestDay tries days from the least loaded forward and returns the
// first placement that fits, or nil.
func placeOnBestDay(states []*dayState, subjectID uuid.UUID, length int, cfg GeneratorConfig) *PlannedSession {
	order := make([]*dayState, len(states))
	copy(order, states)
	sort.SliceStable(order, func(i, j int) bool {
		if order[i].sessionCount != order[j].sessionCount {
			return order[i].sessionCount < order[j].sessionCount
		}
		return order[i].day.Date.Before(order[j].day.Date)
	})
	for _, st := range order {
		if s := placeOnDay(st, subjectID, length, cfg); s != nil {
			return s
		}
	}
	return nil
}

func placeOnDay(st *dayState, subjectID uuid.UUID, length int, cfg GeneratorConfig) *PlannedSession {
	if cfg.MaxDailyMinutes > 0 && st.usedMinutes+length > cfg.MaxDailyMinutes {
		return nil
	}
	earliest := st.day.StartMinute
	if last, ok := st.lastEnd[subjectID]; ok && cfg.SameSubjectGapMinutes > 0 {
		if g := last + cfg.SameSubjectGapMinutes; g > earliest {
			earliest = g
		}
	}
	start := freeSlot(st, earliest, length, cfg.BreakMinutes)
	if start < 0 {
		return nil
	}
	end := start + length
	w := Window{StartMinute: start, EndMinute: end}
	st.occupied = append(st.occupied, w)
	sort.Slice(st.occupied, func(i, j int) bool { return st.occupied[i].StartMinute < st.occupied[j].StartMinute })
	st.usedMinutes += length
	st.sessionCount++
	st.lastEnd[subjectID] = end
	return &PlannedSession{
		SubjectID:   subjectID,
		Date:        st.day.Date,
		StartMinute: start,
		EndMinute:   end,
		Minutes:     length,
	}
}

// freeSlot finds the earliest start >= from where length minutes fit inside
// the day window without touching an occupied window, keeping breakMinutes of
// clearance on both sides of occupied study blocks.
func freeSlot(st *dayState, from, length, breakMinutes int) int {
	start := from
	if start < st.day.StartMinute {
		start = st.day.StartMinute
	}
	for {
		if start+length > st.day.EndMinute {
			return -1
		}
		conflict := false
		for _, o := range st.occupied {
			oStart := o.StartMinute - breakMinutes
			oEnd := o.EndMinute + breakMinutes
			if start < oEnd && start+length > oStart {
				start = oEnd
				conflict = true
				break
			}
		}
		if !conflict {
			return start
		}
	}
}
