package scheduling

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

type InvalidInputError struct {
	Field  string
	Reason string
}

func (e *InvalidInputError) Error() string {
	return fmt.Sprintf("invalid input %q: %s", e.Field, e.Reason)
}

// CapacityExceededError reports a subject whose minimum demand could not be
// placed anywhere in the planning horizon.
type CapacityExceededError struct {
	SubjectID       uuid.UUID
	RequiredMinutes int
	HorizonDays     int
}

func (e *CapacityExceededError) Error() string {
	return fmt.Sprintf("capacity exceeded: subject %s needs %d minutes but no slot fits within %d days",
		e.SubjectID, e.RequiredMinutes, e.HorizonDays)
}

// OverlapError reports a requested placement that intersects an existing
// session or a blocked window.
type OverlapError struct {
	StartsAt time.Time
	EndsAt   time.Time
	Against  string
}

func (e *OverlapError) Error() string {
	return fmt.Sprintf("requested window %s - %s overlaps %s",
		e.StartsAt.Format(time.RFC3339), e.EndsAt.Format(time.RFC3339), e.Against)
}

// Overlaps reports whether two half-open time windows intersect.
func Overlaps(aStart, aEnd, bStart, bEnd time.Time) bool {
	return aStart.Before(bEnd) && aEnd.After(bStart)
}
