package services

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
)

var ErrNotFound = errors.New("not found")

// NoActiveScheduleError is returned by operations that need an active
// schedule to act on.
type NoActiveScheduleError struct {
	UserID uuid.UUID
}

func (e *NoActiveScheduleError) Error() string {
	return fmt.Sprintf("user %s has no active schedule", e.UserID)
}

// SessionAlreadyActiveError is returned when starting a session while
// another one is still in flight.
type SessionAlreadyActiveError struct {
	ActiveID uuid.UUID
}

func (e *SessionAlreadyActiveError) Error() string {
	return fmt.Sprintf("session %s is already active", e.ActiveID)
}

// InvalidTransitionError reports a session state change the state machine
// does not allow.
type InvalidTransitionError struct {
	From string
	To   string
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("cannot transition session from %q to %q", e.From, e.To)
}
