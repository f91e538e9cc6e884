package database

import (
	"errors"
	"fmt"
)

var (
	// ErrSlotTaken marks a booking that collides with an existing
	// non-cancelled appointment at the same (coach, date, time).
	ErrSlotTaken = errors.New("slot already booked")

	// ErrNotFound marks a missing appointment or availability record.
	ErrNotFound = errors.New("record not found")

	// ErrCancelledTerminal rejects any transition out of cancelled.
	ErrCancelledTerminal = errors.New("appointment is cancelled and cannot change status")

	// ErrInvalidTransition rejects a backward move in the status
	// machine, e.g. demoting a confirmed appointment to pending.
	ErrInvalidTransition = errors.New("status transition is not allowed")

	// ErrInvalidStatus rejects an unknown target status.
	ErrInvalidStatus = errors.New("invalid appointment status")
)

// ConflictError reports who holds the contested slot so the caller
// can surface a specific message.
type ConflictError struct {
	CoachID    string
	Date       string
	Time       string
	TalentName string
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("slot %s %s for coach %s is already booked by %s",
		e.Date, e.Time, e.CoachID, e.TalentName)
}

func (e *ConflictError) Unwrap() error {
	return ErrSlotTaken
}
