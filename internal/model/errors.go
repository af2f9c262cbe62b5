package model

import (
	"errors"
	"fmt"
	"time"
)

var (
	ErrValidation       = errors.New("validation error")
	ErrNotFound         = errors.New("not found")
	ErrForbidden        = errors.New("forbidden")
	ErrScheduleConflict = errors.New("schedule conflict")
	ErrCapacityExceeded = errors.New("class is full")
	ErrDuplicateBooking = errors.New("booking already confirmed")
	ErrAlreadyCancelled = errors.New("booking already cancelled")
	ErrNotEntitled      = errors.New("membership does not cover this class")
)

// NotFoundError names the missing resource so callers can report which
// lookup failed, not just that one did.
type NotFoundError struct {
	Resource string
	ID       int64
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %d not found", e.Resource, e.ID)
}

func (e *NotFoundError) Unwrap() error { return ErrNotFound }

// ScheduleConflictError reports which trainer is double-booked and the
// interval that collided. One conflict aborts the whole creation batch.
type ScheduleConflictError struct {
	TrainerID int64
	Start     time.Time
	End       time.Time
}

func (e *ScheduleConflictError) Error() string {
	return fmt.Sprintf("trainer %d already has an active class overlapping %s - %s",
		e.TrainerID,
		e.Start.Format(time.RFC3339),
		e.End.Format(time.RFC3339),
	)
}

func (e *ScheduleConflictError) Unwrap() error { return ErrScheduleConflict }
