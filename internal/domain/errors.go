// Package domain provides shared domain-level sentinel errors.
package domain

import (
	"errors"
	"fmt"
)

// ErrNotFound indicates the requested entity does not exist.
var ErrNotFound = errors.New("not found")

// ErrConflict indicates a concurrent modification conflict (optimistic locking).
var ErrConflict = errors.New("conflict: resource was modified by another request")

// ErrValidation indicates malformed or incomplete input.
var ErrValidation = errors.New("validation failed")

// ErrCapacityExceeded indicates a slot does not have enough free places.
var ErrCapacityExceeded = errors.New("capacity exceeded")

// ErrInvalidTransition indicates a state change the current status does not permit.
var ErrInvalidTransition = errors.New("invalid state transition")

// ErrUnauthorizedParty indicates the calling tenant may not perform the action.
var ErrUnauthorizedParty = errors.New("unauthorized party")

// ErrDeletionConflict indicates a deletion request is already pending.
var ErrDeletionConflict = errors.New("deletion already pending")

// CapacityError reports how many places were asked for and how many were free.
type CapacityError struct {
	Requested int
	Available int
}

func (e *CapacityError) Error() string {
	return fmt.Sprintf("%s: requested %d, available %d", ErrCapacityExceeded, e.Requested, e.Available)
}

func (e *CapacityError) Unwrap() error { return ErrCapacityExceeded }

// TransitionError reports the status an entity was in and the status that was refused.
type TransitionError struct {
	Entity string
	From   string
	To     string
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("%s: %s cannot move from %q to %q", ErrInvalidTransition, e.Entity, e.From, e.To)
}

func (e *TransitionError) Unwrap() error { return ErrInvalidTransition }

// Validationf wraps ErrValidation with a formatted message.
func Validationf(format string, args ...any) error {
	return fmt.Errorf(format+": %w", append(args, ErrValidation)...)
}
