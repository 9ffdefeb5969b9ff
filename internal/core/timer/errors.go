package timer

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound          = errors.New("not found")
	ErrInvalidState      = errors.New("invalid state")
	ErrDuplicateMarkTime = errors.New("duplicate mark time")
	ErrOutOfBounds       = errors.New("out of bounds")
	ErrValidation        = errors.New("validation failed")
	ErrPersistence       = errors.New("persistence failed")
)

// StateError reports an operation that is illegal in the timer's current
// lifecycle state. It matches ErrInvalidState with errors.Is.
type StateError struct {
	Op    string
	State State
}

func (e *StateError) Error() string {
	return fmt.Sprintf("cannot %s timer in state %s", e.Op, e.State)
}

func (e *StateError) Is(target error) bool {
	return target == ErrInvalidState
}

// Error codes carried on error events and API responses.
const (
	CodeNotFound          = "not_found"
	CodeInvalidState      = "invalid_state"
	CodeDuplicateMarkTime = "duplicate_mark_time"
	CodeOutOfBounds       = "out_of_bounds"
	CodeValidation        = "validation"
	CodePersistence       = "persistence"
	CodeInternal          = "internal"
)

// Code maps err onto a stable error code.
func Code(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrNotFound):
		return CodeNotFound
	case errors.Is(err, ErrInvalidState):
		return CodeInvalidState
	case errors.Is(err, ErrDuplicateMarkTime):
		return CodeDuplicateMarkTime
	case errors.Is(err, ErrOutOfBounds):
		return CodeOutOfBounds
	case errors.Is(err, ErrValidation):
		return CodeValidation
	case errors.Is(err, ErrPersistence):
		return CodePersistence
	default:
		return CodeInternal
	}
}

// invalid wraps a structural validation failure so it matches ErrValidation
// while keeping the field detail reachable through errors.As.
func invalid(err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%w: %w", ErrValidation, err)
}
