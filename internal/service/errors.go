package service

import (
	"errors"
	"fmt"
)

var (
	// ErrForbidden means the caller is neither the reservation owner nor an admin.
	ErrForbidden = errors.New("no permission to modify this reservation")

	// ErrRateLimited means the user exceeded the admission attempt limit.
	ErrRateLimited = errors.New("too many reservation attempts, try again later")
)

// ValidationError reports the specific field that failed admission
// validation. Validation always happens before any mutation.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid field %s: %s", e.Field, e.Message)
}

func newValidationError(field, message string) *ValidationError {
	return &ValidationError{Field: field, Message: message}
}

// InvalidTransitionError carries the current status so callers can report
// why the transition was rejected.
type InvalidTransitionError struct {
	From string
	To   string
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("cannot transition reservation from %s to %s", e.From, e.To)
}

// StorageError wraps file or persistence failures that surface as server
// errors. Any committed capacity increment is rolled back before this is
// returned.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage error during %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}
