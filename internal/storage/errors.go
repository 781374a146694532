package storage

import "errors"

var (
	// ErrConflict indicates a data conflict in the store.
	ErrConflict = errors.New("data conflict")
	ErrNotFound = errors.New("not found")
	// ErrUnavailable is returned when an optional backend (chat, file storage) is not configured.
	ErrUnavailable = errors.New("service unavailable")
	// ErrUpstream wraps failures of the generative model.
	ErrUpstream = errors.New("upstream service failed")
)

// ValidationError communicates rule violations back to HTTP handlers.
type ValidationError struct {
	message string
	err     error
}

func (e ValidationError) Error() string { return e.message }

func (e ValidationError) Unwrap() error { return e.err }

func NewValidationError(msg string) error {
	return ValidationError{message: msg}
}

// invalid marks err as a rule violation while keeping it matchable with errors.Is.
func invalid(err error) error {
	return ValidationError{message: err.Error(), err: err}
}

// ErrInvalidTransition is returned when an order status would move backwards or skip a step.
var ErrInvalidTransition error = ValidationError{message: "invalid order status transition"}

// IsValidation helps callers distinguish between business and infrastructure failures.
func IsValidation(err error) bool {
	var v ValidationError
	return errors.As(err, &v)
}
