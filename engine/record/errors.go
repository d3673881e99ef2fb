package record

import (
	"errors"
	"fmt"
)

// Sentinel errors for validation failures.
var (
	ErrEmptyName        = errors.New("name is empty")
	ErrInvalidEmail     = errors.New("invalid email")
	ErrInvalidDate      = errors.New("invalid date")
	ErrInvalidTime      = errors.New("invalid time")
	ErrTimeOutBeforeIn  = errors.New("time out is before time in")
	ErrEndBeforeStart   = errors.New("end date is before start date")
	ErrUnknownLeaveType = errors.New("unknown leave type")
	ErrEmptyReason      = errors.New("reason is empty")
	ErrSelfApproval     = errors.New("approver matches requester")
	ErrUnknownKind      = errors.New("unknown submission kind")
	ErrMissingBody      = errors.New("submission body missing for kind")
)

// ValidationError wraps a sentinel with the offending field and value.
type ValidationError struct {
	Field   string
	Value   string
	Wrapped error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation: %s: %s (value=%q)", e.Wrapped, e.Field, e.Value)
}

func (e *ValidationError) Unwrap() error { return e.Wrapped }

// NewValidationError creates a ValidationError.
func NewValidationError(field, value string, wrapped error) *ValidationError {
	return &ValidationError{Field: field, Value: value, Wrapped: wrapped}
}
