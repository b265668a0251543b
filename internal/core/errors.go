package core

import (
	"errors"
	"fmt"
)

var (
	ErrValidation = errors.New("validation error")
	ErrConflict   = errors.New("conflict")
	ErrNotFound   = errors.New("not found")

	ErrInvalidAmount error = &ValidationError{Field: "amount", Reason: "must be a positive decimal number"}
	ErrInvalidDate   error = &ValidationError{Field: "date", Reason: "must be a date in YYYY-MM-DD format"}
	ErrInvalidMonth  error = &ValidationError{Field: "month", Reason: "must be between 1 and 12"}
	ErrInvalidYear   error = &ValidationError{Field: "year", Reason: fmt.Sprintf("must be between %d and %d", MinBudgetYear, MaxBudgetYear)}

	ErrBudgetExists = fmt.Errorf("%w: a budget already exists for this category, month, year, and property", ErrConflict)
)

// ValidationError reports a missing or malformed request field.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Reason
	}
	return e.Field + ": " + e.Reason
}

func (e *ValidationError) Unwrap() error {
	return ErrValidation
}

// Invalid builds a ValidationError for field.
func Invalid(field, reason string) error {
	return &ValidationError{Field: field, Reason: reason}
}

// Error kinds exposed at the boundary.
const (
	KindValidation    = "validation_error"
	KindInvalidAmount = "invalid_amount"
	KindConflict      = "conflict_error"
	KindNotFound      = "not_found_error"
	KindInternal      = "internal_error"
)

// ErrorKind returns the machine-checkable category of err.
func ErrorKind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrInvalidAmount):
		return KindInvalidAmount
	case errors.Is(err, ErrValidation):
		return KindValidation
	case errors.Is(err, ErrConflict):
		return KindConflict
	case errors.Is(err, ErrNotFound):
		return KindNotFound
	default:
		return KindInternal
	}
}
