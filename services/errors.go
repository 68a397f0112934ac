package services

import (
	"errors"
	"fmt"
)

var (
	ErrEmptyCart         = NewValidationError("order must contain at least one item")
	ErrTableNotFound     = errors.New("table not found")
	ErrOrderNotFound     = errors.New("order not found")
	ErrItemNotFound      = errors.New("order item not found")
	ErrInvalidStatus     = errors.New("invalid status")
	ErrTerminalStatus    = errors.New("order is already paid")
	ErrNothingToServe    = errors.New("order has no ready items")
	ErrAtomicUnavailable = errors.New("atomic stock decrement unavailable")
	ErrChargeMismatch    = errors.New("charged orders changed before settlement")

	// ErrNoRowsAffected covers both a policy denial and a concurrent delete/update.
	// The two cannot be told apart from the store, so callers must refresh.
	ErrNoRowsAffected = errors.New("write affected no rows")
)

// ValidationError is returned before any write happens.
type ValidationError struct {
	Message string
	Err     error
}

func (e *ValidationError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *ValidationError) Unwrap() error { return e.Err }

func NewValidationError(format string, args ...interface{}) error {
	return &ValidationError{Message: fmt.Sprintf(format, args...)}
}

// invalid wraps a sentinel so both errors.Is(err, sentinel) and IsValidation(err) hold.
func invalid(sentinel error, format string, args ...interface{}) error {
	return &ValidationError{Message: fmt.Sprintf(format, args...), Err: sentinel}
}

// IsValidation helps callers distinguish between business and infrastructure failures.
func IsValidation(err error) bool {
	var v *ValidationError
	return errors.As(err, &v)
}
