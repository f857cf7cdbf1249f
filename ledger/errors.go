package ledger

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound covers garments, catalog entries, invoices and services that
	// are absent or belong to another shop's schema.
	ErrNotFound = errors.New("record not found")

	// ErrConflict is a concurrent-update collision (serialization failure or
	// deadlock on the invoice row). Safe to retry the whole reconciliation.
	ErrConflict = errors.New("concurrent update conflict")

	// ErrInvalidState rejects operations against rows whose current state
	// forbids them, e.g. re-billing a service that is already on an invoice.
	ErrInvalidState = errors.New("invalid state")

	// ErrStorage wraps persistence failures. The enclosing transaction has
	// been rolled back, so resubmitting the same request is safe.
	ErrStorage = errors.New("storage failure")
)

// ValidationError reports malformed input, rejected before any read.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed on %s: %s", e.Field, e.Reason)
}

func invalidField(field, reason string) error {
	return &ValidationError{Field: field, Reason: reason}
}

func invalidStatef(format string, args ...any) error {
	return fmt.Errorf("%w: "+format, append([]any{ErrInvalidState}, args...)...)
}

// IsValidation reports whether err is (or wraps) a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
