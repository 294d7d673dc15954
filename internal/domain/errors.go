package domain

import (
	"errors"
	"fmt"
)

// Sentinel errors for the scoring core.
var (
	// ErrInvariant marks an internal-consistency failure such as a broken
	// attribution sum. It signals a logic defect, not bad input, and must
	// abort the request.
	ErrInvariant = errors.New("internal invariant violation")

	// ErrNotImplemented marks a configured strategy that is named but not
	// yet available. Selecting one fails fast instead of silently falling
	// back.
	ErrNotImplemented = errors.New("not implemented")
)

// ValidationError reports a malformed or missing request field with enough
// detail for the caller to identify it.
type ValidationError struct {
	Field  string `json:"field"`
	Detail string `json:"detail"`
}

// NewValidationError builds a ValidationError for a field.
func NewValidationError(field, detail string) *ValidationError {
	return &ValidationError{Field: field, Detail: detail}
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid field %s: %s", e.Field, e.Detail)
}

// IsValidation reports whether err is a request validation error.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
