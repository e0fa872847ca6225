package schedule

import (
	"errors"
	"fmt"
	"strings"
)

// FieldError is a validation message for a single field.
type FieldError struct {
	Field string `json:"field"`
	Error string `json:"error"`
}

// ValidationError indicates a payload was rejected, either locally or by
// the remote service. It is surfaced to the caller verbatim; nothing
// retries it.
type ValidationError struct {
	Message string
	Fields  []FieldError
}

func (e *ValidationError) Error() string {
	if len(e.Fields) == 0 {
		return e.Message
	}
	parts := make([]string, len(e.Fields))
	for i, f := range e.Fields {
		parts[i] = f.Field + ": " + f.Error
	}
	return fmt.Sprintf("%s (%s)", e.Message, strings.Join(parts, "; "))
}

// Field returns the message for field, or "" when the field is valid.
func (e *ValidationError) Field(field string) string {
	for _, f := range e.Fields {
		if f.Field == field {
			return f.Error
		}
	}
	return ""
}

// UnavailableError indicates a transient failure reaching the remote
// service: network errors, timeouts and 5xx responses.
type UnavailableError struct {
	Err error
}

func (e *UnavailableError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("schedule service unavailable: %v", e.Err)
	}
	return "schedule service unavailable"
}

func (e *UnavailableError) Unwrap() error { return e.Err }

// IsValidation reports whether err is or wraps a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// IsTransient reports whether err is or wraps an UnavailableError.
func IsTransient(err error) bool {
	var ue *UnavailableError
	return errors.As(err, &ue)
}
