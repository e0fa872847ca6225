package remote

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/abhisek/quizcal/internal/schedule"
)

// ErrInvalidResponse indicates the service returned a body that does not
// conform to the response schema.
type ErrInvalidResponse struct {
	Body json.RawMessage
	Err  error
}

func (e *ErrInvalidResponse) Error() string {
	return fmt.Sprintf("invalid schedule service response: %v", e.Err)
}

func (e *ErrInvalidResponse) Unwrap() error { return e.Err }

// ErrStatus indicates an unexpected non-2xx status that carries no
// structured error body.
type ErrStatus struct {
	Code int
	Body string
}

func (e *ErrStatus) Error() string {
	return fmt.Sprintf("schedule service returned status %d: %s", e.Code, e.Body)
}

// ErrorKind classifies err for the sync journal.
func ErrorKind(err error) string {
	switch {
	case err == nil:
		return ""
	case schedule.IsValidation(err):
		return "validation"
	case schedule.IsTransient(err):
		return "unavailable"
	default:
		var inv *ErrInvalidResponse
		if errors.As(err, &inv) {
			return "invalid_response"
		}
		return "other"
	}
}
