package chat

import (
	"errors"
	"fmt"
)

// Sentinel error kinds for the negotiation core. Callers classify failures
// with errors.Is and map them to transport-level responses.
var (
	ErrValidation    = errors.New("validation error")
	ErrNotFound      = errors.New("not found")
	ErrNotAuthorized = errors.New("not authorized")
	ErrConflict      = errors.New("conflict")
)

// ValidationError reports a missing or malformed field before any mutation.
func ValidationError(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

// NotFoundError reports a missing message, appointment or patient profile.
func NotFoundError(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrNotFound, fmt.Sprintf(format, args...))
}

// AuthorizationError reports an actor that is not the expected party.
func AuthorizationError(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrNotAuthorized, fmt.Sprintf(format, args...))
}

// ConflictError reports a double-booking inside the conflict window.
func ConflictError(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrConflict, fmt.Sprintf(format, args...))
}
