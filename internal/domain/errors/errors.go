// File: backend/services/audit-service/internal/domain/errors/errors.go
package errors

import (
	"errors"
	"fmt"
)

var (
	// Generic errors
	ErrInternal       = errors.New("internal server error")
	ErrInvalidRequest = errors.New("invalid request")
	ErrNotFound       = errors.New("resource not found")
	ErrValidation     = errors.New("validation failed")

	// Projection errors
	ErrUserNotFound      = errors.New("projection user not found")
	ErrLogEntryNotFound  = errors.New("log entry not found")
	ErrDuplicateIdentity = errors.New("projection user with this external id already exists")

	// Pipeline errors
	ErrMalformedEvent    = errors.New("malformed event")
	ErrUnknownEventType  = errors.New("unknown event type")
	ErrSearchUnavailable = errors.New("search index is not configured")
)

// AppError carries an error together with its API representation.
type AppError struct {
	Err        error
	Message    string
	StatusCode int
	Code       string
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// NewAppError creates a new AppError.
func NewAppError(err error, message string, statusCode int, code string) *AppError {
	return &AppError{
		Err:        err,
		Message:    message,
		StatusCode: statusCode,
		Code:       code,
	}
}

// Validationf wraps ErrValidation with a formatted reason.
func Validationf(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

// Malformedf wraps ErrMalformedEvent with a formatted reason.
func Malformedf(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrMalformedEvent, fmt.Sprintf(format, args...))
}

// IsNotFound reports whether err is one of the "not found" errors.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound) ||
		errors.Is(err, ErrUserNotFound) ||
		errors.Is(err, ErrLogEntryNotFound)
}

// IsConflict reports whether err signals a uniqueness conflict.
func IsConflict(err error) bool {
	return errors.Is(err, ErrDuplicateIdentity)
}

// IsBadRequest reports whether err was caused by client input.
func IsBadRequest(err error) bool {
	return errors.Is(err, ErrValidation) ||
		errors.Is(err, ErrInvalidRequest)
}
