// File: backend/services/audit-service/internal/domain/errors/types.go
package errors

import "net/http"

// API error codes.
const (
	CodeValidation          = "validation_error"
	CodeDuplicateExternalID = "duplicate_external_id"
	CodeNotFound            = "not_found"
	CodeInternal            = "internal_error"
	CodeUnavailable         = "service_unavailable"
)

// ToAppError maps a domain error to its HTTP status and API code.
// Errors that are already *AppError are returned unchanged.
func ToAppError(err error) *AppError {
	var appErr *AppError
	if As(err, &appErr) {
		return appErr
	}
	switch {
	case IsConflict(err):
		// Manual creation of an existing identity is a client error, not a 409.
		return NewAppError(err, "user with this external id already exists", http.StatusBadRequest, CodeDuplicateExternalID)
	case IsBadRequest(err):
		return NewAppError(err, err.Error(), http.StatusBadRequest, CodeValidation)
	case IsNotFound(err):
		return NewAppError(err, err.Error(), http.StatusNotFound, CodeNotFound)
	case Is(err, ErrSearchUnavailable):
		return NewAppError(err, err.Error(), http.StatusServiceUnavailable, CodeUnavailable)
	default:
		return NewAppError(err, "internal server error", http.StatusInternalServerError, CodeInternal)
	}
}
