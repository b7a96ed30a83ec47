// File: backend/services/audit-service/internal/domain/models/projection_user.go
package models

import (
	"time"

	"github.com/google/uuid"
)

// Column bounds of the projection tables.
const (
	MaxExternalIDLength  = 100
	MaxDisplayNameLength = 200
	MaxActionLength      = 100
	MaxMessageLength     = 1000
)

// ProjectionUser is the audit-side projection of one upstream identity.
// It never carries its log entries; those are joined at read time.
type ProjectionUser struct {
	ID          uuid.UUID  `json:"id" db:"id"`
	ExternalID  string     `json:"external_id" db:"external_id"`
	DisplayName string     `json:"display_name" db:"display_name"`
	CreatedAt   time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt   *time.Time `json:"updated_at,omitempty" db:"updated_at"`
}

// CreateUserRequest is the administrative request to create a projection user.
type CreateUserRequest struct {
	ExternalID  string `json:"external_id" binding:"required"`
	DisplayName string `json:"display_name"`
}

// UpdateUserRequest changes only the display name.
type UpdateUserRequest struct {
	DisplayName string `json:"display_name"`
}
