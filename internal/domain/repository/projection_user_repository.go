// File: backend/services/audit-service/internal/domain/repository/projection_user_repository.go
package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/wizarding-anonymous/gaming_platform/backend/services/audit-service/internal/domain/models"
)

// ProjectionUserRepository persists projection users.
// Every method joins the transaction stored in ctx, if any.
type ProjectionUserRepository interface {
	// Create inserts a new user and fills in its store-assigned ID.
	// Returns domainErrors.ErrDuplicateIdentity if the external id is taken.
	Create(ctx context.Context, user *models.ProjectionUser) error

	// FindByID returns domainErrors.ErrUserNotFound if no user matches.
	FindByID(ctx context.Context, id uuid.UUID) (*models.ProjectionUser, error)

	// FindByExternalID returns domainErrors.ErrUserNotFound if no user matches.
	FindByExternalID(ctx context.Context, externalID string) (*models.ProjectionUser, error)

	// List returns all users ordered by display name, then newest first.
	List(ctx context.Context) ([]*models.ProjectionUser, error)

	// UpdateDisplayName sets display_name and updated_at.
	UpdateDisplayName(ctx context.Context, id uuid.UUID, displayName string, updatedAt time.Time) error

	// Delete removes the user and, through the foreign key, its log entries.
	Delete(ctx context.Context, id uuid.UUID) error
}
