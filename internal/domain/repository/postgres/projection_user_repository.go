// File: backend/services/audit-service/internal/domain/repository/postgres/projection_user_repository.go
package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	domainErrors "github.com/wizarding-anonymous/gaming_platform/backend/services/audit-service/internal/domain/errors"
	"github.com/wizarding-anonymous/gaming_platform/backend/services/audit-service/internal/domain/models"
	"github.com/wizarding-anonymous/gaming_platform/backend/services/audit-service/internal/domain/repository"
)

const uniqueViolation = "23505"

// ProjectionUserRepositoryPostgres implements repository.ProjectionUserRepository for PostgreSQL.
type ProjectionUserRepositoryPostgres struct {
	pool *pgxpool.Pool
}

// NewProjectionUserRepositoryPostgres creates a new instance.
func NewProjectionUserRepositoryPostgres(pool *pgxpool.Pool) *ProjectionUserRepositoryPostgres {
	return &ProjectionUserRepositoryPostgres{pool: pool}
}

// Create inserts the user. A conflicting external_id yields no row and is
// reported as ErrDuplicateIdentity without aborting the surrounding transaction.
func (r *ProjectionUserRepositoryPostgres) Create(ctx context.Context, user *models.ProjectionUser) error {
	query := `
		INSERT INTO projection_users (external_id, display_name, created_at, updated_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (external_id) DO NOTHING
		RETURNING id`
	err := conn(ctx, r.pool).QueryRow(ctx, query,
		user.ExternalID, user.DisplayName, user.CreatedAt, user.UpdatedAt,
	).Scan(&user.ID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domainErrors.ErrDuplicateIdentity
		}
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return domainErrors.ErrDuplicateIdentity
		}
		return fmt.Errorf("failed to create projection user: %w", err)
	}
	return nil
}

func (r *ProjectionUserRepositoryPostgres) FindByID(ctx context.Context, id uuid.UUID) (*models.ProjectionUser, error) {
	query := `
		SELECT id, external_id, display_name, created_at, updated_at
		FROM projection_users
		WHERE id = $1`
	return r.findOne(ctx, query, id)
}

func (r *ProjectionUserRepositoryPostgres) FindByExternalID(ctx context.Context, externalID string) (*models.ProjectionUser, error) {
	query := `
		SELECT id, external_id, display_name, created_at, updated_at
		FROM projection_users
		WHERE external_id = $1`
	return r.findOne(ctx, query, externalID)
}

func (r *ProjectionUserRepositoryPostgres) findOne(ctx context.Context, query string, arg any) (*models.ProjectionUser, error) {
	user := &models.ProjectionUser{}
	err := conn(ctx, r.pool).QueryRow(ctx, query, arg).Scan(
		&user.ID, &user.ExternalID, &user.DisplayName, &user.CreatedAt, &user.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domainErrors.ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to find projection user: %w", err)
	}
	normalizeUser(user)
	return user, nil
}

func (r *ProjectionUserRepositoryPostgres) List(ctx context.Context) ([]*models.ProjectionUser, error) {
	query := `
		SELECT id, external_id, display_name, created_at, updated_at
		FROM projection_users
		ORDER BY display_name ASC, created_at DESC`
	rows, err := conn(ctx, r.pool).Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list projection users: %w", err)
	}
	defer rows.Close()

	users := make([]*models.ProjectionUser, 0)
	for rows.Next() {
		user := &models.ProjectionUser{}
		if err := rows.Scan(&user.ID, &user.ExternalID, &user.DisplayName, &user.CreatedAt, &user.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan projection user row: %w", err)
		}
		normalizeUser(user)
		users = append(users, user)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating projection user rows: %w", err)
	}
	return users, nil
}

func (r *ProjectionUserRepositoryPostgres) UpdateDisplayName(ctx context.Context, id uuid.UUID, displayName string, updatedAt time.Time) error {
	query := `UPDATE projection_users SET display_name = $1, updated_at = $2 WHERE id = $3`
	result, err := conn(ctx, r.pool).Exec(ctx, query, displayName, updatedAt, id)
	if err != nil {
		return fmt.Errorf("failed to update projection user name: %w", err)
	}
	if result.RowsAffected() == 0 {
		return domainErrors.ErrUserNotFound
	}
	return nil
}

func (r *ProjectionUserRepositoryPostgres) Delete(ctx context.Context, id uuid.UUID) error {
	result, err := conn(ctx, r.pool).Exec(ctx, `DELETE FROM projection_users WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete projection user: %w", err)
	}
	if result.RowsAffected() == 0 {
		return domainErrors.ErrUserNotFound
	}
	return nil
}

// timestamptz scans in the session zone; the projection always speaks UTC.
func normalizeUser(user *models.ProjectionUser) {
	user.CreatedAt = user.CreatedAt.UTC()
	if user.UpdatedAt != nil {
		t := user.UpdatedAt.UTC()
		user.UpdatedAt = &t
	}
}

var _ repository.ProjectionUserRepository = (*ProjectionUserRepositoryPostgres)(nil)
