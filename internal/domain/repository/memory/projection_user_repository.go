// File: backend/services/audit-service/internal/domain/repository/memory/projection_user_repository.go
package memory

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"
	domainErrors "github.com/wizarding-anonymous/gaming_platform/backend/services/audit-service/internal/domain/errors"
	"github.com/wizarding-anonymous/gaming_platform/backend/services/audit-service/internal/domain/models"
	"github.com/wizarding-anonymous/gaming_platform/backend/services/audit-service/internal/domain/repository"
)

// ProjectionUserRepository implements repository.ProjectionUserRepository in memory.
type ProjectionUserRepository struct {
	store *Store
}

func (r *ProjectionUserRepository) Create(ctx context.Context, user *models.ProjectionUser) error {
	if err := r.store.checkFault(OpUserCreate); err != nil {
		return err
	}

	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	// Unique index on external_id.
	if _, exists := s.byExternal[user.ExternalID]; exists {
		return domainErrors.ErrDuplicateIdentity
	}

	user.ID = uuid.New()
	s.users[user.ID] = copyUser(*user)
	s.byExternal[user.ExternalID] = user.ID

	id, externalID := user.ID, user.ExternalID
	recordUndo(ctx, func() {
		delete(s.users, id)
		if s.byExternal[externalID] == id {
			delete(s.byExternal, externalID)
		}
	})
	return nil
}

func (r *ProjectionUserRepository) FindByID(ctx context.Context, id uuid.UUID) (*models.ProjectionUser, error) {
	if err := r.store.checkFault(OpUserFind); err != nil {
		return nil, err
	}

	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	user, ok := r.store.users[id]
	if !ok {
		return nil, domainErrors.ErrUserNotFound
	}
	out := copyUser(user)
	return &out, nil
}

func (r *ProjectionUserRepository) FindByExternalID(ctx context.Context, externalID string) (*models.ProjectionUser, error) {
	if err := r.store.checkFault(OpUserFind); err != nil {
		return nil, err
	}

	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	id, ok := r.store.byExternal[externalID]
	if !ok {
		return nil, domainErrors.ErrUserNotFound
	}
	out := copyUser(r.store.users[id])
	return &out, nil
}

func (r *ProjectionUserRepository) List(ctx context.Context) ([]*models.ProjectionUser, error) {
	if err := r.store.checkFault(OpUserList); err != nil {
		return nil, err
	}

	r.store.mu.RLock()
	users := make([]*models.ProjectionUser, 0, len(r.store.users))
	for _, user := range r.store.users {
		u := copyUser(user)
		users = append(users, &u)
	}
	r.store.mu.RUnlock()

	sort.Slice(users, func(i, j int) bool {
		if users[i].DisplayName != users[j].DisplayName {
			return users[i].DisplayName < users[j].DisplayName
		}
		return users[i].CreatedAt.After(users[j].CreatedAt)
	})
	return users, nil
}

func (r *ProjectionUserRepository) UpdateDisplayName(ctx context.Context, id uuid.UUID, displayName string, updatedAt time.Time) error {
	if err := r.store.checkFault(OpUserUpdate); err != nil {
		return err
	}

	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	user, ok := s.users[id]
	if !ok {
		return domainErrors.ErrUserNotFound
	}
	previous := copyUser(user)

	user.DisplayName = displayName
	t := updatedAt
	user.UpdatedAt = &t
	s.users[id] = user

	recordUndo(ctx, func() {
		if _, ok := s.users[id]; ok {
			s.users[id] = previous
		}
	})
	return nil
}

func (r *ProjectionUserRepository) Delete(ctx context.Context, id uuid.UUID) error {
	if err := r.store.checkFault(OpUserDelete); err != nil {
		return err
	}

	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	user, ok := s.users[id]
	if !ok {
		return domainErrors.ErrUserNotFound
	}

	removed := make([]models.LogEntry, 0)
	for logID, entry := range s.logs {
		if entry.UserID == id {
			removed = append(removed, entry)
			delete(s.logs, logID)
		}
	}
	delete(s.users, id)
	delete(s.byExternal, user.ExternalID)

	recordUndo(ctx, func() {
		s.users[id] = user
		s.byExternal[user.ExternalID] = id
		for _, entry := range removed {
			s.logs[entry.ID] = entry
		}
	})
	return nil
}

func copyUser(user models.ProjectionUser) models.ProjectionUser {
	if user.UpdatedAt != nil {
		t := *user.UpdatedAt
		user.UpdatedAt = &t
	}
	return user
}

var _ repository.ProjectionUserRepository = (*ProjectionUserRepository)(nil)
