// File: backend/services/audit-service/internal/domain/repository/memory/log_entry_repository.go
package memory

import (
	"context"
	"sort"

	domainErrors "github.com/wizarding-anonymous/gaming_platform/backend/services/audit-service/internal/domain/errors"
	"github.com/wizarding-anonymous/gaming_platform/backend/services/audit-service/internal/domain/models"
	"github.com/wizarding-anonymous/gaming_platform/backend/services/audit-service/internal/domain/repository"
)

// LogEntryRepository implements repository.LogEntryRepository in memory.
type LogEntryRepository struct {
	store *Store
}

func (r *LogEntryRepository) Append(ctx context.Context, entry *models.LogEntry) error {
	if err := r.store.checkFault(OpLogAppend); err != nil {
		return err
	}

	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	// Foreign key to projection_users.
	if _, ok := s.users[entry.UserID]; !ok {
		return domainErrors.ErrUserNotFound
	}

	s.nextLogID++
	entry.ID = s.nextLogID
	entry.Message = models.TruncateMessage(entry.Message)
	s.logs[entry.ID] = *entry

	id := entry.ID
	recordUndo(ctx, func() { delete(s.logs, id) })
	return nil
}

func (r *LogEntryRepository) FindByID(ctx context.Context, id int64) (*models.LogEntryView, error) {
	if err := r.store.checkFault(OpLogFind); err != nil {
		return nil, err
	}

	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	entry, ok := r.store.logs[id]
	if !ok {
		return nil, domainErrors.ErrLogEntryNotFound
	}
	return r.view(entry), nil
}

func (r *LogEntryRepository) List(ctx context.Context, params models.ListLogEntriesParams) ([]*models.LogEntryView, error) {
	if err := r.store.checkFault(OpLogList); err != nil {
		return nil, err
	}

	r.store.mu.RLock()
	views := make([]*models.LogEntryView, 0)
	for _, entry := range r.store.logs {
		if !matches(entry, params) {
			continue
		}
		views = append(views, r.view(entry))
	}
	r.store.mu.RUnlock()

	sort.Slice(views, func(i, j int) bool {
		if !views[i].CreatedAt.Equal(views[j].CreatedAt) {
			return views[i].CreatedAt.After(views[j].CreatedAt)
		}
		return views[i].ID > views[j].ID
	})

	if params.Offset > 0 {
		if params.Offset >= len(views) {
			return []*models.LogEntryView{}, nil
		}
		views = views[params.Offset:]
	}
	if params.Limit > 0 && len(views) > params.Limit {
		views = views[:params.Limit]
	}
	return views, nil
}

func matches(entry models.LogEntry, params models.ListLogEntriesParams) bool {
	if params.UserID != nil && entry.UserID != *params.UserID {
		return false
	}
	if params.Action != nil && entry.Action != *params.Action {
		return false
	}
	if params.DateFrom != nil && entry.CreatedAt.Before(*params.DateFrom) {
		return false
	}
	if params.DateTo != nil && entry.CreatedAt.After(*params.DateTo) {
		return false
	}
	return true
}

// view joins the entry with its owner; callers hold the read lock.
func (r *LogEntryRepository) view(entry models.LogEntry) *models.LogEntryView {
	view := &models.LogEntryView{LogEntry: entry}
	if user, ok := r.store.users[entry.UserID]; ok {
		view.UserExternalID = user.ExternalID
		view.UserDisplayName = user.DisplayName
	}
	return view
}

var _ repository.LogEntryRepository = (*LogEntryRepository)(nil)
