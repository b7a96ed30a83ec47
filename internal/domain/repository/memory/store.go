// File: backend/services/audit-service/internal/domain/repository/memory/store.go

// Package memory is an in-process projection store used by tests and by the
// memory transport. Writes apply immediately under a short lock; a
// transaction keeps an undo journal that is replayed on rollback.
package memory

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/wizarding-anonymous/gaming_platform/backend/services/audit-service/internal/domain/models"
	"github.com/wizarding-anonymous/gaming_platform/backend/services/audit-service/internal/domain/repository"
)

// Store operations passed to the fault hook.
const (
	OpUserCreate = "users.create"
	OpUserFind   = "users.find"
	OpUserList   = "users.list"
	OpUserUpdate = "users.update"
	OpUserDelete = "users.delete"
	OpLogAppend  = "logs.append"
	OpLogFind    = "logs.find"
	OpLogList    = "logs.list"
)

type txKey struct{}

type journal struct {
	mu   sync.Mutex
	undo []func()
}

func (j *journal) record(fn func()) {
	j.mu.Lock()
	j.undo = append(j.undo, fn)
	j.mu.Unlock()
}

// Store holds both tables.
type Store struct {
	mu         sync.RWMutex
	users      map[uuid.UUID]models.ProjectionUser
	byExternal map[string]uuid.UUID
	logs       map[int64]models.LogEntry
	nextLogID  int64
	fault      func(op string) error
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{
		users:      make(map[uuid.UUID]models.ProjectionUser),
		byExternal: make(map[string]uuid.UUID),
		logs:       make(map[int64]models.LogEntry),
	}
}

// SetFaultHook installs fn, called before every operation; a non-nil
// result is returned as the operation's error.
func (s *Store) SetFaultHook(fn func(op string) error) {
	s.mu.Lock()
	s.fault = fn
	s.mu.Unlock()
}

func (s *Store) checkFault(op string) error {
	s.mu.RLock()
	fault := s.fault
	s.mu.RUnlock()
	if fault == nil {
		return nil
	}
	return fault(op)
}

// Users returns the ProjectionUserRepository view of the store.
func (s *Store) Users() *ProjectionUserRepository {
	return &ProjectionUserRepository{store: s}
}

// Logs returns the LogEntryRepository view of the store.
func (s *Store) Logs() *LogEntryRepository {
	return &LogEntryRepository{store: s}
}

// WithinTransaction runs fn and undoes its writes if it fails. Nested calls
// join the outer transaction.
func (s *Store) WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	if _, ok := ctx.Value(txKey{}).(*journal); ok {
		return fn(ctx)
	}

	j := &journal{}
	if err := fn(context.WithValue(ctx, txKey{}, j)); err != nil {
		s.mu.Lock()
		for i := len(j.undo) - 1; i >= 0; i-- {
			j.undo[i]()
		}
		s.mu.Unlock()
		return err
	}
	return nil
}

// recordUndo registers fn to run (under s.mu) if the transaction in ctx rolls back.
func recordUndo(ctx context.Context, fn func()) {
	if j, ok := ctx.Value(txKey{}).(*journal); ok {
		j.record(fn)
	}
}

// Counts reports the number of users and log entries.
func (s *Store) Counts() (users int, logs int) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.users), len(s.logs)
}

var _ repository.Transactor = (*Store)(nil)
