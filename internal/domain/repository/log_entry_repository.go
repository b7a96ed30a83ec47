// File: backend/services/audit-service/internal/domain/repository/log_entry_repository.go
package repository

import (
	"context"

	"github.com/wizarding-anonymous/gaming_platform/backend/services/audit-service/internal/domain/models"
)

// LogEntryRepository is the append-only ledger of log entries.
// There is deliberately no update or delete operation.
type LogEntryRepository interface {
	// Append inserts a log entry and fills in its ID.
	Append(ctx context.Context, entry *models.LogEntry) error

	// FindByID returns the joined view or domainErrors.ErrLogEntryNotFound.
	FindByID(ctx context.Context, id int64) (*models.LogEntryView, error)

	// List returns joined views matching params, newest first.
	List(ctx context.Context, params models.ListLogEntriesParams) ([]*models.LogEntryView, error)
}
