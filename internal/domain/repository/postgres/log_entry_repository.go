// File: backend/services/audit-service/internal/domain/repository/postgres/log_entry_repository.go
package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	domainErrors "github.com/wizarding-anonymous/gaming_platform/backend/services/audit-service/internal/domain/errors"
	"github.com/wizarding-anonymous/gaming_platform/backend/services/audit-service/internal/domain/models"
	"github.com/wizarding-anonymous/gaming_platform/backend/services/audit-service/internal/domain/repository"
)

const logEntryViewColumns = `
	l.id, l.action, l.user_id, l.message, l.created_at,
	COALESCE(u.external_id, ''), COALESCE(u.display_name, '')`

// LogEntryRepositoryPostgres implements repository.LogEntryRepository for PostgreSQL.
type LogEntryRepositoryPostgres struct {
	pool *pgxpool.Pool
}

// NewLogEntryRepositoryPostgres creates a new instance.
func NewLogEntryRepositoryPostgres(pool *pgxpool.Pool) *LogEntryRepositoryPostgres {
	return &LogEntryRepositoryPostgres{pool: pool}
}

// Append persists a new log entry. id is assigned by the database and
// entry.Message is clipped in place to what the row stores.
func (r *LogEntryRepositoryPostgres) Append(ctx context.Context, entry *models.LogEntry) error {
	entry.Message = models.TruncateMessage(entry.Message)
	query := `
		INSERT INTO log_entries (action, user_id, message, created_at)
		VALUES ($1, $2, $3, $4)
		RETURNING id`
	err := conn(ctx, r.pool).QueryRow(ctx, query,
		entry.Action, entry.UserID, entry.Message, entry.CreatedAt,
	).Scan(&entry.ID)
	if err != nil {
		return fmt.Errorf("failed to append log entry: %w", err)
	}
	return nil
}

func (r *LogEntryRepositoryPostgres) FindByID(ctx context.Context, id int64) (*models.LogEntryView, error) {
	query := `SELECT ` + logEntryViewColumns + `
		FROM log_entries l
		LEFT JOIN projection_users u ON u.id = l.user_id
		WHERE l.id = $1`
	view, err := scanLogEntryView(conn(ctx, r.pool).QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domainErrors.ErrLogEntryNotFound
		}
		return nil, fmt.Errorf("failed to find log entry by ID: %w", err)
	}
	return view, nil
}

func (r *LogEntryRepositoryPostgres) List(ctx context.Context, params models.ListLogEntriesParams) ([]*models.LogEntryView, error) {
	var sb strings.Builder
	sb.WriteString(`SELECT ` + logEntryViewColumns + `
		FROM log_entries l
		LEFT JOIN projection_users u ON u.id = l.user_id`)

	conditions := []string{}
	args := []interface{}{}
	argCount := 1

	addCondition := func(condition string, value interface{}) {
		conditions = append(conditions, fmt.Sprintf(condition, argCount))
		args = append(args, value)
		argCount++
	}

	if params.UserID != nil {
		addCondition("l.user_id = $%d", *params.UserID)
	}
	if params.Action != nil {
		addCondition("l.action = $%d", *params.Action)
	}
	if params.DateFrom != nil {
		addCondition("l.created_at >= $%d", params.DateFrom.UTC())
	}
	if params.DateTo != nil {
		addCondition("l.created_at <= $%d", params.DateTo.UTC())
	}

	if len(conditions) > 0 {
		sb.WriteString(" WHERE " + strings.Join(conditions, " AND "))
	}
	sb.WriteString(" ORDER BY l.created_at DESC, l.id DESC")

	if params.Limit > 0 {
		sb.WriteString(fmt.Sprintf(" LIMIT $%d", argCount))
		args = append(args, params.Limit)
		argCount++
	}
	if params.Offset > 0 {
		sb.WriteString(fmt.Sprintf(" OFFSET $%d", argCount))
		args = append(args, params.Offset)
	}

	rows, err := conn(ctx, r.pool).Query(ctx, sb.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list log entries: %w", err)
	}
	defer rows.Close()

	views := make([]*models.LogEntryView, 0)
	for rows.Next() {
		view, errScan := scanLogEntryView(rows)
		if errScan != nil {
			return nil, fmt.Errorf("failed to scan log entry row: %w", errScan)
		}
		views = append(views, view)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating log entry rows: %w", err)
	}
	return views, nil
}

func scanLogEntryView(row pgx.Row) (*models.LogEntryView, error) {
	view := &models.LogEntryView{}
	err := row.Scan(
		&view.ID, &view.Action, &view.UserID, &view.Message, &view.CreatedAt,
		&view.UserExternalID, &view.UserDisplayName,
	)
	if err != nil {
		return nil, err
	}
	view.CreatedAt = view.CreatedAt.UTC()
	return view, nil
}

var _ repository.LogEntryRepository = (*LogEntryRepositoryPostgres)(nil)
