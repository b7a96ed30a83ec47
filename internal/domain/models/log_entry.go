// File: backend/services/audit-service/internal/domain/models/log_entry.go
package models

import (
	"time"

	"github.com/google/uuid"
)

// Log actions written by the projection writer.
const (
	ActionNameCreated = "NameCreated"
	ActionNameChanged = "NameChanged"
)

// LogEntry is an immutable audit record owned by a ProjectionUser.
type LogEntry struct {
	ID        int64     `json:"id" db:"id"` // BIGSERIAL
	Action    string    `json:"action" db:"action"`
	UserID    uuid.UUID `json:"user_id" db:"user_id"`
	Message   string    `json:"message" db:"message"`
	CreatedAt time.Time `json:"created_at" db:"created_at"` // event time, not ingestion time
}

// LogEntryView is a LogEntry joined with the owning user's identity.
type LogEntryView struct {
	LogEntry
	UserExternalID  string `json:"user_external_id"`
	UserDisplayName string `json:"user_display_name"`
}

// ListLogEntriesParams filters log entry queries. Results are always ordered
// by created_at descending.
type ListLogEntriesParams struct {
	UserID   *uuid.UUID
	Action   *string
	DateFrom *time.Time
	DateTo   *time.Time
	Limit    int
	Offset   int
}

// CreateLogRequest is the manual path for appending a log entry.
type CreateLogRequest struct {
	Action         string  `json:"action"`
	UserExternalID string  `json:"user_external_id"`
	UserName       *string `json:"user_name,omitempty"`
	Message        string  `json:"message"`
}

// TruncateMessage clips a message to the column bound.
func TruncateMessage(message string) string {
	runes := []rune(message)
	if len(runes) <= MaxMessageLength {
		return message
	}
	return string(runes[:MaxMessageLength])
}
