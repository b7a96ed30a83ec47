// File: backend/services/audit-service/internal/domain/models/audit_event.go
package models

import (
	"fmt"
	"time"
)

// AuditEvent is the dashboard-facing view of a log entry.
type AuditEvent struct {
	ID             int64     `json:"id"`
	EventType      string    `json:"event_type"`
	EntityType     string    `json:"entity_type"`
	EntityID       int64     `json:"entity_id"`
	Description    string    `json:"description"`
	UserID         string    `json:"user_id"`
	Timestamp      time.Time `json:"timestamp"`
	AdditionalData string    `json:"additional_data"`
}

// NewAuditEvent projects a joined log entry into an AuditEvent.
func NewAuditEvent(view *LogEntryView) AuditEvent {
	externalID := view.UserExternalID
	if externalID == "" {
		externalID = "Unknown"
	}
	return AuditEvent{
		ID:             view.ID,
		EventType:      view.Action,
		EntityType:     "Log",
		EntityID:       view.ID,
		Description:    view.Message,
		UserID:         externalID,
		Timestamp:      view.CreatedAt,
		AdditionalData: fmt.Sprintf("User: %s", view.UserDisplayName),
	}
}

// CreateAuditEventRequest records an audit event from another service. The
// entity fields and additional data are echoed back, not stored.
type CreateAuditEventRequest struct {
	EventType      string `json:"event_type"`
	EntityType     string `json:"entity_type"`
	EntityID       int64  `json:"entity_id"`
	Description    string `json:"description"`
	UserID         string `json:"user_id"`
	AdditionalData string `json:"additional_data"`
}
