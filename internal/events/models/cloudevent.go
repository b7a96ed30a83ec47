// File: backend/services/audit-service/internal/events/models/cloudevent.go
package models

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	domainErrors "github.com/wizarding-anonymous/gaming_platform/backend/services/audit-service/internal/domain/errors"
)

// Constants for CloudEvent fields
const (
	CloudEventSpecVersion     = "1.0"
	CloudEventDataContentType = "application/json"
)

// EventType is the CloudEvents type string. It doubles as the name of the
// channel (Kafka topic, NATS subject) carrying that type.
type EventType string

const (
	EventTypeUserProjectionCreated EventType = "audit.user_projection.created"
	EventTypeUserProjectionRenamed EventType = "audit.user_projection.renamed"
	EventTypeGenericActivity       EventType = "audit.activity.generic"
)

// EventTypes lists every type the service subscribes to.
var EventTypes = []EventType{
	EventTypeUserProjectionCreated,
	EventTypeUserProjectionRenamed,
	EventTypeGenericActivity,
}

// Channel returns the topic/subject name of the type.
func (t EventType) Channel() string { return string(t) }

// DeadLetterChannel returns the channel receiving messages that exhausted their retries.
func (t EventType) DeadLetterChannel() string { return string(t) + ".dlq" }

// CloudEvent defines the structure for CloudEvents v1.0.
type CloudEvent struct {
	SpecVersion     string          `json:"specversion"`
	Type            string          `json:"type"`
	Source          string          `json:"source"`
	Subject         *string         `json:"subject,omitempty"`
	ID              string          `json:"id"`
	Time            time.Time       `json:"time"`
	DataContentType *string         `json:"datacontenttype,omitempty"`
	Data            json.RawMessage `json:"data,omitempty"`
}

// EventHandler handles one decoded CloudEvent. A nil error means the event
// was fully applied and may be acknowledged.
type EventHandler func(ctx context.Context, event CloudEvent) error

// NewCloudEvent wraps payload into a CloudEvent with a fresh id.
func NewCloudEvent(source string, eventType EventType, subject string, payload interface{}) (CloudEvent, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return CloudEvent{}, fmt.Errorf("failed to marshal event payload: %w", err)
	}
	contentType := CloudEventDataContentType
	event := CloudEvent{
		SpecVersion:     CloudEventSpecVersion,
		Type:            string(eventType),
		Source:          source,
		ID:              uuid.NewString(),
		Time:            time.Now().UTC(),
		DataContentType: &contentType,
		Data:            data,
	}
	if subject != "" {
		event.Subject = &subject
	}
	return event, nil
}

// ParseCloudEvent decodes a raw message. Failures are ErrMalformedEvent.
func ParseCloudEvent(raw []byte) (CloudEvent, error) {
	var event CloudEvent
	if err := json.Unmarshal(raw, &event); err != nil {
		return CloudEvent{}, domainErrors.Malformedf("invalid cloud event: %v", err)
	}
	if event.Type == "" {
		return CloudEvent{}, domainErrors.Malformedf("cloud event without type")
	}
	return event, nil
}

// SubjectOrEmpty returns the subject or "".
func (e CloudEvent) SubjectOrEmpty() string {
	if e.Subject == nil {
		return ""
	}
	return *e.Subject
}
