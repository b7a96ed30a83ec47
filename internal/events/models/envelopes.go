// File: backend/services/audit-service/internal/events/models/envelopes.go
package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	domainErrors "github.com/wizarding-anonymous/gaming_platform/backend/services/audit-service/internal/domain/errors"
	"github.com/wizarding-anonymous/gaming_platform/backend/services/audit-service/internal/utils/timeutil"
)

// ExternalID is an upstream identity key. Upstream services send it either
// as a JSON string or as a number; both decode to the same string form.
type ExternalID string

func (id *ExternalID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = ExternalID(strings.TrimSpace(s))
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("externalId must be a string or a number")
	}
	*id = ExternalID(n.String())
	return nil
}

func (id ExternalID) String() string { return string(id) }

// Timestamp accepts zoned and naive ISO-8601 values and always holds UTC.
type Timestamp struct {
	time.Time
}

// NewTimestamp normalizes t to UTC.
func NewTimestamp(t time.Time) Timestamp {
	return Timestamp{Time: timeutil.NormalizeUTC(t)}
}

func (t *Timestamp) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("timestamp must be a string: %w", err)
	}
	parsed, err := timeutil.ParseTimestamp(s)
	if err != nil {
		return err
	}
	t.Time = parsed
	return nil
}

func (t Timestamp) MarshalJSON() ([]byte, error) {
	return json.Marshal(timeutil.FormatTimestamp(t.Time))
}

// UserProjectionCreated announces a new upstream identity with its name.
type UserProjectionCreated struct {
	ExternalID ExternalID `json:"externalId"`
	Username   string     `json:"username"`
	Email      string     `json:"email"`
	FirstName  string     `json:"firstName"`
	LastName   string     `json:"lastName"`
	MiddleName *string    `json:"middleName,omitempty"`
	CreatedAt  Timestamp  `json:"createdAt"`
}

// UserProjectionRenamed announces a name change of an upstream identity.
type UserProjectionRenamed struct {
	ExternalID    ExternalID `json:"externalId"`
	Username      string     `json:"username"`
	Email         string     `json:"email"`
	OldFirstName  string     `json:"oldFirstName"`
	NewFirstName  string     `json:"newFirstName"`
	OldLastName   string     `json:"oldLastName"`
	NewLastName   string     `json:"newLastName"`
	OldMiddleName *string    `json:"oldMiddleName,omitempty"`
	NewMiddleName *string    `json:"newMiddleName,omitempty"`
	ChangedAt     Timestamp  `json:"changedAt"`
}

// GenericActivityEvent records arbitrary activity of an upstream identity.
type GenericActivityEvent struct {
	ExternalID ExternalID `json:"externalId"`
	Action     string     `json:"action"`
	EventType  string     `json:"eventType"`
	Message    string     `json:"message"`
	Severity   string     `json:"severity"`
	CreatedAt  Timestamp  `json:"createdAt"`
	Metadata   Metadata   `json:"metadata,omitempty"`
}

// Validator is implemented by every envelope.
type Validator interface {
	Validate() error
}

func (e *UserProjectionCreated) Validate() error {
	if e.ExternalID == "" {
		return domainErrors.Malformedf("externalId is required")
	}
	if e.CreatedAt.IsZero() {
		return domainErrors.Malformedf("createdAt is required")
	}
	return nil
}

func (e *UserProjectionRenamed) Validate() error {
	if e.ExternalID == "" {
		return domainErrors.Malformedf("externalId is required")
	}
	if e.ChangedAt.IsZero() {
		return domainErrors.Malformedf("changedAt is required")
	}
	return nil
}

func (e *GenericActivityEvent) Validate() error {
	if e.ExternalID == "" {
		return domainErrors.Malformedf("externalId is required")
	}
	if e.Action == "" {
		return domainErrors.Malformedf("action is required")
	}
	if e.CreatedAt.IsZero() {
		return domainErrors.Malformedf("createdAt is required")
	}
	return nil
}

// DecodeData unmarshals the event data into out and validates it.
// Every failure is reported as ErrMalformedEvent.
func DecodeData(event CloudEvent, out Validator) error {
	if len(event.Data) == 0 || string(event.Data) == "null" {
		return domainErrors.Malformedf("event %s has no data", event.ID)
	}
	if err := json.Unmarshal(event.Data, out); err != nil {
		return domainErrors.Malformedf("event %s: %v", event.ID, err)
	}
	return out.Validate()
}
