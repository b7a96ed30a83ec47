package models

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domainErrors "github.com/wizarding-anonymous/gaming_platform/backend/services/audit-service/internal/domain/errors"
)

func mustEvent(t *testing.T, eventType EventType, payload string) CloudEvent {
	t.Helper()
	return CloudEvent{
		SpecVersion: CloudEventSpecVersion,
		Type:        string(eventType),
		ID:          "evt-1",
		Data:        json.RawMessage(payload),
	}
}

func TestDecodeData_UserProjectionCreated(t *testing.T) {
	event := mustEvent(t, EventTypeUserProjectionCreated,
		`{"externalId":42,"username":"jdoe","email":"j@d.io","firstName":"John","lastName":"Doe","createdAt":"2024-01-02T03:04:05"}`)

	var payload UserProjectionCreated
	require.NoError(t, DecodeData(event, &payload))

	assert.Equal(t, ExternalID("42"), payload.ExternalID)
	assert.Nil(t, payload.MiddleName)
	assert.Equal(t, time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC), payload.CreatedAt.Time)
}

func TestDecodeData_UserProjectionRenamedZoned(t *testing.T) {
	event := mustEvent(t, EventTypeUserProjectionRenamed,
		`{"externalId":"u1","newFirstName":"Johnny","newLastName":"Doe","changedAt":"2024-01-02T03:04:05-02:00"}`)

	var payload UserProjectionRenamed
	require.NoError(t, DecodeData(event, &payload))

	assert.Equal(t, time.UTC, payload.ChangedAt.Location())
	assert.Equal(t, 5, payload.ChangedAt.Hour())
}

func TestDecodeData_GenericActivityEmptyMetadata(t *testing.T) {
	event := mustEvent(t, EventTypeGenericActivity,
		`{"externalId":"u2","action":"Login","eventType":"Authentication","message":"ok","severity":"Info","createdAt":"2024-01-02T03:04:05Z","metadata":{}}`)

	var payload GenericActivityEvent
	require.NoError(t, DecodeData(event, &payload))
	assert.Empty(t, payload.Metadata)
}

func TestDecodeData_Malformed(t *testing.T) {
	cases := map[string]string{
		"no data":           ``,
		"null data":         `null`,
		"not json":          `{"externalId":`,
		"missing id":        `{"action":"Login","createdAt":"2024-01-02T03:04:05Z"}`,
		"bad timestamp":     `{"externalId":"u","action":"Login","createdAt":"soon"}`,
		"nested metadata":   `{"externalId":"u","action":"Login","createdAt":"2024-01-02T03:04:05Z","metadata":{"a":{"b":1}}}`,
		"missing createdAt": `{"externalId":"u","action":"Login"}`,
	}
	for name, raw := range cases {
		t.Run(name, func(t *testing.T) {
			event := mustEvent(t, EventTypeGenericActivity, raw)
			var payload GenericActivityEvent
			err := DecodeData(event, &payload)
			require.Error(t, err)
			assert.True(t, errors.Is(err, domainErrors.ErrMalformedEvent))
		})
	}
}

func TestNewCloudEventAndParse(t *testing.T) {
	payload := GenericActivityEvent{
		ExternalID: "u3",
		Action:     "Logout",
		CreatedAt:  NewTimestamp(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)),
		Metadata:   Metadata{"k": StringValue("v")},
	}
	event, err := NewCloudEvent("/audit-service", EventTypeGenericActivity, "u3", payload)
	require.NoError(t, err)

	raw, err := json.Marshal(event)
	require.NoError(t, err)

	parsed, err := ParseCloudEvent(raw)
	require.NoError(t, err)
	assert.Equal(t, string(EventTypeGenericActivity), parsed.Type)
	assert.Equal(t, "u3", parsed.SubjectOrEmpty())

	var decoded GenericActivityEvent
	require.NoError(t, DecodeData(parsed, &decoded))
	assert.Equal(t, payload.ExternalID, decoded.ExternalID)
	v, _ := decoded.Metadata["k"].AsString()
	assert.Equal(t, "v", v)
}

func TestParseCloudEvent_Malformed(t *testing.T) {
	_, err := ParseCloudEvent([]byte("not json"))
	assert.True(t, errors.Is(err, domainErrors.ErrMalformedEvent))

	_, err = ParseCloudEvent([]byte(`{"id":"x"}`))
	assert.True(t, errors.Is(err, domainErrors.ErrMalformedEvent))
}

func TestEventType_Channels(t *testing.T) {
	assert.Equal(t, "audit.activity.generic", EventTypeGenericActivity.Channel())
	assert.Equal(t, "audit.activity.generic.dlq", EventTypeGenericActivity.DeadLetterChannel())
}
