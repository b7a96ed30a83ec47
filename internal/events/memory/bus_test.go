package memory

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/wizarding-anonymous/gaming_platform/backend/services/audit-service/internal/domain/models"
	memstore "github.com/wizarding-anonymous/gaming_platform/backend/services/audit-service/internal/domain/repository/memory"
	"github.com/wizarding-anonymous/gaming_platform/backend/services/audit-service/internal/events"
	"github.com/wizarding-anonymous/gaming_platform/backend/services/audit-service/internal/events/handlers"
	eventModels "github.com/wizarding-anonymous/gaming_platform/backend/services/audit-service/internal/events/models"
	"github.com/wizarding-anonymous/gaming_platform/backend/services/audit-service/internal/service"
)

var (
	t0 = time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	t1 = t0.Add(time.Hour)
	t2 = t0.Add(2 * time.Hour)
)

func testConfig() Config {
	return Config{
		Workers: 4,
		Retry:   events.RetryPolicy{MaxDeliver: 3, Backoff: time.Millisecond, MaxBackoff: 2 * time.Millisecond},
	}
}

func publish(t *testing.T, bus *Bus, eventType eventModels.EventType, payload interface{}) {
	t.Helper()
	event, err := eventModels.NewCloudEvent("/identity-service", eventType, "", payload)
	require.NoError(t, err)
	require.NoError(t, bus.Publish(context.Background(), eventType.Channel(), event))
}

func flush(t *testing.T, bus *Bus) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, bus.Flush(ctx))
}

// pipeline wires the bus to a projection over the memory store.
func pipeline(t *testing.T) (*Bus, *memstore.Store) {
	t.Helper()
	logger := zap.NewNop()
	store := memstore.NewStore()
	resolver := service.NewIdentityResolver(store.Users(), logger)
	writer := service.NewProjectionWriter(store, resolver, store.Users(), store.Logs(), nil, nil, logger)

	bus := NewBus(testConfig(), logger)
	handlers.NewProjectionEventsHandler(writer, logger).Register(bus)
	require.NoError(t, bus.Start(context.Background()))
	t.Cleanup(func() { _ = bus.Close() })
	return bus, store
}

func TestBus_ProjectionScenarios(t *testing.T) {
	bus, store := pipeline(t)
	ctx := context.Background()

	publish(t, bus, eventModels.EventTypeUserProjectionCreated, eventModels.UserProjectionCreated{
		ExternalID: "u1", Username: "jdoe", Email: "j@example.com",
		FirstName: "John", LastName: "Doe", CreatedAt: eventModels.NewTimestamp(t0),
	})
	flush(t, bus)

	user, err := store.Users().FindByExternalID(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, "John Doe", user.DisplayName)

	publish(t, bus, eventModels.EventTypeUserProjectionRenamed, eventModels.UserProjectionRenamed{
		ExternalID: "u1", Username: "jdoe", Email: "j@example.com",
		OldFirstName: "John", OldLastName: "Doe", NewFirstName: "Johnny", NewLastName: "Doe",
		ChangedAt: eventModels.NewTimestamp(t1),
	})
	publish(t, bus, eventModels.EventTypeGenericActivity, eventModels.GenericActivityEvent{
		ExternalID: "u2", Action: "Login", EventType: "Authentication", Message: "ok", Severity: "Info",
		CreatedAt: eventModels.NewTimestamp(t2),
	})
	flush(t, bus)

	renamed, err := store.Users().FindByExternalID(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, user.ID, renamed.ID)
	assert.Equal(t, "Johnny Doe", renamed.DisplayName)
	require.NotNil(t, renamed.UpdatedAt)
	assert.Equal(t, t1, *renamed.UpdatedAt)

	u1Logs, err := store.Logs().List(ctx, models.ListLogEntriesParams{UserID: &renamed.ID})
	require.NoError(t, err)
	assert.Len(t, u1Logs, 2)

	u2, err := store.Users().FindByExternalID(ctx, "u2")
	require.NoError(t, err)
	assert.Equal(t, "", u2.DisplayName)
	u2Logs, err := store.Logs().List(ctx, models.ListLogEntriesParams{UserID: &u2.ID})
	require.NoError(t, err)
	require.Len(t, u2Logs, 1)
	assert.Equal(t, "Login", u2Logs[0].Action)

	assert.Empty(t, bus.DeadLetters())
}

func TestBus_ConcurrentFirstSight(t *testing.T) {
	bus, store := pipeline(t)

	const n = 40
	for i := 0; i < n; i++ {
		publish(t, bus, eventModels.EventTypeGenericActivity, eventModels.GenericActivityEvent{
			ExternalID: "shared", Action: "Login", EventType: "Authentication", Message: "ok", Severity: "Info",
			CreatedAt: eventModels.NewTimestamp(t0),
		})
		publish(t, bus, eventModels.EventTypeUserProjectionCreated, eventModels.UserProjectionCreated{
			ExternalID: "shared", FirstName: "Sam", LastName: "Race", CreatedAt: eventModels.NewTimestamp(t0),
		})
	}
	flush(t, bus)

	users, logs := store.Counts()
	assert.Equal(t, 1, users)
	assert.Equal(t, 2*n, logs)
	assert.Empty(t, bus.DeadLetters())
}

func TestBus_MalformedPayloadIsDeadLettered(t *testing.T) {
	bus, store := pipeline(t)

	publish(t, bus, eventModels.EventTypeGenericActivity, map[string]interface{}{
		"externalId": "u1",
		"action":     "Login",
		"createdAt":  "2024-03-01T10:00:00Z",
		"metadata":   map[string]interface{}{"nested": map[string]int{"a": 1}},
	})
	require.NoError(t, bus.PublishRaw(context.Background(), eventModels.EventTypeGenericActivity.Channel(), []byte("{")))
	flush(t, bus)

	letters := bus.DeadLetters()
	require.Len(t, letters, 2)
	for _, l := range letters {
		assert.Equal(t, "audit.activity.generic.dlq", l.Channel)
		assert.Equal(t, 3, l.Attempts)
	}
	users, logs := store.Counts()
	assert.Zero(t, users)
	assert.Zero(t, logs)
}

func TestBus_TransientFailureIsRetried(t *testing.T) {
	bus := NewBus(testConfig(), zap.NewNop())
	var calls atomic.Int32
	bus.RegisterHandler(eventModels.EventTypeGenericActivity, func(ctx context.Context, event eventModels.CloudEvent) error {
		if calls.Add(1) < 3 {
			return errors.New("transient")
		}
		return nil
	})
	require.NoError(t, bus.Start(context.Background()))
	defer bus.Close()

	publish(t, bus, eventModels.EventTypeGenericActivity, map[string]string{"externalId": "u1"})
	flush(t, bus)

	assert.Equal(t, int32(3), calls.Load())
	assert.Empty(t, bus.DeadLetters())
}

func TestBus_PublishWithoutSubscriber(t *testing.T) {
	bus := NewBus(testConfig(), zap.NewNop())
	event, err := eventModels.NewCloudEvent("/x", eventModels.EventTypeGenericActivity, "", struct{}{})
	require.NoError(t, err)

	err = bus.Publish(context.Background(), "unknown.channel", event)
	assert.Error(t, err)
}
