package activity

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/wizarding-anonymous/gaming_platform/backend/services/audit-service/internal/events/models"
)

type staticSource struct {
	mu         sync.Mutex
	identities []Identity
	err        error
	calls      int
}

func (s *staticSource) ListIdentities(ctx context.Context) ([]Identity, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	return s.identities, s.err
}

func (s *staticSource) Calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

type recordingPublisher struct {
	mu       sync.Mutex
	channels []string
	events   []models.CloudEvent
	err      error
}

func (p *recordingPublisher) Publish(ctx context.Context, channel string, event models.CloudEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.channels = append(p.channels, channel)
	p.events = append(p.events, event)
	return nil
}

func newTestGenerator(source IdentitySource, publisher *recordingPublisher) *Generator {
	return NewGenerator(Config{Interval: time.Hour, RetryBackoff: time.Millisecond, MaxBackoff: 4 * time.Millisecond}, source, publisher, zap.NewNop())
}

func TestGenerator_GeneratePublishesActivity(t *testing.T) {
	source := &staticSource{identities: []Identity{{ID: "42", Username: "jdoe", Email: "j@example.com"}}}
	publisher := &recordingPublisher{}
	g := newTestGenerator(source, publisher)

	require.NoError(t, g.Generate(context.Background()))
	require.Len(t, publisher.events, 1)
	assert.Equal(t, "audit.activity.generic", publisher.channels[0])

	event := publisher.events[0]
	assert.Equal(t, string(models.EventTypeGenericActivity), event.Type)
	require.NotNil(t, event.Subject)
	assert.Equal(t, "42", *event.Subject)

	var payload models.GenericActivityEvent
	require.NoError(t, models.DecodeData(event, &payload))
	assert.Equal(t, models.ExternalID("42"), payload.ExternalID)
	assert.Contains(t, actions, payload.Action)
	assert.Contains(t, eventTypes, payload.EventType)
	assert.Contains(t, severities, payload.Severity)
	assert.Contains(t, messages, payload.Message)
	for _, key := range []string{"SessionId", "IpAddress", "UserAgent", "RequestId", "Timestamp", "Version"} {
		assert.Contains(t, payload.Metadata, key)
	}
	ts, ok := payload.Metadata["Timestamp"].AsTimestamp()
	require.True(t, ok)
	assert.WithinDuration(t, time.Now(), ts, time.Minute)
}

func TestGenerator_BuildOptionalMetadata(t *testing.T) {
	g := newTestGenerator(&staticSource{}, &recordingPublisher{})
	seen := map[string]bool{}
	for i := 0; i < 200; i++ {
		event := g.Build(Identity{ID: "7"})
		for key, value := range event.Metadata {
			seen[key] = true
			if key == "Duration" {
				n, ok := value.AsNumber()
				require.True(t, ok)
				assert.GreaterOrEqual(t, n, 100.0)
				assert.Less(t, n, 5000.0)
			}
		}
	}
	assert.True(t, seen["DeviceType"])
	assert.True(t, seen["Location"])
	assert.True(t, seen["Duration"])
}

func TestGenerator_NoIdentities(t *testing.T) {
	publisher := &recordingPublisher{}
	g := newTestGenerator(&staticSource{identities: []Identity{{Username: "no-id"}}}, publisher)

	err := g.Generate(context.Background())
	assert.ErrorIs(t, err, ErrNoIdentities)
	assert.Empty(t, publisher.events)
}

func TestGenerator_PublishFailure(t *testing.T) {
	publisher := &recordingPublisher{err: errors.New("broker unavailable")}
	g := newTestGenerator(&staticSource{identities: []Identity{{ID: "1"}}}, publisher)

	err := g.Generate(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "broker unavailable")
}

func TestGenerator_RunBacksOffAndStopsOnCancel(t *testing.T) {
	source := &staticSource{err: errors.New("identity service down")}
	g := newTestGenerator(source, &recordingPublisher{})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- g.Run(ctx) }()

	// Failures retry within milliseconds instead of waiting the hour long interval.
	require.Eventually(t, func() bool { return source.Calls() >= 3 }, 5*time.Second, time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("generator did not stop")
	}
}

func TestHTTPIdentitySource(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/users", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode([]map[string]interface{}{
			{"id": 5, "username": "jdoe", "email": "j@example.com"},
			{"id": "abc", "username": "ann", "email": "a@example.com"},
		})
	}))
	defer srv.Close()

	identities, err := NewHTTPIdentitySource(srv.URL+"/api/users", time.Second).ListIdentities(context.Background())
	require.NoError(t, err)
	require.Len(t, identities, 2)
	assert.Equal(t, models.ExternalID("5"), identities[0].ID)
	assert.Equal(t, "ann", identities[1].Username)
}

func TestHTTPIdentitySource_ErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	_, err := NewHTTPIdentitySource(srv.URL, time.Second).ListIdentities(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "502")
}
