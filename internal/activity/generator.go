// File: backend/services/audit-service/internal/activity/generator.go

// Package activity генерирует синтетические события активности пользователей.
package activity

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/wizarding-anonymous/gaming_platform/backend/services/audit-service/internal/events"
	"github.com/wizarding-anonymous/gaming_platform/backend/services/audit-service/internal/events/models"
	"github.com/wizarding-anonymous/gaming_platform/backend/services/audit-service/internal/utils/metrics"
	"github.com/wizarding-anonymous/gaming_platform/backend/services/audit-service/internal/utils/timeutil"
)

const eventSource = "/audit-service/activity-generator"

// ErrNoIdentities is returned by Generate when the identity source is empty.
var ErrNoIdentities = errors.New("no identities available")

// Identity is one upstream user as listed by the identity source.
type Identity struct {
	ID       models.ExternalID `json:"id"`
	Username string            `json:"username"`
	Email    string            `json:"email"`
}

// IdentitySource lists the identities activity can be generated for.
type IdentitySource interface {
	ListIdentities(ctx context.Context) ([]Identity, error)
}

// Config controls the generator loop.
type Config struct {
	Interval     time.Duration
	RetryBackoff time.Duration
	MaxBackoff   time.Duration
}

// Generator periodically publishes a random GenericActivityEvent for a random identity.
type Generator struct {
	cfg       Config
	source    IdentitySource
	publisher events.Publisher
	logger    *zap.Logger

	mu   sync.Mutex
	rand *rand.Rand
	now  func() time.Time
}

// NewGenerator создает новый экземпляр Generator
func NewGenerator(cfg Config, source IdentitySource, publisher events.Publisher, logger *zap.Logger) *Generator {
	if cfg.Interval <= 0 {
		cfg.Interval = 20 * time.Second
	}
	if cfg.RetryBackoff <= 0 {
		cfg.RetryBackoff = 5 * time.Second
	}
	return &Generator{
		cfg:       cfg,
		source:    source,
		publisher: publisher,
		logger:    logger.Named("activity_generator"),
		rand:      rand.New(rand.NewSource(time.Now().UnixNano())),
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// Run generates one event per interval until ctx is cancelled, which returns nil.
// Failures back off exponentially instead of waiting a full interval.
func (g *Generator) Run(ctx context.Context) error {
	g.logger.Info("Activity generator started", zap.Duration("interval", g.cfg.Interval))

	failures := 0
	for {
		delay := g.cfg.Interval
		err := g.Generate(ctx)
		switch {
		case err == nil:
			failures = 0
		case ctx.Err() != nil:
			g.logger.Info("Activity generator stopped")
			return nil
		case errors.Is(err, ErrNoIdentities):
			failures = 0
			g.logger.Warn("No identities found, skipping event generation")
		default:
			failures++
			delay = timeutil.Backoff(failures, g.cfg.RetryBackoff, g.cfg.MaxBackoff)
			g.logger.Error("Failed to generate activity event", zap.Int("failures", failures), zap.Duration("retry_in", delay), zap.Error(err))
		}

		select {
		case <-ctx.Done():
			g.logger.Info("Activity generator stopped")
			return nil
		case <-time.After(delay):
		}
	}
}

// Generate publishes one event for a random identity.
func (g *Generator) Generate(ctx context.Context) error {
	identities, err := g.source.ListIdentities(ctx)
	if err != nil {
		metrics.ActivityPublishedTotal.WithLabelValues(metrics.StatusFailure).Inc()
		return fmt.Errorf("list identities: %w", err)
	}
	identities = withIDs(identities)
	if len(identities) == 0 {
		return ErrNoIdentities
	}

	payload := g.Build(identities[g.intn(len(identities))])
	event, err := models.NewCloudEvent(eventSource, models.EventTypeGenericActivity, payload.ExternalID.String(), payload)
	if err != nil {
		return err
	}
	if err := g.publisher.Publish(ctx, models.EventTypeGenericActivity.Channel(), event); err != nil {
		metrics.ActivityPublishedTotal.WithLabelValues(metrics.StatusFailure).Inc()
		return fmt.Errorf("publish activity event: %w", err)
	}

	metrics.ActivityPublishedTotal.WithLabelValues(metrics.StatusSuccess).Inc()
	g.logger.Info("Published activity event",
		zap.String("external_id", payload.ExternalID.String()),
		zap.String("action", payload.Action),
		zap.String("event_type", payload.EventType))
	return nil
}

// Build assembles a random activity event for identity.
func (g *Generator) Build(identity Identity) models.GenericActivityEvent {
	now := g.now()
	return models.GenericActivityEvent{
		ExternalID: identity.ID,
		Action:     g.pick(actions),
		EventType:  g.pick(eventTypes),
		Message:    g.pick(messages),
		Severity:   g.pick(severities),
		CreatedAt:  models.NewTimestamp(now),
		Metadata:   g.metadata(now),
	}
}

func (g *Generator) metadata(now time.Time) models.Metadata {
	md := models.Metadata{
		"SessionId": models.StringValue(uuid.NewString()),
		"IpAddress": models.StringValue(g.ipAddress()),
		"UserAgent": models.StringValue(g.pick(userAgents)),
		"RequestId": models.StringValue(uuid.NewString()),
		"Timestamp": models.TimestampValue(now),
		"Version":   models.StringValue("1.0.0"),
	}
	if g.intn(2) == 0 {
		md["DeviceType"] = models.StringValue(g.pick([]string{"Desktop", "Mobile"}))
	}
	if g.intn(3) == 0 {
		md["Location"] = models.StringValue(g.pick(locations))
	}
	if g.intn(4) == 0 {
		md["Duration"] = models.NumberValue(float64(100 + g.intn(4900)))
	}
	return md
}

func withIDs(identities []Identity) []Identity {
	out := identities[:0:0]
	for _, identity := range identities {
		if identity.ID != "" {
			out = append(out, identity)
		}
	}
	return out
}

func (g *Generator) ipAddress() string {
	return fmt.Sprintf("%d.%d.%d.%d", 1+g.intn(254), 1+g.intn(254), 1+g.intn(254), 1+g.intn(254))
}

func (g *Generator) pick(values []string) string {
	return values[g.intn(len(values))]
}

// intn guards the shared source; *rand.Rand is not safe for concurrent use.
func (g *Generator) intn(n int) int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.rand.Intn(n)
}
