// File: backend/services/audit-service/internal/events/memory/bus.go

// Package memory is an in-process event bus with the same delivery contract
// as the broker bindings: per-type queues, bounded retries, dead letters.
package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	domainErrors "github.com/wizarding-anonymous/gaming_platform/backend/services/audit-service/internal/domain/errors"
	"github.com/wizarding-anonymous/gaming_platform/backend/services/audit-service/internal/events"
	"github.com/wizarding-anonymous/gaming_platform/backend/services/audit-service/internal/events/models"
	"github.com/wizarding-anonymous/gaming_platform/backend/services/audit-service/internal/utils/metrics"
)

const transportName = "memory"

// Config holds the bus settings.
type Config struct {
	Workers        int
	QueueSize      int
	Retry          events.RetryPolicy
	HandlerTimeout time.Duration
}

type route struct {
	eventType models.EventType
	handler   models.EventHandler
	queue     chan []byte
}

// Bus delivers published events to registered handlers.
type Bus struct {
	cfg    Config
	logger *zap.Logger

	mu          sync.RWMutex
	routes      map[string]*route
	deadLetters []events.DeadLetter

	inflight atomic.Int64
	cancel   context.CancelFunc
	wg       sync.WaitGroup
}

// NewBus creates a Bus.
func NewBus(cfg Config, logger *zap.Logger) *Bus {
	if cfg.Workers < 1 {
		cfg.Workers = 1
	}
	if cfg.QueueSize < 1 {
		cfg.QueueSize = 256
	}
	return &Bus{
		cfg:    cfg,
		logger: logger.Named("memory_bus"),
		routes: make(map[string]*route),
	}
}

// RegisterHandler subscribes handler to eventType. Call before Start.
func (b *Bus) RegisterHandler(eventType models.EventType, handler models.EventHandler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.routes[eventType.Channel()] = &route{
		eventType: eventType,
		handler:   handler,
		queue:     make(chan []byte, b.cfg.QueueSize),
	}
	b.logger.Info("Registering handler", zap.String("event_type", string(eventType)))
}

// Start launches the worker pool of every route.
func (b *Bus) Start(ctx context.Context) error {
	ctx, b.cancel = context.WithCancel(ctx)

	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, r := range b.routes {
		for i := 0; i < b.cfg.Workers; i++ {
			b.wg.Add(1)
			go b.worker(ctx, r)
		}
	}
	return nil
}

// Publish enqueues event on channel. It blocks while the queue is full.
func (b *Bus) Publish(ctx context.Context, channel string, event models.CloudEvent) error {
	raw, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal cloud event: %w", err)
	}
	return b.PublishRaw(ctx, channel, raw)
}

// PublishRaw enqueues an already encoded message.
func (b *Bus) PublishRaw(ctx context.Context, channel string, raw []byte) error {
	b.mu.RLock()
	r, ok := b.routes[channel]
	b.mu.RUnlock()
	if !ok {
		return fmt.Errorf("no subscriber for channel %s", channel)
	}

	b.inflight.Add(1)
	select {
	case r.queue <- raw:
		return nil
	case <-ctx.Done():
		b.inflight.Add(-1)
		return ctx.Err()
	}
}

// PublishDeadLetter retains letter for inspection.
func (b *Bus) PublishDeadLetter(ctx context.Context, letter events.DeadLetter) error {
	b.mu.Lock()
	b.deadLetters = append(b.deadLetters, letter)
	b.mu.Unlock()
	return nil
}

// DeadLetters returns the dead letters collected so far.
func (b *Bus) DeadLetters() []events.DeadLetter {
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make([]events.DeadLetter, len(b.deadLetters))
	copy(out, b.deadLetters)
	return out
}

// Flush waits until every published message was applied or dead-lettered.
func (b *Bus) Flush(ctx context.Context) error {
	ticker := time.NewTicker(5 * time.Millisecond)
	defer ticker.Stop()
	for b.inflight.Load() > 0 {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
	return nil
}

// Close stops the workers after their current message. Queued messages are dropped.
func (b *Bus) Close() error {
	if b.cancel != nil {
		b.cancel()
	}
	b.wg.Wait()
	return nil
}

func (b *Bus) worker(ctx context.Context, r *route) {
	defer b.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case raw := <-r.queue:
			b.process(ctx, r, raw)
			b.inflight.Add(-1)
		}
	}
}

func (b *Bus) process(ctx context.Context, r *route, raw []byte) {
	eventType := string(r.eventType)
	var eventID string

	attempts, err := events.Deliver(ctx, b.cfg.Retry, func(ctx context.Context) error {
		event, err := models.ParseCloudEvent(raw)
		if err != nil {
			return err
		}
		eventID = event.ID
		if event.Type != eventType {
			return fmt.Errorf("%w: %q on channel %s", domainErrors.ErrUnknownEventType, event.Type, r.eventType.Channel())
		}
		if b.cfg.HandlerTimeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, b.cfg.HandlerTimeout)
			defer cancel()
		}
		return r.handler(ctx, event)
	}, func(attempt int, err error) {
		metrics.DeliveriesTotal.WithLabelValues(transportName, eventType, metrics.StatusRetry).Inc()
		b.logger.Warn("Error processing event, retrying",
			zap.String("event_type", eventType),
			zap.String("event_id", eventID),
			zap.Int("attempt", attempt),
			zap.Error(err))
	})
	if err == nil {
		metrics.DeliveriesTotal.WithLabelValues(transportName, eventType, metrics.StatusSuccess).Inc()
		return
	}
	if ctx.Err() != nil {
		return
	}

	letter := events.NewDeadLetter(r.eventType.Channel(), "", eventID, raw, err, attempts)
	_ = b.PublishDeadLetter(ctx, letter)
	metrics.DeliveriesTotal.WithLabelValues(transportName, eventType, metrics.StatusDeadLetter).Inc()
	b.logger.Error("Message dead-lettered",
		zap.String("event_type", eventType),
		zap.String("event_id", eventID),
		zap.Int("attempts", attempts),
		zap.Error(err))
}

var (
	_ events.Consumer            = (*Bus)(nil)
	_ events.Publisher           = (*Bus)(nil)
	_ events.DeadLetterPublisher = (*Bus)(nil)
)
