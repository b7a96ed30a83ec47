// File: backend/services/audit-service/internal/events/nats/consumer.go
package nats

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/nats-io/nats.go/jetstream"
	"go.uber.org/zap"

	domainErrors "github.com/wizarding-anonymous/gaming_platform/backend/services/audit-service/internal/domain/errors"
	"github.com/wizarding-anonymous/gaming_platform/backend/services/audit-service/internal/events"
	"github.com/wizarding-anonymous/gaming_platform/backend/services/audit-service/internal/events/models"
	"github.com/wizarding-anonymous/gaming_platform/backend/services/audit-service/internal/utils/metrics"
)

const transportName = "nats"

// message is the part of jetstream.Msg the consumer relies on.
type message interface {
	Data() []byte
	Subject() string
	Metadata() (*jetstream.MsgMetadata, error)
	Ack() error
	NakWithDelay(delay time.Duration) error
	Term() error
}

// Consumer pulls every registered event type from its own durable consumer.
type Consumer struct {
	client   *Client
	handlers map[models.EventType]models.EventHandler
	logger   *zap.Logger
	cancel   context.CancelFunc
	wg       sync.WaitGroup
}

// NewConsumer creates a Consumer on client.
func NewConsumer(client *Client, logger *zap.Logger) *Consumer {
	return &Consumer{
		client:   client,
		handlers: make(map[models.EventType]models.EventHandler),
		logger:   logger.Named("nats_consumer"),
	}
}

// RegisterHandler registers an event handler for a specific event type.
func (c *Consumer) RegisterHandler(eventType models.EventType, handler models.EventHandler) {
	c.logger.Info("Registering handler", zap.String("event_type", string(eventType)))
	c.handlers[eventType] = handler
}

// DurableName returns the durable consumer name of eventType. Durable names
// may not contain dots.
func DurableName(prefix string, eventType models.EventType) string {
	return prefix + "-" + strings.ReplaceAll(string(eventType), ".", "_")
}

// Start creates the durable consumers and launches the fetch loops.
func (c *Consumer) Start(ctx context.Context) error {
	ctx, c.cancel = context.WithCancel(ctx)
	cfg := c.client.cfg

	workers := cfg.Workers
	if workers < 1 {
		workers = 1
	}

	for eventType, handler := range c.handlers {
		durable := DurableName(cfg.Durable, eventType)
		// MaxDeliver stays unlimited on the server: the budget is enforced
		// here, so a message whose dead-lettering failed is still redelivered.
		consumer, err := c.client.js.CreateOrUpdateConsumer(ctx, cfg.Stream, jetstream.ConsumerConfig{
			Durable:       durable,
			FilterSubject: eventType.Channel(),
			AckPolicy:     jetstream.AckExplicitPolicy,
			DeliverPolicy: jetstream.DeliverAllPolicy,
			AckWait:       cfg.AckWait,
			MaxDeliver:    -1,
		})
		if err != nil {
			c.cancel()
			return fmt.Errorf("create consumer %s: %w", durable, err)
		}

		h := &messageHandler{
			eventType:   eventType,
			handler:     handler,
			retry:       cfg.Retry,
			timeout:     cfg.HandlerTimeout,
			deadLetters: c.client,
			logger:      c.logger.With(zap.String("event_type", string(eventType)), zap.String("durable", durable)),
		}
		for i := 0; i < workers; i++ {
			c.wg.Add(1)
			go c.fetchLoop(ctx, consumer, h)
		}
	}
	return nil
}

func (c *Consumer) fetchLoop(ctx context.Context, consumer jetstream.Consumer, h *messageHandler) {
	defer c.wg.Done()
	batchSize := c.client.cfg.FetchBatch
	if batchSize < 1 {
		batchSize = 1
	}

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		batch, err := consumer.Fetch(batchSize, jetstream.FetchMaxWait(5*time.Second))
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			h.logger.Error("Failed to fetch messages", zap.Error(err))
			select {
			case <-ctx.Done():
				return
			case <-time.After(time.Second):
			}
			continue
		}

		for msg := range batch.Messages() {
			// In-flight messages finish even when shutdown has begun.
			h.handle(context.WithoutCancel(ctx), msg)
		}
		if err := batch.Error(); err != nil && ctx.Err() == nil && !errors.Is(err, jetstream.ErrNoMessages) {
			h.logger.Debug("Fetch ended with error", zap.Error(err))
		}
	}
}

// Close stops the fetch loops and waits for in-flight messages.
func (c *Consumer) Close() error {
	if c.cancel != nil {
		c.cancel()
	}
	c.wg.Wait()
	c.logger.Info("NATS consumers stopped")
	return nil
}

// messageHandler applies one JetStream message and settles it.
type messageHandler struct {
	eventType   models.EventType
	handler     models.EventHandler
	retry       events.RetryPolicy
	timeout     time.Duration
	deadLetters events.DeadLetterPublisher
	logger      *zap.Logger
}

func (h *messageHandler) handle(ctx context.Context, msg message) {
	eventType := string(h.eventType)
	attempt := 1
	if meta, err := msg.Metadata(); err == nil && meta.NumDelivered > 0 {
		attempt = int(meta.NumDelivered)
	}

	eventID, err := h.apply(ctx, msg)
	if err == nil {
		metrics.DeliveriesTotal.WithLabelValues(transportName, eventType, metrics.StatusSuccess).Inc()
		if ackErr := msg.Ack(); ackErr != nil {
			h.logger.Warn("Failed to ack message", zap.String("event_id", eventID), zap.Error(ackErr))
		}
		return
	}

	delay := h.retry.Delay(attempt)
	if attempt < h.retry.Budget() {
		metrics.DeliveriesTotal.WithLabelValues(transportName, eventType, metrics.StatusRetry).Inc()
		h.logger.Warn("Error processing event, scheduling redelivery",
			zap.String("event_id", eventID),
			zap.Int("attempt", attempt),
			zap.Duration("delay", delay),
			zap.Error(err))
		if nakErr := msg.NakWithDelay(delay); nakErr != nil {
			h.logger.Warn("Failed to nak message", zap.String("event_id", eventID), zap.Error(nakErr))
		}
		return
	}

	letter := events.NewDeadLetter(msg.Subject(), "", eventID, msg.Data(), err, attempt)
	if dlqErr := h.deadLetters.PublishDeadLetter(ctx, letter); dlqErr != nil {
		metrics.DeliveriesTotal.WithLabelValues(transportName, eventType, metrics.StatusFailure).Inc()
		h.logger.Error("Failed to dead-letter message, scheduling redelivery",
			zap.String("event_id", eventID),
			zap.NamedError("cause", err),
			zap.Error(dlqErr))
		_ = msg.NakWithDelay(delay)
		return
	}

	metrics.DeliveriesTotal.WithLabelValues(transportName, eventType, metrics.StatusDeadLetter).Inc()
	h.logger.Error("Message dead-lettered",
		zap.String("event_id", eventID),
		zap.String("dead_letter_subject", letter.Channel),
		zap.Int("attempts", attempt),
		zap.ByteString("raw_message", msg.Data()),
		zap.Error(err))
	if termErr := msg.Term(); termErr != nil {
		h.logger.Warn("Failed to terminate message", zap.String("event_id", eventID), zap.Error(termErr))
	}
}

func (h *messageHandler) apply(ctx context.Context, msg message) (string, error) {
	event, err := models.ParseCloudEvent(msg.Data())
	if err != nil {
		return "", err
	}
	if event.Type != string(h.eventType) {
		return event.ID, fmt.Errorf("%w: %q on subject %s", domainErrors.ErrUnknownEventType, event.Type, msg.Subject())
	}

	if h.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.timeout)
		defer cancel()
	}
	return event.ID, h.handler(ctx, event)
}
