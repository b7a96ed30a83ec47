// File: backend/services/audit-service/internal/events/kafka/consumer.go
package kafka

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/IBM/sarama"
	"go.uber.org/zap"

	domainErrors "github.com/wizarding-anonymous/gaming_platform/backend/services/audit-service/internal/domain/errors"
	"github.com/wizarding-anonymous/gaming_platform/backend/services/audit-service/internal/events"
	"github.com/wizarding-anonymous/gaming_platform/backend/services/audit-service/internal/events/models"
	"github.com/wizarding-anonymous/gaming_platform/backend/services/audit-service/internal/utils/metrics"
)

const transportName = "kafka"

// ConsumerConfig holds configuration for creating a new Consumer.
type ConsumerConfig struct {
	Brokers        []string
	GroupID        string
	Version        string
	Retry          events.RetryPolicy
	HandlerTimeout time.Duration
	SaramaConfig   *sarama.Config // optional, built from Version when nil
}

// Consumer runs one Sarama consumer group per registered event type, so a
// type whose handler keeps failing never stalls another.
type Consumer struct {
	cfg         ConsumerConfig
	deadLetters events.DeadLetterPublisher
	logger      *zap.Logger
	handlers    map[models.EventType]models.EventHandler
	groups      []sarama.ConsumerGroup
	cancel      context.CancelFunc
	wg          sync.WaitGroup

	newGroup func(brokers []string, groupID string, cfg *sarama.Config) (sarama.ConsumerGroup, error)
}

// NewConsumer creates a Consumer. Messages that exhaust their retries are
// handed to deadLetters.
func NewConsumer(cfg ConsumerConfig, deadLetters events.DeadLetterPublisher, logger *zap.Logger) (*Consumer, error) {
	if cfg.SaramaConfig == nil {
		saramaCfg, err := newSaramaConfig(cfg.Version)
		if err != nil {
			return nil, err
		}
		saramaCfg.Consumer.Group.Rebalance.GroupStrategies = []sarama.BalanceStrategy{sarama.NewBalanceStrategyRoundRobin()}
		saramaCfg.Consumer.Offsets.Initial = sarama.OffsetOldest
		saramaCfg.Consumer.Offsets.AutoCommit.Enable = true
		cfg.SaramaConfig = saramaCfg
	}

	return &Consumer{
		cfg:         cfg,
		deadLetters: deadLetters,
		logger:      logger.Named("kafka_consumer"),
		handlers:    make(map[models.EventType]models.EventHandler),
		newGroup:    sarama.NewConsumerGroup,
	}, nil
}

// RegisterHandler registers an event handler for a specific event type.
func (c *Consumer) RegisterHandler(eventType models.EventType, handler models.EventHandler) {
	c.logger.Info("Registering handler", zap.String("event_type", string(eventType)))
	c.handlers[eventType] = handler
}

// Start joins one consumer group per registered type and returns.
func (c *Consumer) Start(ctx context.Context) error {
	ctx, c.cancel = context.WithCancel(ctx)

	for eventType, handler := range c.handlers {
		groupID := fmt.Sprintf("%s.%s", c.cfg.GroupID, eventType)
		group, err := c.newGroup(c.cfg.Brokers, groupID, c.cfg.SaramaConfig)
		if err != nil {
			c.cancel()
			_ = c.closeGroups()
			return fmt.Errorf("failed to create consumer group %s: %w", groupID, err)
		}
		c.groups = append(c.groups, group)

		claims := &claimHandler{
			eventType:   eventType,
			handler:     handler,
			retry:       c.cfg.Retry,
			timeout:     c.cfg.HandlerTimeout,
			deadLetters: c.deadLetters,
			logger:      c.logger.With(zap.String("event_type", string(eventType)), zap.String("group_id", groupID)),
		}

		c.wg.Add(1)
		go c.consume(ctx, group, eventType.Channel(), claims)
	}
	return nil
}

func (c *Consumer) consume(ctx context.Context, group sarama.ConsumerGroup, topic string, claims *claimHandler) {
	defer c.wg.Done()
	claims.logger.Info("Consumer group started", zap.String("topic", topic))

	for {
		// Consume returns on every rebalance, so it is called in a loop.
		if err := group.Consume(ctx, []string{topic}, claims); err != nil {
			if errors.Is(err, sarama.ErrClosedConsumerGroup) {
				claims.logger.Info("Consumer group closed")
				return
			}
			claims.logger.Error("Error from consumer", zap.Error(err))
			select {
			case <-ctx.Done():
				return
			case <-time.After(time.Second):
			}
		}
		if ctx.Err() != nil {
			claims.logger.Info("Consumer group context cancelled")
			return
		}
	}
}

// Close stops every consumer group and waits for in-flight messages.
func (c *Consumer) Close() error {
	c.logger.Info("Closing consumer groups")
	if c.cancel != nil {
		c.cancel()
	}

	done := make(chan struct{})
	go func() {
		c.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(30 * time.Second):
		c.logger.Warn("Timeout waiting for consumer groups to finish")
	}

	return c.closeGroups()
}

func (c *Consumer) closeGroups() error {
	var errs []error
	for _, group := range c.groups {
		if err := group.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	c.groups = nil
	if len(errs) > 0 {
		return fmt.Errorf("failed to close consumer groups: %w", errors.Join(errs...))
	}
	return nil
}

// claimHandler is the sarama.ConsumerGroupHandler of one event type.
type claimHandler struct {
	eventType   models.EventType
	handler     models.EventHandler
	retry       events.RetryPolicy
	timeout     time.Duration
	deadLetters events.DeadLetterPublisher
	logger      *zap.Logger
}

func (h *claimHandler) Setup(session sarama.ConsumerGroupSession) error {
	h.logger.Info("Consumer group setup", zap.String("member_id", session.MemberID()), zap.Any("claims", session.Claims()))
	return nil
}

func (h *claimHandler) Cleanup(session sarama.ConsumerGroupSession) error {
	h.logger.Info("Consumer group cleanup", zap.String("member_id", session.MemberID()))
	return nil
}

// ConsumeClaim processes messages in partition order. An offset is marked only
// once its message was applied or dead-lettered.
func (h *claimHandler) ConsumeClaim(session sarama.ConsumerGroupSession, claim sarama.ConsumerGroupClaim) error {
	ctx := session.Context()
	for {
		select {
		case message, ok := <-claim.Messages():
			if !ok || ctx.Err() != nil {
				return nil
			}
			if err := h.process(ctx, message); err != nil {
				if ctx.Err() != nil {
					// Session is ending; the unmarked message is redelivered.
					return nil
				}
				return err
			}
			session.MarkMessage(message, "")
		case <-ctx.Done():
			return nil
		}
	}
}

func (h *claimHandler) process(ctx context.Context, message *sarama.ConsumerMessage) error {
	eventType := string(h.eventType)
	h.logger.Debug("Message claimed",
		zap.Int32("partition", message.Partition),
		zap.Int64("offset", message.Offset))

	var eventID string
	attempts, err := events.Deliver(ctx, h.retry, func(ctx context.Context) error {
		event, err := models.ParseCloudEvent(message.Value)
		if err != nil {
			return err
		}
		eventID = event.ID
		if event.Type != eventType {
			return fmt.Errorf("%w: %q on topic %s", domainErrors.ErrUnknownEventType, event.Type, message.Topic)
		}
		// A started attempt runs to completion when the session ends; only
		// further retries are abandoned.
		ctx = context.WithoutCancel(ctx)
		if h.timeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, h.timeout)
			defer cancel()
		}
		return h.handler(ctx, event)
	}, func(attempt int, err error) {
		metrics.DeliveriesTotal.WithLabelValues(transportName, eventType, metrics.StatusRetry).Inc()
		h.logger.Warn("Error processing event, retrying",
			zap.String("event_id", eventID),
			zap.Int("attempt", attempt),
			zap.Error(err))
	})
	if err == nil {
		metrics.DeliveriesTotal.WithLabelValues(transportName, eventType, metrics.StatusSuccess).Inc()
		return nil
	}
	if ctx.Err() != nil {
		return ctx.Err()
	}

	letter := events.NewDeadLetter(message.Topic, string(message.Key), eventID, message.Value, err, attempts)
	if dlqErr := h.deadLetters.PublishDeadLetter(ctx, letter); dlqErr != nil {
		metrics.DeliveriesTotal.WithLabelValues(transportName, eventType, metrics.StatusFailure).Inc()
		h.logger.Error("Failed to dead-letter message",
			zap.String("event_id", eventID),
			zap.Int64("offset", message.Offset),
			zap.NamedError("cause", err),
			zap.Error(dlqErr))
		return fmt.Errorf("failed to dead-letter message at offset %d: %w", message.Offset, dlqErr)
	}

	metrics.DeliveriesTotal.WithLabelValues(transportName, eventType, metrics.StatusDeadLetter).Inc()
	h.logger.Error("Message dead-lettered",
		zap.String("event_id", eventID),
		zap.String("dead_letter_topic", letter.Channel),
		zap.Int("attempts", attempts),
		zap.ByteString("raw_message", message.Value),
		zap.Error(err))
	return nil
}

func newSaramaConfig(version string) (*sarama.Config, error) {
	cfg := sarama.NewConfig()
	cfg.Version = sarama.V2_8_0_0
	if version != "" {
		v, err := sarama.ParseKafkaVersion(version)
		if err != nil {
			return nil, fmt.Errorf("invalid kafka version %q: %w", version, err)
		}
		cfg.Version = v
	}
	cfg.ClientID = "audit-service"
	return cfg, nil
}
