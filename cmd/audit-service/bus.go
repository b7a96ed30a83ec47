// File: backend/services/audit-service/cmd/audit-service/bus.go
package main

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/wizarding-anonymous/gaming_platform/backend/services/audit-service/internal/config"
	"github.com/wizarding-anonymous/gaming_platform/backend/services/audit-service/internal/events"
	"github.com/wizarding-anonymous/gaming_platform/backend/services/audit-service/internal/events/kafka"
	"github.com/wizarding-anonymous/gaming_platform/backend/services/audit-service/internal/events/memory"
	"github.com/wizarding-anonymous/gaming_platform/backend/services/audit-service/internal/events/nats"
	"github.com/wizarding-anonymous/gaming_platform/backend/services/audit-service/internal/utils/healthcheck"
	kafkaAdmin "github.com/wizarding-anonymous/gaming_platform/backend/services/audit-service/internal/utils/kafka"
)

// busBinding is the transport selected by bus.transport.
type busBinding struct {
	consumer  events.Consumer
	publisher events.Publisher
	pinger    healthcheck.Pinger
	closers   []func() error
}

func (b *busBinding) Close(ctx context.Context) error {
	var firstErr error
	for _, closeFn := range b.closers {
		if err := closeFn(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func retryPolicy(cfg *config.Config) events.RetryPolicy {
	return events.RetryPolicy{
		MaxDeliver: cfg.Bus.MaxDeliver,
		Backoff:    cfg.Bus.RetryBackoff,
		MaxBackoff: cfg.Bus.MaxBackoff,
	}
}

func initBus(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*busBinding, error) {
	switch cfg.Bus.Transport {
	case config.TransportKafka:
		return initKafkaBus(ctx, cfg, logger)
	case config.TransportNATS:
		return initNATSBus(ctx, cfg, logger)
	case config.TransportMemory:
		bus := memory.NewBus(memory.Config{
			Workers:        cfg.Bus.Workers,
			Retry:          retryPolicy(cfg),
			HandlerTimeout: cfg.Bus.HandlerTimeout,
		}, logger)
		return &busBinding{
			consumer:  bus,
			publisher: bus,
			pinger:    healthcheck.PingerFunc(func(context.Context) error { return nil }),
			closers:   []func() error{bus.Close},
		}, nil
	default:
		return nil, fmt.Errorf("unknown bus transport %q", cfg.Bus.Transport)
	}
}

func initKafkaBus(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*busBinding, error) {
	admin := kafkaAdmin.NewAdmin(cfg.Kafka.Brokers, logger)
	if cfg.Kafka.Topics.AutoCreate {
		if err := admin.EnsureTopics(ctx, kafka.Topics(), cfg.Kafka.Topics.Partitions, cfg.Kafka.Topics.ReplicationFactor); err != nil {
			logger.Warn("Failed to ensure Kafka topics", zap.Error(err))
		}
	}

	producer, err := kafka.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.Version, logger)
	if err != nil {
		return nil, fmt.Errorf("init kafka producer: %w", err)
	}

	consumer, err := kafka.NewConsumer(kafka.ConsumerConfig{
		Brokers:        cfg.Kafka.Brokers,
		GroupID:        cfg.Kafka.Consumer.GroupID,
		Version:        cfg.Kafka.Version,
		Retry:          retryPolicy(cfg),
		HandlerTimeout: cfg.Bus.HandlerTimeout,
	}, producer, logger)
	if err != nil {
		_ = producer.Close()
		return nil, fmt.Errorf("init kafka consumer: %w", err)
	}

	return &busBinding{
		consumer:  consumer,
		publisher: producer,
		pinger:    admin,
		// The consumer stops first so no dead letter is published to a closed producer.
		closers: []func() error{consumer.Close, producer.Close},
	}, nil
}

func initNATSBus(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*busBinding, error) {
	client, err := nats.Connect(ctx, nats.Config{
		URL:            cfg.NATS.URL,
		Stream:         cfg.NATS.Stream,
		Durable:        cfg.NATS.Durable,
		AckWait:        cfg.NATS.AckWait,
		FetchBatch:     cfg.NATS.FetchBatch,
		MaxAge:         cfg.NATS.MaxAge,
		Workers:        cfg.Bus.Workers,
		Retry:          retryPolicy(cfg),
		HandlerTimeout: cfg.Bus.HandlerTimeout,
	}, logger)
	if err != nil {
		return nil, err
	}
	consumer := nats.NewConsumer(client, logger)
	return &busBinding{
		consumer:  consumer,
		publisher: client,
		pinger:    client,
		closers:   []func() error{consumer.Close, client.Close},
	}, nil
}
