// File: backend/services/audit-service/internal/events/kafka/producer.go

package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/IBM/sarama"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/wizarding-anonymous/gaming_platform/backend/services/audit-service/internal/events"
	"github.com/wizarding-anonymous/gaming_platform/backend/services/audit-service/internal/events/models"
)

// Producer представляет собой продюсер Kafka для отправки событий CloudEvents
type Producer struct {
	producer sarama.SyncProducer
	logger   *zap.Logger
}

// NewProducer создает новый экземпляр продюсера Kafka.
func NewProducer(brokers []string, version string, logger *zap.Logger) (*Producer, error) {
	config, err := newSaramaConfig(version)
	if err != nil {
		return nil, err
	}
	config.Producer.RequiredAcks = sarama.WaitForAll
	config.Producer.Retry.Max = 5
	config.Producer.Return.Successes = true
	config.Producer.Compression = sarama.CompressionSnappy
	config.Producer.Flush.Frequency = 500 * time.Millisecond
	config.Producer.Idempotent = true
	config.Net.MaxOpenRequests = 1 // required by the idempotent producer

	producer, err := sarama.NewSyncProducer(brokers, config)
	if err != nil {
		return nil, fmt.Errorf("failed to create Kafka producer: %w", err)
	}
	return NewProducerWithClient(producer, logger), nil
}

// NewProducerWithClient wraps an existing SyncProducer.
func NewProducerWithClient(producer sarama.SyncProducer, logger *zap.Logger) *Producer {
	return &Producer{
		producer: producer,
		logger:   logger.Named("kafka_producer"),
	}
}

// Publish sends event to topic, keyed by its subject.
func (p *Producer) Publish(ctx context.Context, topic string, event models.CloudEvent) error {
	eventJSON, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal CloudEvent to JSON: %w", err)
	}

	msg := &sarama.ProducerMessage{
		Topic: topic,
		Value: sarama.ByteEncoder(eventJSON),
	}
	if subject := event.SubjectOrEmpty(); subject != "" {
		msg.Key = sarama.StringEncoder(subject)
	}
	if spanCtx := trace.SpanContextFromContext(ctx); spanCtx.IsValid() {
		msg.Headers = append(msg.Headers, sarama.RecordHeader{Key: []byte("trace_id"), Value: []byte(spanCtx.TraceID().String())})
	}

	partition, offset, err := p.producer.SendMessage(msg)
	if err != nil {
		p.logger.Error("Failed to send CloudEvent to Kafka",
			zap.String("topic", topic),
			zap.String("event_type", event.Type),
			zap.String("event_id", event.ID),
			zap.Error(err))
		return fmt.Errorf("failed to send CloudEvent to Kafka: %w", err)
	}

	p.logger.Debug("CloudEvent sent to Kafka",
		zap.String("topic", topic),
		zap.String("event_type", event.Type),
		zap.String("event_id", event.ID),
		zap.Int32("partition", partition),
		zap.Int64("offset", offset))
	return nil
}

// PublishDeadLetter writes the original message bytes to the dead-letter topic.
func (p *Producer) PublishDeadLetter(ctx context.Context, letter events.DeadLetter) error {
	msg := &sarama.ProducerMessage{
		Topic: letter.Channel,
		Value: sarama.ByteEncoder(letter.Payload),
	}
	if letter.Key != "" {
		msg.Key = sarama.StringEncoder(letter.Key)
	}
	for k, v := range letter.Headers() {
		msg.Headers = append(msg.Headers, sarama.RecordHeader{Key: []byte(k), Value: []byte(v)})
	}

	if _, _, err := p.producer.SendMessage(msg); err != nil {
		return fmt.Errorf("failed to send dead letter to %s: %w", letter.Channel, err)
	}
	return nil
}

// Close закрывает продюсера Kafka
func (p *Producer) Close() error {
	if err := p.producer.Close(); err != nil {
		p.logger.Error("Failed to close Kafka producer", zap.Error(err))
		return fmt.Errorf("failed to close Kafka producer: %w", err)
	}
	p.logger.Info("Kafka producer closed successfully")
	return nil
}

var (
	_ events.Publisher           = (*Producer)(nil)
	_ events.DeadLetterPublisher = (*Producer)(nil)
)
