// File: backend/services/audit-service/internal/utils/kafka/kafka.go
package kafka

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strconv"
	"time"

	kafkago "github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

const dialTimeout = 10 * time.Second

// Admin управляет топиками Kafka и проверяет доступность брокеров.
type Admin struct {
	brokers []string
	logger  *zap.Logger
	dial    func(ctx context.Context, network, address string) (*kafkago.Conn, error)
}

// NewAdmin создает новый экземпляр Admin
func NewAdmin(brokers []string, logger *zap.Logger) *Admin {
	return &Admin{
		brokers: brokers,
		logger:  logger.Named("kafka_admin"),
		dial:    kafkago.DialContext,
	}
}

// Ping succeeds when any broker accepts a connection and reports metadata.
func (a *Admin) Ping(ctx context.Context) error {
	conn, err := a.connect(ctx)
	if err != nil {
		return err
	}
	defer conn.Close()

	if _, err := conn.Brokers(); err != nil {
		return fmt.Errorf("failed to read broker metadata: %w", err)
	}
	return nil
}

// EnsureTopics создает недостающие топики на контроллере кластера.
func (a *Admin) EnsureTopics(ctx context.Context, topics []string, partitions, replication int) error {
	conn, err := a.connect(ctx)
	if err != nil {
		return err
	}
	defer conn.Close()

	controller, err := conn.Controller()
	if err != nil {
		return fmt.Errorf("failed to find kafka controller: %w", err)
	}
	controllerConn, err := a.dial(ctx, "tcp", net.JoinHostPort(controller.Host, strconv.Itoa(controller.Port)))
	if err != nil {
		return fmt.Errorf("failed to connect to kafka controller: %w", err)
	}
	defer controllerConn.Close()

	err = controllerConn.CreateTopics(TopicConfigs(topics, partitions, replication)...)
	if err != nil && !errors.Is(err, kafkago.TopicAlreadyExists) {
		return fmt.Errorf("failed to create topics: %w", err)
	}
	a.logger.Info("Kafka topics ensured", zap.Strings("topics", topics))
	return nil
}

// TopicConfigs builds create requests. Non-positive sizes fall back to 1.
func TopicConfigs(topics []string, partitions, replication int) []kafkago.TopicConfig {
	if partitions < 1 {
		partitions = 1
	}
	if replication < 1 {
		replication = 1
	}
	configs := make([]kafkago.TopicConfig, 0, len(topics))
	for _, topic := range topics {
		configs = append(configs, kafkago.TopicConfig{
			Topic:             topic,
			NumPartitions:     partitions,
			ReplicationFactor: replication,
		})
	}
	return configs
}

func (a *Admin) connect(ctx context.Context) (*kafkago.Conn, error) {
	ctx, cancel := context.WithTimeout(ctx, dialTimeout)
	defer cancel()

	var lastErr error
	for _, broker := range a.brokers {
		conn, err := a.dial(ctx, "tcp", broker)
		if err == nil {
			return conn, nil
		}
		lastErr = err
		a.logger.Warn("Kafka broker unreachable", zap.String("broker", broker), zap.Error(err))
	}
	if lastErr == nil {
		lastErr = errors.New("no brokers configured")
	}
	return nil, fmt.Errorf("failed to connect to kafka: %w", lastErr)
}
