// File: backend/services/audit-service/internal/events/nats/client.go

// Package nats binds the event bus to NATS JetStream.
package nats

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
	"go.uber.org/zap"

	"github.com/wizarding-anonymous/gaming_platform/backend/services/audit-service/internal/events"
	"github.com/wizarding-anonymous/gaming_platform/backend/services/audit-service/internal/events/models"
)

// Config holds the JetStream settings.
type Config struct {
	URL            string
	Stream         string
	Durable        string
	AckWait        time.Duration
	FetchBatch     int
	MaxAge         time.Duration
	Workers        int
	Retry          events.RetryPolicy
	HandlerTimeout time.Duration
}

// Client owns the NATS connection and publishes CloudEvents to JetStream.
type Client struct {
	nc     *nats.Conn
	js     jetstream.JetStream
	cfg    Config
	logger *zap.Logger
}

// Connect dials NATS and makes sure the stream exists.
func Connect(ctx context.Context, cfg Config, logger *zap.Logger) (*Client, error) {
	nc, err := nats.Connect(cfg.URL,
		nats.Name("audit-service"),
		nats.MaxReconnects(-1),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				logger.Warn("NATS disconnected", zap.Error(err))
			}
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			logger.Info("NATS reconnected", zap.String("url", nc.ConnectedUrl()))
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("connect to nats: %w", err)
	}

	js, err := jetstream.New(nc)
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("create jetstream: %w", err)
	}

	c := &Client{nc: nc, js: js, cfg: cfg, logger: logger.Named("nats")}
	if err := c.EnsureStream(ctx); err != nil {
		nc.Close()
		return nil, err
	}
	return c, nil
}

// Subjects lists every subject bound to the stream, dead-letter subjects included.
func Subjects() []string {
	subjects := make([]string, 0, 2*len(models.EventTypes))
	for _, t := range models.EventTypes {
		subjects = append(subjects, t.Channel(), t.DeadLetterChannel())
	}
	return subjects
}

// EnsureStream creates or updates the audit stream.
func (c *Client) EnsureStream(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	_, err := c.js.CreateOrUpdateStream(ctx, jetstream.StreamConfig{
		Name:      c.cfg.Stream,
		Subjects:  Subjects(),
		Retention: jetstream.LimitsPolicy,
		MaxAge:    c.cfg.MaxAge,
		Storage:   jetstream.FileStorage,
	})
	if err != nil {
		return fmt.Errorf("create stream %s: %w", c.cfg.Stream, err)
	}
	return nil
}

// Publish sends event to subject. The event id is the JetStream message id,
// so a retried publish is deduplicated by the server.
func (c *Client) Publish(ctx context.Context, subject string, event models.CloudEvent) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal cloud event: %w", err)
	}
	if _, err := c.js.Publish(ctx, subject, data, jetstream.WithMsgID(event.ID)); err != nil {
		c.logger.Error("Failed to publish event",
			zap.String("subject", subject),
			zap.String("event_id", event.ID),
			zap.Error(err))
		return fmt.Errorf("publish to %s: %w", subject, err)
	}
	return nil
}

// PublishDeadLetter parks the original message bytes on the dead-letter subject.
func (c *Client) PublishDeadLetter(ctx context.Context, letter events.DeadLetter) error {
	msg := nats.NewMsg(letter.Channel)
	msg.Data = letter.Payload
	for k, v := range letter.Headers() {
		msg.Header.Set(k, v)
	}
	if _, err := c.js.PublishMsg(ctx, msg); err != nil {
		return fmt.Errorf("publish dead letter to %s: %w", letter.Channel, err)
	}
	return nil
}

// Ping checks the connection by flushing a round trip to the server.
func (c *Client) Ping(ctx context.Context) error {
	if !c.nc.IsConnected() {
		return fmt.Errorf("nats connection is %s", c.nc.Status())
	}
	return c.nc.FlushWithContext(ctx)
}

// Close drains the connection.
func (c *Client) Close() error {
	if err := c.nc.Drain(); err != nil {
		c.nc.Close()
		return fmt.Errorf("drain nats connection: %w", err)
	}
	return nil
}

var (
	_ events.Publisher           = (*Client)(nil)
	_ events.DeadLetterPublisher = (*Client)(nil)
)
