// File: backend/services/audit-service/internal/events/bus.go

// Package events holds the transport-neutral bus contract shared by the
// Kafka, NATS and in-memory bindings.
package events

import (
	"context"
	"strconv"
	"time"

	"github.com/wizarding-anonymous/gaming_platform/backend/services/audit-service/internal/events/models"
	"github.com/wizarding-anonymous/gaming_platform/backend/services/audit-service/internal/utils/timeutil"
)

// Dead-letter headers.
const (
	HeaderOriginalChannel = "x-original-channel"
	HeaderFailureReason   = "x-failure-reason"
	HeaderAttempts        = "x-delivery-attempts"
	HeaderEventID         = "x-event-id"
)

// Publisher publishes CloudEvents to a channel.
type Publisher interface {
	Publish(ctx context.Context, channel string, event models.CloudEvent) error
}

// DeadLetterPublisher parks messages that exhausted their delivery budget.
type DeadLetterPublisher interface {
	PublishDeadLetter(ctx context.Context, letter DeadLetter) error
}

// Consumer delivers each registered event type to its handler.
// Start returns once every subscription is running.
type Consumer interface {
	RegisterHandler(eventType models.EventType, handler models.EventHandler)
	Start(ctx context.Context) error
	Close() error
}

// DeadLetter is an undeliverable message together with the reason it failed.
type DeadLetter struct {
	Channel         string
	OriginalChannel string
	Key             string
	EventID         string
	Payload         []byte
	Reason          string
	Attempts        int
	FailedAt        time.Time
}

// NewDeadLetter builds the dead letter of a message read from channel.
func NewDeadLetter(channel, key, eventID string, payload []byte, cause error, attempts int) DeadLetter {
	reason := ""
	if cause != nil {
		reason = cause.Error()
	}
	return DeadLetter{
		Channel:         channel + ".dlq",
		OriginalChannel: channel,
		Key:             key,
		EventID:         eventID,
		Payload:         payload,
		Reason:          reason,
		Attempts:        attempts,
		FailedAt:        time.Now().UTC(),
	}
}

// Headers renders the dead letter metadata as transport headers.
func (d DeadLetter) Headers() map[string]string {
	headers := map[string]string{
		HeaderOriginalChannel: d.OriginalChannel,
		HeaderFailureReason:   d.Reason,
		HeaderAttempts:        strconv.Itoa(d.Attempts),
	}
	if d.EventID != "" {
		headers[HeaderEventID] = d.EventID
	}
	return headers
}

// RetryPolicy bounds redelivery of a failing message.
type RetryPolicy struct {
	MaxDeliver int
	Backoff    time.Duration
	MaxBackoff time.Duration
}

// Delay returns the wait after the given failed attempt (1-based).
func (p RetryPolicy) Delay(attempt int) time.Duration {
	return timeutil.Backoff(attempt, p.Backoff, p.MaxBackoff)
}

// Budget is the total number of delivery attempts, at least one.
func (p RetryPolicy) Budget() int {
	if p.MaxDeliver < 1 {
		return 1
	}
	return p.MaxDeliver
}

// Deliver calls fn until it succeeds or the policy's attempts are used up,
// sleeping between attempts. It returns the number of attempts made and the
// last error. A cancelled ctx stops retrying and returns ctx.Err().
// onRetry, if not nil, is called after each failed attempt that will be retried.
func Deliver(ctx context.Context, policy RetryPolicy, fn func(ctx context.Context) error, onRetry func(attempt int, err error)) (int, error) {
	var err error
	max := policy.Budget()
	for attempt := 1; attempt <= max; attempt++ {
		if err = fn(ctx); err == nil {
			return attempt, nil
		}
		if attempt == max {
			return attempt, err
		}
		if onRetry != nil {
			onRetry(attempt, err)
		}

		timer := time.NewTimer(policy.Delay(attempt))
		select {
		case <-ctx.Done():
			timer.Stop()
			return attempt, ctx.Err()
		case <-timer.C:
		}
	}
	return max, err
}
