package events

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDeliver_SucceedsAfterRetries(t *testing.T) {
	policy := RetryPolicy{MaxDeliver: 5, Backoff: time.Millisecond, MaxBackoff: 2 * time.Millisecond}
	calls := 0
	var retried []int

	attempts, err := Deliver(context.Background(), policy, func(ctx context.Context) error {
		calls++
		if calls < 3 {
			return errors.New("transient")
		}
		return nil
	}, func(attempt int, err error) { retried = append(retried, attempt) })

	assert.NoError(t, err)
	assert.Equal(t, 3, attempts)
	assert.Equal(t, []int{1, 2}, retried)
}

func TestDeliver_ExhaustsBudget(t *testing.T) {
	policy := RetryPolicy{MaxDeliver: 3, Backoff: time.Millisecond}
	boom := errors.New("boom")

	attempts, err := Deliver(context.Background(), policy, func(ctx context.Context) error { return boom }, nil)
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 3, attempts)
}

func TestDeliver_ZeroBudgetMeansOneAttempt(t *testing.T) {
	calls := 0
	attempts, err := Deliver(context.Background(), RetryPolicy{}, func(ctx context.Context) error {
		calls++
		return errors.New("boom")
	}, nil)
	assert.Error(t, err)
	assert.Equal(t, 1, attempts)
	assert.Equal(t, 1, calls)
}

func TestDeliver_StopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	policy := RetryPolicy{MaxDeliver: 10, Backoff: time.Hour}

	attempts, err := Deliver(ctx, policy, func(ctx context.Context) error { return errors.New("boom") },
		func(int, error) { cancel() })
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, attempts)
}

func TestNewDeadLetter(t *testing.T) {
	letter := NewDeadLetter("audit.activity.generic", "u1", "evt-1", []byte(`{}`), errors.New("bad payload"), 5)

	assert.Equal(t, "audit.activity.generic.dlq", letter.Channel)
	assert.Equal(t, map[string]string{
		HeaderOriginalChannel: "audit.activity.generic",
		HeaderFailureReason:   "bad payload",
		HeaderAttempts:        "5",
		HeaderEventID:         "evt-1",
	}, letter.Headers())
}
