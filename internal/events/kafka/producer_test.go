package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/IBM/sarama"
	"github.com/IBM/sarama/mocks"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/wizarding-anonymous/gaming_platform/backend/services/audit-service/internal/events"
	"github.com/wizarding-anonymous/gaming_platform/backend/services/audit-service/internal/events/models"
)

func newMockSyncProducer(t *testing.T) *mocks.SyncProducer {
	config := sarama.NewConfig()
	config.Producer.Return.Successes = true
	return mocks.NewSyncProducer(t, config)
}

func TestProducer_Publish(t *testing.T) {
	sp := newMockSyncProducer(t)
	producer := NewProducerWithClient(sp, zap.NewNop())

	event, err := models.NewCloudEvent("/audit-service", models.EventTypeGenericActivity, "u1", map[string]string{"externalId": "u1"})
	require.NoError(t, err)

	sp.ExpectSendMessageWithCheckerFunctionAndSucceed(func(val []byte) error {
		parsed, err := models.ParseCloudEvent(val)
		if err != nil {
			return err
		}
		if parsed.ID != event.ID {
			return errors.New("unexpected event id")
		}
		return nil
	})

	require.NoError(t, producer.Publish(context.Background(), event.Type, event))
	require.NoError(t, producer.Close())
}

func TestProducer_PublishFailure(t *testing.T) {
	sp := newMockSyncProducer(t)
	producer := NewProducerWithClient(sp, zap.NewNop())
	sp.ExpectSendMessageAndFail(sarama.ErrOutOfBrokers)

	event, err := models.NewCloudEvent("/audit-service", models.EventTypeGenericActivity, "", struct{}{})
	require.NoError(t, err)

	err = producer.Publish(context.Background(), event.Type, event)
	assert.ErrorIs(t, err, sarama.ErrOutOfBrokers)
	require.NoError(t, producer.Close())
}

func TestProducer_PublishDeadLetterKeepsOriginalBytes(t *testing.T) {
	sp := newMockSyncProducer(t)
	producer := NewProducerWithClient(sp, zap.NewNop())
	original := []byte(`{"broken":`)

	sp.ExpectSendMessageWithCheckerFunctionAndSucceed(func(val []byte) error {
		if string(val) != string(original) {
			return errors.New("payload was rewritten")
		}
		if json.Valid(val) {
			return errors.New("expected the raw invalid payload")
		}
		return nil
	})

	letter := events.NewDeadLetter("audit.activity.generic", "u1", "", original, errors.New("malformed"), 5)
	require.NoError(t, producer.PublishDeadLetter(context.Background(), letter))
	require.NoError(t, producer.Close())
}
