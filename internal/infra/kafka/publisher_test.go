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
)

func TestPublisher_Publish(t *testing.T) {
	producer := mocks.NewSyncProducer(t, nil)
	producer.ExpectSendMessageWithCheckerFunctionAndSucceed(func(val []byte) error {
		var env envelope
		if err := json.Unmarshal(val, &env); err != nil {
			return err
		}
		if env.EventType != "enrollment.paid" {
			return errors.New("unexpected event type " + env.EventType)
		}
		return nil
	})

	p := NewPublisher(producer, "enrollment_events", zap.NewNop())
	require.NoError(t, p.Publish(context.Background(), "enrollment.paid", map[string]any{"enrollmentId": 1}))
	require.NoError(t, p.Close())
}

func TestPublisher_PublishFailure(t *testing.T) {
	producer := mocks.NewSyncProducer(t, nil)
	producer.ExpectSendMessageAndFail(sarama.ErrOutOfBrokers)

	p := NewPublisher(producer, "enrollment_events", zap.NewNop())
	err := p.Publish(context.Background(), "enrollment.paid", nil)
	assert.ErrorIs(t, err, sarama.ErrOutOfBrokers)
	require.NoError(t, p.Close())
}

func TestHeaderCarrier(t *testing.T) {
	c := headerCarrier{}
	c.Set("traceparent", "00-abc-def-01")

	assert.Equal(t, "00-abc-def-01", c.Get("traceparent"))
	assert.Equal(t, "", c.Get("missing"))
	assert.Equal(t, []string{"traceparent"}, c.Keys())
}
