package rabbitmq

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/streadway/amqp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeChannel struct {
	exchange string
	key      string
	msg      amqp.Publishing
	err      error
	closed   bool
}

func (f *fakeChannel) Publish(exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error {
	f.exchange, f.key, f.msg = exchange, key, msg
	return f.err
}

func (f *fakeChannel) Close() error {
	f.closed = true
	return nil
}

func TestPublisher_Publish(t *testing.T) {
	ch := &fakeChannel{}
	p := &Publisher{channel: ch, exchange: "enrollment.exchange", logger: zap.NewNop()}

	err := p.Publish(context.Background(), "enrollment.paid", map[string]any{"enrollmentId": 9})
	require.NoError(t, err)

	assert.Equal(t, "enrollment.exchange", ch.exchange)
	assert.Equal(t, "enrollment.paid", ch.key)
	assert.Equal(t, "application/json", ch.msg.ContentType)
	assert.Equal(t, amqp.Persistent, ch.msg.DeliveryMode)

	var got Message
	require.NoError(t, json.Unmarshal(ch.msg.Body, &got))
	assert.Equal(t, "enrollment.paid", got.Pattern)
	assert.Equal(t, ch.msg.MessageId, got.ID)
	assert.Equal(t, float64(9), got.Data.(map[string]any)["enrollmentId"])

	require.NoError(t, p.Close())
	assert.True(t, ch.closed)
}

func TestPublisher_PublishError(t *testing.T) {
	p := &Publisher{channel: &fakeChannel{err: errors.New("channel closed")}, exchange: "x", logger: zap.NewNop()}

	err := p.Publish(context.Background(), "enrollment.paid", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "channel closed")
}

func TestPublisher_CancelledContext(t *testing.T) {
	ch := &fakeChannel{}
	p := &Publisher{channel: ch, exchange: "x", logger: zap.NewNop()}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	assert.ErrorIs(t, p.Publish(ctx, "enrollment.paid", nil), context.Canceled)
	assert.Empty(t, ch.key)
}
