package infra

import (
	"context"
	"testing"

	"enrollment-service/internal/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestNewPublisher_None(t *testing.T) {
	pub, err := NewPublisher(config.EventsConfig{Broker: config.BrokerNone}, zap.NewNop())
	require.NoError(t, err)

	assert.IsType(t, NoopPublisher{}, pub)
	assert.NoError(t, pub.Publish(context.Background(), "enrollment.paid", nil))
	assert.NoError(t, pub.Close())
}

func TestNewPublisher_Unsupported(t *testing.T) {
	_, err := NewPublisher(config.EventsConfig{Broker: "nats"}, zap.NewNop())
	assert.ErrorContains(t, err, "unsupported events broker")
}
