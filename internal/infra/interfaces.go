package infra

import (
	"context"

	"enrollment-service/internal/infra/gateway"
	"enrollment-service/internal/infra/kafka"
	"enrollment-service/internal/infra/rabbitmq"
)

type EventPublisher interface {
	Publish(ctx context.Context, routingKey string, data any) error
	Close() error
}

type GatewayClient interface {
	CreateOrder(ctx context.Context, req gateway.OrderRequest) (*gateway.Order, error)
	KeyID() string
}

var (
	_ EventPublisher = (*rabbitmq.Publisher)(nil)
	_ EventPublisher = (*kafka.Publisher)(nil)
	_ EventPublisher = NoopPublisher{}
	_ GatewayClient  = (*gateway.Client)(nil)
)
