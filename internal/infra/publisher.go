package infra

import (
	"context"
	"fmt"

	"enrollment-service/internal/config"
	"enrollment-service/internal/infra/kafka"
	"enrollment-service/internal/infra/rabbitmq"

	"go.uber.org/zap"
)

// NoopPublisher drops events. Used when EVENTS_BROKER=none.
type NoopPublisher struct{}

func (NoopPublisher) Publish(context.Context, string, any) error { return nil }
func (NoopPublisher) Close() error                               { return nil }

// NewPublisher connects to the broker selected in cfg.
func NewPublisher(cfg config.EventsConfig, logger *zap.Logger) (EventPublisher, error) {
	switch cfg.Broker {
	case config.BrokerRabbitMQ:
		return rabbitmq.NewPublisher(cfg.RabbitMQURL, cfg.RabbitMQExchange, logger)
	case config.BrokerKafka:
		producer, err := kafka.NewProducer(cfg.KafkaBrokers)
		if err != nil {
			return nil, err
		}
		logger.Info("Kafka publisher initialized", zap.Strings("brokers", cfg.KafkaBrokers), zap.String("topic", cfg.KafkaTopic))
		return kafka.NewPublisher(producer, cfg.KafkaTopic, logger), nil
	case config.BrokerNone, "":
		logger.Warn("Event publishing disabled")
		return NoopPublisher{}, nil
	default:
		return nil, fmt.Errorf("unsupported events broker %q", cfg.Broker)
	}
}
