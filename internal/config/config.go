package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Env  string
	Port string

	Database DatabaseConfig
	Redis    RedisConfig
	Events   EventsConfig
	Gateway  GatewayConfig

	SandboxEnabled     bool
	JWTSecret          string
	EnrollmentCacheTTL time.Duration

	WebhookRetention         time.Duration
	WebhookRetentionSchedule string

	JaegerEndpoint string
}

type DatabaseConfig struct {
	Driver          string
	DSN             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

type EventsConfig struct {
	Broker           string
	RabbitMQURL      string
	RabbitMQExchange string
	KafkaBrokers     []string
	KafkaTopic       string
}

type GatewayConfig struct {
	BaseURL            string
	KeyID              string
	KeySecret          string
	WebhookSecret      string
	SignatureHeader    string
	EventIDHeader      string
	Currency           string
	Timeout            time.Duration
	BreakerMaxFailures int
	BreakerReset       time.Duration
}

const EnvProduction = "production"

const (
	BrokerNone     = "none"
	BrokerRabbitMQ = "rabbitmq"
	BrokerKafka    = "kafka"
)

func (c *Config) IsProduction() bool {
	return c.Env == EnvProduction
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("APP_ENV", "development")
	v.SetDefault("PORT", "8080")

	v.SetDefault("DB_DRIVER", "mysql")
	v.SetDefault("DB_MAX_OPEN_CONNS", 100)
	v.SetDefault("DB_MAX_IDLE_CONNS", 20)
	v.SetDefault("DB_CONN_MAX_LIFETIME", 5*time.Minute)
	v.SetDefault("MYSQL_HOST", "localhost")
	v.SetDefault("MYSQL_PORT", "3306")
	v.SetDefault("MYSQL_USER", "root")
	v.SetDefault("MYSQL_DATABASE", "enrollments")

	v.SetDefault("REDIS_DB", 0)

	v.SetDefault("EVENTS_BROKER", "none")
	v.SetDefault("RABBITMQ_EXCHANGE", "enrollment.exchange")
	v.SetDefault("KAFKA_BROKERS", "localhost:9092")
	v.SetDefault("KAFKA_TOPIC", "enrollment_events")

	v.SetDefault("GATEWAY_BASE_URL", "https://api.razorpay.com/v1")
	v.SetDefault("GATEWAY_SIGNATURE_HEADER", "X-Razorpay-Signature")
	v.SetDefault("GATEWAY_EVENT_ID_HEADER", "X-Razorpay-Event-Id")
	v.SetDefault("GATEWAY_CURRENCY", "INR")
	v.SetDefault("GATEWAY_TIMEOUT", 10*time.Second)
	v.SetDefault("GATEWAY_BREAKER_MAX_FAILURES", 5)
	v.SetDefault("GATEWAY_BREAKER_RESET", 30*time.Second)

	v.SetDefault("PAYMENT_SANDBOX_ENABLED", false)
	v.SetDefault("ENROLLMENT_CACHE_TTL", 30*time.Second)
	v.SetDefault("WEBHOOK_RETENTION", 720*time.Hour)
	v.SetDefault("WEBHOOK_RETENTION_SCHEDULE", "@daily")
}

// Load reads an optional .env file and then the process environment.
func Load() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	setDefaults(v)
	v.AutomaticEnv()

	cfg := fromViper(v)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func fromViper(v *viper.Viper) *Config {
	cfg := &Config{
		Env:  v.GetString("APP_ENV"),
		Port: v.GetString("PORT"),
		Database: DatabaseConfig{
			Driver:          strings.ToLower(v.GetString("DB_DRIVER")),
			DSN:             v.GetString("DB_DSN"),
			MaxOpenConns:    v.GetInt("DB_MAX_OPEN_CONNS"),
			MaxIdleConns:    v.GetInt("DB_MAX_IDLE_CONNS"),
			ConnMaxLifetime: v.GetDuration("DB_CONN_MAX_LIFETIME"),
		},
		Redis: RedisConfig{
			Addr:     v.GetString("REDIS_ADDR"),
			Password: v.GetString("REDIS_PASSWORD"),
			DB:       v.GetInt("REDIS_DB"),
		},
		Events: EventsConfig{
			Broker:           strings.ToLower(v.GetString("EVENTS_BROKER")),
			RabbitMQURL:      v.GetString("RABBITMQ_URL"),
			RabbitMQExchange: v.GetString("RABBITMQ_EXCHANGE"),
			KafkaBrokers:     splitList(v.GetString("KAFKA_BROKERS")),
			KafkaTopic:       v.GetString("KAFKA_TOPIC"),
		},
		Gateway: GatewayConfig{
			BaseURL:            strings.TrimRight(v.GetString("GATEWAY_BASE_URL"), "/"),
			KeyID:              v.GetString("GATEWAY_KEY_ID"),
			KeySecret:          v.GetString("GATEWAY_KEY_SECRET"),
			WebhookSecret:      v.GetString("GATEWAY_WEBHOOK_SECRET"),
			SignatureHeader:    v.GetString("GATEWAY_SIGNATURE_HEADER"),
			EventIDHeader:      v.GetString("GATEWAY_EVENT_ID_HEADER"),
			Currency:           strings.ToUpper(v.GetString("GATEWAY_CURRENCY")),
			Timeout:            v.GetDuration("GATEWAY_TIMEOUT"),
			BreakerMaxFailures: v.GetInt("GATEWAY_BREAKER_MAX_FAILURES"),
			BreakerReset:       v.GetDuration("GATEWAY_BREAKER_RESET"),
		},
		SandboxEnabled:           v.GetBool("PAYMENT_SANDBOX_ENABLED"),
		JWTSecret:                v.GetString("JWT_SECRET"),
		EnrollmentCacheTTL:       v.GetDuration("ENROLLMENT_CACHE_TTL"),
		WebhookRetention:         v.GetDuration("WEBHOOK_RETENTION"),
		WebhookRetentionSchedule: v.GetString("WEBHOOK_RETENTION_SCHEDULE"),
		JaegerEndpoint:           v.GetString("JAEGER_ENDPOINT"),
	}

	if cfg.Database.DSN == "" && cfg.Database.Driver == "mysql" {
		cfg.Database.DSN = fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?charset=utf8mb4&parseTime=True&loc=UTC",
			v.GetString("MYSQL_USER"),
			v.GetString("MYSQL_PASSWORD"),
			v.GetString("MYSQL_HOST"),
			v.GetString("MYSQL_PORT"),
			v.GetString("MYSQL_DATABASE"),
		)
	}
	return cfg
}

func (c *Config) Validate() error {
	var errs []error
	if c.Gateway.KeySecret == "" {
		errs = append(errs, errors.New("GATEWAY_KEY_SECRET is required"))
	}
	if c.JWTSecret == "" {
		errs = append(errs, errors.New("JWT_SECRET is required"))
	}
	if c.SandboxEnabled && c.IsProduction() {
		errs = append(errs, errors.New("PAYMENT_SANDBOX_ENABLED must not be set in production"))
	}
	if c.Gateway.WebhookSecret == "" && c.IsProduction() {
		errs = append(errs, errors.New("GATEWAY_WEBHOOK_SECRET is required in production"))
	}
	switch c.Database.Driver {
	case "mysql", "postgres", "sqlite":
	default:
		errs = append(errs, fmt.Errorf("unsupported DB_DRIVER %q", c.Database.Driver))
	}
	if c.Database.DSN == "" {
		errs = append(errs, errors.New("DB_DSN is required"))
	}
	switch c.Events.Broker {
	case BrokerNone, "":
	case BrokerRabbitMQ:
		if c.Events.RabbitMQURL == "" {
			errs = append(errs, errors.New("RABBITMQ_URL is required when EVENTS_BROKER=rabbitmq"))
		}
	case BrokerKafka:
		if len(c.Events.KafkaBrokers) == 0 {
			errs = append(errs, errors.New("KAFKA_BROKERS is required when EVENTS_BROKER=kafka"))
		}
	default:
		errs = append(errs, fmt.Errorf("unsupported EVENTS_BROKER %q", c.Events.Broker))
	}
	return errors.Join(errs...)
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
