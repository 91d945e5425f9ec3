package main

import (
	"context"
	"errors"
	"log"
	nethttp "net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"enrollment-service/internal/config"
	"enrollment-service/internal/controllers/http"
	"enrollment-service/internal/infra"
	"enrollment-service/internal/infra/database"
	"enrollment-service/internal/infra/gateway"
	"enrollment-service/internal/jobs"
	"enrollment-service/internal/metrics"
	"enrollment-service/internal/repository/gormrepo"
	"enrollment-service/internal/services"
	"enrollment-service/internal/tracing"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.uber.org/zap"
)

const serviceName = "enrollment-service"

func newLogger(cfg *config.Config) (*zap.Logger, error) {
	if cfg.IsProduction() {
		return zap.NewProduction()
	}
	return zap.NewDevelopment()
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	logger, err := newLogger(cfg)
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer logger.Sync()

	shutdownTracing, err := tracing.Init(serviceName, cfg.JaegerEndpoint, logger)
	if err != nil {
		logger.Fatal("Failed to initialize tracing", zap.Error(err))
	}

	db, err := database.Open(cfg.Database, logger)
	if err != nil {
		logger.Fatal("Failed to initialize database", zap.Error(err))
	}

	var cache *services.EnrollmentCache
	var redisClient *redis.Client
	if cfg.Redis.Addr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:         cfg.Redis.Addr,
			Password:     cfg.Redis.Password,
			DB:           cfg.Redis.DB,
			PoolSize:     200,
			MinIdleConns: 20,
			DialTimeout:  2 * time.Second,
			ReadTimeout:  500 * time.Millisecond,
			WriteTimeout: 500 * time.Millisecond,
		})
		cache = services.NewEnrollmentCache(redisClient, cfg.EnrollmentCacheTTL, logger)
	} else {
		logger.Info("REDIS_ADDR not set, enrollment cache disabled")
	}

	publisher, err := infra.NewPublisher(cfg.Events, logger)
	if err != nil {
		logger.Fatal("Failed to initialize event publisher", zap.Error(err))
	}

	enrollments := gormrepo.NewEnrollmentRepository(db)
	courses := gormrepo.NewCourseRepository(db)
	webhookEvents := gormrepo.NewWebhookEventRepository(db)

	engine := services.NewReconciliationService(services.ReconciliationDeps{
		Enrollments: enrollments,
		Courses:     courses,
		Webhooks:    webhookEvents,
		Gateway:     gateway.NewClient(cfg.Gateway),
		Signer:      gateway.NewSigner(cfg.Gateway.KeySecret, cfg.Gateway.WebhookSecret),
		Publisher:   publisher,
		Cache:       cache,
		Logger:      logger,
	}, services.ReconciliationOptions{
		Currency:       cfg.Gateway.Currency,
		SandboxEnabled: cfg.SandboxEnabled,
	})
	if !engine.WebhookEnabled() {
		logger.Warn("GATEWAY_WEBHOOK_SECRET not set, webhook route disabled")
	}
	if engine.SandboxEnabled() {
		logger.Warn("Sandbox payments are enabled")
	}
	queries := services.NewEnrollmentQueryService(enrollments, courses, cache, logger)

	scheduler := jobs.NewScheduler(logger)
	retention := jobs.NewWebhookRetention(webhookEvents, cfg.WebhookRetention, logger)
	if err := scheduler.AddWebhookRetention(cfg.WebhookRetentionSchedule, retention); err != nil {
		logger.Fatal("Failed to schedule webhook retention", zap.Error(err))
	}
	scheduler.Start()

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(otelgin.Middleware(serviceName))
	r.Use(http.LoggerMiddleware(logger))
	r.Use(metrics.MetricsMiddleware())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(nethttp.StatusOK, gin.H{"status": "healthy", "service": serviceName})
	})
	r.GET("/metrics", metrics.PrometheusHandler())

	handler := http.NewHandler(engine, queries, logger, http.HandlerOptions{
		SignatureHeader: cfg.Gateway.SignatureHeader,
		EventIDHeader:   cfg.Gateway.EventIDHeader,
	})
	handler.RegisterRoutes(r, http.AuthMiddleware(cfg.JWTSecret))

	srv := &nethttp.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("Starting enrollment service", zap.String("port", cfg.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, nethttp.ErrServerClosed) {
			logger.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("Server forced to shutdown", zap.Error(err))
	}
	scheduler.Stop(ctx)
	if err := publisher.Close(); err != nil {
		logger.Warn("Failed to close event publisher", zap.Error(err))
	}
	if redisClient != nil {
		if err := redisClient.Close(); err != nil {
			logger.Warn("Failed to close redis client", zap.Error(err))
		}
	}
	if sqlDB, err := db.DB(); err == nil {
		sqlDB.Close()
	}
	if err := shutdownTracing(ctx); err != nil {
		logger.Warn("Failed to flush traces", zap.Error(err))
	}

	logger.Info("Server exited")
}
