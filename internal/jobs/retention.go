package jobs

import (
	"context"
	"fmt"
	"time"

	"enrollment-service/internal/repository"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

const runTimeout = 5 * time.Minute

// WebhookRetention prunes webhook delivery records older than the retention
// window. Duplicate detection only needs recent rows.
type WebhookRetention struct {
	events    repository.WebhookEventRepository
	retention time.Duration
	logger    *zap.Logger
	now       func() time.Time
}

func NewWebhookRetention(events repository.WebhookEventRepository, retention time.Duration, logger *zap.Logger) *WebhookRetention {
	return &WebhookRetention{
		events:    events,
		retention: retention,
		logger:    logger,
		now:       time.Now,
	}
}

// Run deletes one batch and reports how many rows went.
func (j *WebhookRetention) Run(ctx context.Context) (int64, error) {
	if j.retention <= 0 {
		return 0, nil
	}
	cutoff := j.now().Add(-j.retention)
	n, err := j.events.DeleteOlderThan(ctx, cutoff)
	if err != nil {
		return 0, fmt.Errorf("prune webhook events: %w", err)
	}
	j.logger.Info("Pruned webhook events", zap.Int64("deleted", n), zap.Time("cutoff", cutoff))
	return n, nil
}

// Scheduler runs background jobs on cron specs.
type Scheduler struct {
	cron   *cron.Cron
	logger *zap.Logger
}

func NewScheduler(logger *zap.Logger) *Scheduler {
	cl := cronLogger{logger.Sugar()}
	return &Scheduler{
		cron:   cron.New(cron.WithLogger(cl), cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl))),
		logger: logger,
	}
}

// AddWebhookRetention registers job on schedule (standard five-field or a
// descriptor such as @daily).
func (s *Scheduler) AddWebhookRetention(schedule string, job *WebhookRetention) error {
	_, err := s.cron.AddFunc(schedule, func() {
		ctx, cancel := context.WithTimeout(context.Background(), runTimeout)
		defer cancel()
		if _, err := job.Run(ctx); err != nil {
			s.logger.Error("Webhook retention failed", zap.Error(err))
		}
	})
	if err != nil {
		return fmt.Errorf("schedule webhook retention %q: %w", schedule, err)
	}
	return nil
}

func (s *Scheduler) Start() {
	s.cron.Start()
}

// Stop prevents new runs and waits for running ones until ctx is done.
func (s *Scheduler) Stop(ctx context.Context) {
	select {
	case <-s.cron.Stop().Done():
	case <-ctx.Done():
	}
}

type cronLogger struct {
	l *zap.SugaredLogger
}

func (c cronLogger) Info(msg string, keysAndValues ...interface{}) {
	c.l.Debugw(msg, keysAndValues...)
}

func (c cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	c.l.Errorw(msg, append(keysAndValues, "error", err)...)
}
