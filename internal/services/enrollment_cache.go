package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"enrollment-service/internal/domain"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

// RedisClient is the subset of *redis.Client the cache uses.
type RedisClient interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
}

var _ RedisClient = (*redis.Client)(nil)

// EnrollmentCache holds each student's paid-enrollment list. A nil cache or
// nil client disables caching; cache errors never fail a request.
//
// Every Invalidate advances an epoch. A list read before an invalidation is
// only written back through SetIfUnchanged, which drops it when the epoch
// moved in the meantime.
type EnrollmentCache struct {
	client RedisClient
	ttl    time.Duration
	logger *zap.Logger

	mu    sync.Mutex
	epoch uint64
}

func NewEnrollmentCache(client RedisClient, ttl time.Duration, logger *zap.Logger) *EnrollmentCache {
	return &EnrollmentCache{client: client, ttl: ttl, logger: logger}
}

func enrollmentsKey(studentID uint64) string {
	return fmt.Sprintf("enrollments:student:%d", studentID)
}

func (c *EnrollmentCache) enabled() bool {
	return c != nil && c.client != nil && c.ttl > 0
}

func (c *EnrollmentCache) Get(ctx context.Context, studentID uint64) ([]domain.Enrollment, bool) {
	if !c.enabled() {
		return nil, false
	}

	cached, err := c.client.Get(ctx, enrollmentsKey(studentID)).Result()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.logger.Warn("Enrollment cache read failed", zap.Uint64("student_id", studentID), zap.Error(err))
		}
		return nil, false
	}

	var list []domain.Enrollment
	if err := json.Unmarshal([]byte(cached), &list); err != nil {
		c.logger.Warn("Enrollment cache entry unreadable", zap.Uint64("student_id", studentID), zap.Error(err))
		return nil, false
	}
	return list, true
}

// Epoch returns the current invalidation epoch. Capture it before reading the
// list that will be cached.
func (c *EnrollmentCache) Epoch() uint64 {
	if !c.enabled() {
		return 0
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.epoch
}

// SetIfUnchanged caches list unless an invalidation happened since epoch was
// read. It reports whether the list was written.
func (c *EnrollmentCache) SetIfUnchanged(ctx context.Context, studentID, epoch uint64, list []domain.Enrollment) bool {
	if !c.enabled() {
		return false
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.epoch != epoch {
		return false
	}
	return c.write(ctx, studentID, list)
}

func (c *EnrollmentCache) write(ctx context.Context, studentID uint64, list []domain.Enrollment) bool {
	data, err := json.Marshal(list)
	if err != nil {
		return false
	}
	if err := c.client.Set(ctx, enrollmentsKey(studentID), data, c.ttl).Err(); err != nil {
		c.logger.Warn("Enrollment cache write failed", zap.Uint64("student_id", studentID), zap.Error(err))
		return false
	}
	return true
}

func (c *EnrollmentCache) Invalidate(ctx context.Context, studentID uint64) {
	if !c.enabled() {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.epoch++
	if err := c.client.Del(ctx, enrollmentsKey(studentID)).Err(); err != nil {
		c.logger.Warn("Enrollment cache invalidation failed", zap.Uint64("student_id", studentID), zap.Error(err))
	}
}
