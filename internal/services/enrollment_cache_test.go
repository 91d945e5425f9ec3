package services

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"enrollment-service/internal/domain"

	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"go.uber.org/zap"
)

type MockRedisClient struct {
	mock.Mock
}

func (m *MockRedisClient) Get(ctx context.Context, key string) *redis.StringCmd {
	args := m.Called(ctx, key)
	return args.Get(0).(*redis.StringCmd)
}

func (m *MockRedisClient) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd {
	args := m.Called(ctx, key, value, expiration)
	return args.Get(0).(*redis.StatusCmd)
}

func (m *MockRedisClient) Del(ctx context.Context, keys ...string) *redis.IntCmd {
	args := m.Called(ctx, keys)
	return args.Get(0).(*redis.IntCmd)
}

func TestEnrollmentCache_Get(t *testing.T) {
	list := []domain.Enrollment{{ID: 1, CourseID: 10, StudentID: 7, Status: domain.StatusPaid}}
	payload, _ := json.Marshal(list)

	tests := []struct {
		name       string
		setupMocks func(*MockRedisClient)
		expectHit  bool
	}{
		{
			name: "hit",
			setupMocks: func(m *MockRedisClient) {
				m.On("Get", mock.Anything, "enrollments:student:7").Return(redis.NewStringResult(string(payload), nil))
			},
			expectHit: true,
		},
		{
			name: "miss",
			setupMocks: func(m *MockRedisClient) {
				m.On("Get", mock.Anything, "enrollments:student:7").Return(redis.NewStringResult("", redis.Nil))
			},
		},
		{
			name: "redis down",
			setupMocks: func(m *MockRedisClient) {
				m.On("Get", mock.Anything, "enrollments:student:7").Return(redis.NewStringResult("", errors.New("connection refused")))
			},
		},
		{
			name: "corrupt entry",
			setupMocks: func(m *MockRedisClient) {
				m.On("Get", mock.Anything, "enrollments:student:7").Return(redis.NewStringResult("{not json", nil))
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := new(MockRedisClient)
			tt.setupMocks(client)
			cache := NewEnrollmentCache(client, time.Minute, zap.NewNop())

			got, ok := cache.Get(context.Background(), 7)
			assert.Equal(t, tt.expectHit, ok)
			if tt.expectHit {
				assert.Equal(t, uint64(10), got[0].CourseID)
			}
			client.AssertExpectations(t)
		})
	}
}

func TestEnrollmentCache_SetAndInvalidate(t *testing.T) {
	client := new(MockRedisClient)
	client.On("Set", mock.Anything, "enrollments:student:7", mock.Anything, time.Minute).Return(redis.NewStatusResult("OK", nil))
	client.On("Del", mock.Anything, []string{"enrollments:student:7"}).Return(redis.NewIntResult(1, nil))

	cache := NewEnrollmentCache(client, time.Minute, zap.NewNop())
	assert.True(t, cache.SetIfUnchanged(context.Background(), 7, cache.Epoch(), []domain.Enrollment{{ID: 1}}))
	cache.Invalidate(context.Background(), 7)

	client.AssertExpectations(t)
}

func TestEnrollmentCache_SetIfUnchangedSkipsAfterInvalidate(t *testing.T) {
	client := new(MockRedisClient)
	client.On("Del", mock.Anything, []string{"enrollments:student:7"}).Return(redis.NewIntResult(1, nil))

	cache := NewEnrollmentCache(client, time.Minute, zap.NewNop())
	epoch := cache.Epoch()
	cache.Invalidate(context.Background(), 7)

	assert.False(t, cache.SetIfUnchanged(context.Background(), 7, epoch, []domain.Enrollment{{ID: 1}}))
	assert.NotEqual(t, epoch, cache.Epoch())
	client.AssertNotCalled(t, "Set", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestEnrollmentCache_Disabled(t *testing.T) {
	var nilCache *EnrollmentCache
	_, ok := nilCache.Get(context.Background(), 1)
	assert.False(t, ok)
	assert.False(t, nilCache.SetIfUnchanged(context.Background(), 1, nilCache.Epoch(), nil))
	nilCache.Invalidate(context.Background(), 1)

	client := new(MockRedisClient)
	cache := NewEnrollmentCache(client, 0, zap.NewNop())
	_, ok = cache.Get(context.Background(), 1)
	assert.False(t, ok)
	client.AssertNotCalled(t, "Get", mock.Anything, mock.Anything)
}
