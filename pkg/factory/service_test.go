package factory

import (
	"context"
	"testing"
	"time"

	"github.com/akeren/waitlist-api/pkg/ratelimit"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
)

type plainCache struct{}

func (plainCache) Ping(context.Context) error { return nil }

type redisCache struct{ client *redis.Client }

func (redisCache) Ping(context.Context) error  { return nil }
func (c redisCache) GetClient() *redis.Client { return c.client }

func TestNewFactoryContainer_InMemoryByDefault(t *testing.T) {
	container := NewFactoryContainer(
		&RateLimitConfig{Requests: 100, Window: time.Minute},
		&RateLimitConfig{Requests: 5, Window: time.Minute, Backend: BackendMemory},
		nil,
	)

	assert.IsType(t, &ratelimit.InMemoryRateLimiter{}, container.RouterLimiterFactory.CreateRateLimiter())
	assert.IsType(t, &ratelimit.SlidingWindowLimiter{}, container.IntakeLimiterFactory.CreateRateLimiter())
}

func TestSlidingWindowFactory_RedisBackendNeedsRedisCache(t *testing.T) {
	f := NewSlidingWindowRateLimiterFactory(&RateLimitConfig{Requests: 5, Window: time.Minute, Backend: "redis"}, plainCache{}, "")
	assert.False(t, f.UsesRedis())
	assert.IsType(t, &ratelimit.SlidingWindowLimiter{}, f.CreateRateLimiter())
}

func TestSlidingWindowFactory_SelectsRedis(t *testing.T) {
	client := redis.NewClient(&redis.Options{Addr: "127.0.0.1:1"})
	defer client.Close()

	f := NewSlidingWindowRateLimiterFactory(&RateLimitConfig{Requests: 5, Window: time.Minute, Backend: " Redis "}, redisCache{client: client}, "ratelimit:waitlist:")
	assert.True(t, f.UsesRedis())
	assert.IsType(t, &ratelimit.RedisRateLimiter{}, f.CreateRateLimiter())

	memory := NewSlidingWindowRateLimiterFactory(&RateLimitConfig{Requests: 5, Window: time.Minute, Backend: BackendMemory}, redisCache{client: client}, "")
	assert.False(t, memory.UsesRedis())
}

func TestSlidingWindowFactory_PassesClock(t *testing.T) {
	fixed := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	f := NewSlidingWindowRateLimiterFactory(&RateLimitConfig{Requests: 1, Window: time.Minute, Clock: func() time.Time { return fixed }}, nil, "")

	limiter := f.CreateRateLimiter()
	limited, _ := limiter.IsLimited("k")
	assert.False(t, limited)
	limited, _ = limiter.IsLimited("k")
	assert.True(t, limited)
}
