package factory

import (
	"context"
	"strings"
	"time"

	"github.com/akeren/waitlist-api/pkg/ratelimit"
	"github.com/go-redis/redis/v8"
)

type Cache interface {
	Ping(ctx context.Context) error
}

type RedisClientProvider interface {
	GetClient() *redis.Client
}

const (
	BackendMemory = "memory"
	BackendRedis  = "redis"
)

type RateLimitConfig struct {
	Requests int
	Window   time.Duration
	// Backend is "memory" or "redis". Redis silently degrades to memory when
	// no Redis-backed cache is available.
	Backend string
	Clock   ratelimit.Clock
	Logger  ratelimit.Logger
}

type RateLimiterFactory interface {
	CreateRateLimiter() ratelimit.RateLimiter
}

type DefaultRateLimiterFactory struct {
	config *ratelimit.RateLimitConfig
}

// NewDefaultRateLimiterFactory builds the router-wide limiter: a token bucket
// in memory, or the shared Redis window when a Redis cache is present.
func NewDefaultRateLimiterFactory(requests int, window time.Duration, cache Cache, logger ratelimit.Logger) *DefaultRateLimiterFactory {
	return &DefaultRateLimiterFactory{
		config: &ratelimit.RateLimitConfig{
			Requests:  requests,
			Window:    window,
			Algorithm: ratelimit.TokenBucket,
			Redis:     redisClientFrom(cache),
			Logger:    logger,
		},
	}
}

// NewSlidingWindowRateLimiterFactory builds a strict sliding-window limiter,
// process-local unless cfg.Backend is "redis" and Redis is reachable.
func NewSlidingWindowRateLimiterFactory(cfg *RateLimitConfig, cache Cache, keyPrefix string) *DefaultRateLimiterFactory {
	var client *redis.Client
	if strings.EqualFold(strings.TrimSpace(cfg.Backend), BackendRedis) {
		client = redisClientFrom(cache)
	}

	return &DefaultRateLimiterFactory{
		config: &ratelimit.RateLimitConfig{
			Requests:  cfg.Requests,
			Window:    cfg.Window,
			Algorithm: ratelimit.SlidingWindow,
			Redis:     client,
			KeyPrefix: keyPrefix,
			Clock:     cfg.Clock,
			Logger:    cfg.Logger,
		},
	}
}

func (f *DefaultRateLimiterFactory) CreateRateLimiter() ratelimit.RateLimiter {
	return ratelimit.NewRateLimiter(f.config)
}

// UsesRedis reports whether created limiters share state through Redis.
func (f *DefaultRateLimiterFactory) UsesRedis() bool {
	return f.config.Redis != nil
}

func redisClientFrom(cache Cache) *redis.Client {
	if cache == nil {
		return nil
	}
	if provider, ok := cache.(RedisClientProvider); ok {
		return provider.GetClient()
	}
	return nil
}

// FactoryContainer holds the limiter factories shared by the router and domains.
type FactoryContainer struct {
	RouterLimiterFactory RateLimiterFactory
	IntakeLimiterFactory RateLimiterFactory
}

func NewFactoryContainer(routerLimits, intakeLimits *RateLimitConfig, cache Cache) *FactoryContainer {
	return &FactoryContainer{
		RouterLimiterFactory: NewDefaultRateLimiterFactory(routerLimits.Requests, routerLimits.Window, cache, routerLimits.Logger),
		IntakeLimiterFactory: NewSlidingWindowRateLimiterFactory(intakeLimits, cache, "ratelimit:waitlist:"),
	}
}
