package ratelimit

import (
	"time"

	"github.com/go-redis/redis/v8"
)

type Logger interface {
	Error(msg string, args ...interface{})
}

// Clock returns the current time. Limiters default to time.Now.
type Clock func() time.Time

// RateLimiter defines the strategy interface for rate limiting.
// IsLimited checks the key and, when the request is admitted, records it in a
// single atomic step.
type RateLimiter interface {
	GetLimitDetails() (int, time.Duration)
	IsLimited(key string) (bool, error)
	Close() error
}

type Algorithm string

const (
	TokenBucket   Algorithm = "token_bucket"
	SlidingWindow Algorithm = "sliding_window"
)

// RateLimitConfig holds configuration for rate limiting
type RateLimitConfig struct {
	Requests  int
	Window    time.Duration
	Algorithm Algorithm     // Only consulted for the in-memory backend
	Redis     *redis.Client // Optional, if nil uses in-memory
	KeyPrefix string
	Clock     Clock
	Logger    Logger // Optional logger for Redis operations
}

// NewRateLimiter creates a rate limiter based on configuration.
// A Redis client always selects the Redis sliding window.
func NewRateLimiter(config *RateLimitConfig) RateLimiter {
	if config.Redis != nil {
		limiter := NewRedisRateLimiter(config.Redis, config.Requests, config.Window, config.Logger)
		if config.KeyPrefix != "" {
			limiter.keyPrefix = config.KeyPrefix
		}
		if config.Clock != nil {
			limiter.now = config.Clock
		}
		return limiter
	}

	if config.Algorithm == SlidingWindow {
		return NewSlidingWindowLimiter(config.Requests, config.Window, config.Clock)
	}
	return NewInMemoryRateLimiter(config.Requests, config.Window)
}
