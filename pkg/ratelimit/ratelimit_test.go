package ratelimit

import (
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func TestInMemoryRateLimiter_IsLimited_IsPerKey(t *testing.T) {
	limiter := NewInMemoryRateLimiter(1, time.Second)

	limited, err := limiter.IsLimited("client-a")
	require.NoError(t, err)
	assert.False(t, limited, "first request for client-a should not be limited")

	limited, err = limiter.IsLimited("client-a")
	require.NoError(t, err)
	assert.True(t, limited, "second immediate request for client-a should be limited")

	limited, err = limiter.IsLimited("client-b")
	require.NoError(t, err)
	assert.False(t, limited, "client-b has its own bucket")
}

func TestSlidingWindowLimiter_RejectsAfterMaxWithinWindow(t *testing.T) {
	clock := &fakeClock{now: time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)}
	limiter := NewSlidingWindowLimiter(5, time.Minute, clock.Now)

	for i := 0; i < 5; i++ {
		limited, err := limiter.IsLimited("10.0.0.1")
		require.NoError(t, err)
		assert.False(t, limited, "request %d should pass", i+1)
		clock.Advance(time.Second)
	}

	limited, err := limiter.IsLimited("10.0.0.1")
	require.NoError(t, err)
	assert.True(t, limited)
	assert.Equal(t, 0, limiter.Remaining("10.0.0.1"))
}

func TestSlidingWindowLimiter_RejectedRequestsAreNotRecorded(t *testing.T) {
	clock := &fakeClock{now: time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)}
	limiter := NewSlidingWindowLimiter(2, time.Minute, clock.Now)

	_, _ = limiter.IsLimited("k")
	_, _ = limiter.IsLimited("k")

	// Hammering while limited must not extend the lockout.
	for i := 0; i < 10; i++ {
		clock.Advance(5 * time.Second)
		limited, _ := limiter.IsLimited("k")
		assert.True(t, limited)
	}

	clock.Advance(11 * time.Second)
	limited, err := limiter.IsLimited("k")
	require.NoError(t, err)
	assert.False(t, limited, "window of the first two requests has passed")
}

func TestSlidingWindowLimiter_WindowSlides(t *testing.T) {
	clock := &fakeClock{now: time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)}
	limiter := NewSlidingWindowLimiter(2, time.Minute, clock.Now)

	_, _ = limiter.IsLimited("k")
	clock.Advance(30 * time.Second)
	_, _ = limiter.IsLimited("k")

	limited, _ := limiter.IsLimited("k")
	assert.True(t, limited)

	// First stamp leaves the window, the second is still inside.
	clock.Advance(31 * time.Second)
	limited, _ = limiter.IsLimited("k")
	assert.False(t, limited)
	limited, _ = limiter.IsLimited("k")
	assert.True(t, limited)
}

func TestSlidingWindowLimiter_KeysAreIndependent(t *testing.T) {
	limiter := NewSlidingWindowLimiter(1, time.Minute, nil)

	limited, _ := limiter.IsLimited("a")
	assert.False(t, limited)
	limited, _ = limiter.IsLimited("b")
	assert.False(t, limited)
	limited, _ = limiter.IsLimited("a")
	assert.True(t, limited)
}

func TestSlidingWindowLimiter_ConcurrentCheckAndRecordIsAtomic(t *testing.T) {
	limiter := NewSlidingWindowLimiter(5, time.Minute, nil)

	var admitted int64
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if limited, _ := limiter.IsLimited("shared"); !limited {
				atomic.AddInt64(&admitted, 1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int64(5), admitted)
}

func TestNewRateLimiter_SelectsBackend(t *testing.T) {
	cases := []struct {
		cfg  *RateLimitConfig
		want string
	}{
		{&RateLimitConfig{Requests: 5, Window: time.Minute}, "*ratelimit.InMemoryRateLimiter"},
		{&RateLimitConfig{Requests: 5, Window: time.Minute, Algorithm: SlidingWindow}, "*ratelimit.SlidingWindowLimiter"},
	}

	for _, tc := range cases {
		limiter := NewRateLimiter(tc.cfg)
		assert.Equal(t, tc.want, fmt.Sprintf("%T", limiter))
		requests, window := limiter.GetLimitDetails()
		assert.Equal(t, 5, requests)
		assert.Equal(t, time.Minute, window)
	}
}
