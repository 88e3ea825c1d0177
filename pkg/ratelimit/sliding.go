package ratelimit

import (
	"sync"
	"time"
)

// SlidingWindowLimiter admits at most requests events per key within any
// trailing window. Timestamps older than now-window are pruned on every check;
// a rejected request is not recorded.
type SlidingWindowLimiter struct {
	requests int
	window   time.Duration
	now      Clock

	mu      sync.Mutex
	buckets map[string][]time.Time
	ops     uint64
}

func NewSlidingWindowLimiter(requests int, window time.Duration, clock Clock) *SlidingWindowLimiter {
	if clock == nil {
		clock = time.Now
	}
	return &SlidingWindowLimiter{
		requests: requests,
		window:   window,
		now:      clock,
		buckets:  make(map[string][]time.Time),
	}
}

func (s *SlidingWindowLimiter) GetLimitDetails() (int, time.Duration) {
	return s.requests, s.window
}

func (s *SlidingWindowLimiter) IsLimited(key string) (bool, error) {
	if key == "" {
		key = emptyKey
	}

	now := s.now()
	cutoff := now.Add(-s.window)

	s.mu.Lock()
	defer s.mu.Unlock()

	recent := prune(s.buckets[key], cutoff)

	s.ops++
	if s.ops%1024 == 0 {
		s.sweep(cutoff)
	}

	if len(recent) >= s.requests {
		s.buckets[key] = recent
		return true, nil
	}

	s.buckets[key] = append(recent, now)
	return false, nil
}

// Remaining reports how many more requests key may make right now.
func (s *SlidingWindowLimiter) Remaining(key string) int {
	if key == "" {
		key = emptyKey
	}
	cutoff := s.now().Add(-s.window)

	s.mu.Lock()
	defer s.mu.Unlock()

	left := s.requests - len(prune(s.buckets[key], cutoff))
	if left < 0 {
		return 0
	}
	return left
}

func (s *SlidingWindowLimiter) Close() error {
	return nil
}

// sweep drops keys whose newest timestamp has left the window. Caller holds mu.
func (s *SlidingWindowLimiter) sweep(cutoff time.Time) {
	for k, stamps := range s.buckets {
		if len(stamps) == 0 || !stamps[len(stamps)-1].After(cutoff) {
			delete(s.buckets, k)
		}
	}
}

// prune keeps timestamps strictly newer than cutoff. Stamps are appended in
// order so the survivors are always a suffix.
func prune(stamps []time.Time, cutoff time.Time) []time.Time {
	i := 0
	for i < len(stamps) && !stamps[i].After(cutoff) {
		i++
	}
	return stamps[i:]
}
