package scraper

import (
	"context"
	"sync"
	"time"
)

// RateLimiter is a per-provider token bucket. Each provider may burst up to
// its per-minute limit and refills continuously.
type RateLimiter struct {
	buckets map[string]*bucket
	mu      sync.Mutex
	now     func() time.Time
}

type bucket struct {
	tokens   float64
	capacity float64
	perSec   float64
	last     time.Time
}

// NewRateLimiter creates a new rate limiter
func NewRateLimiter() *RateLimiter {
	return &RateLimiter{
		buckets: make(map[string]*bucket),
		now:     time.Now,
	}
}

// Wait blocks until provider may issue a request or ctx is done. A limit of
// zero or less disables limiting.
func (rl *RateLimiter) Wait(ctx context.Context, provider string, requestsPerMinute int) error {
	if requestsPerMinute <= 0 {
		return nil
	}

	for {
		wait := rl.reserve(provider, requestsPerMinute)
		if wait <= 0 {
			return nil
		}

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}

// reserve takes a token if one is available, otherwise it reports how long
// until the next one.
func (rl *RateLimiter) reserve(provider string, requestsPerMinute int) time.Duration {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	b, ok := rl.buckets[provider]
	if !ok || b.capacity != float64(requestsPerMinute) {
		b = &bucket{
			tokens:   float64(requestsPerMinute),
			capacity: float64(requestsPerMinute),
			perSec:   float64(requestsPerMinute) / 60,
			last:     now,
		}
		rl.buckets[provider] = b
	}

	if elapsed := now.Sub(b.last).Seconds(); elapsed > 0 {
		b.tokens += elapsed * b.perSec
		if b.tokens > b.capacity {
			b.tokens = b.capacity
		}
		b.last = now
	}

	if b.tokens >= 1 {
		b.tokens--
		return 0
	}
	return time.Duration((1 - b.tokens) / b.perSec * float64(time.Second))
}
