package validation

import (
	"sync"
	"time"
)

// RateLimiter is a token bucket per input source, used to cap how fast
// interactive launches can add bodies.
type RateLimiter struct {
	maxRequests int
	window      time.Duration
	sources     map[string]*bucket
	mu          sync.Mutex
	now         func() time.Time
}

type bucket struct {
	tokens     int
	lastRefill time.Time
}

// NewRateLimiter allows up to maxRequests per window for each source.
func NewRateLimiter(maxRequests int, window time.Duration) *RateLimiter {
	return &RateLimiter{
		maxRequests: maxRequests,
		window:      window,
		sources:     make(map[string]*bucket),
		now:         time.Now,
	}
}

// Allow consumes a token for source and reports whether one was available.
func (rl *RateLimiter) Allow(source string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	b, ok := rl.sources[source]
	if !ok {
		b = &bucket{tokens: rl.maxRequests, lastRefill: now}
		rl.sources[source] = b
	}

	if elapsed := now.Sub(b.lastRefill); elapsed > 0 && b.tokens < rl.maxRequests {
		refill := int(float64(rl.maxRequests) * float64(elapsed) / float64(rl.window))
		if refill > 0 {
			b.tokens += refill
			if b.tokens > rl.maxRequests {
				b.tokens = rl.maxRequests
			}
			b.lastRefill = now
		}
	}

	if b.tokens > 0 {
		b.tokens--
		return true
	}
	return false
}
