// ratelimit/ratelimit.go
package ratelimit

import (
	"sync"
	"time"
)

// Limiter is a token bucket keyed by room code, limiting how fast a
// controller can issue commands against its room.
type Limiter struct {
	mu      sync.Mutex
	buckets map[string]*bucket
	max     int           // tokens per window
	per     time.Duration // window size
	now     func() time.Time
}

type bucket struct {
	windowStart time.Time
	tokens      int
}

func New(max int, per time.Duration) *Limiter {
	return &Limiter{
		buckets: make(map[string]*bucket),
		max:     max,
		per:     per,
		now:     time.Now,
	}
}

// Allow consumes one token for code, refilling the bucket when its window
// has elapsed.
func (l *Limiter) Allow(code string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	b := l.buckets[code]
	if b == nil || now.Sub(b.windowStart) > l.per {
		b = &bucket{windowStart: now, tokens: l.max}
		l.buckets[code] = b
	}

	if b.tokens <= 0 {
		return false
	}
	b.tokens--
	return true
}

// Forget drops the bucket for a deleted room.
func (l *Limiter) Forget(code string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.buckets, code)
}
