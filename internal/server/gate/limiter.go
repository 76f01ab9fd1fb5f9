package gate

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// AttemptLimiter bounds password guesses per key, usually transfer id plus
// client address. Idle buckets are dropped by Prune.
type AttemptLimiter struct {
	limit rate.Limit
	burst int

	mu      sync.Mutex
	buckets map[string]*bucket
}

type bucket struct {
	lim  *rate.Limiter
	seen time.Time
}

// NewAttemptLimiter allows perMinute attempts per key with an equal burst.
// A non-positive perMinute disables limiting.
func NewAttemptLimiter(perMinute int) *AttemptLimiter {
	l := &AttemptLimiter{buckets: make(map[string]*bucket)}
	if perMinute <= 0 {
		l.limit = rate.Inf
		return l
	}
	l.limit = rate.Every(time.Minute / time.Duration(perMinute))
	l.burst = perMinute
	return l
}

// Allow consumes one attempt for key at now.
func (l *AttemptLimiter) Allow(key string, now time.Time) bool {
	if l.limit == rate.Inf {
		return true
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	b, ok := l.buckets[key]
	if !ok {
		b = &bucket{lim: rate.NewLimiter(l.limit, l.burst)}
		l.buckets[key] = b
	}
	b.seen = now
	return b.lim.AllowN(now, 1)
}

// Prune forgets keys idle for longer than idle and returns how many were
// removed.
func (l *AttemptLimiter) Prune(now time.Time, idle time.Duration) int {
	l.mu.Lock()
	defer l.mu.Unlock()

	n := 0
	for k, b := range l.buckets {
		if now.Sub(b.seen) > idle {
			delete(l.buckets, k)
			n++
		}
	}
	return n
}
