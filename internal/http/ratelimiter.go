package http

import (
	"sync"
	"time"
)

type visitorBucket struct {
	tokens     float64
	refilledAt time.Time
	seenAt     time.Time
}

// RateLimiter is a token bucket limiter keyed by visitor identity, normally
// the client IP. Buckets refill continuously and idle visitors are dropped
// after ttl.
type RateLimiter struct {
	mu            sync.Mutex
	visitors      map[string]*visitorBucket
	burst         float64
	ratePerSecond float64
	ttl           time.Duration
	now           func() time.Time
}

// NewRateLimiter constructs a limiter allowing burst immediate requests per
// visitor, refilled at ratePerSecond.
func NewRateLimiter(burst int, ratePerSecond float64, ttl time.Duration) *RateLimiter {
	rl := &RateLimiter{
		visitors:      make(map[string]*visitorBucket),
		burst:         float64(burst),
		ratePerSecond: ratePerSecond,
		ttl:           ttl,
		now:           time.Now,
	}

	if ttl > 0 {
		ticker := time.NewTicker(ttl)
		go func() {
			for range ticker.C {
				rl.pruneStale()
			}
		}()
	}

	return rl
}

// Allow reports whether the visitor may proceed, consuming one token when so.
func (rl *RateLimiter) Allow(key string) bool {
	if key == "" {
		key = "unknown"
	}

	now := rl.now()

	rl.mu.Lock()
	defer rl.mu.Unlock()

	bucket, ok := rl.visitors[key]
	if !ok {
		bucket = &visitorBucket{
			tokens:     rl.burst,
			refilledAt: now,
			seenAt:     now,
		}
		rl.visitors[key] = bucket
	}

	if elapsed := now.Sub(bucket.refilledAt).Seconds(); elapsed > 0 {
		bucket.tokens += elapsed * rl.ratePerSecond
		if bucket.tokens > rl.burst {
			bucket.tokens = rl.burst
		}
		bucket.refilledAt = now
	}

	bucket.seenAt = now
	if bucket.tokens < 1 {
		return false
	}

	bucket.tokens--
	return true
}

func (rl *RateLimiter) pruneStale() {
	if rl.ttl <= 0 {
		return
	}

	now := rl.now()

	rl.mu.Lock()
	defer rl.mu.Unlock()

	for key, bucket := range rl.visitors {
		if now.Sub(bucket.seenAt) > rl.ttl {
			delete(rl.visitors, key)
		}
	}
}
