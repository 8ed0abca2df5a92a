package http

import (
	"testing"
	"time"
)

func TestRateLimiterAllowsWithinBurst(t *testing.T) {
	t.Parallel()

	rl := NewRateLimiter(3, 1, 0)

	for i := 0; i < 3; i++ {
		if !rl.Allow("client") {
			t.Fatalf("expected request %d within burst to be allowed", i+1)
		}
	}

	if rl.Allow("client") {
		t.Fatalf("expected request beyond burst to be denied")
	}
}

func TestRateLimiterRefillsOverTime(t *testing.T) {
	t.Parallel()

	current := time.Now()
	rl := NewRateLimiter(1, 1, 0)
	rl.now = func() time.Time { return current }

	if !rl.Allow("client") {
		t.Fatalf("expected first request to be allowed")
	}
	if rl.Allow("client") {
		t.Fatalf("expected second immediate request to be denied")
	}

	current = current.Add(2 * time.Second)

	if !rl.Allow("client") {
		t.Fatalf("expected request after refill to be allowed")
	}
}

func TestRateLimiterKeysClientsSeparately(t *testing.T) {
	t.Parallel()

	rl := NewRateLimiter(1, 1, 0)

	if !rl.Allow("alpha") {
		t.Fatalf("expected first request for alpha to be allowed")
	}
	if !rl.Allow("beta") {
		t.Fatalf("expected first request for beta to be allowed")
	}
	if rl.Allow("alpha") {
		t.Fatalf("expected second request for alpha to be denied")
	}
}

func TestRateLimiterPrunesStaleClients(t *testing.T) {
	t.Parallel()

	current := time.Now()
	rl := NewRateLimiter(1, 1, time.Minute)
	rl.now = func() time.Time { return current }

	rl.Allow("alpha")
	current = current.Add(2 * time.Minute)
	rl.pruneStale()

	rl.mu.Lock()
	_, ok := rl.visitors["alpha"]
	rl.mu.Unlock()

	if ok {
		t.Fatalf("expected stale client to be pruned")
	}
}
