package mdblog

import (
	"testing"
	"time"
)

func fixedLimiter(perSecond float64, burst int) (*SearchLimiter, *time.Time) {
	clock := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	l := NewSearchLimiter(perSecond, burst)
	l.now = func() time.Time { return clock }
	return l, &clock
}

func TestSearchLimiterBlocksAfterBurst(t *testing.T) {
	limiter, _ := fixedLimiter(1, 2)
	ip := "203.0.113.10"

	if !limiter.Allow(ip) {
		t.Fatalf("expected first search to be allowed")
	}
	if !limiter.Allow(ip) {
		t.Fatalf("expected second search to be allowed")
	}
	if limiter.Allow(ip) {
		t.Fatalf("expected third search to be blocked")
	}
}

func TestSearchLimiterRefills(t *testing.T) {
	limiter, clock := fixedLimiter(1, 1)
	ip := "203.0.113.20"

	if !limiter.Allow(ip) {
		t.Fatalf("expected first search to be allowed")
	}
	if limiter.Allow(ip) {
		t.Fatalf("expected second search to be blocked")
	}

	*clock = clock.Add(1100 * time.Millisecond)
	if !limiter.Allow(ip) {
		t.Fatalf("expected search after refill to be allowed")
	}
}

func TestSearchLimiterIsPerIP(t *testing.T) {
	limiter, _ := fixedLimiter(1, 1)

	if !limiter.Allow("203.0.113.30") {
		t.Fatalf("expected first ip to be allowed")
	}
	if !limiter.Allow("203.0.113.31") {
		t.Fatalf("expected second ip to be allowed independently")
	}
	if limiter.Allow("203.0.113.30") {
		t.Fatalf("expected first ip to be blocked after burst")
	}
}

func TestSearchLimiterEvictsIdleClients(t *testing.T) {
	limiter, clock := fixedLimiter(1, 1)

	limiter.Allow("203.0.113.40")
	limiter.Allow("203.0.113.41")
	if n := limiter.Len(); n != 2 {
		t.Fatalf("tracked clients = %d, want 2", n)
	}

	*clock = clock.Add(11 * time.Minute)
	limiter.Allow("203.0.113.42")
	if n := limiter.Len(); n != 1 {
		t.Fatalf("tracked clients after idle period = %d, want 1", n)
	}
}
