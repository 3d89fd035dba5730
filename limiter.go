package mdblog

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// SearchLimiter rate-limits search requests per client IP with a token
// bucket per address.
type SearchLimiter struct {
	mu      sync.Mutex
	clients map[string]*limitedClient
	limit   rate.Limit
	burst   int
	idle    time.Duration
	now     func() time.Time
}

type limitedClient struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// NewSearchLimiter creates a SearchLimiter allowing perSecond requests per
// second with bursts of burst per IP. Buckets idle for ten minutes are
// dropped.
func NewSearchLimiter(perSecond float64, burst int) *SearchLimiter {
	return &SearchLimiter{
		clients: make(map[string]*limitedClient),
		limit:   rate.Limit(perSecond),
		burst:   burst,
		idle:    10 * time.Minute,
		now:     time.Now,
	}
}

// Allow reports whether ip may search now and consumes a token if so.
func (l *SearchLimiter) Allow(ip string) bool {
	now := l.now()

	l.mu.Lock()
	defer l.mu.Unlock()

	c, ok := l.clients[ip]
	if !ok {
		l.evict(now)
		c = &limitedClient{limiter: rate.NewLimiter(l.limit, l.burst)}
		l.clients[ip] = c
	}
	c.lastSeen = now
	return c.limiter.AllowN(now, 1)
}

// evict drops idle clients. Callers hold l.mu.
func (l *SearchLimiter) evict(now time.Time) {
	cutoff := now.Add(-l.idle)
	for ip, c := range l.clients {
		if c.lastSeen.Before(cutoff) {
			delete(l.clients, ip)
		}
	}
}

// Len returns the number of tracked clients.
func (l *SearchLimiter) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.clients)
}
