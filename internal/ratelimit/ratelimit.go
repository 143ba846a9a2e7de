// Package ratelimit provides per-client request throttling for HTTP
// handlers. Each client IP gets its own token bucket refilled at the
// configured per-minute rate; stale buckets are evicted periodically.
package ratelimit

import (
	"net/http"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/mvolkov/biotap/internal/ipchecker"
)

type clientLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// Limiter throttles requests per client IP.
type Limiter struct {
	mu      sync.Mutex
	clients map[string]*clientLimiter

	perMinute int
	burst     int
}

// New creates a Limiter allowing perMinute requests per client. The
// burst equals the per-minute budget, matching a fixed-window limit of
// "N requests per minute".
func New(perMinute int) *Limiter {
	limiter := &Limiter{
		clients:   map[string]*clientLimiter{},
		perMinute: perMinute,
		burst:     perMinute,
	}

	go limiter.cleanupStaleEntries()

	return limiter
}

// Allow reports whether the given client may proceed.
func (l *Limiter) Allow(clientKey string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	client, ok := l.clients[clientKey]
	if !ok {
		client = &clientLimiter{
			limiter: rate.NewLimiter(rate.Limit(float64(l.perMinute)/60.0), l.burst),
		}
		l.clients[clientKey] = client
	}
	client.lastSeen = time.Now()

	return client.limiter.Allow()
}

// Middleware returns 429 when a client exceeds its budget.
func (l *Limiter) Middleware(h http.Handler) http.Handler {
	middleware := func(response http.ResponseWriter, request *http.Request) {
		clientKey := ipchecker.ClientIPString(request)

		if !l.Allow(clientKey) {
			http.Error(response, "rate limit exceeded", http.StatusTooManyRequests)
			return
		}

		h.ServeHTTP(response, request)
	}

	return http.HandlerFunc(middleware)
}

func (l *Limiter) cleanupStaleEntries() {
	ticker := time.NewTicker(10 * time.Minute)
	defer ticker.Stop()

	for range ticker.C {
		cutoff := time.Now().Add(-10 * time.Minute)

		l.mu.Lock()
		for key, client := range l.clients {
			if client.lastSeen.Before(cutoff) {
				delete(l.clients, key)
			}
		}
		l.mu.Unlock()
	}
}
