// Package ratelimit caps how many generations a caller may start per minute.
// Callers are keyed by user ID when known, otherwise by client address.
package ratelimit

import (
	"context"
	"net"
	"strings"
	"sync"
	"time"
)

const Window = time.Minute

type RateLimiter interface {
	Allow(ctx context.Context, key string, limit int) (allowed bool, remaining int, resetAt time.Time, err error)
}

// Key builds the limiter key for a route. userID wins over remoteAddr so a user
// cannot dodge the limit by switching networks.
func Key(route, userID, remoteAddr string) string {
	if userID != "" {
		return route + ":user:" + userID
	}
	host, _, err := net.SplitHostPort(remoteAddr)
	if err != nil {
		host = strings.TrimSpace(remoteAddr)
	}
	return route + ":ip:" + host
}

// InMemoryRateLimiter uses fixed one-minute windows per key.
type InMemoryRateLimiter struct {
	mu        sync.Mutex
	windows   map[string]*window
	now       func() time.Time
	lastSweep time.Time
}

type window struct {
	count   int
	resetAt time.Time
}

func NewInMemoryRateLimiter() *InMemoryRateLimiter {
	return &InMemoryRateLimiter{
		windows: make(map[string]*window),
		now:     time.Now,
	}
}

func (r *InMemoryRateLimiter) Allow(ctx context.Context, key string, limit int) (bool, int, time.Time, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	r.sweep(now)

	w, ok := r.windows[key]
	if !ok || !now.Before(w.resetAt) {
		w = &window{resetAt: now.Add(Window)}
		r.windows[key] = w
	}

	if w.count >= limit {
		return false, 0, w.resetAt, nil
	}

	w.count++
	return true, limit - w.count, w.resetAt, nil
}

// sweep drops expired windows at most once per window length. Caller holds mu.
func (r *InMemoryRateLimiter) sweep(now time.Time) {
	if now.Sub(r.lastSweep) < Window {
		return
	}
	for key, w := range r.windows {
		if !now.Before(w.resetAt) {
			delete(r.windows, key)
		}
	}
	r.lastSweep = now
}

func (r *InMemoryRateLimiter) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.windows)
}
