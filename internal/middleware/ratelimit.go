// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package middleware

import (
	"context"
	"log/slog"
	"math"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"
)

// Counter counts hits per key in fixed windows. cache.RateCounter shares
// the windows across replicas through Valkey; MemoryCounter keeps them in
// process.
type Counter interface {
	Hit(ctx context.Context, key string, window time.Duration) (count int64, resetIn time.Duration, err error)
}

// RateLimiter throttles a route group per client IP.
type RateLimiter struct {
	counter Counter
	name    string
	limit   int
	window  time.Duration
}

// NewRateLimiter allows limit requests per window for each client. name
// separates the windows of different limiters sharing one counter.
func NewRateLimiter(counter Counter, name string, limit int, window time.Duration) *RateLimiter {
	return &RateLimiter{counter: counter, name: name, limit: limit, window: window}
}

// Middleware rejects clients over the limit with 429 and a Retry-After
// header. Counter failures let the request through.
func (rl *RateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ip := clientIP(r)
		count, reset, err := rl.counter.Hit(r.Context(), rl.name+":"+ip, rl.window)
		if err != nil {
			slog.Warn("rate limiter unavailable", "limiter", rl.name, "error", err)
			next.ServeHTTP(w, r)
			return
		}

		remaining := max(int64(rl.limit)-count, 0)
		w.Header().Set("X-RateLimit-Limit", strconv.Itoa(rl.limit))
		w.Header().Set("X-RateLimit-Remaining", strconv.FormatInt(remaining, 10))

		if count > int64(rl.limit) {
			w.Header().Set("Retry-After", strconv.Itoa(int(math.Ceil(reset.Seconds()))))
			slog.Info("rate limited", "limiter", rl.name, "ip", ip, "route", routePattern(r))
			writeError(w, http.StatusTooManyRequests, "Too many requests. Please slow down.")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// MemoryCounter is a Counter for a single process.
type MemoryCounter struct {
	mu      sync.Mutex
	windows map[string]*memoryWindow
	now     func() time.Time
	stopCh  chan struct{}
	stop    sync.Once
}

type memoryWindow struct {
	count   int64
	expires time.Time
}

// NewMemoryCounter starts a counter that sweeps expired windows every
// sweep interval until Stop is called.
func NewMemoryCounter(sweep time.Duration) *MemoryCounter {
	c := &MemoryCounter{
		windows: make(map[string]*memoryWindow),
		now:     time.Now,
		stopCh:  make(chan struct{}),
	}

	go func() {
		ticker := time.NewTicker(sweep)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				c.sweep()
			case <-c.stopCh:
				return
			}
		}
	}()

	return c
}

// Stop ends the sweep goroutine. It is safe to call more than once.
func (c *MemoryCounter) Stop() {
	c.stop.Do(func() { close(c.stopCh) })
}

// Hit implements Counter.
func (c *MemoryCounter) Hit(_ context.Context, key string, window time.Duration) (int64, time.Duration, error) {
	now := c.now()

	c.mu.Lock()
	defer c.mu.Unlock()

	w, ok := c.windows[key]
	if !ok || !now.Before(w.expires) {
		w = &memoryWindow{expires: now.Add(window)}
		c.windows[key] = w
	}
	w.count++
	return w.count, w.expires.Sub(now), nil
}

func (c *MemoryCounter) sweep() {
	now := c.now()

	c.mu.Lock()
	defer c.mu.Unlock()

	for key, w := range c.windows {
		if !now.Before(w.expires) {
			delete(c.windows, key)
		}
	}
}

// clientIP returns the leftmost X-Forwarded-For address, then X-Real-IP,
// then the connection's remote host.
func clientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		return strings.TrimSpace(first)
	}
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return strings.TrimSpace(xri)
	}
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}
