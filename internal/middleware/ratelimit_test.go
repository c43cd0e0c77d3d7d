// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

// manualCounter is a MemoryCounter driven by a settable clock.
func manualCounter(t *testing.T) (*MemoryCounter, *time.Time) {
	t.Helper()
	c := NewMemoryCounter(time.Hour)
	t.Cleanup(c.Stop)
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return now }
	return c, &now
}

func TestMemoryCounterWindows(t *testing.T) {
	c, now := manualCounter(t)
	ctx := t.Context()

	for want := int64(1); want <= 3; want++ {
		n, reset, _ := c.Hit(ctx, "signup:10.0.0.1", time.Minute)
		if n != want || reset != time.Minute {
			t.Fatalf("hit %d: count = %d, reset = %v", want, n, reset)
		}
	}

	*now = now.Add(40 * time.Second)
	n, reset, _ := c.Hit(ctx, "signup:10.0.0.1", time.Minute)
	if n != 4 || reset != 20*time.Second {
		t.Errorf("mid window: count = %d, reset = %v", n, reset)
	}
	if n, _, _ := c.Hit(ctx, "signup:10.0.0.2", time.Minute); n != 1 {
		t.Errorf("other client count = %d, want 1", n)
	}

	*now = now.Add(20 * time.Second)
	if n, _, _ := c.Hit(ctx, "signup:10.0.0.1", time.Minute); n != 1 {
		t.Errorf("count after window = %d, want a fresh window", n)
	}
}

func TestMemoryCounterSweep(t *testing.T) {
	c, now := manualCounter(t)
	ctx := t.Context()

	c.Hit(ctx, "old", time.Second)
	*now = now.Add(2 * time.Second)
	c.Hit(ctx, "fresh", time.Minute)
	c.sweep()

	c.mu.Lock()
	_, oldKept := c.windows["old"]
	_, freshKept := c.windows["fresh"]
	c.mu.Unlock()

	if oldKept || !freshKept {
		t.Errorf("old kept = %v, fresh kept = %v", oldKept, freshKept)
	}
}

func TestMemoryCounterStopTwice(t *testing.T) {
	c := NewMemoryCounter(time.Hour)
	c.Stop()
	c.Stop()
}

func TestRateLimiterMiddleware(t *testing.T) {
	counter, now := manualCounter(t)
	rl := NewRateLimiter(counter, "signup", 2, time.Minute)

	handler := rl.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
	}))
	post := func(remote string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/api/newsletter", nil)
		req.RemoteAddr = remote
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, req)
		return rr
	}

	for i, wantRemaining := range []string{"1", "0"} {
		rr := post("192.168.1.1:12345")
		if rr.Code != http.StatusCreated {
			t.Fatalf("request %d: status %d", i+1, rr.Code)
		}
		if got := rr.Header().Get("X-RateLimit-Remaining"); got != wantRemaining {
			t.Errorf("request %d: remaining = %q, want %q", i+1, got, wantRemaining)
		}
	}

	*now = now.Add(15500 * time.Millisecond)
	rr := post("192.168.1.1:12345")
	if rr.Code != http.StatusTooManyRequests {
		t.Fatalf("status %d, want 429", rr.Code)
	}
	if got := rr.Header().Get("Retry-After"); got != "45" {
		t.Errorf("Retry-After = %q, want 45", got)
	}
	if ct := rr.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type = %q", ct)
	}

	if rr := post("192.168.1.2:12345"); rr.Code != http.StatusCreated {
		t.Errorf("other client status %d, want 201", rr.Code)
	}
}

func TestRateLimitersKeepSeparateWindows(t *testing.T) {
	counter, _ := manualCounter(t)
	signup := NewRateLimiter(counter, "signup", 1, time.Minute).Middleware(passHandler())
	login := NewRateLimiter(counter, "login", 1, time.Minute).Middleware(passHandler())

	for _, h := range []http.Handler{signup, login} {
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/", nil))
		if rr.Code != http.StatusOK {
			t.Errorf("status %d, want 200", rr.Code)
		}
	}
}

type brokenCounter struct{}

func (brokenCounter) Hit(context.Context, string, time.Duration) (int64, time.Duration, error) {
	return 0, 0, errors.New("connection refused")
}

func TestRateLimiterFailsOpen(t *testing.T) {
	captureLogs(t)
	h := NewRateLimiter(brokenCounter{}, "signup", 1, time.Minute).Middleware(passHandler())

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/api/affiliates", nil))
	if rr.Code != http.StatusOK {
		t.Errorf("status %d, want 200 when the counter is down", rr.Code)
	}
}

func passHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func TestClientIP(t *testing.T) {
	tests := []struct {
		name       string
		xff        string
		xri        string
		remoteAddr string
		want       string
	}{
		{"forwarded single", "10.0.0.1", "", "192.168.1.1:1234", "10.0.0.1"},
		{"forwarded chain", "10.0.0.1, 172.16.0.1", "", "192.168.1.1:1234", "10.0.0.1"},
		{"real ip", "", "10.0.0.2", "192.168.1.1:1234", "10.0.0.2"},
		{"remote addr", "", "", "192.168.1.1:1234", "192.168.1.1"},
		{"remote addr ipv6", "", "", "[2001:db8::1]:443", "2001:db8::1"},
		{"remote addr without port", "", "", "192.168.1.1", "192.168.1.1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.RemoteAddr = tt.remoteAddr
			if tt.xff != "" {
				req.Header.Set("X-Forwarded-For", tt.xff)
			}
			if tt.xri != "" {
				req.Header.Set("X-Real-IP", tt.xri)
			}
			if got := clientIP(req); got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}
