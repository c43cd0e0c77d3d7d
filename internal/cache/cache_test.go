// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package cache

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
)

// testValkeyClient connects to database 15 of the local Valkey, or skips.
// Document keys written by the test are removed afterwards.
func testValkeyClient(t *testing.T) *redis.Client {
	t.Helper()

	client, err := ConnectValkey(t.Context(), ValkeyOptions{
		Host:     envOr("VALKEY_HOST", "localhost"),
		Port:     envOr("VALKEY_PORT", "6379"),
		Password: os.Getenv("VALKEY_PASSWORD"),
		DB:       15,
	})
	if err != nil {
		t.Skipf("skipping integration test: %v", err)
	}

	t.Cleanup(func() {
		ctx := context.Background()
		if keys, _ := client.Keys(ctx, docKeyPrefix+"*").Result(); len(keys) > 0 {
			client.Del(ctx, keys...)
		}
		client.Close()
	})
	return client
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func TestConnectValkey(t *testing.T) {
	client, err := ConnectValkey(t.Context(), ValkeyOptions{
		Host: envOr("VALKEY_HOST", "localhost"),
		Port: envOr("VALKEY_PORT", "6379"),
		DB:   15,
	})
	if err != nil {
		t.Skipf("skipping: Valkey not available: %v", err)
	}
	defer client.Close()

	if got := client.Options().DB; got != 15 {
		t.Errorf("DB = %d, want 15", got)
	}
}

func TestConnectValkeyUnreachable(t *testing.T) {
	ctx, cancel := context.WithTimeout(t.Context(), 500*time.Millisecond)
	defer cancel()

	// Port 1 is reserved and never serves Valkey.
	_, err := ConnectValkey(ctx, ValkeyOptions{Host: "127.0.0.1", Port: "1"})
	if err == nil {
		t.Fatal("expected an error for an unreachable server")
	}
}

func TestRateCounter(t *testing.T) {
	client := testValkeyClient(t)
	rc := NewRateCounter(client)
	ctx := t.Context()
	key := "test:" + t.Name()
	t.Cleanup(func() { client.Del(context.Background(), rateKeyPrefix+key) })

	for want := int64(1); want <= 3; want++ {
		n, reset, err := rc.Hit(ctx, key, time.Minute)
		if err != nil {
			t.Fatalf("Hit: %v", err)
		}
		if n != want {
			t.Errorf("count = %d, want %d", n, want)
		}
		if reset <= 0 || reset > time.Minute {
			t.Errorf("reset = %v, want within the window", reset)
		}
	}

	n, _, err := rc.Hit(ctx, key+":other", time.Minute)
	if err != nil {
		t.Fatalf("Hit other: %v", err)
	}
	client.Del(ctx, rateKeyPrefix+key+":other")
	if n != 1 {
		t.Errorf("independent key count = %d, want 1", n)
	}
}

func TestRateCounterWindowExpires(t *testing.T) {
	client := testValkeyClient(t)
	rc := NewRateCounter(client)
	ctx := t.Context()
	key := "test:" + t.Name()

	if _, _, err := rc.Hit(ctx, key, 100*time.Millisecond); err != nil {
		t.Fatalf("Hit: %v", err)
	}
	time.Sleep(200 * time.Millisecond)

	n, _, err := rc.Hit(ctx, key, time.Minute)
	if err != nil {
		t.Fatalf("Hit: %v", err)
	}
	client.Del(ctx, rateKeyPrefix+key)
	if n != 1 {
		t.Errorf("count after expiry = %d, want 1", n)
	}
}

func TestDocumentCacheSetAndGet(t *testing.T) {
	client := testValkeyClient(t)
	dc := NewDocumentCache(client, 1*time.Minute)

	ctx := context.Background()
	key := DocumentKey("post", "test-post")

	// Miss.
	data, ok := dc.Get(ctx, key)
	if ok {
		t.Error("expected cache miss")
	}
	if data != nil {
		t.Error("expected nil data on miss")
	}

	body := []byte(`{"slug":"test-post"}`)
	dc.Set(ctx, key, body)

	data, ok = dc.Get(ctx, key)
	if !ok {
		t.Error("expected cache hit")
	}
	if string(data) != string(body) {
		t.Errorf("data mismatch: got %q, want %q", data, body)
	}
}

func TestDocumentCacheInvalidate(t *testing.T) {
	client := testValkeyClient(t)
	dc := NewDocumentCache(client, 1*time.Minute)

	ctx := context.Background()

	dc.Set(ctx, DocumentKey("post", "invalidate-me"), []byte("json"))
	dc.Set(ctx, HTMLKey("post", "invalidate-me"), []byte("<p>html</p>"))
	dc.Set(ctx, ListKey("post", 20, 0), []byte("[]"))
	dc.Set(ctx, ListKey("story", 20, 0), []byte("[]"))
	dc.Set(ctx, DocumentKey("story", "invalidate-me"), []byte("other type"))

	dc.Invalidate(ctx, "post", "invalidate-me")

	for _, key := range []string{
		DocumentKey("post", "invalidate-me"),
		HTMLKey("post", "invalidate-me"),
		ListKey("post", 20, 0),
	} {
		if _, ok := dc.Get(ctx, key); ok {
			t.Errorf("expected miss for %q after Invalidate", key)
		}
	}

	// Other types are untouched.
	for _, key := range []string{ListKey("story", 20, 0), DocumentKey("story", "invalidate-me")} {
		if _, ok := dc.Get(ctx, key); !ok {
			t.Errorf("expected hit for %q", key)
		}
	}
}

func TestDocumentCacheInvalidateAll(t *testing.T) {
	client := testValkeyClient(t)
	dc := NewDocumentCache(client, 1*time.Minute)

	ctx := context.Background()

	keys := []string{DocumentKey("post", "a"), HTMLKey("story", "b"), ListKey("post", 10, 10)}
	for _, key := range keys {
		dc.Set(ctx, key, []byte("x"))
	}

	dc.InvalidateAll(ctx)

	for _, key := range keys {
		if _, ok := dc.Get(ctx, key); ok {
			t.Errorf("expected miss for %q after InvalidateAll", key)
		}
	}
}

func TestCacheKeys(t *testing.T) {
	tests := []struct {
		got, want string
	}{
		{DocumentKey("post", "about-us"), "post:about-us"},
		{HTMLKey("story", "launch"), "story:launch:html"},
		{ListKey("post", 20, 40), "post:list:20:40"},
	}
	for _, tt := range tests {
		if tt.got != tt.want {
			t.Errorf("key: got %q, want %q", tt.got, tt.want)
		}
	}
}

func TestNewDocumentCacheDefaultTTL(t *testing.T) {
	client := testValkeyClient(t)

	// TTL = 0 should use default.
	dc := NewDocumentCache(client, 0)
	if dc.ttl != DefaultDocumentTTL {
		t.Errorf("expected DefaultDocumentTTL (%v), got %v", DefaultDocumentTTL, dc.ttl)
	}
}
