// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// document.go caches encoded document responses in Valkey so repeated
// reads of a post or story skip the database and the markdown renderer.
package cache

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	// docKeyPrefix is the Valkey key prefix for cached documents.
	docKeyPrefix = "doc:"

	// DefaultDocumentTTL is how long a cached response stays valid.
	DefaultDocumentTTL = 5 * time.Minute
)

// DocumentCache stores encoded document responses keyed by type and slug.
type DocumentCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewDocumentCache creates a document cache backed by the given Valkey client.
func NewDocumentCache(client *redis.Client, ttl time.Duration) *DocumentCache {
	if ttl == 0 {
		ttl = DefaultDocumentTTL
	}
	return &DocumentCache{client: client, ttl: ttl}
}

// DocumentKey is the cache key of a document's JSON body.
func DocumentKey(typ, slug string) string {
	return typ + ":" + slug
}

// HTMLKey is the cache key of a document's rendered body.
func HTMLKey(typ, slug string) string {
	return typ + ":" + slug + ":html"
}

// ListKey is the cache key of one page of a document listing.
func ListKey(typ string, limit, offset int) string {
	return fmt.Sprintf("%s:list:%d:%d", typ, limit, offset)
}

// Get returns the cached value for key. Errors count as a miss.
func (dc *DocumentCache) Get(ctx context.Context, key string) ([]byte, bool) {
	val, err := dc.client.Get(ctx, docKeyPrefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false
	}
	if err != nil {
		slog.Warn("document cache get error", "key", key, "error", err)
		return nil, false
	}
	slog.Debug("document cache hit", "key", key)
	return val, true
}

// Set stores a value with the configured TTL.
func (dc *DocumentCache) Set(ctx context.Context, key string, body []byte) {
	if err := dc.client.Set(ctx, docKeyPrefix+key, body, dc.ttl).Err(); err != nil {
		slog.Warn("document cache set error", "key", key, "error", err)
	}
}

// Invalidate drops everything cached for one document along with every
// listing page of its type, since the document may appear on any of them.
func (dc *DocumentCache) Invalidate(ctx context.Context, typ, slug string) {
	keys := []string{docKeyPrefix + DocumentKey(typ, slug), docKeyPrefix + HTMLKey(typ, slug)}
	if err := dc.client.Del(ctx, keys...).Err(); err != nil {
		slog.Warn("document cache invalidate error", "type", typ, "slug", slug, "error", err)
	}
	dc.deleteMatching(ctx, docKeyPrefix+typ+":list:*")
}

// InvalidateAll removes every cached document and listing.
func (dc *DocumentCache) InvalidateAll(ctx context.Context) {
	if deleted := dc.deleteMatching(ctx, docKeyPrefix+"*"); deleted > 0 {
		slog.Info("document cache fully cleared", "deleted", deleted)
	}
}

func (dc *DocumentCache) deleteMatching(ctx context.Context, pattern string) int {
	var cursor uint64
	var deleted int
	for {
		keys, nextCursor, err := dc.client.Scan(ctx, cursor, pattern, 100).Result()
		if err != nil {
			slog.Warn("document cache scan error", "pattern", pattern, "error", err)
			return deleted
		}
		if len(keys) > 0 {
			if err := dc.client.Del(ctx, keys...).Err(); err != nil {
				slog.Warn("document cache bulk delete error", "error", err)
			}
			deleted += len(keys)
		}
		cursor = nextCursor
		if cursor == 0 {
			return deleted
		}
	}
}
