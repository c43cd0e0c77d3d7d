// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const rateKeyPrefix = "ratelimit:"

// RateCounter counts hits in fixed windows shared by every API replica.
type RateCounter struct {
	client *redis.Client
}

// NewRateCounter creates a counter on the given client.
func NewRateCounter(client *redis.Client) *RateCounter {
	return &RateCounter{client: client}
}

// Hit records one hit for key and returns the count in the current window
// and the time until the window resets. The first hit opens the window.
func (c *RateCounter) Hit(ctx context.Context, key string, window time.Duration) (int64, time.Duration, error) {
	k := rateKeyPrefix + key

	pipe := c.client.TxPipeline()
	incr := pipe.Incr(ctx, k)
	ttl := pipe.PTTL(ctx, k)
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, 0, fmt.Errorf("rate counter hit %q: %w", key, err)
	}

	// A key without an expiry is a fresh window.
	reset := ttl.Val()
	if incr.Val() == 1 || reset < 0 {
		if err := c.client.PExpire(ctx, k, window).Err(); err != nil {
			return 0, 0, fmt.Errorf("rate counter expire %q: %w", key, err)
		}
		reset = window
	}
	return incr.Val(), reset, nil
}
