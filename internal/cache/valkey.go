// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package cache holds the Valkey (Redis-compatible) client and the pieces
// built on it: the document read cache and the shared rate-limit counter.
package cache

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"time"

	"github.com/redis/go-redis/v9"
)

// ValkeyOptions describes how to reach Valkey. Sessions, carts, cached
// documents and rate-limit windows all share one logical database.
type ValkeyOptions struct {
	Host     string
	Port     string
	Password string
	DB       int

	// PoolSize caps open connections. Each cart event stream holds one
	// pub/sub connection on top of this, so it only sizes request traffic.
	PoolSize int
}

// ConnectValkey opens a client and pings it within the context's deadline.
// A five second deadline applies when ctx has none.
func ConnectValkey(ctx context.Context, opts ValkeyOptions) (*redis.Client, error) {
	addr := net.JoinHostPort(opts.Host, opts.Port)
	client := redis.NewClient(&redis.Options{
		Addr:         addr,
		Password:     opts.Password,
		DB:           opts.DB,
		PoolSize:     opts.PoolSize,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})

	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
	}

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("valkey ping %s: %w", addr, err)
	}

	slog.Info("valkey connected", "addr", addr, "db", opts.DB)
	return client, nil
}
