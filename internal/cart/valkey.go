// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package cart

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// cartKeyPrefix is the Valkey key prefix for stored carts.
const cartKeyPrefix = "cart:"

// ValkeyStore keeps each cart as a JSON array under cart:<id> and
// announces changes on the cart:<id>:changed channel, so every server
// process sees a change saved by any other.
type ValkeyStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewValkeyStore creates a cart store on the given client. A zero ttl keeps
// carts until they are overwritten.
func NewValkeyStore(client *redis.Client, ttl time.Duration) *ValkeyStore {
	return &ValkeyStore{client: client, ttl: ttl}
}

func cartKey(cartID string) string {
	return cartKeyPrefix + cartID
}

func changedChannel(cartID string) string {
	return cartKeyPrefix + cartID + ":changed"
}

// Load reads the cart. A missing key is an empty cart.
func (s *ValkeyStore) Load(ctx context.Context, cartID string) ([]Item, error) {
	data, err := s.client.Get(ctx, cartKey(cartID)).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load cart: %w", err)
	}

	var items []Item
	if err := json.Unmarshal(data, &items); err != nil {
		return nil, fmt.Errorf("decode cart: %w", err)
	}
	return items, nil
}

// Save writes the whole cart and publishes the change in one transaction.
func (s *ValkeyStore) Save(ctx context.Context, cartID string, items []Item) error {
	if items == nil {
		items = []Item{}
	}
	data, err := json.Marshal(items)
	if err != nil {
		return fmt.Errorf("encode cart: %w", err)
	}

	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, cartKey(cartID), data, s.ttl)
		pipe.Publish(ctx, changedChannel(cartID), "")
		return nil
	})
	if err != nil {
		return fmt.Errorf("save cart: %w", err)
	}
	return nil
}

// Subscribe listens for changes to one cart. The returned channel is closed
// after cancel is called or ctx ends.
func (s *ValkeyStore) Subscribe(ctx context.Context, cartID string) (<-chan struct{}, func(), error) {
	ps := s.client.Subscribe(ctx, changedChannel(cartID))
	// Wait for the subscription to be confirmed so no Save is missed.
	if _, err := ps.Receive(ctx); err != nil {
		ps.Close()
		return nil, nil, fmt.Errorf("subscribe cart: %w", err)
	}

	out := make(chan struct{}, 1)
	msgs := ps.Channel()
	done := make(chan struct{})

	go func() {
		defer close(out)
		for {
			select {
			case <-done:
				return
			case <-ctx.Done():
				return
			case _, ok := <-msgs:
				if !ok {
					return
				}
				select {
				case out <- struct{}{}:
				default:
				}
			}
		}
	}()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			close(done)
			if err := ps.Close(); err != nil {
				slog.Debug("cart unsubscribe", "cart_id", cartID, "error", err)
			}
		})
	}
	return out, cancel, nil
}
