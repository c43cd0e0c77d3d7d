// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package cart

import "sync"

// guard refuses a second operation on a cart while one is in flight.
type guard struct {
	mu   sync.Mutex
	busy map[string]struct{}
}

func newGuard() *guard {
	return &guard{busy: make(map[string]struct{})}
}

// acquire marks cartID busy. The returned func releases it.
func (g *guard) acquire(cartID string) (func(), error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if _, ok := g.busy[cartID]; ok {
		return nil, ErrBusy
	}
	g.busy[cartID] = struct{}{}
	return func() {
		g.mu.Lock()
		delete(g.busy, cartID)
		g.mu.Unlock()
	}, nil
}
