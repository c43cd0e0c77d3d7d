// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package cart

import (
	"context"
	"sync"
)

// Store persists carts as whole lists. Save replaces the stored list and
// then signals every subscriber of that cart. Signals carry no payload;
// subscribers reload with Load.
type Store interface {
	Load(ctx context.Context, cartID string) ([]Item, error)
	Save(ctx context.Context, cartID string, items []Item) error
	Subscribe(ctx context.Context, cartID string) (<-chan struct{}, func(), error)
}

// Subject fans a change signal out to its subscribers in subscription
// order. Each subscriber channel holds one pending signal; signals that
// arrive while one is pending are coalesced into it.
type Subject struct {
	mu     sync.Mutex
	nextID int
	order  []int
	subs   map[int]chan struct{}
}

// NewSubject creates an empty Subject.
func NewSubject() *Subject {
	return &Subject{subs: make(map[int]chan struct{})}
}

// Subscribe registers a new subscriber. The returned cancel func removes it
// and closes its channel; calling it more than once is safe.
func (s *Subject) Subscribe() (<-chan struct{}, func()) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.nextID
	s.nextID++
	ch := make(chan struct{}, 1)
	s.subs[id] = ch
	s.order = append(s.order, id)

	var once sync.Once
	cancel := func() {
		once.Do(func() { s.remove(id) })
	}
	return ch, cancel
}

func (s *Subject) remove(id int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ch, ok := s.subs[id]
	if !ok {
		return
	}
	delete(s.subs, id)
	close(ch)
	for i, v := range s.order {
		if v == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
}

// Notify signals every subscriber without blocking.
func (s *Subject) Notify() {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, id := range s.order {
		select {
		case s.subs[id] <- struct{}{}:
		default:
		}
	}
}

// Len returns the number of live subscribers.
func (s *Subject) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.order)
}

// MemoryStore keeps carts in process memory.
type MemoryStore struct {
	mu       sync.Mutex
	carts    map[string][]Item
	subjects map[string]*Subject
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		carts:    make(map[string][]Item),
		subjects: make(map[string]*Subject),
	}
}

// Load returns a copy of the cart. An unknown cart is empty.
func (m *MemoryStore) Load(_ context.Context, cartID string) ([]Item, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return cloneItems(m.carts[cartID]), nil
}

// Save replaces the cart and notifies its subscribers.
func (m *MemoryStore) Save(_ context.Context, cartID string, items []Item) error {
	m.mu.Lock()
	m.carts[cartID] = cloneItems(items)
	subj := m.subjects[cartID]
	m.mu.Unlock()

	if subj != nil {
		subj.Notify()
	}
	return nil
}

// Subscribe returns a change channel for one cart. The cart's subject is
// dropped when its last subscriber cancels.
func (m *MemoryStore) Subscribe(_ context.Context, cartID string) (<-chan struct{}, func(), error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	subj, ok := m.subjects[cartID]
	if !ok {
		subj = NewSubject()
		m.subjects[cartID] = subj
	}
	ch, cancel := subj.Subscribe()

	return ch, func() {
		cancel()
		m.mu.Lock()
		defer m.mu.Unlock()
		if m.subjects[cartID] == subj && subj.Len() == 0 {
			delete(m.subjects, cartID)
		}
	}, nil
}
