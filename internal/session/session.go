// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package session reads Valkey-backed sessions. Sessions are issued by the
// sign-in service, which writes them to the same Valkey; this service only
// looks them up and slides their expiry.
package session

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const (
	// CookieName is the name of the session cookie sent by browsers.
	CookieName = "ms_session"

	// DefaultTTL is how long a session lives in Valkey after its last use.
	DefaultTTL = 24 * time.Hour

	// keyPrefix namespaces session keys in Valkey to avoid collisions.
	keyPrefix = "session:"
)

// Data holds the session payload stored in Valkey.
type Data struct {
	UserID      uuid.UUID `json:"user_id"`
	Email       string    `json:"email"`
	DisplayName string    `json:"display_name"`
	Role        string    `json:"role"`
	CreatedAt   time.Time `json:"created_at"`
}

// IsAdmin reports whether the session belongs to an admin.
func (d *Data) IsAdmin() bool {
	return d.Role == "admin"
}

// CanPublish reports whether the session may create posts and stories.
func (d *Data) CanPublish() bool {
	return d.Role == "admin" || d.Role == "editor"
}

// Store looks sessions up in Valkey.
type Store struct {
	client *redis.Client
	ttl    time.Duration
}

// NewStore creates a session store backed by the given Valkey client.
func NewStore(client *redis.Client) *Store {
	return &Store{client: client, ttl: DefaultTTL}
}

// IDFromRequest returns the session ID from the cookie, or from an
// "Authorization: Bearer" header for API clients.
func IDFromRequest(r *http.Request) string {
	if c, err := r.Cookie(CookieName); err == nil && c.Value != "" {
		return c.Value
	}
	if token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer "); ok {
		return strings.TrimSpace(token)
	}
	return ""
}

// Get retrieves the session for the request. Returns nil if no valid
// session exists.
func (s *Store) Get(ctx context.Context, r *http.Request) (*Data, error) {
	id := IDFromRequest(r)
	if id == "" {
		return nil, nil // No credentials = no session (not an error)
	}
	return s.Lookup(ctx, id)
}

// Lookup loads a session by ID and refreshes its TTL.
func (s *Store) Lookup(ctx context.Context, id string) (*Data, error) {
	payload, err := s.client.GetEx(ctx, keyPrefix+id, s.ttl).Bytes()
	if err == redis.Nil {
		return nil, nil // Session expired or doesn't exist
	}
	if err != nil {
		return nil, fmt.Errorf("session get: %w", err)
	}

	var data Data
	if err := json.Unmarshal(payload, &data); err != nil {
		return nil, fmt.Errorf("session unmarshal: %w", err)
	}
	return &data, nil
}

// Put stores a session under id. The sign-in service writes sessions in
// this format; tests use Put to create them.
func (s *Store) Put(ctx context.Context, id string, data *Data) error {
	if data.CreatedAt.IsZero() {
		data.CreatedAt = time.Now()
	}
	payload, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("session marshal: %w", err)
	}
	if err := s.client.Set(ctx, keyPrefix+id, payload, s.ttl).Err(); err != nil {
		return fmt.Errorf("session store: %w", err)
	}
	return nil
}
