// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package store

import (
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"marketsite/internal/models"
)

// SubscriberStore handles newsletter subscriptions.
type SubscriberStore struct {
	db *sql.DB
}

// NewSubscriberStore creates a new SubscriberStore with the given database connection.
func NewSubscriberStore(db *sql.DB) *SubscriberStore {
	return &SubscriberStore{db: db}
}

// newToken returns a random unsubscribe token and its bcrypt hash.
func newToken() (string, string, error) {
	buf := make([]byte, 24)
	if _, err := rand.Read(buf); err != nil {
		return "", "", fmt.Errorf("generate token: %w", err)
	}
	token := hex.EncodeToString(buf)
	hash, err := bcrypt.GenerateFromPassword([]byte(token), bcrypt.DefaultCost)
	if err != nil {
		return "", "", fmt.Errorf("hash token: %w", err)
	}
	return token, string(hash), nil
}

// Subscribe adds an email or reactivates a previous subscription. A new
// unsubscribe token is issued each time; only its hash is stored.
func (s *SubscriberStore) Subscribe(ctx context.Context, email string) (*models.Subscriber, string, error) {
	token, hash, err := newToken()
	if err != nil {
		return nil, "", err
	}

	sub := &models.Subscriber{}
	err = s.db.QueryRowContext(ctx, `
		INSERT INTO subscribers (email, token_hash)
		VALUES ($1, $2)
		ON CONFLICT (email) DO UPDATE SET token_hash = EXCLUDED.token_hash, unsubscribed_at = NULL
		RETURNING id, email, token_hash, unsubscribed_at, created_at
	`, strings.ToLower(strings.TrimSpace(email)), hash).Scan(
		&sub.ID, &sub.Email, &sub.TokenHash, &sub.UnsubscribedAt, &sub.CreatedAt,
	)
	if err != nil {
		return nil, "", fmt.Errorf("subscribe: %w", err)
	}
	return sub, token, nil
}

// FindByID retrieves a subscriber. Returns nil if not found.
func (s *SubscriberStore) FindByID(ctx context.Context, id uuid.UUID) (*models.Subscriber, error) {
	sub := &models.Subscriber{}
	err := s.db.QueryRowContext(ctx, `
		SELECT id, email, token_hash, unsubscribed_at, created_at FROM subscribers WHERE id = $1
	`, id).Scan(&sub.ID, &sub.Email, &sub.TokenHash, &sub.UnsubscribedAt, &sub.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find subscriber: %w", err)
	}
	return sub, nil
}

// Unsubscribe stops mail to the subscriber if token matches. Returns false
// for an unknown subscriber or a wrong token.
func (s *SubscriberStore) Unsubscribe(ctx context.Context, id uuid.UUID, token string) (bool, error) {
	sub, err := s.FindByID(ctx, id)
	if err != nil || sub == nil {
		return false, err
	}
	if bcrypt.CompareHashAndPassword([]byte(sub.TokenHash), []byte(token)) != nil {
		return false, nil
	}

	_, err = s.db.ExecContext(ctx, `
		UPDATE subscribers SET unsubscribed_at = COALESCE(unsubscribed_at, NOW()) WHERE id = $1
	`, id)
	if err != nil {
		return false, fmt.Errorf("unsubscribe: %w", err)
	}
	return true, nil
}
