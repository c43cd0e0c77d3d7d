// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package store

import (
	"context"
	"database/sql"
	"fmt"

	"marketsite/internal/pricing"
)

// RateStore reads and writes the currency conversion table. Each rate is
// the number of base-currency units one unit of the currency is worth.
type RateStore struct {
	db *sql.DB
}

// NewRateStore creates a new RateStore with the given database connection.
func NewRateStore(db *sql.DB) *RateStore {
	return &RateStore{db: db}
}

// Rates returns every stored rate. It satisfies pricing.Source.
func (s *RateStore) Rates(ctx context.Context) (pricing.Rates, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT currency, rate FROM currency_rates`)
	if err != nil {
		return nil, fmt.Errorf("list rates: %w", err)
	}
	defer rows.Close()

	rates := pricing.Rates{}
	for rows.Next() {
		var (
			currency string
			rate     float64
		)
		if err := rows.Scan(&currency, &rate); err != nil {
			return nil, fmt.Errorf("scan rate: %w", err)
		}
		rates[currency] = rate
	}
	return rates, rows.Err()
}

// Upsert stores or replaces one rate.
func (s *RateStore) Upsert(ctx context.Context, currency string, rate float64) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO currency_rates (currency, rate) VALUES ($1, $2)
		ON CONFLICT (currency) DO UPDATE SET rate = EXCLUDED.rate, updated_at = NOW()
	`, currency, rate)
	if err != nil {
		return fmt.Errorf("upsert rate: %w", err)
	}
	return nil
}
