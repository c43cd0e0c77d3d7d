// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package database

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"marketsite/internal/pricing"
)

// SeedAdminEmail is the account created on an empty database.
const SeedAdminEmail = "admin@marketsite.local"

// seedProduct is a catalogue entry inserted on an empty database.
type seedProduct struct {
	title, slug, currency, availability, productType string
	price                                            float64
	quantity                                         int
	sizes                                            string
}

var seedProducts = []seedProduct{
	{"Canvas Tote", "canvas-tote", "BDT", "in_stock", "own", 650, 5, `[]`},
	{"Linen Shirt", "linen-shirt", "USD", "in_stock", "own", 20, 0, `[{"name":"M","quantity":3},{"name":"L","quantity":1}]`},
	{"Clay Teapot", "clay-teapot", "BDT", "pre_order", "own", 1800, 0, `[]`},
	{"Partner Sneakers", "partner-sneakers", "USD", "in_stock", "affiliate", 75, 0, `[]`},
}

// Seed populates the database with initial development data: an admin
// account, the default currency rates and a few products. Rows that
// already exist are left alone, so Seed is safe to run on every start.
func Seed(ctx context.Context, db *sql.DB) error {
	if err := seedAdmin(ctx, db); err != nil {
		return err
	}
	if err := seedRates(ctx, db); err != nil {
		return err
	}
	return seedCatalogue(ctx, db)
}

func seedAdmin(ctx context.Context, db *sql.DB) error {
	res, err := db.ExecContext(ctx, `
		INSERT INTO users (email, display_name, role)
		VALUES ($1, $2, $3)
		ON CONFLICT (email) DO NOTHING
	`, SeedAdminEmail, "Admin", "admin")
	if err != nil {
		return fmt.Errorf("seed insert admin: %w", err)
	}

	if n, _ := res.RowsAffected(); n == 0 {
		slog.Info("database already seeded, skipping")
		return nil
	}
	slog.Info("database seeded with default admin user", "email", SeedAdminEmail)
	return nil
}

func seedRates(ctx context.Context, db *sql.DB) error {
	for currency, rate := range pricing.DefaultRates {
		_, err := db.ExecContext(ctx, `
			INSERT INTO currency_rates (currency, rate) VALUES ($1, $2)
			ON CONFLICT (currency) DO NOTHING
		`, currency, rate)
		if err != nil {
			return fmt.Errorf("seed insert rate %s: %w", currency, err)
		}
	}
	return nil
}

func seedCatalogue(ctx context.Context, db *sql.DB) error {
	for _, p := range seedProducts {
		var affiliateURL *string
		if p.productType == "affiliate" {
			u := "https://partner.example.com/" + p.slug
			affiliateURL = &u
		}
		_, err := db.ExecContext(ctx, `
			INSERT INTO products (title, slug, price, currency, availability,
				product_type, affiliate_url, quantity, sizes)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
			ON CONFLICT (slug) DO NOTHING
		`, p.title, p.slug, p.price, p.currency, p.availability,
			p.productType, affiliateURL, p.quantity, p.sizes)
		if err != nil {
			return fmt.Errorf("seed insert product %s: %w", p.slug, err)
		}
	}
	return nil
}
