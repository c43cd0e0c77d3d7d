// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	gonanoid "github.com/matoous/go-nanoid/v2"

	"marketsite/internal/models"
	"marketsite/internal/pricing"
)

// Referral codes are short, unambiguous and safe in URLs.
const (
	codeAlphabet = "23456789abcdefghjkmnpqrstuvwxyz"
	codeLength   = 8
	codeAttempts = 3
)

var (
	// ErrEmailTaken is returned when an affiliate email is already registered.
	ErrEmailTaken = errors.New("email already registered")
	// ErrDuplicateCommission is returned when an order was already credited.
	ErrDuplicateCommission = errors.New("commission already recorded for this order")
)

// AffiliateStore handles affiliates and their commissions.
type AffiliateStore struct {
	db *sql.DB
}

// NewAffiliateStore creates a new AffiliateStore with the given database connection.
func NewAffiliateStore(db *sql.DB) *AffiliateStore {
	return &AffiliateStore{db: db}
}

func constraintOf(err error) string {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return pgErr.ConstraintName
	}
	return ""
}

// Create registers an affiliate under a freshly generated referral code.
func (s *AffiliateStore) Create(ctx context.Context, name, email string, rate float64) (*models.Affiliate, error) {
	for range codeAttempts {
		code, err := gonanoid.Generate(codeAlphabet, codeLength)
		if err != nil {
			return nil, fmt.Errorf("generate referral code: %w", err)
		}

		a := &models.Affiliate{}
		err = s.db.QueryRowContext(ctx, `
			INSERT INTO affiliates (name, email, code, rate)
			VALUES ($1, $2, $3, $4)
			RETURNING id, name, email, code, rate, created_at
		`, name, email, code, rate).Scan(&a.ID, &a.Name, &a.Email, &a.Code, &a.Rate, &a.CreatedAt)

		switch constraintOf(err) {
		case "":
		case "affiliates_code_key":
			continue
		default:
			return nil, ErrEmailTaken
		}
		if err != nil {
			return nil, fmt.Errorf("create affiliate: %w", err)
		}
		return a, nil
	}
	return nil, fmt.Errorf("create affiliate: no free referral code after %d attempts", codeAttempts)
}

// FindByCode retrieves an affiliate by referral code. Returns nil if not found.
func (s *AffiliateStore) FindByCode(ctx context.Context, code string) (*models.Affiliate, error) {
	a := &models.Affiliate{}
	err := s.db.QueryRowContext(ctx, `
		SELECT id, name, email, code, rate, created_at FROM affiliates WHERE code = $1
	`, code).Scan(&a.ID, &a.Name, &a.Email, &a.Code, &a.Rate, &a.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find affiliate by code: %w", err)
	}
	return a, nil
}

// RecordCommission credits the affiliate with code for one order. The
// amount is the order total times the affiliate's rate, rounded to cents.
// Returns nil if the code is unknown.
func (s *AffiliateStore) RecordCommission(ctx context.Context, code, orderRef string, orderTotal float64) (*models.Commission, error) {
	a, err := s.FindByCode(ctx, code)
	if err != nil || a == nil {
		return nil, err
	}

	c := &models.Commission{}
	err = s.db.QueryRowContext(ctx, `
		INSERT INTO commissions (affiliate_id, order_ref, order_total, amount)
		VALUES ($1, $2, $3, $4)
		RETURNING id, affiliate_id, order_ref, order_total, amount, status, created_at
	`, a.ID, orderRef, orderTotal, pricing.Round2(orderTotal*a.Rate)).Scan(
		&c.ID, &c.AffiliateID, &c.OrderRef, &c.OrderTotal, &c.Amount, &c.Status, &c.CreatedAt,
	)
	if constraintOf(err) != "" {
		return nil, ErrDuplicateCommission
	}
	if err != nil {
		return nil, fmt.Errorf("record commission: %w", err)
	}
	return c, nil
}

// SetCommissionStatus moves a commission to a new status. Returns false if
// the commission does not exist.
func (s *AffiliateStore) SetCommissionStatus(ctx context.Context, id uuid.UUID, status models.CommissionStatus) (bool, error) {
	res, err := s.db.ExecContext(ctx, `UPDATE commissions SET status = $1 WHERE id = $2`, status, id)
	if err != nil {
		return false, fmt.Errorf("set commission status: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("set commission status: %w", err)
	}
	return n > 0, nil
}

// Summary aggregates an affiliate's commissions by status. Returns nil if
// the code is unknown.
func (s *AffiliateStore) Summary(ctx context.Context, code string) (*models.AffiliateSummary, error) {
	sum := &models.AffiliateSummary{}
	err := s.db.QueryRowContext(ctx, `
		SELECT a.code, a.email,
		       COUNT(c.id),
		       COALESCE(SUM(c.order_total), 0),
		       COALESCE(SUM(c.amount) FILTER (WHERE c.status = 'pending'), 0),
		       COALESCE(SUM(c.amount) FILTER (WHERE c.status = 'approved'), 0),
		       COALESCE(SUM(c.amount) FILTER (WHERE c.status = 'paid'), 0)
		FROM affiliates a
		LEFT JOIN commissions c ON c.affiliate_id = a.id
		WHERE a.code = $1
		GROUP BY a.code, a.email
	`, code).Scan(&sum.Code, &sum.Email, &sum.Orders, &sum.Sales, &sum.Pending, &sum.Approved, &sum.Paid)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("affiliate summary: %w", err)
	}
	return sum, nil
}
