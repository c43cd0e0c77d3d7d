// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package models

import (
	"time"

	"github.com/google/uuid"
)

// Affiliate is a partner who earns a commission on referred orders.
type Affiliate struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Code      string    `json:"code"`
	Rate      float64   `json:"rate"`
	CreatedAt time.Time `json:"created_at"`
}

// CommissionStatus tracks a commission through payout.
type CommissionStatus string

const (
	CommissionPending  CommissionStatus = "pending"
	CommissionApproved CommissionStatus = "approved"
	CommissionPaid     CommissionStatus = "paid"
)

// Commission is the amount owed to an affiliate for one order.
type Commission struct {
	ID          uuid.UUID        `json:"id"`
	AffiliateID uuid.UUID        `json:"affiliate_id"`
	OrderRef    string           `json:"orderRef"`
	OrderTotal  float64          `json:"orderTotal"`
	Amount      float64          `json:"amount"`
	Status      CommissionStatus `json:"status"`
	CreatedAt   time.Time        `json:"created_at"`
}

// AffiliateSummary aggregates an affiliate's commissions by status.
type AffiliateSummary struct {
	Code     string  `json:"code"`
	Email    string  `json:"email"`
	Orders   int     `json:"orders"`
	Sales    float64 `json:"sales"`
	Pending  float64 `json:"pending"`
	Approved float64 `json:"approved"`
	Paid     float64 `json:"paid"`
}

// Earned returns everything not yet cancelled: pending, approved and paid.
func (s *AffiliateSummary) Earned() float64 {
	return s.Pending + s.Approved + s.Paid
}
