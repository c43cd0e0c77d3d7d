// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package inventory answers stock checks from the product catalogue. It is
// the authority the cart consults before every change.
package inventory

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"marketsite/internal/cart"
	"marketsite/internal/metrics"
	"marketsite/internal/models"
)

// Messages returned with an invalid verdict.
const (
	MsgNotFound  = "This product is no longer available."
	MsgQuantity  = "Quantity must be at least 1."
	MsgSoldOut   = "This product is out of stock."
	MsgBadSize   = "The selected size is not available."
	MsgAffiliate = "This product is sold by a partner store."
)

// ProductFinder loads a product by ID, returning nil when it does not exist.
type ProductFinder interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.Product, error)
}

// Checker implements cart.StockChecker on top of the catalogue.
type Checker struct {
	products ProductFinder
	metrics  *metrics.Metrics
}

// NewChecker creates a Checker. m may be nil.
func NewChecker(products ProductFinder, m *metrics.Metrics) *Checker {
	return &Checker{products: products, metrics: m}
}

// CheckStock returns whether q.Quantity units can be sold. Invalid verdicts
// carry the largest quantity that would pass in Available.
func (c *Checker) CheckStock(ctx context.Context, q cart.StockQuery) (cart.StockResult, error) {
	res, err := c.check(ctx, q)
	record(c.metrics, res, err)
	return res, err
}

// Counted records the verdicts of another stock checker, such as a remote
// stock service. m may be nil, in which case next is returned as is.
func Counted(next cart.StockChecker, m *metrics.Metrics) cart.StockChecker {
	if m == nil {
		return next
	}
	return &countedChecker{next: next, metrics: m}
}

type countedChecker struct {
	next    cart.StockChecker
	metrics *metrics.Metrics
}

func (c *countedChecker) CheckStock(ctx context.Context, q cart.StockQuery) (cart.StockResult, error) {
	res, err := c.next.CheckStock(ctx, q)
	record(c.metrics, res, err)
	return res, err
}

func record(m *metrics.Metrics, res cart.StockResult, err error) {
	if m == nil {
		return
	}
	label := "valid"
	switch {
	case err != nil:
		label = "error"
	case !res.Valid:
		label = "invalid"
	}
	m.StockChecks.WithLabelValues(label).Inc()
}

func (c *Checker) check(ctx context.Context, q cart.StockQuery) (cart.StockResult, error) {
	if q.Quantity < 1 {
		return cart.StockResult{Valid: false, Message: MsgQuantity}, nil
	}

	id, err := uuid.Parse(q.ProductID)
	if err != nil {
		return invalid(MsgNotFound, 0), nil
	}
	p, err := c.products.FindByID(ctx, id)
	if err != nil {
		return cart.StockResult{}, fmt.Errorf("stock check: %w", err)
	}
	if p == nil {
		return invalid(MsgNotFound, 0), nil
	}

	return Evaluate(p, q.Quantity, q.Size), nil
}

// Evaluate applies the stock rules to a loaded product. Pre-order products
// have no ceiling. Sized products are counted per size, others globally.
func Evaluate(p *models.Product, qty int, size string) cart.StockResult {
	switch {
	case p.IsAffiliate():
		return invalid(MsgAffiliate, 0)
	case p.Availability == cart.OutOfStock:
		return invalid(MsgSoldOut, 0)
	case p.Availability == cart.PreOrder:
		return cart.StockResult{Valid: true}
	}

	if p.HasSizes() {
		if size == "" {
			return invalid(cart.MsgSizeRequired, 0)
		}
		stock, ok := p.SizeStock(size)
		if !ok {
			return invalid(MsgBadSize, 0)
		}
		if qty > stock {
			if stock == 0 {
				return invalid(fmt.Sprintf("Size %s is out of stock.", size), 0)
			}
			return invalid(fmt.Sprintf("Only %d left in size %s.", stock, size), stock)
		}
		return cart.StockResult{Valid: true}
	}

	if qty > p.Quantity {
		if p.Quantity == 0 {
			return invalid(MsgSoldOut, 0)
		}
		return invalid(fmt.Sprintf("Only %d left in stock.", p.Quantity), p.Quantity)
	}
	return cart.StockResult{Valid: true}
}

func invalid(msg string, available int) cart.StockResult {
	return cart.StockResult{Valid: false, Message: msg, Available: &available}
}
