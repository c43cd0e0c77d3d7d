// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package cart

import (
	"context"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"marketsite/internal/pricing"
)

// Service applies cart changes. Each operation reads the cart once, runs
// its checks and writes the cart at most once.
type Service struct {
	store   Store
	checker StockChecker
	policy  Policy
	guard   *guard
	logger  *slog.Logger
}

// NewService creates a cart service. A nil logger uses slog.Default.
func NewService(store Store, checker StockChecker, policy Policy, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		store:   store,
		checker: checker,
		policy:  policy,
		guard:   newGuard(),
		logger:  logger,
	}
}

// Policy returns the quantity rules in force.
func (s *Service) Policy() Policy {
	return s.policy
}

// Items returns the current cart lines.
func (s *Service) Items(ctx context.Context, cartID string) ([]Item, error) {
	return s.store.Load(ctx, cartID)
}

// Subscribe returns a channel signalled after every saved change.
func (s *Service) Subscribe(ctx context.Context, cartID string) (<-chan struct{}, func(), error) {
	return s.store.Subscribe(ctx, cartID)
}

// preflight runs the checks that need nothing but the product itself.
func preflight(p *Product, qty int, size string) error {
	if qty < 1 {
		return reject(ReasonQuantity, MsgInvalidQuantity)
	}
	if p.Type == TypeAffiliate {
		return reject(ReasonAffiliate, MsgAffiliate)
	}
	if p.Availability == OutOfStock {
		return reject(ReasonOutOfStock, MsgOutOfStock)
	}
	if p.HasSizes() && size == "" {
		return reject(ReasonSizeRequired, MsgSizeRequired)
	}
	return nil
}

// check decides whether line k may hold qty units given the other lines.
func (s *Service) check(ctx context.Context, items []Item, k Key, qty int) error {
	flat := func() error {
		if s.policy.Exceeds(items, k, qty) {
			return reject(ReasonFlatCap, s.policy.CapMessage())
		}
		return nil
	}
	stock := func() error {
		res, err := s.checker.CheckStock(ctx, StockQuery{ProductID: k.ProductID, Quantity: qty, Size: k.Size})
		if err != nil {
			return fmt.Errorf("check stock: %w", err)
		}
		if !res.Valid {
			msg := res.Message
			if msg == "" {
				msg = MsgStockFallback
			}
			return reject(ReasonStock, msg)
		}
		return nil
	}

	first, second := flat, stock
	if s.policy.Precedence == StockFirst {
		first, second = stock, flat
	}
	if err := first(); err != nil {
		return err
	}
	return second()
}

// Add puts qty units of p into the cart, merging with an existing line of
// the same product and size. A refused merge leaves the existing line as
// it was. The unit price is converted to the base currency with rates.
func (s *Service) Add(ctx context.Context, cartID string, p *Product, qty int, size string, rates pricing.Rates) ([]Item, error) {
	if err := preflight(p, qty, size); err != nil {
		return nil, err
	}

	release, err := s.guard.acquire(cartID)
	if err != nil {
		return nil, err
	}
	defer release()

	items, err := s.store.Load(ctx, cartID)
	if err != nil {
		return nil, err
	}

	k := Key{ProductID: p.ID, Size: size}
	idx := indexOf(items, k)
	total := qty
	if idx >= 0 {
		total += items[idx].Quantity
	}

	if err := s.check(ctx, items, k, total); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if idx >= 0 {
		items[idx].Quantity = total
	} else {
		unit, err := rates.ToBase(p.Price, p.Currency)
		if err != nil {
			return nil, fmt.Errorf("normalize price: %w", err)
		}
		items = append(items, Item{
			ProductID: p.ID,
			Title:     p.Title,
			Quantity:  qty,
			UnitPrice: unit,
			Size:      size,
			Image:     p.Image,
		})
	}

	if err := s.store.Save(ctx, cartID, items); err != nil {
		return nil, err
	}
	s.logger.Debug("cart line added", "cart_id", cartID, "product_id", p.ID, "size", size, "quantity", total)
	return items, nil
}

// SetQuantity replaces the quantity of an existing line.
func (s *Service) SetQuantity(ctx context.Context, cartID, productID, size string, qty int) ([]Item, error) {
	if qty < 1 {
		return nil, reject(ReasonQuantity, MsgInvalidQuantity)
	}

	release, err := s.guard.acquire(cartID)
	if err != nil {
		return nil, err
	}
	defer release()

	items, err := s.store.Load(ctx, cartID)
	if err != nil {
		return nil, err
	}

	k := Key{ProductID: productID, Size: size}
	idx := indexOf(items, k)
	if idx < 0 {
		return nil, ErrNotInCart
	}
	if items[idx].Quantity == qty {
		return items, nil
	}

	if err := s.check(ctx, items, k, qty); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	items[idx].Quantity = qty
	if err := s.store.Save(ctx, cartID, items); err != nil {
		return nil, err
	}
	return items, nil
}

// Remove deletes a line from the cart.
func (s *Service) Remove(ctx context.Context, cartID, productID, size string) ([]Item, error) {
	release, err := s.guard.acquire(cartID)
	if err != nil {
		return nil, err
	}
	defer release()

	items, err := s.store.Load(ctx, cartID)
	if err != nil {
		return nil, err
	}

	idx := indexOf(items, Key{ProductID: productID, Size: size})
	if idx < 0 {
		return nil, ErrNotInCart
	}
	items = append(items[:idx], items[idx+1:]...)

	if err := s.store.Save(ctx, cartID, items); err != nil {
		return nil, err
	}
	return items, nil
}

// BuyNow validates a single-product purchase without touching any cart.
func (s *Service) BuyNow(ctx context.Context, p *Product, qty int, size string, rates pricing.Rates) (*Checkout, error) {
	if err := preflight(p, qty, size); err != nil {
		return nil, err
	}

	k := Key{ProductID: p.ID, Size: size}
	if err := s.check(ctx, nil, k, qty); err != nil {
		return nil, err
	}

	unit, err := rates.ToBase(p.Price, p.Currency)
	if err != nil {
		return nil, fmt.Errorf("normalize price: %w", err)
	}
	return &Checkout{
		Items: []Item{{
			ProductID: p.ID,
			Title:     p.Title,
			Quantity:  qty,
			UnitPrice: unit,
			Size:      size,
			Image:     p.Image,
		}},
		Adjustments: []Adjustment{},
	}, nil
}

// Checkout reconciles every line against stock. Lines are checked in
// parallel; a line over stock is clamped to what is available and the cap,
// and a line with nothing available is removed. When the checker does not
// report what is available, smaller quantities are checked until one
// passes. The cart is written once, and only if a line changed. Any check
// error leaves the cart untouched.
func (s *Service) Checkout(ctx context.Context, cartID string) (*Checkout, error) {
	release, err := s.guard.acquire(cartID)
	if err != nil {
		return nil, err
	}
	defer release()

	items, err := s.store.Load(ctx, cartID)
	if err != nil {
		return nil, err
	}

	limits := make([]int, len(items))
	messages := make([]string, len(items))
	g, gctx := errgroup.WithContext(ctx)
	for i, it := range items {
		g.Go(func() error {
			limit, msg, err := s.lineLimit(gctx, it)
			if err != nil {
				return fmt.Errorf("check stock %s: %w", it.ProductID, err)
			}
			limits[i], messages[i] = limit, msg
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	next := make([]Item, 0, len(items))
	adjustments := []Adjustment{}
	for i, it := range items {
		limit := limits[i]
		if limit >= it.Quantity {
			next = append(next, it)
			continue
		}

		adj := Adjustment{
			ProductID: it.ProductID,
			Size:      it.Size,
			Title:     it.Title,
			From:      it.Quantity,
			To:        limit,
			Message:   adjustmentMessage(it, limit, messages[i]),
		}
		adjustments = append(adjustments, adj)
		if limit > 0 {
			it.Quantity = limit
			next = append(next, it)
		}
	}

	if len(adjustments) > 0 {
		if err := s.store.Save(ctx, cartID, next); err != nil {
			return nil, err
		}
		s.logger.Info("cart reconciled at checkout", "cart_id", cartID, "adjusted", len(adjustments))
	}
	return &Checkout{Items: next, Adjustments: adjustments}, nil
}

// lineLimit returns the largest quantity a line may keep at checkout and
// the checker's message for the first refused quantity.
func (s *Service) lineLimit(ctx context.Context, it Item) (int, string, error) {
	limit := it.Quantity
	if s.policy.MaxPerItem > 0 && limit > s.policy.MaxPerItem {
		limit = s.policy.MaxPerItem
	}

	res, err := s.checker.CheckStock(ctx, StockQuery{ProductID: it.ProductID, Quantity: it.Quantity, Size: it.Size})
	if err != nil {
		return 0, "", err
	}
	if res.Valid {
		return limit, "", nil
	}
	if res.Available != nil {
		return max(0, min(limit, *res.Available)), res.Message, nil
	}

	// The full quantity was refused. Try the cap when it is lower, then
	// each smaller quantity.
	start := limit
	if start == it.Quantity {
		start--
	}
	for q := start; q > 0; q-- {
		next, err := s.checker.CheckStock(ctx, StockQuery{ProductID: it.ProductID, Quantity: q, Size: it.Size})
		if err != nil {
			return 0, "", err
		}
		if next.Valid {
			return q, res.Message, nil
		}
		if next.Available != nil {
			return max(0, min(q, *next.Available)), res.Message, nil
		}
	}
	return 0, res.Message, nil
}
