// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package cart keeps shopping carts consistent with authoritative stock.
// Every mutation is checked against a flat per-item cap and a stock-check
// collaborator before the cart store is written, and checkout clamps lines
// that no longer fit what is on the shelf.
package cart

import (
	"context"
	"errors"
	"fmt"
)

// Availability is the stock state advertised for a product.
type Availability string

const (
	InStock    Availability = "in_stock"
	OutOfStock Availability = "out_of_stock"
	PreOrder   Availability = "pre_order"
)

// ProductType tells own inventory apart from partner listings.
type ProductType string

const (
	TypeOwn       ProductType = "own"
	TypeAffiliate ProductType = "affiliate"
)

// Product is the view of a catalogue product the cart needs. The catalogue
// owns it; the cart never writes it back.
type Product struct {
	ID           string
	Title        string
	Price        float64
	Currency     string
	Image        string
	Availability Availability
	Type         ProductType
	Sizes        []string
}

// HasSizes reports whether a size must be chosen before purchase.
func (p *Product) HasSizes() bool {
	return len(p.Sizes) > 0
}

// Item is one cart line. UnitPrice is in the base currency, fixed when the
// line was first added.
type Item struct {
	ProductID string  `json:"productId"`
	Title     string  `json:"title"`
	Quantity  int     `json:"quantity"`
	UnitPrice float64 `json:"price"`
	Size      string  `json:"size,omitempty"`
	Image     string  `json:"image,omitempty"`
}

// Key identifies a line: the same product in two sizes is two lines.
type Key struct {
	ProductID string
	Size      string
}

// Key returns the line identity of the item.
func (it Item) Key() Key {
	return Key{ProductID: it.ProductID, Size: it.Size}
}

// StockQuery asks whether a quantity of a product (and size) can be sold.
type StockQuery struct {
	ProductID string `json:"productId" validate:"required"`
	Quantity  int    `json:"quantity" validate:"gte=1"`
	Size      string `json:"size,omitempty"`
}

// StockResult is the verdict of a stock check. Available, when set, is the
// largest quantity that would pass.
type StockResult struct {
	Valid     bool   `json:"valid"`
	Message   string `json:"message,omitempty"`
	Available *int   `json:"available,omitempty"`
}

// StockChecker is the authority on what can be sold.
type StockChecker interface {
	CheckStock(ctx context.Context, q StockQuery) (StockResult, error)
}

// Reason classifies why a cart change was refused.
type Reason string

const (
	ReasonQuantity     Reason = "quantity"
	ReasonAffiliate    Reason = "affiliate"
	ReasonOutOfStock   Reason = "out_of_stock"
	ReasonSizeRequired Reason = "size_required"
	ReasonFlatCap      Reason = "flat_cap"
	ReasonStock        Reason = "stock"
)

// User-facing messages for refusals decided by the cart itself.
const (
	MsgInvalidQuantity = "Quantity must be at least 1."
	MsgAffiliate       = "This product is sold by a partner store."
	MsgOutOfStock      = "This product is out of stock."
	MsgSizeRequired    = "Please select a size."
	MsgStockFallback   = "The requested quantity is not available."
)

var (
	// ErrBusy is returned when another change to the same cart is in flight.
	ErrBusy = errors.New("Please wait for the previous cart update to finish.")
	// ErrNotInCart is returned when a line to change or remove does not exist.
	ErrNotInCart = errors.New("item is not in the cart")
)

// RejectedError is a refused cart change. Message is shown to the user as is.
type RejectedError struct {
	Reason  Reason
	Message string
}

func (e *RejectedError) Error() string {
	return e.Message
}

func reject(reason Reason, msg string) *RejectedError {
	return &RejectedError{Reason: reason, Message: msg}
}

// IsRejected reports whether err is a refusal that the user should see.
func IsRejected(err error) bool {
	var re *RejectedError
	return errors.As(err, &re)
}

// Adjustment records a line changed by checkout reconciliation. To is zero
// when the line was removed.
type Adjustment struct {
	ProductID string `json:"productId"`
	Size      string `json:"size,omitempty"`
	Title     string `json:"title"`
	From      int    `json:"from"`
	To        int    `json:"to"`
	Message   string `json:"message"`
}

// Removed reports whether the line was dropped from the cart.
func (a Adjustment) Removed() bool {
	return a.To == 0
}

func adjustmentMessage(it Item, to int, collaborator string) string {
	if to == 0 {
		if collaborator != "" {
			return collaborator
		}
		return fmt.Sprintf("%s is no longer available and was removed from your cart.", it.Title)
	}
	return fmt.Sprintf("Only %d of %s can be ordered; quantity updated from %d.", to, it.Title, it.Quantity)
}

// Checkout is the reconciled cart ready for payment.
type Checkout struct {
	Items       []Item       `json:"items"`
	Adjustments []Adjustment `json:"adjustments"`
}

// Total returns the sum of line totals in the base currency.
func (c *Checkout) Total() float64 {
	var sum float64
	for _, it := range c.Items {
		sum += it.UnitPrice * float64(it.Quantity)
	}
	return sum
}

func indexOf(items []Item, k Key) int {
	for i, it := range items {
		if it.Key() == k {
			return i
		}
	}
	return -1
}

func cloneItems(items []Item) []Item {
	if items == nil {
		return nil
	}
	out := make([]Item, len(items))
	copy(out, items)
	return out
}
