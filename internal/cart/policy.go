// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package cart

import (
	"fmt"
	"strings"
)

// CapScope selects what the flat per-item cap counts.
type CapScope int

const (
	// ScopeLine caps each (product, size) line on its own.
	ScopeLine CapScope = iota
	// ScopeProduct caps the sum of all sizes of a product.
	ScopeProduct
)

// Precedence selects which check runs first and therefore whose message
// the user sees when both would fail.
type Precedence int

const (
	FlatCapFirst Precedence = iota
	StockFirst
)

// Policy is the cart's quantity rule set.
type Policy struct {
	MaxPerItem int
	Scope      CapScope
	Precedence Precedence
}

// DefaultPolicy caps each line at three units and applies the cap before
// asking the stock collaborator.
var DefaultPolicy = Policy{MaxPerItem: 3, Scope: ScopeLine, Precedence: FlatCapFirst}

// CapMessage is shown when the flat cap refuses a change.
func (p Policy) CapMessage() string {
	return fmt.Sprintf("You can only buy up to %d of this item.", p.MaxPerItem)
}

// counted returns the quantity the cap is compared against when the line
// identified by k is set to qty.
func (p Policy) counted(items []Item, k Key, qty int) int {
	if p.Scope == ScopeLine {
		return qty
	}
	total := qty
	for _, it := range items {
		if it.ProductID == k.ProductID && it.Size != k.Size {
			total += it.Quantity
		}
	}
	return total
}

// Exceeds reports whether setting line k to qty would break the cap.
// A non-positive MaxPerItem disables the cap.
func (p Policy) Exceeds(items []Item, k Key, qty int) bool {
	if p.MaxPerItem <= 0 {
		return false
	}
	return p.counted(items, k, qty) > p.MaxPerItem
}

// ParseScope maps a config value to a CapScope.
func ParseScope(s string) (CapScope, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "line":
		return ScopeLine, nil
	case "product":
		return ScopeProduct, nil
	}
	return ScopeLine, fmt.Errorf("unknown cap scope %q", s)
}

// ParsePrecedence maps a config value to a Precedence.
func ParsePrecedence(s string) (Precedence, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "flat", "flat_cap_first":
		return FlatCapFirst, nil
	case "stock", "stock_first":
		return StockFirst, nil
	}
	return FlatCapFirst, fmt.Errorf("unknown cap precedence %q", s)
}
