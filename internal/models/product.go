// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package models

import (
	"time"

	"github.com/google/uuid"

	"marketsite/internal/cart"
)

// ProductSize is one size option with its own stock count.
type ProductSize struct {
	Name     string `json:"name" validate:"required,max=20"`
	Quantity int    `json:"quantity" validate:"gte=0"`
}

// Product is a catalogue entry. Own products are sold from local stock;
// affiliate products link out to a partner store and are never added to
// a cart.
type Product struct {
	ID           uuid.UUID         `json:"id"`
	Title        string            `json:"title"`
	Slug         string            `json:"slug"`
	Description  string            `json:"description"`
	Price        float64           `json:"price"`
	Currency     string            `json:"currency"`
	Image        string            `json:"image"`
	Availability cart.Availability `json:"availability"`
	Type         cart.ProductType  `json:"productType"`
	AffiliateURL *string           `json:"affiliateUrl,omitempty"`
	Quantity     int               `json:"quantity"`
	Sizes        []ProductSize     `json:"sizes"`
	CreatedAt    time.Time         `json:"created_at"`
	UpdatedAt    time.Time         `json:"updated_at"`
}

// IsAffiliate returns true for partner listings.
func (p *Product) IsAffiliate() bool {
	return p.Type == cart.TypeAffiliate
}

// HasSizes returns true if a size must be chosen.
func (p *Product) HasSizes() bool {
	return len(p.Sizes) > 0
}

// SizeStock returns the stock count of the named size.
func (p *Product) SizeStock(name string) (int, bool) {
	for _, s := range p.Sizes {
		if s.Name == name {
			return s.Quantity, true
		}
	}
	return 0, false
}

// CartView returns the fields the cart works with.
func (p *Product) CartView() *cart.Product {
	sizes := make([]string, 0, len(p.Sizes))
	for _, s := range p.Sizes {
		sizes = append(sizes, s.Name)
	}
	return &cart.Product{
		ID:           p.ID.String(),
		Title:        p.Title,
		Price:        p.Price,
		Currency:     p.Currency,
		Image:        p.Image,
		Availability: p.Availability,
		Type:         p.Type,
		Sizes:        sizes,
	}
}
