// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package handlers

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"

	"marketsite/internal/cart"
	"marketsite/internal/inventory"
	"marketsite/internal/models"
	"marketsite/internal/pricing"
)

func newCatalogue(ps ...*models.Product) (*Catalogue, *memProducts) {
	products := newMemProducts(ps...)
	return NewCatalogue(products, inventory.NewChecker(products, nil), testRates(), nil), products
}

func TestCatalogueCreateProduct(t *testing.T) {
	tests := []struct {
		name       string
		body       map[string]any
		wantStatus int
	}{
		{
			name: "own product",
			body: map[string]any{
				"title": "Shirt", "price": 12.499, "currency": "usd",
				"availability": "in_stock", "productType": "own", "quantity": 5,
				"sizes": []map[string]any{{"name": "M", "quantity": 2}},
			},
			wantStatus: http.StatusCreated,
		},
		{
			name: "affiliate without url",
			body: map[string]any{
				"title": "Boots", "price": 50, "currency": "USD",
				"availability": "in_stock", "productType": "affiliate",
			},
			wantStatus: http.StatusUnprocessableEntity,
		},
		{
			name: "affiliate with url",
			body: map[string]any{
				"title": "Boots", "price": 50, "currency": "USD",
				"availability": "in_stock", "productType": "affiliate",
				"affiliateUrl": "https://partner.example.com/boots",
			},
			wantStatus: http.StatusCreated,
		},
		{
			name: "unknown availability",
			body: map[string]any{
				"title": "Hat", "price": 5, "currency": "USD",
				"availability": "soon", "productType": "own",
			},
			wantStatus: http.StatusUnprocessableEntity,
		},
		{
			name: "size without name",
			body: map[string]any{
				"title": "Hat", "price": 5, "currency": "USD",
				"availability": "in_stock", "productType": "own",
				"sizes": []map[string]any{{"quantity": 2}},
			},
			wantStatus: http.StatusUnprocessableEntity,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h, _ := newCatalogue()
			rec := serve(t, "POST", "/api/products", h.CreateProduct, jsonRequest("POST", "/api/products", tt.body), testSession("admin"))
			if rec.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d, body = %s", rec.Code, tt.wantStatus, rec.Body.String())
			}
		})
	}
}

func TestCatalogueCreateProductNormalizes(t *testing.T) {
	h, _ := newCatalogue()
	body := map[string]any{
		"title": "  Shirt ", "price": 12.499, "currency": "usd",
		"availability": "in_stock", "productType": "own", "quantity": 5,
	}
	rec := serve(t, "POST", "/api/products", h.CreateProduct, jsonRequest("POST", "/api/products", body), nil)

	var p models.Product
	decodeBody(t, rec, &p)
	if p.Title != "Shirt" || p.Currency != "USD" || p.Price != 12.5 {
		t.Errorf("got %q %s %v, want Shirt USD 12.5", p.Title, p.Currency, p.Price)
	}
	if p.Sizes == nil {
		t.Error("sizes should encode as an empty list")
	}
}

func TestCatalogueGetAndUpdate(t *testing.T) {
	shirt := testProduct("Shirt", 3)
	h, _ := newCatalogue(shirt)

	rec := serve(t, "GET", "/api/products/{id}", h.GetProduct, httptest.NewRequest("GET", "/api/products/"+shirt.ID.String(), nil), nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("get status = %d", rec.Code)
	}

	rec = serve(t, "GET", "/api/products/{id}", h.GetProduct, httptest.NewRequest("GET", "/api/products/"+uuid.NewString(), nil), nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("missing product status = %d, want 404", rec.Code)
	}

	update := map[string]any{
		"title": "Shirt v2", "price": 11, "currency": "USD",
		"availability": "pre_order", "productType": "own",
	}
	rec = serve(t, "PUT", "/api/products/{id}", h.UpdateProduct, jsonRequest("PUT", "/api/products/"+shirt.ID.String(), update), nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("update status = %d, body = %s", rec.Code, rec.Body.String())
	}
	var p models.Product
	decodeBody(t, rec, &p)
	if p.ID != shirt.ID || p.Availability != cart.PreOrder {
		t.Errorf("updated = %+v", p)
	}

	rec = serve(t, "PUT", "/api/products/{id}", h.UpdateProduct, jsonRequest("PUT", "/api/products/"+uuid.NewString(), update), nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("update missing status = %d, want 404", rec.Code)
	}
}

func TestCatalogueCheckStock(t *testing.T) {
	lastTwo := testProduct("Last Two", 2)
	h, _ := newCatalogue(lastTwo)

	tests := []struct {
		name      string
		qty       int
		wantValid bool
	}{
		{"within stock", 2, true},
		{"over stock", 3, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			body := map[string]any{"productId": lastTwo.ID.String(), "quantity": tt.qty}
			rec := serve(t, "POST", "/api/stock/check", h.CheckStock, jsonRequest("POST", "/api/stock/check", body), nil)
			if rec.Code != http.StatusOK {
				t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
			}
			var res cart.StockResult
			decodeBody(t, rec, &res)
			if res.Valid != tt.wantValid {
				t.Errorf("valid = %v, want %v", res.Valid, tt.wantValid)
			}
			if !res.Valid && (res.Available == nil || *res.Available != 2) {
				t.Errorf("available = %v, want 2", res.Available)
			}
		})
	}

	rec := serve(t, "POST", "/api/stock/check", h.CheckStock, jsonRequest("POST", "/api/stock/check", map[string]any{"productId": lastTwo.ID.String()}), nil)
	if rec.Code != http.StatusUnprocessableEntity {
		t.Errorf("missing quantity status = %d, want 422", rec.Code)
	}
}

func TestCatalogueRates(t *testing.T) {
	h, _ := newCatalogue()
	rec := serve(t, "GET", "/api/rates", h.Rates, httptest.NewRequest("GET", "/api/rates", nil), nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var rates pricing.Rates
	decodeBody(t, rec, &rates)
	if rates["BDT"] != 1 || rates["USD"] != 120 {
		t.Errorf("rates = %v", rates)
	}
	if rec.Header().Get("Cache-Control") == "" {
		t.Error("rates should be cacheable")
	}

	failing := NewCatalogue(newMemProducts(), nil, staticRates{err: errors.New("down")}, nil)
	rec = serve(t, "GET", "/api/rates", failing.Rates, httptest.NewRequest("GET", "/api/rates", nil), nil)
	if rec.Code != http.StatusInternalServerError {
		t.Errorf("failing source status = %d, want 500", rec.Code)
	}
}
