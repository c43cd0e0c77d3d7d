// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"marketsite/internal/cart"
	"marketsite/internal/models"
	"marketsite/internal/pricing"
	"marketsite/internal/validation"
)

// ProductRepo persists catalogue products.
type ProductRepo interface {
	Create(ctx context.Context, p *models.Product) (*models.Product, error)
	Update(ctx context.Context, p *models.Product) (*models.Product, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.Product, error)
	List(ctx context.Context, limit, offset int) ([]models.Product, error)
}

// Catalogue serves products, stock checks and currency rates.
type Catalogue struct {
	products  ProductRepo
	stock     cart.StockChecker
	rates     pricing.Source
	validator *validation.Validator
}

// NewCatalogue creates the catalogue handler.
func NewCatalogue(products ProductRepo, stock cart.StockChecker, rates pricing.Source, v *validation.Validator) *Catalogue {
	if v == nil {
		v = validation.New()
	}
	return &Catalogue{products: products, stock: stock, rates: rates, validator: v}
}

// productRequest is the admin create/update body.
type productRequest struct {
	Title        string               `json:"title" validate:"required,max=200"`
	Slug         string               `json:"slug" validate:"max=75"`
	Description  string               `json:"description" validate:"max=5000"`
	Price        float64              `json:"price" validate:"gte=0"`
	Currency     string               `json:"currency" validate:"required,len=3"`
	Image        string               `json:"image" validate:"omitempty,url"`
	Availability cart.Availability    `json:"availability" validate:"required,oneof=in_stock out_of_stock pre_order"`
	Type         cart.ProductType     `json:"productType" validate:"required,oneof=own affiliate"`
	AffiliateURL string               `json:"affiliateUrl" validate:"required_if=Type affiliate,omitempty,url"`
	Quantity     int                  `json:"quantity" validate:"gte=0"`
	Sizes        []models.ProductSize `json:"sizes" validate:"dive"`
}

func (req *productRequest) normalize() {
	req.Title = strings.TrimSpace(req.Title)
	req.Slug = strings.TrimSpace(req.Slug)
	req.Currency = strings.ToUpper(strings.TrimSpace(req.Currency))
}

func (req *productRequest) product() *models.Product {
	p := &models.Product{
		Title:        req.Title,
		Slug:         req.Slug,
		Description:  req.Description,
		Price:        pricing.Round2(req.Price),
		Currency:     req.Currency,
		Image:        req.Image,
		Availability: req.Availability,
		Type:         req.Type,
		Quantity:     req.Quantity,
		Sizes:        req.Sizes,
	}
	if p.Sizes == nil {
		p.Sizes = []models.ProductSize{}
	}
	if req.AffiliateURL != "" {
		u := req.AffiliateURL
		p.AffiliateURL = &u
	}
	return p
}

// ListProducts returns one page of the catalogue.
func (h *Catalogue) ListProducts(w http.ResponseWriter, r *http.Request) {
	limit, offset, errMsg := pageParams(r)
	if errMsg != "" {
		writeError(w, http.StatusBadRequest, errMsg)
		return
	}

	products, err := h.products.List(r.Context(), limit, offset)
	if err != nil {
		serverError(w, "list products failed", err)
		return
	}
	if products == nil {
		products = []models.Product{}
	}
	writeJSON(w, http.StatusOK, products)
}

// GetProduct returns one product.
func (h *Catalogue) GetProduct(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusNotFound, "Product not found.")
		return
	}

	p, err := h.products.FindByID(r.Context(), id)
	if err != nil {
		serverError(w, "find product failed", err, "product_id", id)
		return
	}
	if p == nil {
		writeError(w, http.StatusNotFound, "Product not found.")
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// CreateProduct adds a product to the catalogue. Admin only.
func (h *Catalogue) CreateProduct(w http.ResponseWriter, r *http.Request) {
	var req productRequest
	if !decodeJSON(w, r, h.validator, &req) {
		return
	}

	created, err := h.products.Create(r.Context(), req.product())
	if err != nil {
		serverError(w, "create product failed", err)
		return
	}

	slog.Info("product created", "product_id", created.ID, "title", created.Title)
	writeJSON(w, http.StatusCreated, created)
}

// UpdateProduct replaces a product's fields. Admin only.
func (h *Catalogue) UpdateProduct(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusNotFound, "Product not found.")
		return
	}

	var req productRequest
	if !decodeJSON(w, r, h.validator, &req) {
		return
	}

	p := req.product()
	p.ID = id
	updated, err := h.products.Update(r.Context(), p)
	if err != nil {
		serverError(w, "update product failed", err, "product_id", id)
		return
	}
	if updated == nil {
		writeError(w, http.StatusNotFound, "Product not found.")
		return
	}

	slog.Info("product updated", "product_id", id)
	writeJSON(w, http.StatusOK, updated)
}

// CheckStock answers whether a quantity of a product can be sold.
func (h *Catalogue) CheckStock(w http.ResponseWriter, r *http.Request) {
	var q cart.StockQuery
	if !decodeJSON(w, r, h.validator, &q) {
		return
	}
	q.Size = strings.TrimSpace(q.Size)

	res, err := h.stock.CheckStock(r.Context(), q)
	if err != nil {
		serverError(w, "stock check failed", err, "product_id", q.ProductID)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// Rates returns the currency conversion table, base currency first.
func (h *Catalogue) Rates(w http.ResponseWriter, r *http.Request) {
	rates, err := h.rates.Rates(r.Context())
	if err != nil {
		serverError(w, "load rates failed", err)
		return
	}
	rates = rates.Clone()
	rates[pricing.BaseCurrency] = 1

	w.Header().Set("Cache-Control", "public, max-age=300")
	writeJSON(w, http.StatusOK, rates)
}
