// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package handlers

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"marketsite/internal/cart"
	"marketsite/internal/inventory"
	"marketsite/internal/metrics"
	"marketsite/internal/pricing"
	"marketsite/internal/validation"
)

const (
	// CartCookie holds the anonymous cart id.
	CartCookie = "cart_id"

	cartCookieMaxAge = 30 * 24 * time.Hour

	// heartbeatInterval keeps idle event streams open through proxies.
	heartbeatInterval = 30 * time.Second
)

// Cart serves the shopping cart API.
type Cart struct {
	service   *cart.Service
	products  inventory.ProductFinder
	rates     pricing.Source
	validator *validation.Validator
	metrics   *metrics.Metrics
	secure    bool
}

// NewCart creates the cart handler. secure marks the cart cookie Secure.
func NewCart(service *cart.Service, products inventory.ProductFinder, rates pricing.Source, v *validation.Validator, m *metrics.Metrics, secure bool) *Cart {
	if v == nil {
		v = validation.New()
	}
	return &Cart{service: service, products: products, rates: rates, validator: v, metrics: m, secure: secure}
}

// lineRequest names a cart line and a quantity.
type lineRequest struct {
	ProductID string `json:"productId" validate:"required,uuid"`
	Size      string `json:"size" validate:"max=20"`
	Quantity  int    `json:"quantity"`
}

// lineView is one cart line with its price in the display currency.
type lineView struct {
	cart.Item
	LineTotal string `json:"lineTotal"`
}

// cartView is the response body of every cart endpoint.
type cartView struct {
	Items        []lineView        `json:"items"`
	Adjustments  []cart.Adjustment `json:"adjustments,omitempty"`
	Total        float64           `json:"total"`
	Currency     string            `json:"currency"`
	DisplayTotal string            `json:"displayTotal"`
	MaxPerItem   int               `json:"maxPerItem"`
}

// cartID returns the cart id from the cookie, issuing a new one when the
// cookie is missing or malformed.
func (h *Cart) cartID(w http.ResponseWriter, r *http.Request) string {
	if c, err := r.Cookie(CartCookie); err == nil {
		if id, err := uuid.Parse(c.Value); err == nil {
			return id.String()
		}
	}

	id := uuid.NewString()
	http.SetCookie(w, &http.Cookie{
		Name:     CartCookie,
		Value:    id,
		Path:     "/",
		MaxAge:   int(cartCookieMaxAge.Seconds()),
		HttpOnly: true,
		Secure:   h.secure,
		SameSite: http.SameSiteLaxMode,
	})
	return id
}

// Get returns the cart.
func (h *Cart) Get(w http.ResponseWriter, r *http.Request) {
	items, err := h.service.Items(r.Context(), h.cartID(w, r))
	if err != nil {
		serverError(w, "load cart failed", err)
		return
	}
	h.respond(w, r, http.StatusOK, items, nil)
}

// Add puts a product into the cart or raises the quantity of its line.
func (h *Cart) Add(w http.ResponseWriter, r *http.Request) {
	cartID := h.cartID(w, r)

	var req lineRequest
	if !decodeJSON(w, r, h.validator, &req) {
		return
	}

	product, ok := h.product(w, r, req.ProductID)
	if !ok {
		return
	}

	rates := pricing.Snapshot(r.Context(), h.rates, nil)
	items, err := h.service.Add(r.Context(), cartID, product, req.Quantity, strings.TrimSpace(req.Size), rates)
	h.count("add", err)
	if err != nil {
		h.cartError(w, err)
		return
	}
	h.respond(w, r, http.StatusOK, items, nil)
}

// Update sets the quantity of an existing line.
func (h *Cart) Update(w http.ResponseWriter, r *http.Request) {
	cartID := h.cartID(w, r)

	var req lineRequest
	if !decodeJSON(w, r, h.validator, &req) {
		return
	}

	items, err := h.service.SetQuantity(r.Context(), cartID, req.ProductID, strings.TrimSpace(req.Size), req.Quantity)
	h.count("update", err)
	if err != nil {
		h.cartError(w, err)
		return
	}
	h.respond(w, r, http.StatusOK, items, nil)
}

// Remove deletes a line.
func (h *Cart) Remove(w http.ResponseWriter, r *http.Request) {
	cartID := h.cartID(w, r)

	var req lineRequest
	if !decodeJSON(w, r, h.validator, &req) {
		return
	}

	items, err := h.service.Remove(r.Context(), cartID, req.ProductID, strings.TrimSpace(req.Size))
	h.count("remove", err)
	if err != nil {
		h.cartError(w, err)
		return
	}
	h.respond(w, r, http.StatusOK, items, nil)
}

// Checkout reconciles every line with current stock and returns the
// final cart along with a notice for each line that changed.
func (h *Cart) Checkout(w http.ResponseWriter, r *http.Request) {
	cartID := h.cartID(w, r)

	co, err := h.service.Checkout(r.Context(), cartID)
	h.count("checkout", err)
	if err != nil {
		h.cartError(w, err)
		return
	}

	if h.metrics != nil {
		for _, a := range co.Adjustments {
			action := "clamped"
			if a.Removed() {
				action = "removed"
			}
			h.metrics.CartAdjustments.WithLabelValues(action).Inc()
		}
	}
	if len(co.Adjustments) > 0 {
		slog.Info("checkout adjusted cart", "cart_id", cartID, "adjustments", len(co.Adjustments))
	}

	h.respond(w, r, http.StatusOK, co.Items, co.Adjustments)
}

// BuyNow checks a single product for immediate purchase without touching
// the cart.
func (h *Cart) BuyNow(w http.ResponseWriter, r *http.Request) {
	var req lineRequest
	if !decodeJSON(w, r, h.validator, &req) {
		return
	}

	product, ok := h.product(w, r, req.ProductID)
	if !ok {
		return
	}

	rates := pricing.Snapshot(r.Context(), h.rates, nil)
	co, err := h.service.BuyNow(r.Context(), product, req.Quantity, strings.TrimSpace(req.Size), rates)
	h.count("buy_now", err)
	if err != nil {
		h.cartError(w, err)
		return
	}
	h.respond(w, r, http.StatusOK, co.Items, nil)
}

// Events streams a "changed" event every time the cart is saved, so other
// tabs showing the same cart can refresh.
func (h *Cart) Events(w http.ResponseWriter, r *http.Request) {
	cartID := h.cartID(w, r)
	if r.Context().Err() != nil {
		return
	}

	changed, cancel, err := h.service.Subscribe(r.Context(), cartID)
	if err != nil {
		serverError(w, "subscribe to cart failed", err, "cart_id", cartID)
		return
	}
	defer cancel()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")

	rc := http.NewResponseController(w)
	if err := sendEvent(w, rc, "ready", cartID); err != nil {
		return
	}

	heartbeat := time.NewTicker(heartbeatInterval)
	defer heartbeat.Stop()

	for {
		select {
		case _, open := <-changed:
			if !open {
				return
			}
			if err := sendEvent(w, rc, "changed", cartID); err != nil {
				return
			}
		case <-heartbeat.C:
			if _, err := fmt.Fprint(w, ": ping\n\n"); err != nil {
				return
			}
			if err := rc.Flush(); err != nil {
				return
			}
		case <-r.Context().Done():
			return
		}
	}
}

// sendEvent writes one server-sent event and flushes it.
func sendEvent(w http.ResponseWriter, rc *http.ResponseController, event, data string) error {
	if _, err := fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event, data); err != nil {
		return err
	}
	return rc.Flush()
}

// product loads the cart view of a catalogue product, writing 404 when
// it does not exist.
func (h *Cart) product(w http.ResponseWriter, r *http.Request, rawID string) (*cart.Product, bool) {
	id, err := uuid.Parse(rawID)
	if err != nil {
		writeError(w, http.StatusNotFound, inventory.MsgNotFound)
		return nil, false
	}
	p, err := h.products.FindByID(r.Context(), id)
	if err != nil {
		serverError(w, "find product failed", err, "product_id", rawID)
		return nil, false
	}
	if p == nil {
		writeError(w, http.StatusNotFound, inventory.MsgNotFound)
		return nil, false
	}
	return p.CartView(), true
}

// cartError maps service errors to responses.
func (h *Cart) cartError(w http.ResponseWriter, err error) {
	var rejected *cart.RejectedError
	switch {
	case errors.As(err, &rejected):
		writeJSON(w, http.StatusUnprocessableEntity, map[string]string{
			"error":  rejected.Message,
			"reason": string(rejected.Reason),
		})
	case errors.Is(err, cart.ErrBusy):
		writeError(w, http.StatusConflict, "Your cart is being updated. Please try again.")
	case errors.Is(err, cart.ErrNotInCart):
		writeError(w, http.StatusNotFound, "That item is not in your cart.")
	case errors.Is(err, pricing.ErrUnknownCurrency):
		writeError(w, http.StatusUnprocessableEntity, "This product cannot be priced right now.")
	case errors.Is(err, context.Canceled):
		// Client went away; nothing to write to.
	default:
		serverError(w, "cart operation failed", err)
	}
}

// respond writes the cart priced in ?currency= (base currency by default).
func (h *Cart) respond(w http.ResponseWriter, r *http.Request, status int, items []cart.Item, adjustments []cart.Adjustment) {
	currency := strings.ToUpper(strings.TrimSpace(r.URL.Query().Get("currency")))
	if currency == "" {
		currency = pricing.BaseCurrency
	}
	rates := pricing.Snapshot(r.Context(), h.rates, nil)
	if _, err := rates.Rate(currency); err != nil {
		currency = pricing.BaseCurrency
	}

	view := cartView{
		Items:       make([]lineView, 0, len(items)),
		Adjustments: adjustments,
		Currency:    currency,
		MaxPerItem:  h.service.Policy().MaxPerItem,
	}
	for _, it := range items {
		line, _ := rates.Display(it.UnitPrice, it.Quantity, currency)
		view.Items = append(view.Items, lineView{Item: it, LineTotal: line})
		view.Total += it.UnitPrice * float64(it.Quantity)
	}
	view.Total = pricing.Round2(view.Total)
	view.DisplayTotal, _ = rates.Display(view.Total, 1, currency)

	writeJSON(w, status, view)
}

func (h *Cart) count(op string, err error) {
	if h.metrics == nil {
		return
	}
	outcome := metrics.Outcome(err)
	if cart.IsRejected(err) {
		outcome = "rejected"
	}
	h.metrics.CartOperations.WithLabelValues(op, outcome).Inc()
}
