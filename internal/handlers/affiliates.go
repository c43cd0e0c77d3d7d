// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"marketsite/internal/middleware"
	"marketsite/internal/models"
	"marketsite/internal/store"
	"marketsite/internal/validation"
)

// DefaultCommissionRate applies to affiliates who sign up themselves.
const DefaultCommissionRate = 0.10

// AffiliateRepo persists affiliates and their commissions.
type AffiliateRepo interface {
	Create(ctx context.Context, name, email string, rate float64) (*models.Affiliate, error)
	RecordCommission(ctx context.Context, code, orderRef string, orderTotal float64) (*models.Commission, error)
	SetCommissionStatus(ctx context.Context, id uuid.UUID, status models.CommissionStatus) (bool, error)
	Summary(ctx context.Context, code string) (*models.AffiliateSummary, error)
}

// SubscriberRepo persists newsletter subscriptions.
type SubscriberRepo interface {
	Subscribe(ctx context.Context, email string) (*models.Subscriber, string, error)
	Unsubscribe(ctx context.Context, id uuid.UUID, token string) (bool, error)
}

// Marketing serves the affiliate program and the newsletter.
type Marketing struct {
	affiliates  AffiliateRepo
	subscribers SubscriberRepo
	validator   *validation.Validator
}

// NewMarketing creates the affiliate and newsletter handler.
func NewMarketing(affiliates AffiliateRepo, subscribers SubscriberRepo, v *validation.Validator) *Marketing {
	if v == nil {
		v = validation.New()
	}
	return &Marketing{affiliates: affiliates, subscribers: subscribers, validator: v}
}

type joinRequest struct {
	Name  string `json:"name" validate:"required,max=100"`
	Email string `json:"email" validate:"required,email,max=254"`
}

func (req *joinRequest) normalize() {
	req.Name = strings.TrimSpace(req.Name)
	req.Email = normalizeEmail(req.Email)
}

type commissionRequest struct {
	OrderRef   string  `json:"orderRef" validate:"required,max=100"`
	OrderTotal float64 `json:"orderTotal" validate:"gt=0"`
}

func (req *commissionRequest) normalize() {
	req.OrderRef = strings.TrimSpace(req.OrderRef)
}

type statusRequest struct {
	Status models.CommissionStatus `json:"status" validate:"required,oneof=pending approved paid"`
}

type subscribeRequest struct {
	Email string `json:"email" validate:"required,email,max=254"`
}

func (req *subscribeRequest) normalize() {
	req.Email = normalizeEmail(req.Email)
}

type unsubscribeRequest struct {
	ID    string `json:"id" validate:"required,uuid"`
	Token string `json:"token" validate:"required"`
}

func (req *unsubscribeRequest) normalize() {
	req.ID = strings.TrimSpace(req.ID)
	req.Token = strings.TrimSpace(req.Token)
}

// normalizeEmail lowercases an address and drops surrounding spaces.
func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// JoinAffiliates registers a new affiliate and returns the referral code.
func (h *Marketing) JoinAffiliates(w http.ResponseWriter, r *http.Request) {
	var req joinRequest
	if !decodeJSON(w, r, h.validator, &req) {
		return
	}

	a, err := h.affiliates.Create(r.Context(), req.Name, req.Email, DefaultCommissionRate)
	if errors.Is(err, store.ErrEmailTaken) {
		writeError(w, http.StatusConflict, "That email is already registered as an affiliate.")
		return
	}
	if err != nil {
		serverError(w, "create affiliate failed", err)
		return
	}

	slog.Info("affiliate joined", "code", a.Code)
	writeJSON(w, http.StatusCreated, a)
}

// RecordCommission credits the affiliate named by {code} for one order.
func (h *Marketing) RecordCommission(w http.ResponseWriter, r *http.Request) {
	code := chi.URLParam(r, "code")

	var req commissionRequest
	if !decodeJSON(w, r, h.validator, &req) {
		return
	}

	c, err := h.affiliates.RecordCommission(r.Context(), code, req.OrderRef, req.OrderTotal)
	if errors.Is(err, store.ErrDuplicateCommission) {
		writeError(w, http.StatusConflict, "A commission for this order is already recorded.")
		return
	}
	if err != nil {
		serverError(w, "record commission failed", err, "code", code)
		return
	}
	if c == nil {
		writeError(w, http.StatusNotFound, "Unknown referral code.")
		return
	}

	writeJSON(w, http.StatusCreated, c)
}

// SetCommissionStatus moves a commission through approval and payout.
func (h *Marketing) SetCommissionStatus(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusNotFound, "Commission not found.")
		return
	}

	var req statusRequest
	if !decodeJSON(w, r, h.validator, &req) {
		return
	}

	ok, err := h.affiliates.SetCommissionStatus(r.Context(), id, req.Status)
	if err != nil {
		serverError(w, "set commission status failed", err, "commission_id", id)
		return
	}
	if !ok {
		writeError(w, http.StatusNotFound, "Commission not found.")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// AffiliateSummary returns the totals of the affiliate named by {code}.
// Only the affiliate, signed in with the same email, and admins may read it.
func (h *Marketing) AffiliateSummary(w http.ResponseWriter, r *http.Request) {
	code := chi.URLParam(r, "code")
	sess := middleware.SessionFromCtx(r.Context())
	if sess == nil {
		writeError(w, http.StatusUnauthorized, "Please sign in to continue.")
		return
	}

	sum, err := h.affiliates.Summary(r.Context(), code)
	if err != nil {
		serverError(w, "affiliate summary failed", err, "code", code)
		return
	}
	if sum == nil {
		writeError(w, http.StatusNotFound, "Unknown referral code.")
		return
	}
	if !sess.IsAdmin() && !strings.EqualFold(sess.Email, sum.Email) {
		writeError(w, http.StatusForbidden, "You can only view your own affiliate summary.")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"summary": sum,
		"earned":  sum.Earned(),
	})
}

// Subscribe adds an email to the newsletter. Subscribing twice is not an
// error; the previous token stops working.
func (h *Marketing) Subscribe(w http.ResponseWriter, r *http.Request) {
	var req subscribeRequest
	if !decodeJSON(w, r, h.validator, &req) {
		return
	}

	sub, token, err := h.subscribers.Subscribe(r.Context(), req.Email)
	if err != nil {
		serverError(w, "newsletter subscribe failed", err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"id":      sub.ID.String(),
		"token":   token,
		"message": "Thanks for subscribing!",
	})
}

// Unsubscribe stops the newsletter for the subscriber holding the token.
func (h *Marketing) Unsubscribe(w http.ResponseWriter, r *http.Request) {
	var req unsubscribeRequest
	if !decodeJSON(w, r, h.validator, &req) {
		return
	}

	ok, err := h.subscribers.Unsubscribe(r.Context(), uuid.MustParse(req.ID), req.Token)
	if err != nil {
		serverError(w, "newsletter unsubscribe failed", err)
		return
	}
	if !ok {
		writeError(w, http.StatusNotFound, "This unsubscribe link is not valid.")
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"message": "You have been unsubscribed."})
}
