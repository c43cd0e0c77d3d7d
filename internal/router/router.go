// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package router sets up all HTTP routes and middleware chains for the
// marketsite API. Reads are public; writes are grouped behind the auth
// guards they need.
package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"marketsite/internal/handlers"
	"marketsite/internal/metrics"
	"marketsite/internal/middleware"
	"marketsite/internal/session"
)

// Deps carries everything the routes are wired to. Sessions and Metrics
// may be nil, which disables session loading and request metrics.
type Deps struct {
	Sessions  *session.Store
	Metrics   *metrics.Metrics
	Documents *handlers.Documents
	Cart      *handlers.Cart
	Catalogue *handlers.Catalogue
	Marketing *handlers.Marketing
	Profile   *handlers.Profile

	// SignupLimiter throttles the public affiliate and newsletter forms.
	SignupLimiter *middleware.RateLimiter

	// HSTS adds Strict-Transport-Security to every response.
	HSTS bool
}

// New creates and returns the configured Chi router with all middleware
// and route groups wired up.
func New(d Deps) chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Logger)
	if d.Metrics != nil {
		r.Use(middleware.Metrics(d.Metrics))
	}
	r.Use(middleware.SecureHeaders(d.HSTS))
	if d.Sessions != nil {
		r.Use(middleware.LoadSession(d.Sessions))
	}

	r.Get("/health", healthHandler)
	if d.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", d.Metrics.Handler())
	}

	r.Route("/api", func(r chi.Router) {
		// Posts and stories share one set of routes.
		r.Route("/{kind:posts|stories}", func(r chi.Router) {
			r.Get("/", d.Documents.List)
			r.Get("/{slug}", d.Documents.Get)
			r.Get("/{slug}/html", d.Documents.HTML)

			r.Group(func(r chi.Router) {
				r.Use(middleware.RequireAuth)
				r.Use(middleware.RequirePublisher)
				r.Post("/", d.Documents.Create)
				r.Put("/{slug}", d.Documents.Replace)
				r.Delete("/{slug}", d.Documents.Delete)
				r.Get("/{slug}/media", d.Documents.Media)
			})
		})

		r.Route("/cart", func(r chi.Router) {
			r.Get("/", d.Cart.Get)
			r.Get("/events", d.Cart.Events)
			r.Post("/items", d.Cart.Add)
			r.Patch("/items", d.Cart.Update)
			r.Delete("/items", d.Cart.Remove)
			r.Post("/checkout", d.Cart.Checkout)
			r.Post("/buy-now", d.Cart.BuyNow)
		})

		r.Route("/products", func(r chi.Router) {
			r.Get("/", d.Catalogue.ListProducts)
			r.Get("/{id}", d.Catalogue.GetProduct)

			r.Group(func(r chi.Router) {
				r.Use(middleware.RequireAuth)
				r.Use(middleware.RequireAdmin)
				r.Post("/", d.Catalogue.CreateProduct)
				r.Put("/{id}", d.Catalogue.UpdateProduct)
			})
		})
		r.Post("/stock/check", d.Catalogue.CheckStock)
		r.Get("/rates", d.Catalogue.Rates)

		// Public sign-up forms.
		r.Group(func(r chi.Router) {
			if d.SignupLimiter != nil {
				r.Use(d.SignupLimiter.Middleware)
			}
			r.Post("/affiliates", d.Marketing.JoinAffiliates)
			r.Post("/newsletter", d.Marketing.Subscribe)
			r.Post("/newsletter/unsubscribe", d.Marketing.Unsubscribe)
		})
		r.With(middleware.RequireAuth).Get("/affiliates/{code}/summary", d.Marketing.AffiliateSummary)

		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireAuth)
			r.Use(middleware.RequireAdmin)
			r.Post("/affiliates/{code}/commissions", d.Marketing.RecordCommission)
			r.Patch("/commissions/{id}", d.Marketing.SetCommissionStatus)
		})

		r.Route("/profile", func(r chi.Router) {
			r.Use(middleware.RequireAuth)
			r.Get("/", d.Profile.Me)
			r.Post("/verification", d.Profile.StartVerification)
			r.Post("/verification/confirm", d.Profile.ConfirmVerification)
		})
	})

	return r
}

// healthHandler returns a simple JSON health check response.
func healthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"ok"}`))
}
