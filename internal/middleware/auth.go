// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package middleware

import (
	"context"
	"log/slog"
	"net/http"

	"marketsite/internal/session"
)

// contextKey is an unexported type for context keys to prevent collisions.
type contextKey string

// SessionKey is the context key LoadSession stores session data under.
const SessionKey contextKey = "session"

// LoadSession attaches the caller's session, when there is one, to the
// request context. It never rejects a request: a Valkey failure is logged
// and the request continues anonymously, so public reads and carts keep
// working while sessions are unavailable.
func LoadSession(store *session.Store) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			data, err := store.Get(r.Context(), r)
			if err != nil {
				slog.Warn("session lookup failed", "error", err, "request_id", RequestIDFromCtx(r.Context()))
			}
			if data != nil {
				r = r.WithContext(WithSession(r.Context(), data))
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequireAuth answers 401 when no session was loaded.
func RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if SessionFromCtx(r.Context()) == nil {
			writeError(w, http.StatusUnauthorized, "Please sign in to continue.")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RequirePublisher lets editors and admins through.
var RequirePublisher = requireRole((*session.Data).CanPublish, "Only editors and admins can publish.")

// RequireAdmin lets admins through.
var RequireAdmin = requireRole((*session.Data).IsAdmin, "This action needs an admin account.")

// requireRole answers 403 with msg unless allowed accepts the session.
// It runs after RequireAuth, so a missing session is also refused.
func requireRole(allowed func(*session.Data) bool, msg string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sess := SessionFromCtx(r.Context())
			if sess == nil || !allowed(sess) {
				writeError(w, http.StatusForbidden, msg)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// WithSession returns ctx carrying data, as LoadSession stores it.
func WithSession(ctx context.Context, data *session.Data) context.Context {
	return context.WithValue(ctx, SessionKey, data)
}

// SessionFromCtx returns the loaded session, or nil for anonymous callers.
func SessionFromCtx(ctx context.Context) *session.Data {
	data, _ := ctx.Value(SessionKey).(*session.Data)
	return data
}
