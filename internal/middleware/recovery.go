// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package middleware

import (
	"log/slog"
	"net/http"
	"runtime/debug"
)

// panicMessage is what clients see; details stay in the log.
const panicMessage = "Something went wrong. Please try again."

// Recoverer turns a handler panic into a logged 500. When the handler
// already started the response (an event stream, for instance) nothing
// more is written. http.ErrAbortHandler is re-raised so net/http can
// drop the connection quietly.
func Recoverer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		wrapped := wrap(w)
		defer func() {
			rec := recover()
			if rec == nil {
				return
			}
			if rec == http.ErrAbortHandler {
				panic(rec)
			}

			slog.Error("panic recovered",
				"error", rec,
				"method", r.Method,
				"route", routePattern(r),
				"request_id", RequestIDFromCtx(r.Context()),
				"stack", string(debug.Stack()),
			)
			if wrapped.written {
				return
			}
			writeError(wrapped, http.StatusInternalServerError, panicMessage)
		}()
		next.ServeHTTP(wrapped, r)
	})
}
