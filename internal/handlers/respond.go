// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package handlers contains the HTTP handlers for the marketsite JSON API.
// Handlers are grouped by concern (documents, cart, catalogue, affiliates,
// newsletter, profile) and receive their dependencies through the
// handler struct.
package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"marketsite/internal/validation"
)

// maxJSONBody caps JSON request bodies.
const maxJSONBody = 1 << 20

// writeJSON writes v as a JSON response with the given status.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Warn("encode response failed", "error", err)
	}
}

// writeError writes {"error": msg}. Clients show msg to the user verbatim.
func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// serverError logs err and writes a generic 500.
func serverError(w http.ResponseWriter, msg string, err error, args ...any) {
	slog.Error(msg, append([]any{"error", err}, args...)...)
	writeError(w, http.StatusInternalServerError, "Something went wrong. Please try again.")
}

// normalizer is implemented by request bodies that tidy their fields
// before validation.
type normalizer interface {
	normalize()
}

// decodeJSON reads a JSON body into dst, normalizes it and validates it.
// On failure it writes the error response and returns false.
func decodeJSON(w http.ResponseWriter, r *http.Request, v *validation.Validator, dst any) bool {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxJSONBody))
	if err := dec.Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON body.")
		return false
	}
	if n, ok := dst.(normalizer); ok {
		n.normalize()
	}
	if v == nil {
		return true
	}
	if err := v.Validate(dst); err != nil {
		var fields validation.FieldErrors
		if errors.As(err, &fields) {
			writeError(w, http.StatusUnprocessableEntity, fields.First())
			return false
		}
		writeError(w, http.StatusBadRequest, fmt.Sprintf("Invalid request: %v", err))
		return false
	}
	return true
}
