// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package handlers

import (
	"net/http"
	"strconv"
	"strings"
)

// Pagination limits for list endpoints.
const (
	defaultPageSize = 20
	maxPageSize     = 100
)

// pageParams reads ?limit= and ?offset= and returns the first error found.
func pageParams(r *http.Request) (limit, offset int, errMsg string) {
	limit, offset = defaultPageSize, 0

	if raw := strings.TrimSpace(r.URL.Query().Get("limit")); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			return 0, 0, "Limit must be a positive number."
		}
		if n > maxPageSize {
			n = maxPageSize
		}
		limit = n
	}

	if raw := strings.TrimSpace(r.URL.Query().Get("offset")); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			return 0, 0, "Offset must be zero or more."
		}
		offset = n
	}

	return limit, offset, ""
}
