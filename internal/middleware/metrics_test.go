// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"marketsite/internal/metrics"
)

func TestMetricsUsesRoutePattern(t *testing.T) {
	m := metrics.New()

	r := chi.NewRouter()
	r.Use(Metrics(m))
	r.Get("/api/posts/{slug}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})

	for _, path := range []string{"/api/posts/a", "/api/posts/b"} {
		r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, path, nil))
	}

	got := testutil.ToFloat64(m.HTTPRequests.WithLabelValues("GET", "/api/posts/{slug}", "404"))
	if got != 2 {
		t.Errorf("requests for pattern: got %v, want 2", got)
	}
}

func TestResponseWriterFlush(t *testing.T) {
	rr := httptest.NewRecorder()
	rw := wrap(rr)
	rw.Write([]byte("data: x\n\n"))
	rw.Flush()

	if !rr.Flushed {
		t.Error("Flush was not passed through")
	}
	if wrap(rw) != rw {
		t.Error("wrap should reuse an existing wrapper")
	}
}
