// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package middleware

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
)

func TestRecovererPanics(t *testing.T) {
	values := map[string]any{
		"string": "boom",
		"error":  errors.New("nil map write"),
		"int":    42,
	}
	for name, v := range values {
		t.Run(name, func(t *testing.T) {
			captureLogs(t)
			h := Recoverer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				panic(v)
			}))
			rr := httptest.NewRecorder()
			h.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/api/cart/items", nil))

			if rr.Code != http.StatusInternalServerError {
				t.Fatalf("status: got %d, want 500", rr.Code)
			}
			var body map[string]string
			if err := json.NewDecoder(rr.Body).Decode(&body); err != nil {
				t.Fatalf("decode: %v", err)
			}
			if body["error"] != panicMessage {
				t.Errorf("error = %q, want %q", body["error"], panicMessage)
			}
		})
	}
}

func TestRecovererLogsContext(t *testing.T) {
	logs := captureLogs(t)

	r := chi.NewRouter()
	r.Use(RequestID)
	r.Use(Recoverer)
	r.Delete("/api/posts/{slug}", func(w http.ResponseWriter, r *http.Request) {
		panic("storage vanished")
	})

	req := httptest.NewRequest(http.MethodDelete, "/api/posts/launch", nil)
	req.Header.Set(RequestIDHeader, "trace-7")
	r.ServeHTTP(httptest.NewRecorder(), req)

	entry := lastEntry(t, logs)
	if entry["msg"] != "panic recovered" || entry["level"] != "ERROR" {
		t.Fatalf("entry = %v", entry)
	}
	if entry["route"] != "/api/posts/{slug}" || entry["request_id"] != "trace-7" {
		t.Errorf("route = %v, request_id = %v", entry["route"], entry["request_id"])
	}
	if stack, _ := entry["stack"].(string); !strings.Contains(stack, "goroutine") {
		t.Error("stack trace missing")
	}
}

func TestRecovererAfterPartialWrite(t *testing.T) {
	captureLogs(t)
	h := Recoverer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		w.Write([]byte("event: ready\n\n"))
		panic("stream broke")
	}))
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/cart/events", nil))

	if rr.Code != http.StatusOK {
		t.Errorf("status: got %d, want the already-sent 200", rr.Code)
	}
	if strings.Contains(rr.Body.String(), panicMessage) {
		t.Error("error body must not be appended to a started response")
	}
}

func TestRecovererReraisesAbort(t *testing.T) {
	h := Recoverer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic(http.ErrAbortHandler)
	}))

	defer func() {
		if rec := recover(); rec != http.ErrAbortHandler {
			t.Errorf("recovered %v, want http.ErrAbortHandler", rec)
		}
	}()
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	t.Error("ServeHTTP should have panicked")
}

func TestRecovererPassThrough(t *testing.T) {
	h := Recoverer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Cart", "abc")
		w.WriteHeader(http.StatusCreated)
		w.Write([]byte("ok"))
	}))
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/api/cart/items", nil))

	if rr.Code != http.StatusCreated || rr.Body.String() != "ok" || rr.Header().Get("X-Cart") != "abc" {
		t.Errorf("got %d %q %q", rr.Code, rr.Body.String(), rr.Header().Get("X-Cart"))
	}
}
