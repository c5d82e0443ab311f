package health

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/julienschmidt/httprouter"

	"rentals/pkg/logger"
)

func TestReady(t *testing.T) {
	ok := func(context.Context) error { return nil }
	down := func(context.Context) error { return errors.New("connection refused") }

	tests := []struct {
		name       string
		checks     map[string]Check
		wantStatus int
		wantDeps   map[string]string
	}{
		{"no checks", nil, http.StatusOK, nil},
		{"all up", map[string]Check{"mongo": ok, "redis": ok}, http.StatusOK, map[string]string{"mongo": "ok", "redis": "ok"}},
		{"redis down", map[string]Check{"mongo": ok, "redis": down}, http.StatusServiceUnavailable, map[string]string{"mongo": "ok", "redis": "error"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewHealthHandler(logger.Discard())
			for name, check := range tt.checks {
				h.AddCheck(name, check)
			}
			router := httprouter.New()
			h.RegisterRoutes(router)

			w := httptest.NewRecorder()
			router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ready", nil))

			if w.Code != tt.wantStatus {
				t.Fatalf("expected %d, got %d", tt.wantStatus, w.Code)
			}
			var resp HealthResponse
			if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
				t.Fatalf("decode: %v", err)
			}
			for name, want := range tt.wantDeps {
				if resp.Dependencies[name] != want {
					t.Errorf("%s: got %q, want %q", name, resp.Dependencies[name], want)
				}
			}
		})
	}
}

func TestHealth(t *testing.T) {
	h := NewHealthHandler(logger.Discard()).AddCheck("mongo", func(context.Context) error {
		return errors.New("liveness must not ping")
	})
	w := httptest.NewRecorder()
	h.Health(w, httptest.NewRequest(http.MethodGet, "/health", nil), nil)

	if w.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", w.Code)
	}
}
