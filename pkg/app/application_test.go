package app

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/julienschmidt/httprouter"

	"rentals/pkg/client"
	"rentals/pkg/config"
	"rentals/pkg/logger"
	"rentals/pkg/middleware"
)

type routesFunc func(*httprouter.Router)

func (f routesFunc) RegisterRoutes(r *httprouter.Router) { f(r) }

func newTestApplication(t *testing.T) *Application {
	t.Helper()
	cfg := &config.Config{
		Port:              "8080",
		RateLimitRequests: 2,
		RateLimitWindow:   time.Minute,
		RequestTimeout:    time.Second,
		IdempotencyTTL:    time.Hour,
		MaxRequestSize:    1024,
		ShutdownTimeout:   time.Second,
		Log:               logger.Discard(),
		Client:            client.NewClient(),
	}

	health := routesFunc(func(r *httprouter.Router) {
		r.GET("/health", func(w http.ResponseWriter, _ *http.Request, _ httprouter.Params) {
			w.WriteHeader(http.StatusOK)
		})
	})
	api := routesFunc(func(r *httprouter.Router) {
		r.GET("/api/v1/ping", func(w http.ResponseWriter, _ *http.Request, _ httprouter.Params) {
			w.WriteHeader(http.StatusNoContent)
		})
		r.GET("/api/v1/panic", func(http.ResponseWriter, *http.Request, httprouter.Params) {
			panic("boom")
		})
	})

	a := NewApplication(cfg)
	a.SetApp(health, api)
	t.Cleanup(a.Shutdown)
	return a
}

func serve(a *Application, path, actor string) int {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if actor != "" {
		req.Header.Set(middleware.ActorHeader, actor)
	}
	w := httptest.NewRecorder()
	a.Handler().ServeHTTP(w, req)
	return w.Code
}

func TestMiddlewareStack(t *testing.T) {
	a := newTestApplication(t)

	tests := []struct {
		name  string
		path  string
		actor string
		want  int
	}{
		{"health needs no actor", "/health", "", http.StatusOK},
		{"api needs actor", "/api/v1/ping", "", http.StatusUnauthorized},
		{"api with actor", "/api/v1/ping", "u-1", http.StatusNoContent},
		{"panic inside timeout is recovered", "/api/v1/panic", "u-2", http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := serve(a, tt.path, tt.actor); got != tt.want {
				t.Errorf("expected %d, got %d", tt.want, got)
			}
		})
	}
}

func TestRateLimitPerActor(t *testing.T) {
	a := newTestApplication(t)

	for i := 0; i < 2; i++ {
		if got := serve(a, "/api/v1/ping", "u-1"); got != http.StatusNoContent {
			t.Fatalf("request %d: expected 204, got %d", i+1, got)
		}
	}
	if got := serve(a, "/api/v1/ping", "u-1"); got != http.StatusTooManyRequests {
		t.Errorf("third request should be rate limited, got %d", got)
	}
	if got := serve(a, "/api/v1/ping", "u-3"); got != http.StatusNoContent {
		t.Errorf("another actor should not be limited, got %d", got)
	}
}

func TestOnShutdownRunsClosers(t *testing.T) {
	a := newTestApplication(t)
	var order []string
	a.OnShutdown("first", func() error { order = append(order, "first"); return nil })
	a.OnShutdown("second", func() error { order = append(order, "second"); return nil })

	a.Shutdown()

	if len(order) != 2 || order[0] != "first" || order[1] != "second" {
		t.Errorf("closers ran as %v", order)
	}
}
