package app

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"innkeep/pkg/client"
	"innkeep/pkg/config"
	"innkeep/pkg/logger"

	"github.com/julienschmidt/httprouter"
)

type routes func(*httprouter.Router)

func (f routes) RegisterRoutes(r *httprouter.Router) { f(r) }

func testConfig() *config.Config {
	return &config.Config{
		Port:              "8080",
		RateLimitRequests: 100,
		RateLimitWindow:   config.DefaultRateLimitWindow,
		RequestTimeout:    config.DefaultRequestTimeout,
		IdempotencyTTL:    config.DefaultIdempotencyTTL,
		MaxRequestSize:    1024,
		ReadTimeout:       config.DefaultReadTimeout,
		WriteTimeout:      config.DefaultWriteTimeout,
		IdleTimeout:       config.DefaultIdleTimeout,
		ShutdownTimeout:   config.DefaultShutdownTimeout,
		Log: logger.Discard(),
		Client: client.NewClient(),
	}
}

func TestApplication_Routing(t *testing.T) {
	health := routes(func(r *httprouter.Router) {
		r.GET("/health", func(w http.ResponseWriter, _ *http.Request, _ httprouter.Params) {
			w.WriteHeader(http.StatusOK)
		})
		r.GET("/ready", func(w http.ResponseWriter, _ *http.Request, _ httprouter.Params) {
			w.WriteHeader(http.StatusServiceUnavailable)
		})
	})
	api := routes(func(r *httprouter.Router) {
		r.POST("/api/v1/rooms", func(w http.ResponseWriter, _ *http.Request, _ httprouter.Params) {
			w.WriteHeader(http.StatusCreated)
		})
	})

	a := NewApplication(testConfig())
	a.SetApp(health, api)
	defer a.idempotencyStore.Stop()
	defer a.rateLimiter.Stop()

	tests := []struct {
		name        string
		method      string
		path        string
		contentType string
		wantStatus  int
	}{
		{"health", http.MethodGet, "/health", "", http.StatusOK},
		{"ready", http.MethodGet, "/ready", "", http.StatusServiceUnavailable},
		{"api with json", http.MethodPost, "/api/v1/rooms", "application/json", http.StatusCreated},
		{"api rejects other content types", http.MethodPost, "/api/v1/rooms", "text/plain", http.StatusUnsupportedMediaType},
		{"unknown route", http.MethodGet, "/api/v1/nothing", "", http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, tt.path, strings.NewReader("{}"))
			if tt.contentType != "" {
				req.Header.Set("Content-Type", tt.contentType)
			}
			w := httptest.NewRecorder()
			a.Handler().ServeHTTP(w, req)
			if w.Code != tt.wantStatus {
				t.Errorf("expected %d, got %d", tt.wantStatus, w.Code)
			}
		})
	}
}
