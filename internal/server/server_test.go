package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"boutique/internal/config"
	"boutique/internal/metrics"
	"boutique/internal/middleware"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

func testConfig() *config.Config {
	return &config.Config{
		Server: config.ServerConfig{
			Port:           "0",
			Env:            "production",
			AllowedOrigins: []string{"http://localhost:5173"},
		},
		JWT: config.JWTConfig{Secret: "server-test-secret"},
	}
}

func serve(h http.Handler, method, path string, header http.Header) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader("{}"))
	req.Header.Set("Content-Type", "application/json")
	for k, v := range header {
		req.Header[k] = v
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func TestHealth_ReportsDatabaseState(t *testing.T) {
	tests := []struct {
		name       string
		stats      map[string]string
		wantCode   int
		wantStatus string
	}{
		{"up", map[string]string{"status": "up", "open_connections": "1"}, http.StatusOK, "ok"},
		{"down", map[string]string{"status": "down", "error": "db down: refused"}, http.StatusServiceUnavailable, "unavailable"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router := NewRouter(testConfig(), zap.NewNop(), Services{}, RouterOptions{
				Health: func() map[string]string { return tt.stats },
			})

			w := serve(router, http.MethodGet, "/health", nil)
			if w.Code != tt.wantCode {
				t.Fatalf("Expected %d, got %d", tt.wantCode, w.Code)
			}

			var body struct {
				Status   string            `json:"status"`
				Database map[string]string `json:"database"`
			}
			if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
				t.Fatalf("Failed to decode health body: %v", err)
			}
			if body.Status != tt.wantStatus || body.Database["status"] != tt.stats["status"] {
				t.Errorf("Unexpected health body: %s", w.Body.String())
			}
		})
	}
}

func TestRouter_UnknownRouteUsesErrorEnvelope(t *testing.T) {
	router := NewRouter(testConfig(), zap.NewNop(), Services{}, RouterOptions{})

	w := serve(router, http.MethodGet, "/api/nope", nil)
	if w.Code != http.StatusNotFound {
		t.Fatalf("Expected 404, got %d", w.Code)
	}

	var env middleware.ErrorResponse
	if err := json.Unmarshal(w.Body.Bytes(), &env); err != nil {
		t.Fatalf("Failed to decode envelope: %v", err)
	}
	if env.Success || env.Code != "Not Found" || env.Timestamp == "" {
		t.Errorf("Unexpected envelope: %+v", env)
	}
	if !strings.HasPrefix(w.Header().Get("Content-Type"), "application/json") {
		t.Errorf("Expected JSON error response, got %q", w.Header().Get("Content-Type"))
	}
}

func TestRouter_ProtectedRoutesNeedToken(t *testing.T) {
	router := NewRouter(testConfig(), zap.NewNop(), Services{}, RouterOptions{})

	for _, route := range []struct{ method, path string }{
		{http.MethodPost, "/api/orders"},
		{http.MethodGet, "/api/orders/1"},
		{http.MethodPost, "/api/products"},
		{http.MethodPost, "/api/reviews"},
		{http.MethodGet, "/api/admin/products/export"},
		{http.MethodGet, "/api/me"},
	} {
		if w := serve(router, route.method, route.path, nil); w.Code != http.StatusUnauthorized {
			t.Errorf("%s %s: expected 401, got %d", route.method, route.path, w.Code)
		}
	}
}

func TestRouter_CORSPreflight(t *testing.T) {
	router := NewRouter(testConfig(), zap.NewNop(), Services{}, RouterOptions{})

	w := serve(router, http.MethodOptions, "/api/orders", http.Header{
		"Origin":                         {"http://localhost:5173"},
		"Access-Control-Request-Method":  {"POST"},
		"Access-Control-Request-Headers": {"Authorization, Idempotency-Key"},
	})

	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "http://localhost:5173" {
		t.Errorf("Expected allowed origin echoed, got %q", got)
	}
	if got := strings.ToLower(w.Header().Get("Access-Control-Allow-Headers")); !strings.Contains(got, "idempotency-key") {
		t.Errorf("Expected Idempotency-Key to be allowed, got %q", got)
	}
}

func TestRouter_ExposesMetrics(t *testing.T) {
	m := metrics.New()
	router := NewRouter(testConfig(), zap.NewNop(), Services{}, RouterOptions{Metrics: m})

	serve(router, http.MethodGet, "/health", nil)

	w := serve(router, http.MethodGet, "/metrics", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200 from /metrics, got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), `http_requests_total{endpoint="/health",method="GET",status="200"} 1`) {
		t.Errorf("Expected /health to be counted, got:\n%s", w.Body.String())
	}
}

func TestRouter_RateLimitsLogin(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	router := NewRouter(testConfig(), zap.NewNop(), Services{}, RouterOptions{
		RateLimit: middleware.RateLimitMiddleware(client, middleware.RateLimitConfig{
			RequestsPerWindow: 2,
			Window:            time.Minute,
			KeyPrefix:         "ratelimit",
		}, zap.NewNop()),
	})

	// an empty body fails validation before any service is touched
	for i := 0; i < 2; i++ {
		if w := serve(router, http.MethodPost, "/api/login", nil); w.Code != http.StatusBadRequest {
			t.Fatalf("Request %d: expected 400, got %d", i+1, w.Code)
		}
	}

	w := serve(router, http.MethodPost, "/api/login", nil)
	if w.Code != http.StatusTooManyRequests {
		t.Fatalf("Expected 429, got %d", w.Code)
	}
	if w.Header().Get("Retry-After") == "" {
		t.Error("Expected Retry-After header")
	}

	// refresh is not rate limited
	if w := serve(router, http.MethodPost, "/api/refresh", nil); w.Code != http.StatusBadRequest {
		t.Errorf("Expected refresh to pass through, got %d", w.Code)
	}
}
