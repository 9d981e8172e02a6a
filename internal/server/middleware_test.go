package server

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"golang.org/x/time/rate"
)

func TestRateLimitMiddleware(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	mw := NewRateLimitMiddleware(rate.Limit(0.001), 2, logger)
	handler := mw(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	send := func(ip string) int {
		req := httptest.NewRequest("GET", "/health", nil)
		req.RemoteAddr = ip
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, req)
		return rr.Code
	}

	for i := 0; i < 2; i++ {
		if code := send("10.0.0.1"); code != http.StatusOK {
			t.Fatalf("Request %d: expected status 200, got %d", i+1, code)
		}
	}

	if code := send("10.0.0.1"); code != http.StatusTooManyRequests {
		t.Errorf("Expected status 429 after burst, got %d", code)
	}

	// Limits are per IP
	if code := send("10.0.0.2"); code != http.StatusOK {
		t.Errorf("Expected other IP to be allowed, got %d", code)
	}
}

func TestRateLimiter_ReusesLimiterPerIP(t *testing.T) {
	rl := NewRateLimiter(rate.Limit(1), 1)

	if rl.GetLimiter("a") != rl.GetLimiter("a") {
		t.Error("Expected the same limiter for the same IP")
	}
	if rl.GetLimiter("a") == rl.GetLimiter("b") {
		t.Error("Expected different limiters for different IPs")
	}
}
