package httpapi

import (
	"net/http"
	"testing"
)

func TestTokenLimiterBurst(t *testing.T) {
	limiter := newTokenLimiter(60, 3)
	for i := 0; i < 3; i++ {
		if !limiter.allow("10.0.0.1") {
			t.Fatalf("request %d within burst was rejected", i+1)
		}
	}
	if limiter.allow("10.0.0.1") {
		t.Fatal("request beyond burst was allowed")
	}
	// Other keys have their own bucket.
	if !limiter.allow("10.0.0.2") {
		t.Fatal("fresh key was rejected")
	}
}

func TestRateLimiterMiddleware(t *testing.T) {
	limiter := NewRateLimiter(RateLimitConfig{IPPerMinute: 60, IPBurst: 1})
	server := limiter.Middleware(newTestServer(fakeEngine{}, citizenSessions()))

	rec := doRequest(t, server, http.MethodGet, "/healthz", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("first request status=%d", rec.Code)
	}
	rec = doRequest(t, server, http.MethodGet, "/healthz", "", nil)
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("second request status=%d, want 429", rec.Code)
	}
}
