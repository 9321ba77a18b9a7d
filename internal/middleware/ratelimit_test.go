package middleware

import (
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"
)

func fixedLimiter(every time.Duration, burst int) (*RateLimiter, *time.Time) {
	rl := NewRateLimiter(every, burst)
	now := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	rl.now = func() time.Time { return now }
	return rl, &now
}

func TestRateLimiterAllow(t *testing.T) {
	rl, _ := fixedLimiter(time.Minute, 5)

	for i := 0; i < 5; i++ {
		if !rl.Allow("key") {
			t.Fatalf("request %d should be allowed", i+1)
		}
	}

	if rl.Allow("key") {
		t.Error("6th request should be denied")
	}
	if !rl.Allow("other") {
		t.Error("other keys have their own bucket")
	}
}

func TestRateLimiterRefill(t *testing.T) {
	rl, now := fixedLimiter(10*time.Second, 1)

	if !rl.Allow("key") {
		t.Fatal("first request should be allowed")
	}
	if rl.Allow("key") {
		t.Error("should be blocked until a token refills")
	}

	*now = now.Add(10 * time.Second)
	if !rl.Allow("key") {
		t.Error("should be allowed after refill")
	}
}

func TestRateLimiterCleanup(t *testing.T) {
	rl, now := fixedLimiter(time.Minute, 5)

	rl.Allow("expired")
	*now = now.Add(20 * time.Minute)
	rl.Allow("active")

	rl.Cleanup(10 * time.Minute)

	rl.mu.Lock()
	defer rl.mu.Unlock()
	if _, ok := rl.entries["expired"]; ok {
		t.Error("idle entry should have been cleaned up")
	}
	if _, ok := rl.entries["active"]; !ok {
		t.Error("active entry should still exist")
	}
}

func TestRateLimitMiddleware(t *testing.T) {
	rl, _ := fixedLimiter(time.Minute, 2)
	keyFunc := func(r *http.Request) string { return "test" }

	handler := RateLimit(rl, keyFunc)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	// First 2 requests should pass
	for i := 0; i < 2; i++ {
		req := httptest.NewRequest("POST", "/", nil)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Errorf("request %d: status = %d, want %d", i+1, rec.Code, http.StatusOK)
		}
	}

	// 3rd request should be rate limited
	req := httptest.NewRequest("POST", "/", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusTooManyRequests {
		t.Errorf("3rd request: status = %d, want %d", rec.Code, http.StatusTooManyRequests)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type = %q, want application/json", ct)
	}
}

func TestRealIP(t *testing.T) {
	proxies, err := NewClientIP([]string{"10.0.0.0/8", "3.3.3.3"})
	if err != nil {
		t.Fatal(err)
	}
	tests := []struct {
		name    string
		resolve *ClientIP
		headers map[string]string
		remote  string
		want    string
	}{
		{"no proxies ignores cloudflare", nil, map[string]string{"CF-Connecting-IP": "1.1.1.1"}, "3.3.3.3:1234", "3.3.3.3"},
		{"no proxies ignores forwarded", &ClientIP{}, map[string]string{"X-Forwarded-For": "2.2.2.2"}, "3.3.3.3:1234", "3.3.3.3"},
		{"untrusted peer ignores headers", proxies, map[string]string{"X-Forwarded-For": "2.2.2.2"}, "4.4.4.4:1234", "4.4.4.4"},
		{"trusted cloudflare", proxies, map[string]string{"CF-Connecting-IP": "1.1.1.1", "X-Forwarded-For": "2.2.2.2"}, "3.3.3.3:1234", "1.1.1.1"},
		{"trusted chain skips inner proxies", proxies, map[string]string{"X-Forwarded-For": "9.9.9.9, 2.2.2.2, 10.0.0.1"}, "3.3.3.3:1234", "2.2.2.2"},
		{"trusted peer without headers", proxies, nil, "10.1.2.3:1234", "10.1.2.3"},
		{"remote addr", nil, nil, "5.5.5.5:1234", "5.5.5.5"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", "/", nil)
			req.RemoteAddr = tt.remote
			for k, v := range tt.headers {
				req.Header.Set(k, v)
			}
			if got := tt.resolve.RealIP(req); got != tt.want {
				t.Errorf("RealIP = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestNewClientIPRejectsGarbage(t *testing.T) {
	if _, err := NewClientIP([]string{"not-an-ip"}); err == nil {
		t.Error("expected error for invalid proxy")
	}
	if _, err := NewClientIP([]string{"10.0.0.0/33"}); err == nil {
		t.Error("expected error for invalid prefix")
	}
}

func TestRateLimitIgnoresSpoofedForwarding(t *testing.T) {
	limiter := NewRateLimiter(time.Hour, 2)
	var keyer *ClientIP
	h := RateLimit(limiter, keyer.RealIP)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	codes := make([]int, 0, 3)
	for i, spoof := range []string{"1.1.1.1", "2.2.2.2", "3.3.3.3"} {
		req := httptest.NewRequest("POST", "/auth/login", nil)
		req.RemoteAddr = "203.0.113.7:" + strconv.Itoa(4000+i)
		req.Header.Set("X-Forwarded-For", spoof)
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		codes = append(codes, rec.Code)
	}
	if codes[2] != http.StatusTooManyRequests {
		t.Errorf("codes = %v, third request should be limited", codes)
	}
}
