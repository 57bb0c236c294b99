package middleware

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/platinummonkey/capsule/pkg/observability"
)

func newTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return mr, client
}

func TestRateLimiterAllow(t *testing.T) {
	_, client := newTestRedis(t)
	rl := NewRateLimiter(client, &RateLimitConfig{RequestsPerWindow: 3, WindowDuration: time.Minute}, "test")

	ctx := context.Background()
	for i := 0; i < 3; i++ {
		allowed, err := rl.Allow(ctx, "ip:1.2.3.4")
		require.NoError(t, err)
		assert.True(t, allowed, "request %d should be allowed", i+1)
	}

	allowed, err := rl.Allow(ctx, "ip:1.2.3.4")
	require.NoError(t, err)
	assert.False(t, allowed, "fourth request should be limited")

	// A different client is unaffected
	allowed, err = rl.Allow(ctx, "ip:5.6.7.8")
	require.NoError(t, err)
	assert.True(t, allowed)
}

func TestRateLimiterWindowReset(t *testing.T) {
	mr, client := newTestRedis(t)
	rl := NewRateLimiter(client, &RateLimitConfig{RequestsPerWindow: 1, WindowDuration: time.Minute}, "test")

	ctx := context.Background()
	allowed, err := rl.Allow(ctx, "ip:1.2.3.4")
	require.NoError(t, err)
	assert.True(t, allowed)

	allowed, err = rl.Allow(ctx, "ip:1.2.3.4")
	require.NoError(t, err)
	assert.False(t, allowed)

	mr.FastForward(time.Minute + time.Second)

	allowed, err = rl.Allow(ctx, "ip:1.2.3.4")
	require.NoError(t, err)
	assert.True(t, allowed, "new window should start after expiry")
}

func TestRateLimiterFailsOpen(t *testing.T) {
	mr, client := newTestRedis(t)
	rl := NewRateLimiter(client, DefaultRateLimitConfig(), "test")
	mr.Close()

	allowed, err := rl.Allow(context.Background(), "ip:1.2.3.4")
	assert.Error(t, err)
	assert.True(t, allowed, "redis outage must not block requests")
}

func TestRateLimitMiddleware(t *testing.T) {
	_, client := newTestRedis(t)
	logger := observability.NewLogger(observability.ErrorLevel, io.Discard)
	mw := NewRateLimitMiddleware(client, &RateLimitConfig{RequestsPerWindow: 2, WindowDuration: time.Minute}, logger)

	handler := mw.Handler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	do := func() *httptest.ResponseRecorder {
		req := httptest.NewRequest("POST", "/register", nil)
		req.RemoteAddr = "1.2.3.4:5555"
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		return rec
	}

	rec := do()
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "2", rec.Header().Get("X-RateLimit-Limit"))
	assert.Equal(t, "1", rec.Header().Get("X-RateLimit-Remaining"))

	rec = do()
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "0", rec.Header().Get("X-RateLimit-Remaining"))

	rec = do()
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("Retry-After"))
}

func TestRateLimitMiddlewareFailsOpen(t *testing.T) {
	mr, client := newTestRedis(t)
	logger := observability.NewLogger(observability.ErrorLevel, io.Discard)
	mw := NewRateLimitMiddleware(client, DefaultRateLimitConfig(), logger)
	mr.Close()

	handler := mw.Handler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest("POST", "/register", nil)
	req.RemoteAddr = "1.2.3.4:5555"
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestGetClientIP(t *testing.T) {
	tests := []struct {
		name     string
		remote   string
		headers  map[string]string
		expected string
	}{
		{
			name:     "remote addr only",
			remote:   "10.0.0.1:9999",
			expected: "10.0.0.1",
		},
		{
			name:     "x-forwarded-for single",
			remote:   "10.0.0.1:9999",
			headers:  map[string]string{"X-Forwarded-For": "203.0.113.7"},
			expected: "203.0.113.7",
		},
		{
			name:     "x-forwarded-for chain keeps first hop",
			remote:   "10.0.0.1:9999",
			headers:  map[string]string{"X-Forwarded-For": "203.0.113.7, 70.41.3.18"},
			expected: "203.0.113.7",
		},
		{
			name:     "x-real-ip",
			remote:   "10.0.0.1:9999",
			headers:  map[string]string{"X-Real-IP": "203.0.113.9"},
			expected: "203.0.113.9",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", "/", nil)
			req.RemoteAddr = tt.remote
			for k, v := range tt.headers {
				req.Header.Set(k, v)
			}
			assert.Equal(t, tt.expected, getClientIP(req))
		})
	}
}
