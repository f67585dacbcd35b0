package handler

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"

	"github.com/segyhp/lending-engine/internal/config"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func TestRateLimiter_Middleware(t *testing.T) {
	tests := []struct {
		name          string
		cfg           config.RateLimitConfig
		requests      int
		expectedCodes []int
	}{
		{
			name:          "burst exhausted",
			cfg:           config.RateLimitConfig{Enabled: true, RPS: 0.001, Burst: 2},
			requests:      3,
			expectedCodes: []int{http.StatusOK, http.StatusOK, http.StatusTooManyRequests},
		},
		{
			name:          "disabled passes everything",
			cfg:           config.RateLimitConfig{Enabled: false, RPS: 0.001, Burst: 1},
			requests:      3,
			expectedCodes: []int{http.StatusOK, http.StatusOK, http.StatusOK},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logger, _ := test.NewNullLogger()
			handler := NewRateLimiter(tt.cfg, logger).Middleware(okHandler())

			codes := make([]int, 0, tt.requests)
			for i := 0; i < tt.requests; i++ {
				req := httptest.NewRequest(http.MethodGet, "/api/v1/loans", nil)
				req.RemoteAddr = "10.0.0.1:5555"
				w := httptest.NewRecorder()
				handler.ServeHTTP(w, req)
				codes = append(codes, w.Code)
			}

			assert.Equal(t, tt.expectedCodes, codes)
		})
	}
}

func TestRateLimiter_ClientsAreIndependent(t *testing.T) {
	logger, _ := test.NewNullLogger()
	handler := NewRateLimiter(config.RateLimitConfig{Enabled: true, RPS: 0.001, Burst: 1}, logger).Middleware(okHandler())

	for _, ip := range []string{"10.0.0.1", "10.0.0.2"} {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("X-Forwarded-For", ip+", 172.16.0.1")
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, req)
		assert.Equal(t, http.StatusOK, w.Code, ip)
	}
}

func TestClientIP(t *testing.T) {
	tests := []struct {
		name     string
		headers  map[string]string
		remote   string
		expected string
	}{
		{name: "forwarded for", headers: map[string]string{"X-Forwarded-For": "1.1.1.1, 2.2.2.2"}, remote: "3.3.3.3:1", expected: "1.1.1.1"},
		{name: "real ip", headers: map[string]string{"X-Real-IP": "4.4.4.4"}, remote: "3.3.3.3:1", expected: "4.4.4.4"},
		{name: "remote addr", remote: "3.3.3.3:1", expected: "3.3.3.3"},
		{name: "remote addr without port", remote: "3.3.3.3", expected: "3.3.3.3"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.RemoteAddr = tt.remote
			for k, v := range tt.headers {
				req.Header.Set(k, v)
			}
			assert.Equal(t, tt.expected, clientIP(req))
		})
	}
}

func TestRateLimiter_Sweep(t *testing.T) {
	logger, _ := test.NewNullLogger()
	rl := NewRateLimiter(config.RateLimitConfig{Enabled: true, RPS: 1, Burst: 1}, logger)

	rl.limiter("idle")
	rl.limiter("busy").Allow()

	rl.sweep(time.Now())

	_, idle := rl.limiters.Load("idle")
	_, busy := rl.limiters.Load("busy")
	assert.False(t, idle)
	assert.True(t, busy)

	rl.sweep(time.Now().Add(2 * time.Second))
	_, busy = rl.limiters.Load("busy")
	assert.False(t, busy)
}

func TestRateLimiter_CleanupStops(t *testing.T) {
	logger, _ := test.NewNullLogger()
	rl := NewRateLimiter(config.RateLimitConfig{Enabled: true, RPS: 1, Burst: 1}, logger)
	stop := make(chan struct{})
	done := make(chan struct{})

	go func() {
		rl.Cleanup(time.Millisecond, stop)
		close(done)
	}()
	close(stop)

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("cleanup did not stop")
	}
}
