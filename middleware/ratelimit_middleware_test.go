package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/complycore/compliance-api/services/ratelimit"
)

func TestRateLimitMiddleware(t *testing.T) {
	limiter := ratelimit.NewLimiter(ratelimit.Config{
		RequestsPerMinute: 3,
		BurstLimit:        3,
	}, zap.NewNop())
	m := NewRateLimit(limiter, zap.NewNop())

	invocations := 0
	handler := m.Handler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		invocations++
		w.WriteHeader(http.StatusOK)
	}))

	do := func() *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/policies", nil)
		req.RemoteAddr = "198.51.100.9:1234"
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, req)
		return w
	}

	t.Run("quota headers on accepted requests", func(t *testing.T) {
		w := do()
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "3", w.Header().Get("X-RateLimit-Limit"))
		assert.Equal(t, "2", w.Header().Get("X-RateLimit-Remaining"))
	})

	t.Run("rejection short-circuits the handler", func(t *testing.T) {
		do()
		do()
		before := invocations

		w := do()
		assert.Equal(t, http.StatusTooManyRequests, w.Code)
		assert.Equal(t, before, invocations)
		assert.NotEmpty(t, w.Header().Get("Retry-After"))
		assert.Equal(t, "0", w.Header().Get("X-RateLimit-Remaining"))

		var resp map[string]interface{}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, "rate_limit_exceeded", resp["error"])
	})

	t.Run("other clients unaffected", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/policies", nil)
		req.RemoteAddr = "198.51.100.10:1234"
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, req)
		assert.Equal(t, http.StatusOK, w.Code)
	})
}
