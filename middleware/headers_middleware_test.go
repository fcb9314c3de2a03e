package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/complycore/compliance-api/services/crypto"
)

func newHeadersMiddleware(t *testing.T, trustProxy bool) *SecurityHeaders {
	t.Helper()
	cm, err := crypto.NewManager("test-secret")
	require.NoError(t, err)
	return NewSecurityHeaders(cm, trustProxy)
}

func TestSecurityHeadersInjected(t *testing.T) {
	m := newHeadersMiddleware(t, false)

	handler := m.Handler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))

	req := httptest.NewRequest(http.MethodGet, "/nope", nil)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	// compliance tags and defensive headers ride on every response
	assert.Equal(t, "nosniff", w.Header().Get("X-Content-Type-Options"))
	assert.Equal(t, "DENY", w.Header().Get("X-Frame-Options"))
	assert.Equal(t, "confidential", w.Header().Get("X-Data-Classification"))
	assert.Equal(t, "SOC2,ISO27001,GDPR", w.Header().Get("X-Compliance-Frameworks"))
	assert.NotEmpty(t, w.Header().Get("Content-Security-Policy"))
	assert.NotEmpty(t, w.Header().Get("Strict-Transport-Security"))
	assert.NotEmpty(t, w.Header().Get(CorrelationHeader))
}

func TestCorrelationID(t *testing.T) {
	m := newHeadersMiddleware(t, false)

	t.Run("inbound id is echoed and placed in context", func(t *testing.T) {
		var seen string
		handler := m.Handler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			seen = GetCorrelationIDFromContext(r.Context())
		}))

		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set(CorrelationHeader, "inbound-id-123")
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, req)

		assert.Equal(t, "inbound-id-123", seen)
		assert.Equal(t, "inbound-id-123", w.Header().Get(CorrelationHeader))
	})

	t.Run("derived id when absent", func(t *testing.T) {
		var seen string
		handler := m.Handler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			seen = GetCorrelationIDFromContext(r.Context())
		}))

		req := httptest.NewRequest(http.MethodGet, "/", nil)
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, req)

		assert.Len(t, seen, 32)
		assert.Equal(t, seen, w.Header().Get(CorrelationHeader))
	})

	t.Run("client id resolved into context", func(t *testing.T) {
		var seen string
		handler := m.Handler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			seen = GetClientIDFromContext(r.Context())
		}))

		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.RemoteAddr = "192.0.2.44:9999"
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, req)

		assert.Equal(t, "192.0.2.44", seen)
	})
}

func TestClientIDRespectsTrustProxyMode(t *testing.T) {
	m := newHeadersMiddleware(t, true)

	var seen string
	handler := m.Handler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = GetClientIDFromContext(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "192.0.2.44:9999"
	req.Header.Set("X-Forwarded-For", "203.0.113.5")
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	assert.Equal(t, "203.0.113.5", seen)
}
