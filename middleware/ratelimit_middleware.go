package middleware

import (
	"math"
	"net/http"
	"strconv"

	"go.uber.org/zap"

	"github.com/complycore/compliance-api/services/ratelimit"
	"github.com/complycore/compliance-api/utils"
)

// RateLimit applies the per-client sliding-window limiter to every request.
// Rejections short-circuit before the handler; the sustained quota is always
// surfaced in response headers for client back-off.
type RateLimit struct {
	limiter *ratelimit.Limiter
	logger  *zap.Logger
}

// NewRateLimit creates the rate limit middleware
func NewRateLimit(limiter *ratelimit.Limiter, logger *zap.Logger) *RateLimit {
	return &RateLimit{
		limiter: limiter,
		logger:  logger,
	}
}

// Handler is the middleware entry point
func (m *RateLimit) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		clientID := GetClientIDFromContext(r.Context())
		if clientID == "" {
			clientID = ClientID(r, false)
		}

		decision := m.limiter.Allow(clientID)

		w.Header().Set("X-RateLimit-Limit", strconv.Itoa(decision.Limit))
		w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(decision.Remaining))

		if !decision.Allowed {
			retryAfter := int(math.Ceil(decision.RetryAfter.Seconds()))
			if retryAfter < 1 {
				retryAfter = 1
			}
			w.Header().Set("Retry-After", strconv.Itoa(retryAfter))

			m.logger.Warn("request rate limited",
				zap.String("client_id", clientID),
				zap.String("kind", string(decision.Kind)),
				zap.String("correlation_id", GetCorrelationIDFromContext(r.Context())))

			_ = utils.WriteTooManyRequests(w, decision.Err().Error(), map[string]interface{}{
				"kind":        string(decision.Kind),
				"retry_after": retryAfter,
			})
			return
		}

		next.ServeHTTP(w, r)
	})
}
