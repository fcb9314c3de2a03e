package middleware

import (
	"net/http"

	"github.com/getsentry/sentry-go"
	"go.uber.org/zap"

	"github.com/complycore/compliance-api/utils"
)

// Recover converts panics into 500 responses and reports them to Sentry.
// It sits outermost so no panic escapes the pipeline.
type Recover struct {
	logger *zap.Logger
}

// NewRecover creates the recovery middleware
func NewRecover(logger *zap.Logger) *Recover {
	return &Recover{logger: logger}
}

// Handler is the middleware entry point
func (m *Recover) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				correlationID := GetCorrelationIDFromContext(r.Context())
				m.logger.Error("panic in request handler",
					zap.Any("panic", rec),
					zap.String("correlation_id", correlationID),
					zap.String("method", r.Method),
					zap.String("path", r.URL.Path))

				sentry.WithScope(func(scope *sentry.Scope) {
					scope.SetTag("correlation_id", correlationID)
					scope.SetTag("path", r.URL.Path)
					if err, ok := rec.(error); ok {
						sentry.CaptureException(err)
					} else {
						sentry.CaptureMessage("panic in request")
					}
				})

				_ = utils.WriteInternalServerError(w, "")
			}
		}()

		next.ServeHTTP(w, r)
	})
}
