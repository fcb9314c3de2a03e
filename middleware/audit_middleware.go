package middleware

import (
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/complycore/compliance-api/models"
	"github.com/complycore/compliance-api/services/audit"
)

// statusRecorder captures the status code written by downstream handlers
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func (r *statusRecorder) Write(b []byte) (int, error) {
	if r.status == 0 {
		r.status = http.StatusOK
	}
	return r.ResponseWriter.Write(b)
}

// Audit emits one pre-handling and one post-handling record per request,
// correlated by the id established upstream. Short-circuited requests
// (rate limited, rejected payloads) are still audited.
type Audit struct {
	trail  *audit.Trail
	logger *zap.Logger
}

// NewAudit creates the audit middleware
func NewAudit(trail *audit.Trail, logger *zap.Logger) *Audit {
	return &Audit{
		trail:  trail,
		logger: logger,
	}
}

// Handler is the middleware entry point
func (a *Audit) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		correlationID := GetCorrelationIDFromContext(ctx)
		clientID := GetClientIDFromContext(ctx)
		start := time.Now()

		pre := models.NewAuditRecord(correlationID, models.PhaseRequest)
		pre.Method = r.Method
		pre.Path = r.URL.Path
		pre.ClientID = clientID
		pre.UserAgent = r.UserAgent()
		a.trail.Record(pre)

		a.logger.Info("request received",
			zap.String("correlation_id", correlationID),
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.String("client_id", clientID))

		recorder := &statusRecorder{ResponseWriter: w}
		next.ServeHTTP(recorder, r)

		elapsed := time.Since(start)
		status := recorder.status
		if status == 0 {
			status = http.StatusOK
		}

		post := models.NewAuditRecord(correlationID, models.PhaseResponse)
		post.Method = r.Method
		post.Path = r.URL.Path
		post.ClientID = clientID
		post.Status = status
		post.ElapsedMs = elapsed.Milliseconds()
		a.trail.Record(post)

		a.logger.Info("request completed",
			zap.String("correlation_id", correlationID),
			zap.Int("status", status),
			zap.Duration("elapsed", elapsed))
	})
}
