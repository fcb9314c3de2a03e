package middleware

import (
	"bytes"
	"io"
	"net/http"
	"regexp"

	"go.uber.org/zap"

	"github.com/complycore/compliance-api/utils"
)

// maliciousPatterns is the fixed screening set applied to mutating request
// bodies: script injection vectors and common SQL-injection shapes.
var maliciousPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)<script[^>]*>`),
	regexp.MustCompile(`(?i)</script\s*>`),
	regexp.MustCompile(`(?i)javascript\s*:`),
	regexp.MustCompile(`(?i)vbscript\s*:`),
	regexp.MustCompile(`(?i)\bon\w+\s*=`),
	regexp.MustCompile(`(?i)\bunion\s+(all\s+)?select\b`),
	regexp.MustCompile(`(?i)\bdrop\s+table\b`),
	regexp.MustCompile(`(?i)\bdelete\s+from\b`),
	regexp.MustCompile(`(?i)\binsert\s+into\b`),
	regexp.MustCompile(`(?i)\bselect\s+.+\bfrom\b`),
	regexp.MustCompile(`(?i)'\s*or\s+'?\d+'?\s*=\s*'?\d+`),
}

// mutatingMethods are the methods whose bodies are screened
var mutatingMethods = map[string]bool{
	http.MethodPost:   true,
	http.MethodPut:    true,
	http.MethodPatch:  true,
	http.MethodDelete: true,
}

// RequestValidator rejects oversized payloads before reading the body and
// screens mutating-method bodies for malicious content. The body is buffered
// once and re-exposed so the downstream handler sees the exact original
// bytes.
type RequestValidator struct {
	maxBytes int64
	logger   *zap.Logger
}

// NewRequestValidator creates the validator middleware
func NewRequestValidator(maxBytes int64, logger *zap.Logger) *RequestValidator {
	return &RequestValidator{
		maxBytes: maxBytes,
		logger:   logger,
	}
}

// Handler is the middleware entry point
func (v *RequestValidator) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		correlationID := GetCorrelationIDFromContext(r.Context())

		if r.ContentLength > v.maxBytes {
			v.logger.Warn("oversized payload rejected",
				zap.String("correlation_id", correlationID),
				zap.Int64("content_length", r.ContentLength),
				zap.Int64("max_bytes", v.maxBytes))
			_ = utils.WritePayloadTooLarge(w, "", map[string]interface{}{
				"max_bytes": v.maxBytes,
			})
			return
		}

		if mutatingMethods[r.Method] && r.Body != nil && r.ContentLength != 0 {
			body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, v.maxBytes))
			if err != nil {
				// the declared length lied or the read failed; fail closed
				v.logger.Warn("failed to read request body",
					zap.String("correlation_id", correlationID),
					zap.Error(err))
				_ = utils.WritePayloadTooLarge(w, "", map[string]interface{}{
					"max_bytes": v.maxBytes,
				})
				return
			}

			if pattern := firstMatch(body); pattern != "" {
				v.logger.Warn("malicious payload rejected",
					zap.String("correlation_id", correlationID),
					zap.String("pattern", pattern))
				_ = utils.WriteBadRequest(w, "request payload contains disallowed content", map[string]interface{}{
					"reason": "malicious_content",
				})
				return
			}

			r.Body = io.NopCloser(bytes.NewReader(body))
		}

		next.ServeHTTP(w, r)
	})
}

// firstMatch returns the pattern that matched, or empty when the body is clean
func firstMatch(body []byte) string {
	for _, re := range maliciousPatterns {
		if re.Match(body) {
			return re.String()
		}
	}
	return ""
}
