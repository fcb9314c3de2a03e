package middleware

import (
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/complycore/compliance-api/models"
	"github.com/complycore/compliance-api/services/authz"
	"github.com/complycore/compliance-api/services/token"
	"github.com/complycore/compliance-api/utils"
)

// TokenVerifier defines the interface for verifying bearer tokens
type TokenVerifier interface {
	// Verify validates a token string and checks its type tag
	Verify(tokenString string, expected token.TokenType) (*token.Claims, error)
}

// Auth gates protected routes on a verified access token and, per route, on
// the RBAC table.
type Auth struct {
	verifier TokenVerifier
	guard    *authz.Guard
	logger   *zap.Logger
}

// NewAuth creates the auth middleware
func NewAuth(verifier TokenVerifier, guard *authz.Guard, logger *zap.Logger) *Auth {
	return &Auth{
		verifier: verifier,
		guard:    guard,
		logger:   logger,
	}
}

// RequireAuth is a middleware that requires a valid access token
func (m *Auth) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		correlationID := GetCorrelationIDFromContext(ctx)

		tokenString := extractBearerToken(r)
		if tokenString == "" {
			m.logger.Warn("missing bearer token",
				zap.String("correlation_id", correlationID))
			_ = utils.WriteUnauthorized(w, "Missing or invalid authorization")
			return
		}

		claims, err := m.verifier.Verify(tokenString, token.TypeAccess)
		if err != nil {
			m.logger.Warn("token verification failed",
				zap.String("correlation_id", correlationID),
				zap.Error(err))
			_ = utils.WriteUnauthorized(w, "Invalid or expired token")
			return
		}

		ctx = WithClaims(ctx, claims)

		m.logger.Debug("authentication successful",
			zap.String("correlation_id", correlationID),
			zap.String("sub", claims.Subject),
			zap.String("username", claims.Username))

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequirePermission gates a route on a permission from the RBAC table.
// Must run after RequireAuth. The wildcard held by the administrative role
// satisfies every permission.
func (m *Auth) RequirePermission(permission string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims := GetClaimsFromContext(r.Context())
			if claims == nil {
				m.logger.Error("claims not found in context",
					zap.String("correlation_id", GetCorrelationIDFromContext(r.Context())))
				_ = utils.WriteUnauthorized(w, "Authentication required")
				return
			}

			if err := m.guard.RequirePermission(claims.Role, permission); err != nil {
				m.logger.Warn("insufficient permissions",
					zap.String("correlation_id", GetCorrelationIDFromContext(r.Context())),
					zap.String("role", string(claims.Role)),
					zap.String("permission", permission))
				_ = utils.WriteForbidden(w, "Insufficient permissions")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// RequireRole gates a route on a role. The administrative role satisfies
// every role check. Must run after RequireAuth.
func (m *Auth) RequireRole(required models.UserRole) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims := GetClaimsFromContext(r.Context())
			if claims == nil {
				_ = utils.WriteUnauthorized(w, "Authentication required")
				return
			}

			if err := m.guard.RequireRole(claims.Role, required); err != nil {
				m.logger.Warn("role check failed",
					zap.String("correlation_id", GetCorrelationIDFromContext(r.Context())),
					zap.String("role", string(claims.Role)),
					zap.String("required_role", string(required)))
				_ = utils.WriteForbidden(w, "Insufficient permissions")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// extractBearerToken extracts the Bearer token from the Authorization header
func extractBearerToken(r *http.Request) string {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		return ""
	}

	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}
