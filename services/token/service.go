// Package token issues and verifies the signed, typed, expiring tokens used
// by the API: short-lived access tokens and longer-lived refresh tokens.
package token

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/complycore/compliance-api/models"
	"github.com/complycore/compliance-api/services"
)

// TokenType tags a token as access or refresh. A token of one type is never
// accepted where the other is required.
type TokenType string

const (
	TypeAccess  TokenType = "access"
	TypeRefresh TokenType = "refresh"
)

// Claims is the token payload. Permissions are materialized at issuance and
// not re-derived on verification.
type Claims struct {
	Username    string          `json:"username"`
	Role        models.UserRole `json:"role"`
	Permissions []string        `json:"permissions"`
	TokenType   TokenType       `json:"typ"`
	jwt.RegisteredClaims
}

// Service signs and verifies tokens with a server-held HMAC secret
type Service struct {
	secret     []byte
	accessTTL  time.Duration
	refreshTTL time.Duration
	logger     *zap.Logger
	now        func() time.Time
}

// NewService creates a new token Service
func NewService(secret string, accessTTL, refreshTTL time.Duration, logger *zap.Logger) *Service {
	return &Service{
		secret:     []byte(secret),
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
		logger:     logger,
		now:        time.Now,
	}
}

// WithClock overrides the time source, used by tests
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// Issue creates a signed token of the given type. TTL is chosen from the
// service configuration based on the type.
func (s *Service) Issue(subject uuid.UUID, username string, role models.UserRole, permissions []string, typ TokenType) (string, error) {
	ttl := s.accessTTL
	if typ == TypeRefresh {
		ttl = s.refreshTTL
	}

	now := s.now()
	claims := Claims{
		Username:    username,
		Role:        role,
		Permissions: permissions,
		TokenType:   typ,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject.String(),
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", services.WrapInternal("failed to sign token", err)
	}
	return signed, nil
}

// Verify parses and validates a token and checks its type tag.
// Returns ErrTokenExpired for expired tokens, ErrWrongTokenType on a type
// mismatch and ErrInvalidToken for every other failure.
func (s *Service) Verify(tokenString string, expected TokenType) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return s.secret, nil
	}, jwt.WithTimeFunc(s.now))

	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, services.ErrTokenExpired
		}
		s.logger.Debug("token parse failed", zap.Error(err))
		return nil, services.ErrInvalidToken
	}
	if !token.Valid {
		return nil, services.ErrInvalidToken
	}
	if claims.TokenType != expected {
		return nil, services.ErrWrongTokenType
	}
	return claims, nil
}

// Refresh verifies a refresh token and issues a fresh access token bound to
// the same subject, role and permission set. The refresh token itself is
// neither extended nor invalidated.
func (s *Service) Refresh(refreshToken string) (string, error) {
	claims, err := s.Verify(refreshToken, TypeRefresh)
	if err != nil {
		return "", err
	}

	subject, err := uuid.Parse(claims.Subject)
	if err != nil {
		return "", services.ErrInvalidToken
	}

	return s.Issue(subject, claims.Username, claims.Role, claims.Permissions, TypeAccess)
}
