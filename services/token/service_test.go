package token

import (
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/complycore/compliance-api/models"
	"github.com/complycore/compliance-api/services"
)

func newTestService() *Service {
	return NewService("test-jwt-secret", 30*time.Minute, 7*24*time.Hour, zap.NewNop())
}

func TestIssueAndVerify(t *testing.T) {
	svc := newTestService()
	subject := uuid.New()
	perms := []string{"policies:read", "risks:read"}

	tokenString, err := svc.Issue(subject, "alice", models.RoleAnalyst, perms, TypeAccess)
	require.NoError(t, err)
	require.NotEmpty(t, tokenString)

	claims, err := svc.Verify(tokenString, TypeAccess)
	require.NoError(t, err)

	assert.Equal(t, subject.String(), claims.Subject)
	assert.Equal(t, "alice", claims.Username)
	assert.Equal(t, models.RoleAnalyst, claims.Role)
	assert.Equal(t, perms, claims.Permissions)
	assert.Equal(t, TypeAccess, claims.TokenType)
	assert.NotEmpty(t, claims.ID)
}

func TestVerifyFailures(t *testing.T) {
	svc := newTestService()
	subject := uuid.New()

	t.Run("garbage token", func(t *testing.T) {
		_, err := svc.Verify("not.a.token", TypeAccess)
		assert.True(t, errors.Is(err, services.ErrInvalidToken))
	})

	t.Run("wrong signature", func(t *testing.T) {
		other := NewService("other-secret", time.Minute, time.Hour, zap.NewNop())
		tokenString, err := other.Issue(subject, "alice", models.RoleViewer, nil, TypeAccess)
		require.NoError(t, err)

		_, err = svc.Verify(tokenString, TypeAccess)
		assert.True(t, errors.Is(err, services.ErrInvalidToken))
	})

	t.Run("wrong token type", func(t *testing.T) {
		refresh, err := svc.Issue(subject, "alice", models.RoleViewer, nil, TypeRefresh)
		require.NoError(t, err)

		_, err = svc.Verify(refresh, TypeAccess)
		assert.True(t, errors.Is(err, services.ErrWrongTokenType))

		access, err := svc.Issue(subject, "alice", models.RoleViewer, nil, TypeAccess)
		require.NoError(t, err)

		_, err = svc.Verify(access, TypeRefresh)
		assert.True(t, errors.Is(err, services.ErrWrongTokenType))
	})

	t.Run("expired token", func(t *testing.T) {
		clock := time.Now()
		svc := NewService("test-jwt-secret", 30*time.Minute, time.Hour, zap.NewNop()).
			WithClock(func() time.Time { return clock })

		tokenString, err := svc.Issue(subject, "alice", models.RoleViewer, nil, TypeAccess)
		require.NoError(t, err)

		// still valid just before expiry
		clock = clock.Add(29 * time.Minute)
		_, err = svc.Verify(tokenString, TypeAccess)
		assert.NoError(t, err)

		clock = clock.Add(2 * time.Minute)
		_, err = svc.Verify(tokenString, TypeAccess)
		assert.True(t, errors.Is(err, services.ErrTokenExpired))
	})
}

func TestRefresh(t *testing.T) {
	svc := newTestService()
	subject := uuid.New()
	perms := []string{"reports:read"}

	refresh, err := svc.Issue(subject, "bob", models.RoleAuditor, perms, TypeRefresh)
	require.NoError(t, err)

	t.Run("issues access token with same identity", func(t *testing.T) {
		access, err := svc.Refresh(refresh)
		require.NoError(t, err)

		claims, err := svc.Verify(access, TypeAccess)
		require.NoError(t, err)
		assert.Equal(t, subject.String(), claims.Subject)
		assert.Equal(t, "bob", claims.Username)
		assert.Equal(t, models.RoleAuditor, claims.Role)
		assert.Equal(t, perms, claims.Permissions)
	})

	t.Run("access token cannot be used to refresh", func(t *testing.T) {
		access, err := svc.Issue(subject, "bob", models.RoleAuditor, perms, TypeAccess)
		require.NoError(t, err)

		_, err = svc.Refresh(access)
		assert.True(t, errors.Is(err, services.ErrWrongTokenType))
	})

	t.Run("refresh token remains valid afterwards", func(t *testing.T) {
		_, err := svc.Refresh(refresh)
		require.NoError(t, err)

		_, err = svc.Verify(refresh, TypeRefresh)
		assert.NoError(t, err)
	})
}
