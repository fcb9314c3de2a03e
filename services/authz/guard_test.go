package authz

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"

	"github.com/complycore/compliance-api/models"
	"github.com/complycore/compliance-api/services"
)

func TestHasPermission(t *testing.T) {
	guard := NewGuard(zap.NewNop())

	t.Run("wildcard grants everything", func(t *testing.T) {
		for _, perm := range []string{
			PermPoliciesWrite, PermUsersManage, PermAuditRead, "some:future:permission",
		} {
			assert.True(t, guard.HasPermission(models.RoleAdmin, perm), perm)
		}
	})

	t.Run("explicit grant", func(t *testing.T) {
		assert.True(t, guard.HasPermission(models.RoleAuditor, PermAuditRead))
		assert.True(t, guard.HasPermission(models.RoleAnalyst, PermRisksWrite))
		assert.True(t, guard.HasPermission(models.RoleViewer, PermPoliciesRead))
	})

	t.Run("absent permission denied", func(t *testing.T) {
		assert.False(t, guard.HasPermission(models.RoleViewer, PermPoliciesWrite))
		assert.False(t, guard.HasPermission(models.RoleAuditor, PermRisksWrite))
		assert.False(t, guard.HasPermission(models.RoleAnalyst, PermUsersManage))
	})

	t.Run("unknown role has no permissions", func(t *testing.T) {
		assert.False(t, guard.HasPermission(models.UserRole("ghost"), PermPoliciesRead))
	})
}

func TestRequirePermission(t *testing.T) {
	guard := NewGuard(zap.NewNop())

	assert.NoError(t, guard.RequirePermission(models.RoleComplianceOfficer, PermPoliciesWrite))

	err := guard.RequirePermission(models.RoleViewer, PermPoliciesWrite)
	assert.True(t, errors.Is(err, services.ErrInsufficientPermissions))
	assert.True(t, services.IsForbiddenError(err))
	assert.Equal(t, PermPoliciesWrite, services.GetErrorDetails(err)["permission"])
}

func TestRequireRole(t *testing.T) {
	guard := NewGuard(zap.NewNop())

	t.Run("exact match", func(t *testing.T) {
		assert.NoError(t, guard.RequireRole(models.RoleAuditor, models.RoleAuditor))
	})

	t.Run("admin satisfies any role check", func(t *testing.T) {
		assert.NoError(t, guard.RequireRole(models.RoleAdmin, models.RoleAuditor))
		assert.NoError(t, guard.RequireRole(models.RoleAdmin, models.RoleComplianceOfficer))
	})

	t.Run("mismatch denied", func(t *testing.T) {
		err := guard.RequireRole(models.RoleViewer, models.RoleAuditor)
		assert.True(t, errors.Is(err, services.ErrInsufficientPermissions))
	})
}

func TestPermissionsCopy(t *testing.T) {
	guard := NewGuard(zap.NewNop())

	perms := guard.Permissions(models.RoleViewer)
	assert.NotEmpty(t, perms)

	// mutating the returned slice must not affect the table
	perms[0] = PermissionAll
	assert.False(t, guard.HasPermission(models.RoleViewer, PermUsersManage))
}
