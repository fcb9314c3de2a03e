// Package authz evaluates the static role to permission table used to gate
// every protected operation.
package authz

import (
	"go.uber.org/zap"

	"github.com/complycore/compliance-api/models"
	"github.com/complycore/compliance-api/services"
)

// PermissionAll is the wildcard permission meaning "all"
const PermissionAll = "*"

// Permission names used across the API
const (
	PermPoliciesRead   = "policies:read"
	PermPoliciesWrite  = "policies:write"
	PermRisksRead      = "risks:read"
	PermRisksWrite     = "risks:write"
	PermReportsRead    = "reports:read"
	PermReportsWrite   = "reports:write"
	PermWorkflowsRead  = "workflows:read"
	PermWorkflowsWrite = "workflows:write"
	PermAuditRead      = "audit:read"
	PermUsersManage    = "users:manage"
)

// rolePermissions is the static RBAC table. Read-only at runtime.
var rolePermissions = map[models.UserRole][]string{
	models.RoleAdmin: {PermissionAll},
	models.RoleComplianceOfficer: {
		PermPoliciesRead, PermPoliciesWrite,
		PermRisksRead, PermRisksWrite,
		PermReportsRead, PermReportsWrite,
		PermWorkflowsRead, PermWorkflowsWrite,
		PermAuditRead,
	},
	models.RoleAuditor: {
		PermPoliciesRead, PermRisksRead, PermReportsRead,
		PermWorkflowsRead, PermAuditRead,
	},
	models.RoleAnalyst: {
		PermPoliciesRead,
		PermRisksRead, PermRisksWrite,
		PermReportsRead, PermReportsWrite,
		PermWorkflowsRead,
	},
	models.RoleViewer: {
		PermPoliciesRead, PermRisksRead, PermReportsRead,
	},
}

// Guard answers permission and role questions for route handlers
type Guard struct {
	logger *zap.Logger
}

// NewGuard creates a new Guard
func NewGuard(logger *zap.Logger) *Guard {
	return &Guard{logger: logger}
}

// Permissions returns a copy of the permission list for a role. Unknown roles
// get an empty list.
func (g *Guard) Permissions(role models.UserRole) []string {
	perms := rolePermissions[role]
	out := make([]string, len(perms))
	copy(out, perms)
	return out
}

// HasPermission reports whether the role's permission list contains the
// permission or the wildcard.
func (g *Guard) HasPermission(role models.UserRole, permission string) bool {
	for _, p := range rolePermissions[role] {
		if p == PermissionAll || p == permission {
			return true
		}
	}
	return false
}

// RequirePermission fails with an authorization error when the role lacks
// the permission.
func (g *Guard) RequirePermission(role models.UserRole, permission string) error {
	if g.HasPermission(role, permission) {
		return nil
	}
	g.logger.Warn("permission denied",
		zap.String("role", string(role)),
		zap.String("permission", permission))
	return services.ErrInsufficientPermissions.WithDetail("permission", permission)
}

// RequireRole fails unless the role matches the required role. The
// administrative role satisfies every role check.
func (g *Guard) RequireRole(role, required models.UserRole) error {
	if role == required || role == models.RoleAdmin {
		return nil
	}
	g.logger.Warn("role check failed",
		zap.String("role", string(role)),
		zap.String("required_role", string(required)))
	return services.ErrInsufficientPermissions.WithDetail("required_role", string(required))
}
