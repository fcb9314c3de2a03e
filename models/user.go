package models

import (
	"time"

	"github.com/google/uuid"
)

// UserRole represents the role of a user within a tenant
type UserRole string

const (
	RoleAdmin             UserRole = "admin"
	RoleComplianceOfficer UserRole = "compliance_officer"
	RoleAuditor           UserRole = "auditor"
	RoleAnalyst           UserRole = "analyst"
	RoleViewer            UserRole = "viewer"
)

// User represents an account in the compliance platform.
// Lockout and password-reset state is owned by the user store and mutated
// only through the authentication service.
type User struct {
	ID                  uuid.UUID  `json:"id" db:"id"`
	Username            string     `json:"username" db:"username"`
	Email               string     `json:"email" db:"email"`
	PasswordHash        string     `json:"-" db:"password_hash"`
	Role                UserRole   `json:"role" db:"role"`
	IsActive            bool       `json:"is_active" db:"is_active"`
	FailedLoginAttempts int        `json:"-" db:"failed_login_attempts"`
	LockUntil           *time.Time `json:"-" db:"lock_until"`
	TwoFactorEnabled    bool       `json:"two_factor_enabled" db:"two_factor_enabled"`
	TwoFactorSecret     string     `json:"-" db:"two_factor_secret"`
	ResetToken          string     `json:"-" db:"reset_token"`
	ResetTokenExpiry    *time.Time `json:"-" db:"reset_token_expiry"`
	LastLogin           *time.Time `json:"last_login,omitempty" db:"last_login"`
	CreatedAt           time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt           time.Time  `json:"updated_at" db:"updated_at"`
}

// TableName returns the table name for the User model
func (User) TableName() string {
	return "users"
}

// NewUser creates a new active User instance
func NewUser(username, email, passwordHash string, role UserRole) *User {
	now := time.Now()
	return &User{
		ID:           uuid.New(),
		Username:     username,
		Email:        email,
		PasswordHash: passwordHash,
		Role:         role,
		IsActive:     true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

// IsLocked returns true while a lockout is in effect
func (u *User) IsLocked(now time.Time) bool {
	return u.LockUntil != nil && now.Before(*u.LockUntil)
}

// IsAdmin returns true if the user has the administrative role
func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}
