// Package repositories defines the persistence boundaries of the security
// core. The business-domain repositories live with their own services.
package repositories

import (
	"context"

	"github.com/google/uuid"

	"github.com/complycore/compliance-api/models"
)

// UserRepository is the external user store. Update must persist
// failure-counter and lock-state changes atomically per row: a racing second
// failed attempt for the same user must observe the incremented counter.
type UserRepository interface {
	// GetByUsername retrieves a user by username
	GetByUsername(ctx context.Context, username string) (*models.User, error)

	// GetByEmail retrieves a user by email
	GetByEmail(ctx context.Context, email string) (*models.User, error)

	// GetByID retrieves a user by ID
	GetByID(ctx context.Context, id uuid.UUID) (*models.User, error)

	// Create inserts a new user
	Create(ctx context.Context, user *models.User) error

	// Update persists the user's mutable state
	Update(ctx context.Context, user *models.User) error
}

// AuditSink is the append-only audit record writer. Rotation and retention
// are external concerns.
type AuditSink interface {
	// Append writes one audit record
	Append(ctx context.Context, record *models.AuditRecord) error

	// Recent returns the most recent records, newest first
	Recent(ctx context.Context, limit int) ([]*models.AuditRecord, error)
}
