package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/complycore/compliance-api/models"
	"github.com/complycore/compliance-api/repositories"
	"github.com/complycore/compliance-api/services"
)

const userColumns = `id, username, email, password_hash, role, is_active,
		failed_login_attempts, lock_until, two_factor_enabled, two_factor_secret,
		reset_token, reset_token_expiry, last_login, created_at, updated_at`

// UserRepository implements repositories.UserRepository on PostgreSQL
type UserRepository struct {
	db     *DB
	logger *zap.Logger
}

// NewUserRepository creates a new user repository
func NewUserRepository(db *DB, logger *zap.Logger) repositories.UserRepository {
	return &UserRepository{
		db:     db,
		logger: logger,
	}
}

// Create inserts a new user
func (r *UserRepository) Create(ctx context.Context, user *models.User) error {
	query := `
		INSERT INTO users (` + userColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
	`

	_, err := r.db.ExecContext(ctx, query,
		user.ID,
		user.Username,
		user.Email,
		user.PasswordHash,
		user.Role,
		user.IsActive,
		user.FailedLoginAttempts,
		user.LockUntil,
		user.TwoFactorEnabled,
		user.TwoFactorSecret,
		user.ResetToken,
		user.ResetTokenExpiry,
		user.LastLogin,
		user.CreatedAt,
		user.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create user: %w", err)
	}

	r.logger.Debug("user created",
		zap.String("id", user.ID.String()),
		zap.String("username", user.Username))
	return nil
}

// GetByUsername retrieves a user by username
func (r *UserRepository) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE username = $1`
	return r.getOne(ctx, query, username)
}

// GetByEmail retrieves a user by email
func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE email = $1`
	return r.getOne(ctx, query, email)
}

// GetByID retrieves a user by ID
func (r *UserRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	return r.getOne(ctx, query, id)
}

// Update persists the user's mutable state. The single-row UPDATE is atomic,
// which is what the lockout state machine relies on.
func (r *UserRepository) Update(ctx context.Context, user *models.User) error {
	query := `
		UPDATE users
		SET email = $2,
		    password_hash = $3,
		    role = $4,
		    is_active = $5,
		    failed_login_attempts = $6,
		    lock_until = $7,
		    two_factor_enabled = $8,
		    two_factor_secret = $9,
		    reset_token = $10,
		    reset_token_expiry = $11,
		    last_login = $12,
		    updated_at = NOW()
		WHERE id = $1
	`

	result, err := r.db.ExecContext(ctx, query,
		user.ID,
		user.Email,
		user.PasswordHash,
		user.Role,
		user.IsActive,
		user.FailedLoginAttempts,
		user.LockUntil,
		user.TwoFactorEnabled,
		user.TwoFactorSecret,
		user.ResetToken,
		user.ResetTokenExpiry,
		user.LastLogin,
	)
	if err != nil {
		return fmt.Errorf("failed to update user: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return services.ErrUserNotFound
	}
	return nil
}

func (r *UserRepository) getOne(ctx context.Context, query string, arg interface{}) (*models.User, error) {
	user := &models.User{}
	err := r.db.QueryRowContext(ctx, query, arg).Scan(
		&user.ID,
		&user.Username,
		&user.Email,
		&user.PasswordHash,
		&user.Role,
		&user.IsActive,
		&user.FailedLoginAttempts,
		&user.LockUntil,
		&user.TwoFactorEnabled,
		&user.TwoFactorSecret,
		&user.ResetToken,
		&user.ResetTokenExpiry,
		&user.LastLogin,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, services.ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return user, nil
}
