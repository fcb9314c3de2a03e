package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/complycore/compliance-api/models"
	"github.com/complycore/compliance-api/services"
)

func newMockRepo(t *testing.T) (*UserRepository, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	repo := &UserRepository{
		db:     &DB{DB: db, logger: zap.NewNop()},
		logger: zap.NewNop(),
	}
	return repo, mock
}

func userRows(user *models.User) *sqlmock.Rows {
	return sqlmock.NewRows([]string{
		"id", "username", "email", "password_hash", "role", "is_active",
		"failed_login_attempts", "lock_until", "two_factor_enabled", "two_factor_secret",
		"reset_token", "reset_token_expiry", "last_login", "created_at", "updated_at",
	}).AddRow(
		user.ID, user.Username, user.Email, user.PasswordHash, user.Role, user.IsActive,
		user.FailedLoginAttempts, user.LockUntil, user.TwoFactorEnabled, user.TwoFactorSecret,
		user.ResetToken, user.ResetTokenExpiry, user.LastLogin, user.CreatedAt, user.UpdatedAt,
	)
}

func TestGetByUsername(t *testing.T) {
	repo, mock := newMockRepo(t)

	user := models.NewUser("alice", "alice@example.com", "hash", models.RoleAnalyst)

	t.Run("found", func(t *testing.T) {
		mock.ExpectQuery(`SELECT .+ FROM users WHERE username = \$1`).
			WithArgs("alice").
			WillReturnRows(userRows(user))

		got, err := repo.GetByUsername(context.Background(), "alice")
		require.NoError(t, err)
		assert.Equal(t, user.ID, got.ID)
		assert.Equal(t, "alice", got.Username)
		assert.Equal(t, models.RoleAnalyst, got.Role)
	})

	t.Run("not found maps to domain error", func(t *testing.T) {
		mock.ExpectQuery(`SELECT .+ FROM users WHERE username = \$1`).
			WithArgs("ghost").
			WillReturnRows(sqlmock.NewRows([]string{"id"}))

		_, err := repo.GetByUsername(context.Background(), "ghost")
		assert.True(t, errors.Is(err, services.ErrUserNotFound))
	})

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestGetByEmail(t *testing.T) {
	repo, mock := newMockRepo(t)
	user := models.NewUser("bob", "bob@example.com", "hash", models.RoleViewer)

	mock.ExpectQuery(`SELECT .+ FROM users WHERE email = \$1`).
		WithArgs("bob@example.com").
		WillReturnRows(userRows(user))

	got, err := repo.GetByEmail(context.Background(), "bob@example.com")
	require.NoError(t, err)
	assert.Equal(t, "bob", got.Username)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdatePersistsLockState(t *testing.T) {
	repo, mock := newMockRepo(t)

	lockUntil := time.Now().Add(15 * time.Minute)
	user := models.NewUser("carol", "carol@example.com", "hash", models.RoleAuditor)
	user.FailedLoginAttempts = 0
	user.LockUntil = &lockUntil

	t.Run("updates one row", func(t *testing.T) {
		mock.ExpectExec(`UPDATE users`).
			WithArgs(user.ID, user.Email, user.PasswordHash, user.Role, user.IsActive,
				user.FailedLoginAttempts, user.LockUntil, user.TwoFactorEnabled,
				user.TwoFactorSecret, user.ResetToken, user.ResetTokenExpiry, user.LastLogin).
			WillReturnResult(sqlmock.NewResult(0, 1))

		assert.NoError(t, repo.Update(context.Background(), user))
	})

	t.Run("zero rows maps to not found", func(t *testing.T) {
		mock.ExpectExec(`UPDATE users`).
			WillReturnResult(sqlmock.NewResult(0, 0))

		err := repo.Update(context.Background(), user)
		assert.True(t, errors.Is(err, services.ErrUserNotFound))
	})

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCreate(t *testing.T) {
	repo, mock := newMockRepo(t)
	user := models.NewUser("dave", "dave@example.com", "hash", models.RoleViewer)

	mock.ExpectExec(`INSERT INTO users`).
		WillReturnResult(sqlmock.NewResult(0, 1))

	assert.NoError(t, repo.Create(context.Background(), user))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAuditRepository(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	repo := &AuditRepository{
		db:     &DB{DB: db, logger: zap.NewNop()},
		logger: zap.NewNop(),
	}

	t.Run("append", func(t *testing.T) {
		record := models.NewAuditRecord("corr-1", models.PhaseRequest)
		record.Method = "GET"
		record.Path = "/api/v1/policies"
		record.ClientID = "10.0.0.1"

		mock.ExpectExec(`INSERT INTO audit_records`).
			WillReturnResult(sqlmock.NewResult(0, 1))

		assert.NoError(t, repo.Append(context.Background(), record))
	})

	t.Run("recent", func(t *testing.T) {
		now := time.Now()
		mock.ExpectQuery(`SELECT .+ FROM audit_records`).
			WithArgs(10).
			WillReturnRows(sqlmock.NewRows([]string{
				"id", "correlation_id", "phase", "method", "path", "client_id",
				"user_agent", "username", "action", "outcome", "status", "elapsed_ms", "created_at",
			}).AddRow(uuid.New(), "corr-1", "response", "GET", "/healthz", "10.0.0.1",
				"curl", "", "", "", 200, int64(3), now))

		records, err := repo.Recent(context.Background(), 10)
		require.NoError(t, err)
		require.Len(t, records, 1)
		assert.Equal(t, "corr-1", records[0].CorrelationID)
		assert.Equal(t, 200, records[0].Status)
	})

	require.NoError(t, mock.ExpectationsWereMet())
}
