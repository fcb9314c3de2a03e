// Package auth verifies credentials against the user store and owns the
// per-user failure counting, lockout, two-factor and password-reset state.
package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/complycore/compliance-api/config"
	"github.com/complycore/compliance-api/models"
	"github.com/complycore/compliance-api/repositories"
	"github.com/complycore/compliance-api/services"
	"github.com/complycore/compliance-api/services/audit"
	"github.com/complycore/compliance-api/services/crypto"
)

// dummyPasswordHash is a bcrypt hash (default cost) compared against when the
// username does not exist, so the unknown-user path costs the same as a
// wrong-password one and response timing cannot enumerate accounts.
const dummyPasswordHash = "$2a$10$N9qo8uLOickgx2ZMRZoMyeIjZAgcfl7p92ldGxad68LJZdL17lhWy"

// Recorder receives one audit event per authentication attempt
type Recorder interface {
	Record(record *models.AuditRecord)
}

// Service implements the authentication state machine:
// Active -> (failed attempt)* -> Locked -> (lockout elapses or reset) -> Active.
type Service struct {
	users  repositories.UserRepository
	crypto *crypto.Manager
	trail  Recorder
	cfg    config.SecurityConfig
	logger *zap.Logger
	now    func() time.Time
}

// NewService creates a new authentication Service
func NewService(users repositories.UserRepository, cm *crypto.Manager, trail Recorder, cfg config.SecurityConfig, logger *zap.Logger) *Service {
	return &Service{
		users:  users,
		crypto: cm,
		trail:  trail,
		cfg:    cfg,
		logger: logger,
		now:    time.Now,
	}
}

// WithClock overrides the time source, used by tests
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// Authenticate verifies a username/password pair. The same error shape is
// returned for an unknown user and a wrong password. A locked user cannot
// authenticate regardless of credential correctness. Failure-counter and
// lock-state mutations are persisted before the error is returned.
func (s *Service) Authenticate(ctx context.Context, username, password string) (*models.User, error) {
	user, err := s.users.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, services.ErrUserNotFound) {
			s.crypto.CheckPassword(dummyPasswordHash, password)
			s.auditAttempt(ctx, username, "login", models.OutcomeFailure)
			return nil, services.ErrInvalidCredentials
		}
		// fail closed on store errors
		s.logger.Error("user lookup failed", zap.String("username", username), zap.Error(err))
		return nil, services.WrapInternal("user lookup failed", err)
	}

	now := s.now()
	if user.IsLocked(now) {
		s.auditAttempt(ctx, username, "login", models.OutcomeFailure)
		return nil, services.ErrAccountLocked
	}
	if !user.IsActive {
		s.auditAttempt(ctx, username, "login", models.OutcomeFailure)
		return nil, services.ErrAccountInactive
	}

	if !s.crypto.CheckPassword(user.PasswordHash, password) {
		if err := s.registerFailure(ctx, user, now); err != nil {
			return nil, err
		}
		s.auditAttempt(ctx, username, "login", models.OutcomeFailure)
		return nil, services.ErrInvalidCredentials
	}

	user.FailedLoginAttempts = 0
	user.LockUntil = nil
	user.LastLogin = &now
	if err := s.users.Update(ctx, user); err != nil {
		s.logger.Error("failed to persist login state", zap.String("username", username), zap.Error(err))
		return nil, services.WrapInternal("failed to persist login state", err)
	}

	s.auditAttempt(ctx, username, "login", models.OutcomeSuccess)
	return user, nil
}

// AuthenticateWithTwoFactor verifies credentials and then the two-factor
// code. A bad code does not consume a login-failure increment.
func (s *Service) AuthenticateWithTwoFactor(ctx context.Context, username, password, code string) (*models.User, error) {
	user, err := s.Authenticate(ctx, username, password)
	if err != nil {
		return nil, err
	}

	if !s.VerifyTwoFactorCode(user, code) {
		s.auditAttempt(ctx, username, "two_factor", models.OutcomeFailure)
		return nil, services.ErrInvalidTwoFactorCode
	}

	s.auditAttempt(ctx, username, "two_factor", models.OutcomeSuccess)
	return user, nil
}

// VerifyTwoFactorCode checks a 6-digit code derived from the user's secret
// over a 30-second step. The current and the previous step are accepted to
// tolerate clock skew.
func (s *Service) VerifyTwoFactorCode(user *models.User, code string) bool {
	if !user.TwoFactorEnabled {
		return true
	}
	if user.TwoFactorSecret == "" || len(code) != 6 {
		return false
	}

	step := s.now().Unix() / 30
	return code == s.deriveCode(user.TwoFactorSecret, step) ||
		code == s.deriveCode(user.TwoFactorSecret, step-1)
}

// GenerateTwoFactorCode returns the code currently valid for the user
func (s *Service) GenerateTwoFactorCode(user *models.User) string {
	return s.deriveCode(user.TwoFactorSecret, s.now().Unix()/30)
}

// ChangePassword replaces the user's password after re-verifying the old one
// and checking the strength of the new one.
func (s *Service) ChangePassword(ctx context.Context, user *models.User, oldPassword, newPassword string) error {
	if !s.crypto.CheckPassword(user.PasswordHash, oldPassword) {
		s.auditAttempt(ctx, user.Username, "password_change", models.OutcomeFailure)
		return services.ErrInvalidCredentials
	}

	if err := s.ValidatePasswordStrength(newPassword); err != nil {
		s.auditAttempt(ctx, user.Username, "password_change", models.OutcomeFailure)
		return err
	}

	hash, err := s.crypto.HashPassword(newPassword)
	if err != nil {
		return services.WrapInternal("failed to hash password", err)
	}

	user.PasswordHash = hash
	if err := s.users.Update(ctx, user); err != nil {
		return services.WrapInternal("failed to persist password change", err)
	}

	s.auditAttempt(ctx, user.Username, "password_change", models.OutcomeSuccess)
	return nil
}

// InitiatePasswordReset looks up the user by email and, when found, persists
// a random reset token with an expiry. The boolean reports which case
// occurred for the internal audit trail only; the API layer must respond
// identically in both cases.
func (s *Service) InitiatePasswordReset(ctx context.Context, email string) (bool, error) {
	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, services.ErrUserNotFound) {
			s.auditAttempt(ctx, email, "password_reset_initiate", models.OutcomeFailure)
			return false, nil
		}
		return false, services.WrapInternal("user lookup failed", err)
	}

	expiry := s.now().Add(s.cfg.ResetTokenTTL)
	user.ResetToken = uuid.NewString()
	user.ResetTokenExpiry = &expiry
	if err := s.users.Update(ctx, user); err != nil {
		return false, services.WrapInternal("failed to persist reset token", err)
	}

	s.auditAttempt(ctx, user.Username, "password_reset_initiate", models.OutcomeSuccess)
	return true, nil
}

// CompletePasswordReset consumes a reset token: the token must match an
// unexpired stored token, the new password must pass the strength check, and
// the lockout state is cleared along with the token.
func (s *Service) CompletePasswordReset(ctx context.Context, email, token, newPassword string) error {
	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, services.ErrUserNotFound) {
			return services.ErrInvalidResetToken
		}
		return services.WrapInternal("user lookup failed", err)
	}

	if user.ResetToken == "" || user.ResetToken != token ||
		user.ResetTokenExpiry == nil || !s.now().Before(*user.ResetTokenExpiry) {
		s.auditAttempt(ctx, user.Username, "password_reset_complete", models.OutcomeFailure)
		return services.ErrInvalidResetToken
	}

	if err := s.ValidatePasswordStrength(newPassword); err != nil {
		s.auditAttempt(ctx, user.Username, "password_reset_complete", models.OutcomeFailure)
		return err
	}

	hash, err := s.crypto.HashPassword(newPassword)
	if err != nil {
		return services.WrapInternal("failed to hash password", err)
	}

	user.PasswordHash = hash
	user.ResetToken = ""
	user.ResetTokenExpiry = nil
	user.FailedLoginAttempts = 0
	user.LockUntil = nil
	if err := s.users.Update(ctx, user); err != nil {
		return services.WrapInternal("failed to persist password reset", err)
	}

	s.auditAttempt(ctx, user.Username, "password_reset_complete", models.OutcomeSuccess)
	return nil
}

// ValidatePasswordStrength requires a minimum length plus upper, lower,
// digit and special character classes.
func (s *Service) ValidatePasswordStrength(password string) error {
	minLen := s.cfg.MinPasswordLen
	if minLen <= 0 {
		minLen = 12
	}
	if len(password) < minLen {
		return services.ErrWeakPassword.WithDetail("reason", fmt.Sprintf("minimum length is %d", minLen))
	}

	var upper, lower, digit, special bool
	for _, r := range password {
		switch {
		case unicode.IsUpper(r):
			upper = true
		case unicode.IsLower(r):
			lower = true
		case unicode.IsDigit(r):
			digit = true
		case unicode.IsPunct(r) || unicode.IsSymbol(r):
			special = true
		}
	}
	if !upper || !lower || !digit || !special {
		return services.ErrWeakPassword.WithDetail("reason",
			"must contain upper, lower, digit and special characters")
	}
	return nil
}

// registerFailure increments the failure counter and, at the threshold, arms
// the lockout. The mutation is persisted before the caller returns its error
// so a racing attempt observes the new counter.
func (s *Service) registerFailure(ctx context.Context, user *models.User, now time.Time) error {
	user.FailedLoginAttempts++
	if user.FailedLoginAttempts >= s.cfg.LockoutThreshold {
		lockUntil := now.Add(s.cfg.LockoutDuration)
		user.LockUntil = &lockUntil
		user.FailedLoginAttempts = 0
		s.logger.Warn("account locked after repeated failures",
			zap.String("username", user.Username),
			zap.Time("lock_until", lockUntil))
	}

	if err := s.users.Update(ctx, user); err != nil {
		s.logger.Error("failed to persist failure counter",
			zap.String("username", user.Username), zap.Error(err))
		return services.WrapInternal("failed to persist failure counter", err)
	}
	return nil
}

func (s *Service) deriveCode(secret string, step int64) string {
	digest := s.crypto.HashIdentifier("2fa", secret, fmt.Sprintf("%d", step))
	var digits strings.Builder
	for _, r := range digest {
		if r >= '0' && r <= '9' {
			digits.WriteRune(r)
			if digits.Len() == 6 {
				break
			}
		}
	}
	// hex digests are digit-rich; pad on the off chance fewer than 6 appear
	for digits.Len() < 6 {
		digits.WriteByte('0')
	}
	return digits.String()
}

// auditAttempt emits one event per attempt, joined to the request's pre/post
// records through the correlation id carried in ctx. Attempts made outside a
// request get a fresh id so the record stays individually traceable.
func (s *Service) auditAttempt(ctx context.Context, subject, action string, outcome models.AuditOutcome) {
	correlationID := audit.CorrelationIDFromContext(ctx)
	if correlationID == "" {
		correlationID = uuid.NewString()
	}
	record := models.NewAuditRecord(correlationID, models.PhaseRequest)
	record.Username = subject
	record.Action = action
	record.Outcome = string(outcome)
	s.trail.Record(record)
}
