// Package app is the central dependency wiring point. Every component is
// constructed once here and injected explicitly; nothing reaches for global
// state.
package app

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/complycore/compliance-api/config"
	"github.com/complycore/compliance-api/handlers"
	"github.com/complycore/compliance-api/middleware"
	"github.com/complycore/compliance-api/repositories"
	"github.com/complycore/compliance-api/repositories/postgres"
	"github.com/complycore/compliance-api/services/audit"
	"github.com/complycore/compliance-api/services/auth"
	"github.com/complycore/compliance-api/services/authz"
	"github.com/complycore/compliance-api/services/crypto"
	"github.com/complycore/compliance-api/services/ratelimit"
	"github.com/complycore/compliance-api/services/token"
)

// Dependencies holds all application dependencies
type Dependencies struct {
	// Infrastructure
	Config *config.Config
	DB     *postgres.DB
	Logger *zap.Logger

	// Repositories
	Users     repositories.UserRepository
	AuditSink repositories.AuditSink

	// Security core services
	Crypto  *crypto.Manager
	Tokens  *token.Service
	Auth    *auth.Service
	Guard   *authz.Guard
	Limiter *ratelimit.Limiter
	Trail   *audit.Trail

	// Middleware
	Recover         *middleware.Recover
	SecurityHeaders *middleware.SecurityHeaders
	AuditMW         *middleware.Audit
	RateLimitMW     *middleware.RateLimit
	Validator       *middleware.RequestValidator
	AuthMW          *middleware.Auth

	// Handlers
	AuthHandler     *handlers.AuthHandler
	ResourceHandler *handlers.ResourceHandler
}

// NewDependencies creates and wires up all application dependencies
func NewDependencies(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*Dependencies, error) {
	deps := &Dependencies{
		Config: cfg,
		Logger: logger,
	}

	db, err := postgres.NewDB(cfg.Database, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}
	deps.DB = db

	if err := db.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("database ping failed: %w", err)
	}

	deps.Users = postgres.NewUserRepository(db, logger)
	deps.AuditSink = postgres.NewAuditRepository(db, logger)

	cm, err := crypto.NewManager(cfg.Security.EncryptionSecret)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize crypto manager: %w", err)
	}
	deps.Crypto = cm

	deps.Trail = audit.NewTrail(deps.AuditSink, logger, audit.DefaultConfig())
	if err := deps.Trail.Start(); err != nil {
		return nil, fmt.Errorf("failed to start audit trail: %w", err)
	}

	deps.Tokens = token.NewService(
		cfg.Security.JWTSecret,
		cfg.Security.AccessTokenTTL,
		cfg.Security.RefreshTokenTTL,
		logger,
	)
	deps.Guard = authz.NewGuard(logger)
	deps.Auth = auth.NewService(deps.Users, cm, deps.Trail, cfg.Security, logger)
	deps.Limiter = ratelimit.NewLimiter(ratelimit.Config{
		RequestsPerMinute: cfg.Security.RequestsPerMinute,
		BurstLimit:        cfg.Security.BurstLimit,
		IdleEviction:      cfg.Security.IdleEviction,
		SweepInterval:     cfg.Security.SweepInterval,
	}, logger)

	deps.Recover = middleware.NewRecover(logger)
	deps.SecurityHeaders = middleware.NewSecurityHeaders(cm, cfg.Security.TrustProxy)
	deps.AuditMW = middleware.NewAudit(deps.Trail, logger)
	deps.RateLimitMW = middleware.NewRateLimit(deps.Limiter, logger)
	deps.Validator = middleware.NewRequestValidator(cfg.Security.MaxPayloadBytes, logger)
	deps.AuthMW = middleware.NewAuth(deps.Tokens, deps.Guard, logger)

	deps.AuthHandler = handlers.NewAuthHandler(deps.Auth, deps.Tokens, deps.Guard, deps.Users, logger)
	deps.ResourceHandler = handlers.NewResourceHandler(deps.AuditSink, logger)

	logger.Info("all dependencies initialized")
	return deps, nil
}

// Close releases resources in reverse order of construction
func (d *Dependencies) Close() {
	if d.Trail != nil {
		if err := d.Trail.Stop(10 * time.Second); err != nil {
			d.Logger.Warn("audit trail did not stop cleanly", zap.Error(err))
		}
	}
	if d.Limiter != nil {
		d.Limiter.Reset()
	}
	if d.DB != nil {
		if err := d.DB.Close(); err != nil {
			d.Logger.Warn("database close failed", zap.Error(err))
		}
	}
}
