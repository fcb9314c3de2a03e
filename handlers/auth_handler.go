package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/complycore/compliance-api/middleware"
	"github.com/complycore/compliance-api/models"
	"github.com/complycore/compliance-api/repositories"
	"github.com/complycore/compliance-api/services/auth"
	"github.com/complycore/compliance-api/services/authz"
	"github.com/complycore/compliance-api/services/token"
	"github.com/complycore/compliance-api/utils"
)

// LoginRequest represents a login attempt
type LoginRequest struct {
	Username      string `json:"username" validate:"required"`
	Password      string `json:"password" validate:"required"`
	TwoFactorCode string `json:"two_factor_code,omitempty"`
}

// LoginResponse carries the issued token pair
type LoginResponse struct {
	AccessToken  string          `json:"access_token"`
	RefreshToken string          `json:"refresh_token"`
	TokenType    string          `json:"token_type"`
	Username     string          `json:"username"`
	Role         models.UserRole `json:"role"`
}

// RefreshRequest represents a token refresh
type RefreshRequest struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
}

// ChangePasswordRequest represents a password change for the current user
type ChangePasswordRequest struct {
	OldPassword string `json:"old_password" validate:"required"`
	NewPassword string `json:"new_password" validate:"required"`
}

// ResetRequest initiates a password reset by email
type ResetRequest struct {
	Email string `json:"email" validate:"required,email"`
}

// ResetConfirmRequest consumes a reset token
type ResetConfirmRequest struct {
	Email       string `json:"email" validate:"required,email"`
	Token       string `json:"token" validate:"required"`
	NewPassword string `json:"new_password" validate:"required"`
}

// AuthHandler handles authentication-related HTTP requests
type AuthHandler struct {
	authSvc  *auth.Service
	tokenSvc *token.Service
	guard    *authz.Guard
	users    repositories.UserRepository
	logger   *zap.Logger
}

// NewAuthHandler creates a new AuthHandler
func NewAuthHandler(authSvc *auth.Service, tokenSvc *token.Service, guard *authz.Guard, users repositories.UserRepository, logger *zap.Logger) *AuthHandler {
	return &AuthHandler{
		authSvc:  authSvc,
		tokenSvc: tokenSvc,
		guard:    guard,
		users:    users,
		logger:   logger,
	}
}

// HandleLogin handles POST /api/v1/auth/login
func (h *AuthHandler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if !h.decode(w, r, &req) {
		return
	}

	user, err := h.authSvc.AuthenticateWithTwoFactor(r.Context(), req.Username, req.Password, req.TwoFactorCode)
	if err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}

	// permissions are materialized into the token at issuance
	permissions := h.guard.Permissions(user.Role)

	accessToken, err := h.tokenSvc.Issue(user.ID, user.Username, user.Role, permissions, token.TypeAccess)
	if err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}
	refreshToken, err := h.tokenSvc.Issue(user.ID, user.Username, user.Role, permissions, token.TypeRefresh)
	if err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}

	_ = utils.WriteOK(w, LoginResponse{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		TokenType:    "Bearer",
		Username:     user.Username,
		Role:         user.Role,
	})
}

// HandleRefresh handles POST /api/v1/auth/refresh
func (h *AuthHandler) HandleRefresh(w http.ResponseWriter, r *http.Request) {
	var req RefreshRequest
	if !h.decode(w, r, &req) {
		return
	}

	accessToken, err := h.tokenSvc.Refresh(req.RefreshToken)
	if err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}

	_ = utils.WriteOK(w, map[string]string{
		"access_token": accessToken,
		"token_type":   "Bearer",
	})
}

// HandleChangePassword handles POST /api/v1/auth/password/change.
// Requires authentication.
func (h *AuthHandler) HandleChangePassword(w http.ResponseWriter, r *http.Request) {
	claims := middleware.GetClaimsFromContext(r.Context())
	if claims == nil {
		_ = utils.WriteUnauthorized(w, "")
		return
	}

	var req ChangePasswordRequest
	if !h.decode(w, r, &req) {
		return
	}

	userID, err := uuid.Parse(claims.Subject)
	if err != nil {
		_ = utils.WriteUnauthorized(w, "")
		return
	}

	user, err := h.users.GetByID(r.Context(), userID)
	if err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}

	if err := h.authSvc.ChangePassword(r.Context(), user, req.OldPassword, req.NewPassword); err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}

	_ = utils.WriteOK(w, map[string]string{"message": "password changed"})
}

// HandleInitiateReset handles POST /api/v1/auth/password/reset.
// The response is identical, in body and timing, whether or not the email
// exists: token generation and persistence run after the response is written,
// so no account-dependent work sits on the response path.
func (h *AuthHandler) HandleInitiateReset(w http.ResponseWriter, r *http.Request) {
	var req ResetRequest
	if !h.decode(w, r, &req) {
		return
	}

	ctx := context.WithoutCancel(r.Context())
	go func() {
		if _, err := h.authSvc.InitiatePasswordReset(ctx, req.Email); err != nil {
			// internal failures are logged but the response shape stays constant
			h.logger.Error("password reset initiation failed", zap.Error(err))
		}
	}()

	_ = utils.WriteAccepted(w, "If the account exists, a reset link has been sent")
}

// HandleConfirmReset handles POST /api/v1/auth/password/reset/confirm
func (h *AuthHandler) HandleConfirmReset(w http.ResponseWriter, r *http.Request) {
	var req ResetConfirmRequest
	if !h.decode(w, r, &req) {
		return
	}

	if err := h.authSvc.CompletePasswordReset(r.Context(), req.Email, req.Token, req.NewPassword); err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}

	_ = utils.WriteOK(w, map[string]string{"message": "password reset"})
}

// HandleMe handles GET /api/v1/auth/me. Requires authentication.
func (h *AuthHandler) HandleMe(w http.ResponseWriter, r *http.Request) {
	claims := middleware.GetClaimsFromContext(r.Context())
	if claims == nil {
		_ = utils.WriteUnauthorized(w, "")
		return
	}

	_ = utils.WriteOK(w, map[string]interface{}{
		"subject":     claims.Subject,
		"username":    claims.Username,
		"role":        claims.Role,
		"permissions": claims.Permissions,
	})
}

// decode parses and validates a JSON request body. Returns false after
// writing the error response when the body is unusable.
func (h *AuthHandler) decode(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		_ = utils.WriteBadRequest(w, "invalid JSON body", nil)
		return false
	}
	if err := utils.ValidateStruct(dst); err != nil {
		HandleValidationError(w, err, h.logger)
		return false
	}
	return true
}
