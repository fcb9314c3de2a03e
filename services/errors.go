package services

import (
	"errors"
	"fmt"
)

// ErrorType represents the type/category of error
type ErrorType string

const (
	ErrorTypeNotFound     ErrorType = "not_found"
	ErrorTypeValidation   ErrorType = "validation"
	ErrorTypeUnauthorized ErrorType = "unauthorized"
	ErrorTypeForbidden    ErrorType = "forbidden"
	ErrorTypeRateLimit    ErrorType = "rate_limit"
	ErrorTypePayload      ErrorType = "payload_too_large"
	ErrorTypeConflict     ErrorType = "conflict"
	ErrorTypeInternal     ErrorType = "internal"
)

// DomainError represents a structured error with additional context
type DomainError struct {
	Type    ErrorType
	Message string
	Err     error
	Details map[string]interface{}
}

// Error implements the error interface
func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (%v)", e.Type, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// Unwrap implements errors.Unwrap
func (e *DomainError) Unwrap() error {
	return e.Err
}

// Is implements errors.Is. Two domain errors match when both type and
// message agree, so distinct sentinels of the same type stay distinguishable.
func (e *DomainError) Is(target error) bool {
	t, ok := target.(*DomainError)
	if !ok {
		return false
	}
	return e.Type == t.Type && e.Message == t.Message
}

// WithDetail adds a detail to a copy of the error, leaving the sentinel intact
func (e *DomainError) WithDetail(key string, value interface{}) *DomainError {
	clone := &DomainError{
		Type:    e.Type,
		Message: e.Message,
		Err:     e.Err,
		Details: make(map[string]interface{}, len(e.Details)+1),
	}
	for k, v := range e.Details {
		clone.Details[k] = v
	}
	clone.Details[key] = value
	return clone
}

// NewDomainError creates a new domain error
func NewDomainError(errType ErrorType, message string, err error) *DomainError {
	return &DomainError{
		Type:    errType,
		Message: message,
		Err:     err,
		Details: make(map[string]interface{}),
	}
}

// Domain error variables

var (
	// Authentication errors (401 at the boundary). ErrInvalidCredentials is
	// deliberately the same for unknown user and wrong password.
	ErrInvalidCredentials   = NewDomainError(ErrorTypeUnauthorized, "invalid credentials", nil)
	ErrAccountInactive      = NewDomainError(ErrorTypeUnauthorized, "account is inactive", nil)
	ErrAccountLocked        = NewDomainError(ErrorTypeUnauthorized, "account is temporarily locked", nil)
	ErrInvalidTwoFactorCode = NewDomainError(ErrorTypeUnauthorized, "invalid two-factor code", nil)
	ErrInvalidToken         = NewDomainError(ErrorTypeUnauthorized, "invalid authentication token", nil)
	ErrTokenExpired         = NewDomainError(ErrorTypeUnauthorized, "authentication token expired", nil)
	ErrWrongTokenType       = NewDomainError(ErrorTypeUnauthorized, "wrong token type", nil)
	ErrUnauthorized         = NewDomainError(ErrorTypeUnauthorized, "unauthorized", nil)

	// Authorization errors (403)
	ErrForbidden               = NewDomainError(ErrorTypeForbidden, "access forbidden", nil)
	ErrInsufficientPermissions = NewDomainError(ErrorTypeForbidden, "insufficient permissions", nil)

	// Validation errors (400)
	ErrInvalidInput      = NewDomainError(ErrorTypeValidation, "invalid input", nil)
	ErrWeakPassword      = NewDomainError(ErrorTypeValidation, "password does not meet strength requirements", nil)
	ErrMaliciousPayload  = NewDomainError(ErrorTypeValidation, "request payload contains disallowed content", nil)
	ErrInvalidResetToken = NewDomainError(ErrorTypeValidation, "invalid or expired reset token", nil)

	// Payload errors (413)
	ErrPayloadTooLarge = NewDomainError(ErrorTypePayload, "request payload too large", nil)

	// Rate limit errors (429)
	ErrRateLimitSustained = NewDomainError(ErrorTypeRateLimit, "sustained rate limit exceeded", nil)
	ErrRateLimitBurst     = NewDomainError(ErrorTypeRateLimit, "burst rate limit exceeded", nil)

	// Not found / conflict
	ErrUserNotFound   = NewDomainError(ErrorTypeNotFound, "user not found", nil)
	ErrDuplicateEmail = NewDomainError(ErrorTypeConflict, "email already exists", nil)

	// Internal errors
	ErrInternal      = NewDomainError(ErrorTypeInternal, "internal server error", nil)
	ErrDatabaseError = NewDomainError(ErrorTypeInternal, "database error", nil)
)

// Error type checking helper functions

// IsNotFoundError checks if an error is a not found error
func IsNotFoundError(err error) bool {
	return GetErrorType(err) == ErrorTypeNotFound
}

// IsValidationError checks if an error is a validation error
func IsValidationError(err error) bool {
	return GetErrorType(err) == ErrorTypeValidation
}

// IsUnauthorizedError checks if an error is an unauthorized error
func IsUnauthorizedError(err error) bool {
	return GetErrorType(err) == ErrorTypeUnauthorized
}

// IsForbiddenError checks if an error is a forbidden error
func IsForbiddenError(err error) bool {
	return GetErrorType(err) == ErrorTypeForbidden
}

// IsRateLimitError checks if an error is a rate limit error
func IsRateLimitError(err error) bool {
	return GetErrorType(err) == ErrorTypeRateLimit
}

// IsPayloadTooLargeError checks if an error is an oversized payload error
func IsPayloadTooLargeError(err error) bool {
	return GetErrorType(err) == ErrorTypePayload
}

// IsConflictError checks if an error is a conflict error
func IsConflictError(err error) bool {
	return GetErrorType(err) == ErrorTypeConflict
}

// IsInternalError checks if an error is an internal error
func IsInternalError(err error) bool {
	return GetErrorType(err) == ErrorTypeInternal
}

// GetErrorType returns the ErrorType of a domain error, or empty string if not a domain error
func GetErrorType(err error) ErrorType {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Type
	}
	return ""
}

// GetErrorDetails returns the details map of a domain error, or nil if not a domain error
func GetErrorDetails(err error) map[string]interface{} {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Details
	}
	return nil
}

// WrapError wraps an error with additional context
func WrapError(errType ErrorType, message string, err error) error {
	return NewDomainError(errType, message, err)
}

// WrapInternal wraps an error as an internal error
func WrapInternal(message string, err error) error {
	return NewDomainError(ErrorTypeInternal, message, err)
}
