package handlers

import (
	"go.uber.org/zap"

	"net/http"

	"github.com/complycore/compliance-api/services"
	"github.com/complycore/compliance-api/utils"
)

// HandleServiceError maps domain errors to HTTP responses. This is the single
// place where the error taxonomy meets wire status codes; inner layers only
// return typed errors.
func HandleServiceError(w http.ResponseWriter, err error, logger *zap.Logger) {
	if err == nil {
		return
	}

	details := services.GetErrorDetails(err)

	switch {
	case services.IsUnauthorizedError(err):
		if werr := utils.WriteUnauthorized(w, err.Error()); werr != nil {
			logger.Error("failed to write unauthorized response", zap.Error(werr))
		}

	case services.IsForbiddenError(err):
		if werr := utils.WriteForbidden(w, err.Error()); werr != nil {
			logger.Error("failed to write forbidden response", zap.Error(werr))
		}

	case services.IsValidationError(err):
		if werr := utils.WriteBadRequest(w, err.Error(), details); werr != nil {
			logger.Error("failed to write bad request response", zap.Error(werr))
		}

	case services.IsPayloadTooLargeError(err):
		if werr := utils.WritePayloadTooLarge(w, err.Error(), details); werr != nil {
			logger.Error("failed to write payload too large response", zap.Error(werr))
		}

	case services.IsRateLimitError(err):
		if werr := utils.WriteTooManyRequests(w, err.Error(), details); werr != nil {
			logger.Error("failed to write rate limit response", zap.Error(werr))
		}

	case services.IsNotFoundError(err):
		if werr := utils.WriteNotFound(w, err.Error()); werr != nil {
			logger.Error("failed to write not found response", zap.Error(werr))
		}

	default:
		// unexpected errors never leak their message
		logger.Error("internal server error", zap.Error(err))
		if werr := utils.WriteInternalServerError(w, "An internal error occurred"); werr != nil {
			logger.Error("failed to write internal error response", zap.Error(werr))
		}
	}
}

// HandleValidationError handles validation errors from request parsing
func HandleValidationError(w http.ResponseWriter, err error, logger *zap.Logger) {
	if utils.IsValidationError(err) {
		fields := utils.GetValidationFields(err)
		details := make(map[string]interface{}, len(fields))
		for k, v := range fields {
			details[k] = v
		}
		if werr := utils.WriteBadRequest(w, "Validation failed", details); werr != nil {
			logger.Error("failed to write validation error response", zap.Error(werr))
		}
		return
	}

	if werr := utils.WriteBadRequest(w, err.Error(), nil); werr != nil {
		logger.Error("failed to write validation error response", zap.Error(werr))
	}
}
