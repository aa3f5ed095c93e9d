package gui

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/localrivet/githubsentinel/internal/errortypes"
)

// ErrorResponse represents the structure of error responses sent by the API
type ErrorResponse struct {
	Status  string                 `json:"status"`
	Code    string                 `json:"code"`
	Message string                 `json:"message"`
	Details map[string]interface{} `json:"details,omitempty"`
}

// Common error codes
const (
	// ErrorCodeInvalidRequest indicates the client sent an invalid request
	ErrorCodeInvalidRequest = "INVALID_REQUEST"

	// ErrorCodeResourceNotFound indicates a prompt, report or repository was not found
	ErrorCodeResourceNotFound = "RESOURCE_NOT_FOUND"

	// ErrorCodeBadGateway indicates a failure in the LLM provider or GitHub
	ErrorCodeBadGateway = "BAD_GATEWAY"

	// ErrorCodeConfigError indicates the service is misconfigured
	ErrorCodeConfigError = "CONFIG_ERROR"

	// ErrorCodeInternalError indicates an internal server error
	ErrorCodeInternalError = "INTERNAL_ERROR"
)

// writeErrorResponse writes a structured error response to the HTTP response writer
func writeErrorResponse(w http.ResponseWriter, logger *slog.Logger, status int, code, message string, err error) {
	errResp := ErrorResponse{
		Status:  "error",
		Code:    code,
		Message: message,
	}

	if err != nil {
		errResp.Details = map[string]interface{}{
			"error": err.Error(),
		}
		var appErr *errortypes.AppError
		if errors.As(err, &appErr) {
			errResp.Details["type"] = string(appErr.Type)
			for k, v := range appErr.Fields {
				errResp.Details[k] = v
			}
		}
		logger.Warn("API error", "status_code", status, "error_code", code, "error", err)
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(errResp); err != nil {
		logger.Error("Failed to encode error response", "error", err)
	}
}

// StatusFor maps an error to its HTTP status and error code.
func StatusFor(err error) (int, string, string) {
	switch errortypes.TypeOf(err) {
	case errortypes.ErrorTypeValidation:
		return http.StatusBadRequest, ErrorCodeInvalidRequest, "Invalid request parameters"
	case errortypes.ErrorTypeResourceNotFound:
		return http.StatusNotFound, ErrorCodeResourceNotFound, "Resource not found"
	case errortypes.ErrorTypeProviderCallFailed, errortypes.ErrorTypeProviderResponseMalformed:
		return http.StatusBadGateway, ErrorCodeBadGateway, "Report provider error"
	case errortypes.ErrorTypeNetwork, errortypes.ErrorTypeExternal:
		return http.StatusBadGateway, ErrorCodeBadGateway, "Downstream service error"
	case errortypes.ErrorTypeConfig, errortypes.ErrorTypeUnsupportedProviderKind:
		return http.StatusInternalServerError, ErrorCodeConfigError, "Service misconfigured"
	default:
		return http.StatusInternalServerError, ErrorCodeInternalError, "An unexpected error occurred"
	}
}

// HandleError writes the response for err, inspecting its type to determine
// the status code.
func HandleError(w http.ResponseWriter, logger *slog.Logger, err error) {
	status, code, message := StatusFor(err)
	writeErrorResponse(w, logger, status, code, message, err)
}

// HandleBadRequest handles 400 Bad Request errors
func HandleBadRequest(w http.ResponseWriter, logger *slog.Logger, message string, err error) {
	writeErrorResponse(w, logger, http.StatusBadRequest, ErrorCodeInvalidRequest, message, err)
}
