// Package httputil provides HTTP utility functions for request and response handling.
package httputil

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	apperrors "github.com/allisson/tokend/internal/errors"
)

// OAuthErrorResponse is the RFC 6749 Section 5.2 error body returned by the
// token endpoint.
type OAuthErrorResponse struct {
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description,omitempty"`
}

// ErrorResponse represents a structured error response for non-OAuth endpoints.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

// HandleOAuthErrorGin maps domain errors to the RFC 6749 error body and status
// code. Internal failure details are logged but never exposed to the client.
func HandleOAuthErrorGin(c *gin.Context, err error, logger *slog.Logger) {
	if err == nil {
		return
	}

	var statusCode int
	var response OAuthErrorResponse

	switch {
	case apperrors.Is(err, apperrors.ErrInvalidRequest):
		statusCode = http.StatusBadRequest
		response = OAuthErrorResponse{
			Error:            "invalid_request",
			ErrorDescription: describe(err, apperrors.ErrInvalidRequest),
		}

	case apperrors.Is(err, apperrors.ErrInvalidClient):
		// RFC 6749 Section 5.2: invalid_client uses 401.
		statusCode = http.StatusUnauthorized
		response = OAuthErrorResponse{
			Error:            "invalid_client",
			ErrorDescription: "client authentication failed",
		}

	case apperrors.Is(err, apperrors.ErrInvalidGrant):
		statusCode = http.StatusBadRequest
		response = OAuthErrorResponse{
			Error:            "invalid_grant",
			ErrorDescription: describe(err, apperrors.ErrInvalidGrant),
		}

	case apperrors.Is(err, apperrors.ErrUnsupportedGrantType):
		statusCode = http.StatusBadRequest
		response = OAuthErrorResponse{
			Error:            "unsupported_grant_type",
			ErrorDescription: describe(err, apperrors.ErrUnsupportedGrantType),
		}

	case apperrors.Is(err, apperrors.ErrInvalidScope):
		statusCode = http.StatusBadRequest
		response = OAuthErrorResponse{
			Error:            "invalid_scope",
			ErrorDescription: describe(err, apperrors.ErrInvalidScope),
		}

	case apperrors.Is(err, apperrors.ErrAccessDenied):
		statusCode = http.StatusBadRequest
		response = OAuthErrorResponse{
			Error:            "access_denied",
			ErrorDescription: "resource owner authentication failed",
		}

	case apperrors.Is(err, apperrors.ErrTemporarilyUnavailable):
		statusCode = http.StatusServiceUnavailable
		response = OAuthErrorResponse{
			Error:            "temporarily_unavailable",
			ErrorDescription: "an identical request is in flight, retry with backoff",
		}

	default:
		// Unknown and server_error failures: no internal details to the client.
		statusCode = http.StatusInternalServerError
		response = OAuthErrorResponse{
			Error: "server_error",
		}
	}

	if logger != nil {
		logger.Error("token request failed",
			slog.Int("status_code", statusCode),
			slog.String("error_code", response.Error),
			slog.Any("error", err),
		)
	}

	c.Header("Cache-Control", "no-store")
	c.JSON(statusCode, response)
}

// HandleErrorGin maps domain errors to HTTP status codes for non-OAuth
// endpoints and returns a JSON response using Gin.
func HandleErrorGin(c *gin.Context, err error, logger *slog.Logger) {
	if err == nil {
		return
	}

	var statusCode int
	var errorResponse ErrorResponse

	switch {
	case apperrors.Is(err, apperrors.ErrNotFound):
		statusCode = http.StatusNotFound
		errorResponse = ErrorResponse{
			Error:   "not_found",
			Message: "The requested resource was not found",
		}

	case apperrors.Is(err, apperrors.ErrConflict):
		statusCode = http.StatusConflict
		errorResponse = ErrorResponse{
			Error:   "conflict",
			Message: "A conflict occurred with existing data",
		}

	case apperrors.Is(err, apperrors.ErrInvalidInput):
		statusCode = http.StatusUnprocessableEntity
		errorResponse = ErrorResponse{
			Error:   "invalid_input",
			Message: err.Error(),
		}

	case apperrors.Is(err, apperrors.ErrUnauthorized):
		statusCode = http.StatusUnauthorized
		errorResponse = ErrorResponse{
			Error:   "unauthorized",
			Message: "Authentication is required",
		}

	case apperrors.Is(err, apperrors.ErrForbidden):
		statusCode = http.StatusForbidden
		errorResponse = ErrorResponse{
			Error:   "forbidden",
			Message: "You don't have permission to access this resource",
		}

	default:
		// For unknown/internal errors, don't expose details to the client
		statusCode = http.StatusInternalServerError
		errorResponse = ErrorResponse{
			Error:   "internal_error",
			Message: "An internal error occurred",
		}
	}

	// Log the full error details (including wrapped errors)
	if logger != nil {
		logger.Error("request failed",
			slog.Int("status_code", statusCode),
			slog.String("error_code", errorResponse.Error),
			slog.Any("error", err),
		)
	}

	c.JSON(statusCode, errorResponse)
}

// MakeJSONResponse writes a JSON response with the given status code.
func MakeJSONResponse(w http.ResponseWriter, statusCode int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	// Encoding failures here leave a half-written response; nothing to do.
	_ = json.NewEncoder(w).Encode(body)
}

// describe returns the human-readable part of a wrapped taxonomy error.
// The sentinel suffix is stripped so the description doesn't repeat the code;
// a bare sentinel yields an empty description.
func describe(err, sentinel error) string {
	msg := err.Error()
	if msg == sentinel.Error() {
		return ""
	}
	return strings.TrimSuffix(msg, ": "+sentinel.Error())
}
