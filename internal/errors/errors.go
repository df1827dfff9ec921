// Package errors provides standardized domain errors that express business intent
// rather than infrastructure details. These errors should be used by use cases
// and mapped to appropriate HTTP status codes by handlers.
package errors

import (
	"errors"
	"fmt"
)

// Standard domain errors that can be used across all domain modules.
var (
	// ErrNotFound indicates the requested resource does not exist.
	ErrNotFound = errors.New("not found")

	// ErrConflict indicates a conflict with existing data (e.g., duplicate key).
	ErrConflict = errors.New("conflict")

	// ErrInvalidInput indicates the input data is invalid or fails validation.
	ErrInvalidInput = errors.New("invalid input")

	// ErrUnauthorized indicates the request lacks valid authentication credentials.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrForbidden indicates the authenticated caller doesn't have permission.
	ErrForbidden = errors.New("forbidden")
)

// OAuth 2.0 error taxonomy, mirroring RFC 6749 Section 5.2 plus two
// operational additions. Handlers map these to the standard
// {"error", "error_description"} response body.
var (
	// ErrInvalidRequest indicates a malformed or missing required parameter.
	ErrInvalidRequest = errors.New("invalid_request")

	// ErrInvalidClient indicates an unknown or unauthenticated client.
	ErrInvalidClient = errors.New("invalid_client")

	// ErrInvalidGrant indicates an expired, revoked, or already-used
	// authorization code or refresh token.
	ErrInvalidGrant = errors.New("invalid_grant")

	// ErrUnsupportedGrantType indicates the grant type is not supported
	// by this authorization server.
	ErrUnsupportedGrantType = errors.New("unsupported_grant_type")

	// ErrInvalidScope indicates a requested scope does not exist, is not
	// permitted for the client, or is not enabled for the grant type.
	ErrInvalidScope = errors.New("invalid_scope")

	// ErrAccessDenied indicates subject resolution failed where a subject
	// was required.
	ErrAccessDenied = errors.New("access_denied")

	// ErrTemporarilyUnavailable indicates a lock-wait timeout; callers
	// should retry with backoff.
	ErrTemporarilyUnavailable = errors.New("temporarily_unavailable")

	// ErrServerError indicates a signing-key, claim-extension, or
	// persistence failure not otherwise classified.
	ErrServerError = errors.New("server_error")
)

// New creates a new error with the given message.
// This is a convenience wrapper around errors.New for consistency.
func New(message string) error {
	return errors.New(message)
}

// Wrap wraps an error with additional context while preserving the error chain.
// Use this to add context at each layer without losing the original error type.
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

// Is reports whether any error in err's tree matches target.
// This is a convenience wrapper around errors.Is.
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's tree that matches target.
// This is a convenience wrapper around errors.As.
func As(err error, target any) bool {
	return errors.As(err, target)
}
