package domain

import (
	"github.com/allisson/tokend/internal/errors"
)

// Domain-specific errors for OAuth operations.
var (
	// ErrClientNotFound indicates the requested client does not exist.
	ErrClientNotFound = errors.Wrap(errors.ErrNotFound, "client not found")

	// ErrClientExists indicates a client with the same client_id already exists.
	ErrClientExists = errors.Wrap(errors.ErrConflict, "client already exists")

	// ErrTokenNotFound indicates no stored token matches the presented hash.
	ErrTokenNotFound = errors.Wrap(errors.ErrNotFound, "token not found")

	// ErrTokenConsumed indicates a single-use token was already spent.
	ErrTokenConsumed = errors.Wrap(errors.ErrInvalidGrant, "token already used or revoked")
)
