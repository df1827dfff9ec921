// Package service provides OAuth supporting services: client secret hashing,
// opaque token generation, claim assembly, and JWT signing.
package service

import (
	"context"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/allisson/tokend/internal/oauth/domain"
)

// SecretService handles client secret generation and verification.
type SecretService interface {
	// GenerateSecret creates a new random secret and returns both the plain
	// value (shown once) and its hash (stored).
	GenerateSecret() (plainSecret string, hashedSecret string, err error)

	// HashSecret hashes a plain text secret.
	HashSecret(plainSecret string) (string, error)

	// CompareSecret performs a constant-time comparison between a plain
	// secret and its stored hash.
	CompareSecret(plainSecret string, hashedSecret string) bool
}

// TokenFactory mints opaque token identifiers and their storage records.
type TokenFactory interface {
	// NewOpaqueToken creates a 256-bit URL-safe token and its record with
	// the per-kind lifetime applied. The record is in-memory until a
	// repository persists it.
	NewOpaqueToken(
		kind domain.TokenKind,
		clientID uuid.UUID,
		subjectID *uuid.UUID,
		scopes []string,
	) (plainToken string, token *domain.Token, err error)

	// HashToken hashes a plain token value with SHA-256.
	HashToken(plainToken string) string

	// Lifetime returns the configured lifetime for a token kind.
	Lifetime(kind domain.TokenKind) time.Duration
}

// ClaimSource contributes one private claim to access tokens. A failing
// source is logged and skipped; it never aborts the claim set.
type ClaimSource interface {
	// Name is the claim name the source populates.
	Name() string

	// Resolve produces the claim value for the current grant.
	Resolve(ctx context.Context, claimCtx *ClaimContext) (any, error)
}

// TokenSigner signs claim sets with the active key.
type TokenSigner interface {
	// Sign produces a compact JWT whose header carries the active key id
	// and the token id.
	Sign(claims jwt.MapClaims, tokenID string) (string, error)
}
