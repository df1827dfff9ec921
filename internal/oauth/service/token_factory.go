package service

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/allisson/tokend/internal/config"
	"github.com/allisson/tokend/internal/oauth/domain"

	apperrors "github.com/allisson/tokend/internal/errors"
)

// tokenFactory implements TokenFactory using SHA-256 for token hashing.
type tokenFactory struct {
	config *config.Config
}

// NewOpaqueToken creates a new cryptographically secure 32-byte random token
// and its storage record. The plain token is base64 URL-encoded; only its
// SHA-256 hash is carried on the record.
func (f *tokenFactory) NewOpaqueToken(
	kind domain.TokenKind,
	clientID uuid.UUID,
	subjectID *uuid.UUID,
	scopes []string,
) (string, *domain.Token, error) {
	// Generate 32 random bytes (256 bits)
	randomBytes := make([]byte, 32)
	if _, err := rand.Read(randomBytes); err != nil {
		return "", nil, apperrors.Wrap(err, "failed to generate random token")
	}

	plainToken := base64.URLEncoding.EncodeToString(randomBytes)
	now := time.Now().UTC()

	token := &domain.Token{
		ID:        uuid.Must(uuid.NewV7()),
		TokenHash: f.HashToken(plainToken),
		Kind:      kind,
		ClientID:  clientID,
		SubjectID: subjectID,
		Scopes:    strings.Join(scopes, " "),
		IssuedAt:  now,
		ExpiresAt: now.Add(f.Lifetime(kind)),
	}

	return plainToken, token, nil
}

// HashToken hashes a plain token value using SHA-256.
// Returns the hash as a hexadecimal string.
func (f *tokenFactory) HashToken(plainToken string) string {
	hash := sha256.Sum256([]byte(plainToken))
	return hex.EncodeToString(hash[:])
}

// Lifetime returns the configured lifetime for a token kind.
func (f *tokenFactory) Lifetime(kind domain.TokenKind) time.Duration {
	switch kind {
	case domain.TokenKindRefresh:
		return f.config.RefreshTokenExpiration
	case domain.TokenKindAuthorizationCode:
		return f.config.AuthorizationCodeExpiration
	default:
		return f.config.AccessTokenExpiration
	}
}

// NewTokenFactory creates a new TokenFactory with per-kind lifetimes from config.
func NewTokenFactory(cfg *config.Config) TokenFactory {
	return &tokenFactory{
		config: cfg,
	}
}
