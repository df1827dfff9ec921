package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// TokenKind discriminates the stored token records.
type TokenKind string

// Token kinds persisted in the tokens table.
const (
	TokenKindAccess            TokenKind = "access"
	TokenKindRefresh           TokenKind = "refresh"
	TokenKindAuthorizationCode TokenKind = "authorization_code"
)

// Token is a stored token record. Access tokens store the hash of the signed
// JWT; refresh tokens and authorization codes store the hash of the opaque
// identifier. The plain value is never persisted.
type Token struct {
	ID        uuid.UUID
	TokenHash string
	Kind      TokenKind
	ClientID  uuid.UUID
	SubjectID *uuid.UUID
	Scopes    string
	IssuedAt  time.Time
	ExpiresAt time.Time
	RevokedAt *time.Time
}

// IsExpired reports whether the token expired before now.
func (t *Token) IsExpired(now time.Time) bool {
	return t.ExpiresAt.Before(now)
}

// IsRevoked reports whether the token has been revoked or consumed.
func (t *Token) IsRevoked() bool {
	return t.RevokedAt != nil
}

// ScopeList splits the stored space-joined scope string.
func (t *Token) ScopeList() []string {
	if t.Scopes == "" {
		return nil
	}
	return strings.Fields(t.Scopes)
}

// TokenRequest is the parsed form of a POST /oauth/token submission. Field
// order matters for lock key derivation: identical payloads must collide.
type TokenRequest struct {
	GrantType    string
	ClientID     string
	ClientSecret string
	Scope        string
	Code         string
	RedirectURI  string
	Username     string
	Password     string
	RefreshToken string
}

// LockKeyParts returns the canonical payload fields in stable order for
// lock key derivation.
func (r *TokenRequest) LockKeyParts() []string {
	return []string{
		r.GrantType,
		r.ClientID,
		r.ClientSecret,
		r.Scope,
		r.Code,
		r.RedirectURI,
		r.Username,
		r.Password,
		r.RefreshToken,
	}
}

// RequestedScopes splits the space-delimited scope parameter.
func (r *TokenRequest) RequestedScopes() []string {
	if r.Scope == "" {
		return nil
	}
	return strings.Fields(r.Scope)
}

// TokenResult is the outcome of a successful grant. RefreshToken and IDToken
// are empty when not issued; handlers omit the corresponding JSON fields.
type TokenResult struct {
	AccessToken  string
	TokenType    string
	ExpiresIn    int64
	Scope        string
	RefreshToken string
	IDToken      string
}

// IssueAuthorizationCodeInput describes a code minted after an out-of-band
// authorization decision.
type IssueAuthorizationCodeInput struct {
	ClientID    string
	SubjectID   uuid.UUID
	Scopes      []string
	RedirectURI string
}

// IssueAuthorizationCodeOutput carries the one-time plain code.
type IssueAuthorizationCodeOutput struct {
	Code      string
	ExpiresAt time.Time
}
