// Package usecase implements business logic orchestration for OAuth grant
// handling, client registration, and token maintenance.
package usecase

import (
	"context"
	"time"

	"github.com/google/uuid"

	oauthDomain "github.com/allisson/tokend/internal/oauth/domain"
	scopeDomain "github.com/allisson/tokend/internal/scope/domain"
	subjectDomain "github.com/allisson/tokend/internal/subject/domain"
)

// ClientRepository defines client repository operations.
type ClientRepository interface {
	Create(ctx context.Context, client *oauthDomain.Client) error
	GetByClientID(ctx context.Context, clientID string) (*oauthDomain.Client, error)
	GetByID(ctx context.Context, id uuid.UUID) (*oauthDomain.Client, error)
}

// TokenRepository defines token record repository operations.
type TokenRepository interface {
	Create(ctx context.Context, token *oauthDomain.Token) error
	GetByTokenHash(ctx context.Context, tokenHash string) (*oauthDomain.Token, error)
	Consume(ctx context.Context, id uuid.UUID) error
	Revoke(ctx context.Context, id uuid.UUID) error
	IsRevoked(ctx context.Context, id uuid.UUID) (bool, error)
	DeleteExpired(ctx context.Context, cutoff time.Time) (int64, error)
}

// ScopeAuthorizer finalizes the effective scope set for a grant.
type ScopeAuthorizer interface {
	FinalizeScopes(
		ctx context.Context,
		requested []string,
		grantType scopeDomain.GrantType,
		clientAllowed []string,
	) ([]*scopeDomain.Scope, error)
}

// SubjectResolver resolves and authenticates subjects for grants.
type SubjectResolver interface {
	Authenticate(ctx context.Context, username, password string) (*subjectDomain.Subject, error)
	GetByID(ctx context.Context, id uuid.UUID) (*subjectDomain.Subject, error)
}

// GrantUseCase coordinates the multi-grant token endpoint.
type GrantUseCase interface {
	// Token runs a token request through the full grant pipeline and
	// returns the issued token set.
	Token(ctx context.Context, req *oauthDomain.TokenRequest) (*oauthDomain.TokenResult, error)

	// IssueAuthorizationCode mints a single-use authorization code after an
	// out-of-band authorization decision.
	IssueAuthorizationCode(
		ctx context.Context,
		input *oauthDomain.IssueAuthorizationCodeInput,
	) (*oauthDomain.IssueAuthorizationCodeOutput, error)

	// CleanExpiredTokens removes token records past their expiry and
	// returns the number of deleted rows.
	CleanExpiredTokens(ctx context.Context) (int64, error)
}

// ClientUseCase defines client registration operations.
type ClientUseCase interface {
	// Create registers a new client and returns its one-time plain secret.
	Create(ctx context.Context, input *oauthDomain.CreateClientInput) (*oauthDomain.CreateClientOutput, error)
}
