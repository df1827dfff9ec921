package usecase

import (
	"context"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"

	"github.com/allisson/tokend/internal/config"
	"github.com/allisson/tokend/internal/database"
	"github.com/allisson/tokend/internal/lock"
	oauthDomain "github.com/allisson/tokend/internal/oauth/domain"
	oauthService "github.com/allisson/tokend/internal/oauth/service"
	scopeDomain "github.com/allisson/tokend/internal/scope/domain"
	subjectDomain "github.com/allisson/tokend/internal/subject/domain"

	apperrors "github.com/allisson/tokend/internal/errors"
)

// scopeOpenID triggers ID token issuance when present in the finalized set.
const scopeOpenID = "openid"

// grantUseCase implements GrantUseCase. All grant types run through the same
// pipeline: lock, authenticate client, grant-specific validation, scope
// finalization, mint, persist, respond. Nothing is written until the grant
// is known good; the atomic consume of a single-use code or refresh token
// runs in the same transaction as the new records, which is what makes
// replays fail without burning tokens on rejected requests.
type grantUseCase struct {
	config        *config.Config
	logger        *slog.Logger
	grantLock     lock.GrantLock
	txManager     database.TxManager
	clientRepo    ClientRepository
	tokenRepo     TokenRepository
	subjects      SubjectResolver
	scopes        ScopeAuthorizer
	secretService oauthService.SecretService
	tokenFactory  oauthService.TokenFactory
	claimBuilder  *oauthService.ClaimBuilder
	tokenSigner   oauthService.TokenSigner
	flight        singleflight.Group
}

// NewGrantUseCase creates a new GrantUseCase with the provided dependencies.
func NewGrantUseCase(
	cfg *config.Config,
	logger *slog.Logger,
	grantLock lock.GrantLock,
	txManager database.TxManager,
	clientRepo ClientRepository,
	tokenRepo TokenRepository,
	subjects SubjectResolver,
	scopes ScopeAuthorizer,
	secretService oauthService.SecretService,
	tokenFactory oauthService.TokenFactory,
	claimBuilder *oauthService.ClaimBuilder,
	tokenSigner oauthService.TokenSigner,
) GrantUseCase {
	return &grantUseCase{
		config:        cfg,
		logger:        logger,
		grantLock:     grantLock,
		txManager:     txManager,
		clientRepo:    clientRepo,
		tokenRepo:     tokenRepo,
		subjects:      subjects,
		scopes:        scopes,
		secretService: secretService,
		tokenFactory:  tokenFactory,
		claimBuilder:  claimBuilder,
		tokenSigner:   tokenSigner,
	}
}

// grantOutcome is the grant-specific part of the pipeline: who the token
// acts for, which scopes were asked for, and whether a refresh token is due.
type grantOutcome struct {
	subject     *subjectDomain.Subject
	requested   []string
	mintRefresh bool
	// consumeID is the single-use token record (authorization code or
	// refresh token) spent by this grant. It is consumed inside the
	// minting transaction so a validation failure after lookup leaves
	// the presented token usable.
	consumeID *uuid.UUID
}

// Token runs a token request through the full grant pipeline.
//
// Identical in-process submissions collapse onto one execution via
// singleflight and share its result, so a duplicate burst persists exactly
// one token set. Across processes the keyed lock serializes holders of the
// same payload; a waiter that outlives the wait window gets
// ErrTemporarilyUnavailable with no side effects.
func (g *grantUseCase) Token(
	ctx context.Context,
	req *oauthDomain.TokenRequest,
) (*oauthDomain.TokenResult, error) {
	grantType, err := g.parseGrantType(req.GrantType)
	if err != nil {
		return nil, err
	}

	key := lock.Key(req.LockKeyParts()...)
	result, err, _ := g.flight.Do(key, func() (any, error) {
		return g.runGrant(ctx, key, grantType, req)
	})
	if err != nil {
		return nil, err
	}
	return result.(*oauthDomain.TokenResult), nil
}

// runGrant is the critical section behind the grant lock. The release is
// deferred so it runs on every exit path.
func (g *grantUseCase) runGrant(
	ctx context.Context,
	key string,
	grantType scopeDomain.GrantType,
	req *oauthDomain.TokenRequest,
) (*oauthDomain.TokenResult, error) {
	release, err := g.grantLock.Acquire(ctx, key, g.config.LockWaitTimeout)
	if err != nil {
		return nil, err
	}
	defer release()

	client, err := g.authenticateClient(ctx, req)
	if err != nil {
		return nil, err
	}

	var outcome *grantOutcome
	switch grantType {
	case scopeDomain.GrantClientCredentials:
		outcome, err = g.clientCredentialsGrant(ctx, client, req)
	case scopeDomain.GrantPassword:
		outcome, err = g.passwordGrant(ctx, req)
	case scopeDomain.GrantAuthorizationCode:
		outcome, err = g.authorizationCodeGrant(ctx, client, req)
	case scopeDomain.GrantRefreshToken:
		outcome, err = g.refreshTokenGrant(ctx, client, req)
	}
	if err != nil {
		g.logger.Warn("grant rejected",
			slog.String("grant_type", string(grantType)),
			slog.String("client_id", req.ClientID),
			slog.Any("error", err),
		)
		return nil, err
	}

	finalized, err := g.scopes.FinalizeScopes(ctx, outcome.requested, grantType, client.AllowedScopes)
	if err != nil {
		return nil, err
	}
	scopeIDs := make([]string, 0, len(finalized))
	for _, scope := range finalized {
		scopeIDs = append(scopeIDs, scope.ID)
	}

	return g.mint(ctx, client, outcome, scopeIDs)
}

// parseGrantType validates the grant_type parameter against the supported
// set and the global refresh switch.
func (g *grantUseCase) parseGrantType(raw string) (scopeDomain.GrantType, error) {
	if raw == "" {
		return "", apperrors.Wrap(apperrors.ErrInvalidRequest, "grant_type is required")
	}

	grantType := scopeDomain.GrantType(raw)
	if !grantType.Valid() {
		return "", apperrors.Wrap(apperrors.ErrUnsupportedGrantType, "unsupported grant type "+raw)
	}
	if grantType == scopeDomain.GrantRefreshToken && !g.config.RefreshTokenEnabled {
		return "", apperrors.Wrap(apperrors.ErrUnsupportedGrantType, "refresh token grant is disabled")
	}
	return grantType, nil
}

// authenticateClient resolves the client and verifies its secret. Unknown
// clients, inactive clients, and wrong secrets all collapse to
// ErrInvalidClient so callers cannot probe the client registry.
func (g *grantUseCase) authenticateClient(
	ctx context.Context,
	req *oauthDomain.TokenRequest,
) (*oauthDomain.Client, error) {
	if req.ClientID == "" {
		return nil, apperrors.Wrap(apperrors.ErrInvalidRequest, "client_id is required")
	}

	client, err := g.clientRepo.GetByClientID(ctx, req.ClientID)
	if err != nil {
		if apperrors.Is(err, apperrors.ErrNotFound) {
			return nil, apperrors.ErrInvalidClient
		}
		return nil, err
	}
	if !client.IsActive {
		return nil, apperrors.ErrInvalidClient
	}
	if !g.secretService.CompareSecret(req.ClientSecret, client.Secret) {
		return nil, apperrors.ErrInvalidClient
	}
	return client, nil
}

// clientCredentialsGrant resolves the optional default subject. A scope
// parameter is required unless the client carries default scopes; refresh
// tokens are only issued when the client explicitly enables them.
func (g *grantUseCase) clientCredentialsGrant(
	ctx context.Context,
	client *oauthDomain.Client,
	req *oauthDomain.TokenRequest,
) (*grantOutcome, error) {
	if req.Scope == "" && len(client.AllowedScopes) == 0 {
		return nil, apperrors.Wrap(apperrors.ErrInvalidRequest, "scope is required")
	}

	var subject *subjectDomain.Subject
	if client.DefaultSubjectID != nil {
		var err error
		subject, err = g.subjects.GetByID(ctx, *client.DefaultSubjectID)
		if err != nil {
			return nil, apperrors.Wrap(err, "failed to resolve default subject")
		}
	}

	return &grantOutcome{
		subject:     subject,
		requested:   req.RequestedScopes(),
		mintRefresh: client.RefreshTokenEnabled && g.config.RefreshTokenEnabled,
	}, nil
}

// passwordGrant verifies the resource owner credentials. Authentication
// failures map to ErrAccessDenied. The password grant always mints a fresh
// refresh token, even for clients with refresh issuance disabled.
func (g *grantUseCase) passwordGrant(
	ctx context.Context,
	req *oauthDomain.TokenRequest,
) (*grantOutcome, error) {
	if req.Username == "" || req.Password == "" {
		return nil, apperrors.Wrap(apperrors.ErrInvalidRequest, "username and password are required")
	}

	subject, err := g.subjects.Authenticate(ctx, req.Username, req.Password)
	if err != nil {
		if apperrors.Is(err, apperrors.ErrUnauthorized) {
			return nil, apperrors.ErrAccessDenied
		}
		return nil, err
	}

	return &grantOutcome{
		subject:     subject,
		requested:   req.RequestedScopes(),
		mintRefresh: true,
	}, nil
}

// authorizationCodeGrant validates a stored single-use code. Expired, spent,
// unknown, and cross-client codes all map to ErrInvalidGrant. The code is
// spent in the minting transaction; the atomic consume there guarantees a
// replayed code loses.
func (g *grantUseCase) authorizationCodeGrant(
	ctx context.Context,
	client *oauthDomain.Client,
	req *oauthDomain.TokenRequest,
) (*grantOutcome, error) {
	if req.Code == "" {
		return nil, apperrors.Wrap(apperrors.ErrInvalidRequest, "code is required")
	}

	code, err := g.lookupToken(ctx, req.Code, oauthDomain.TokenKindAuthorizationCode, client)
	if err != nil {
		return nil, err
	}

	var subject *subjectDomain.Subject
	if code.SubjectID != nil {
		subject, err = g.subjects.GetByID(ctx, *code.SubjectID)
		if err != nil {
			return nil, apperrors.Wrap(err, "failed to resolve code subject")
		}
	}

	// Scopes were bound when the code was authorized; the scope parameter
	// is ignored here.
	return &grantOutcome{
		subject:     subject,
		requested:   code.ScopeList(),
		mintRefresh: client.RefreshTokenEnabled && g.config.RefreshTokenEnabled,
		consumeID:   &code.ID,
	}, nil
}

// refreshTokenGrant validates the presented refresh token and prepares its
// rotation. Scopes may be narrowed but never widened. The old token is
// consumed in the minting transaction, so a validation failure does not
// burn it.
func (g *grantUseCase) refreshTokenGrant(
	ctx context.Context,
	client *oauthDomain.Client,
	req *oauthDomain.TokenRequest,
) (*grantOutcome, error) {
	if req.RefreshToken == "" {
		return nil, apperrors.Wrap(apperrors.ErrInvalidRequest, "refresh_token is required")
	}

	refresh, err := g.lookupToken(ctx, req.RefreshToken, oauthDomain.TokenKindRefresh, client)
	if err != nil {
		return nil, err
	}

	var subject *subjectDomain.Subject
	if refresh.SubjectID != nil {
		subject, err = g.subjects.GetByID(ctx, *refresh.SubjectID)
		if err != nil {
			return nil, apperrors.Wrap(err, "failed to resolve refresh subject")
		}
	}

	requested := refresh.ScopeList()
	if req.Scope != "" {
		narrowed := req.RequestedScopes()
		for _, scopeID := range narrowed {
			if !slices.Contains(requested, scopeID) {
				return nil, apperrors.Wrap(apperrors.ErrInvalidScope, "scope "+scopeID+" exceeds the original grant")
			}
		}
		requested = narrowed
	}

	// Rotation: a replacement refresh token is minted in the same step.
	return &grantOutcome{
		subject:     subject,
		requested:   requested,
		mintRefresh: true,
		consumeID:   &refresh.ID,
	}, nil
}

// lookupToken fetches a stored token by its plain value and validates kind,
// owner, liveness, and expiry. All failures map to ErrInvalidGrant.
func (g *grantUseCase) lookupToken(
	ctx context.Context,
	plainToken string,
	kind oauthDomain.TokenKind,
	client *oauthDomain.Client,
) (*oauthDomain.Token, error) {
	token, err := g.tokenRepo.GetByTokenHash(ctx, g.tokenFactory.HashToken(plainToken))
	if err != nil {
		if apperrors.Is(err, apperrors.ErrNotFound) {
			return nil, apperrors.Wrap(apperrors.ErrInvalidGrant, "unknown token")
		}
		return nil, err
	}
	if token.Kind != kind {
		return nil, apperrors.Wrap(apperrors.ErrInvalidGrant, "token kind mismatch")
	}
	if token.ClientID != client.ID {
		return nil, apperrors.Wrap(apperrors.ErrInvalidGrant, "token belongs to a different client")
	}
	if token.IsRevoked() {
		return nil, apperrors.Wrap(apperrors.ErrInvalidGrant, "token already used or revoked")
	}
	if token.IsExpired(time.Now().UTC()) {
		return nil, apperrors.Wrap(apperrors.ErrInvalidGrant, "token expired")
	}
	return token, nil
}

// mint signs the access token, optionally mints the refresh and ID tokens,
// and persists the token records in one transaction. Spending the presented
// single-use token happens inside the same transaction, so revoking the old
// token and writing its replacements is a single step. This is the first
// point where rows change; every validation has already passed.
func (g *grantUseCase) mint(
	ctx context.Context,
	client *oauthDomain.Client,
	outcome *grantOutcome,
	scopeIDs []string,
) (*oauthDomain.TokenResult, error) {
	now := time.Now().UTC()
	tokenID := uuid.Must(uuid.NewV7())

	var subjectID *uuid.UUID
	if outcome.subject != nil {
		subjectID = &outcome.subject.ID
	}

	claimCtx := &oauthService.ClaimContext{
		Client:  client,
		Subject: outcome.subject,
		Scopes:  scopeIDs,
		TokenID: tokenID,
		Now:     now,
	}

	accessClaims := g.claimBuilder.AccessTokenClaims(ctx, claimCtx)
	signedAccess, err := g.tokenSigner.Sign(accessClaims, tokenID.String())
	if err != nil {
		return nil, err
	}

	accessRecord := &oauthDomain.Token{
		ID:        tokenID,
		TokenHash: g.tokenFactory.HashToken(signedAccess),
		Kind:      oauthDomain.TokenKindAccess,
		ClientID:  client.ID,
		SubjectID: subjectID,
		Scopes:    strings.Join(scopeIDs, " "),
		IssuedAt:  now,
		ExpiresAt: now.Add(g.tokenFactory.Lifetime(oauthDomain.TokenKindAccess)),
	}

	var plainRefresh string
	var refreshRecord *oauthDomain.Token
	if outcome.mintRefresh {
		plainRefresh, refreshRecord, err = g.tokenFactory.NewOpaqueToken(
			oauthDomain.TokenKindRefresh,
			client.ID,
			subjectID,
			scopeIDs,
		)
		if err != nil {
			return nil, err
		}
	}

	var idToken string
	if outcome.subject != nil && slices.Contains(scopeIDs, scopeOpenID) {
		idClaims := g.claimBuilder.IDTokenClaims(claimCtx)
		idToken, err = g.tokenSigner.Sign(idClaims, tokenID.String())
		if err != nil {
			return nil, err
		}
	}

	err = g.txManager.WithTx(ctx, func(ctx context.Context) error {
		if outcome.consumeID != nil {
			// The conditional update fails for an already spent token,
			// so a concurrent replay cannot mint a second set of records.
			if err := g.tokenRepo.Consume(ctx, *outcome.consumeID); err != nil {
				return err
			}
		}
		if err := g.tokenRepo.Create(ctx, accessRecord); err != nil {
			return err
		}
		if refreshRecord != nil {
			if err := g.tokenRepo.Create(ctx, refreshRecord); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return &oauthDomain.TokenResult{
		AccessToken:  signedAccess,
		TokenType:    "Bearer",
		ExpiresIn:    int64(g.tokenFactory.Lifetime(oauthDomain.TokenKindAccess).Seconds()),
		Scope:        strings.Join(scopeIDs, " "),
		RefreshToken: plainRefresh,
		IDToken:      idToken,
	}, nil
}

// IssueAuthorizationCode mints a single-use authorization code bound to a
// client, subject, and finalized scope set.
func (g *grantUseCase) IssueAuthorizationCode(
	ctx context.Context,
	input *oauthDomain.IssueAuthorizationCodeInput,
) (*oauthDomain.IssueAuthorizationCodeOutput, error) {
	client, err := g.clientRepo.GetByClientID(ctx, input.ClientID)
	if err != nil {
		return nil, err
	}

	if _, err := g.subjects.GetByID(ctx, input.SubjectID); err != nil {
		return nil, err
	}

	// Restricted clients cannot have codes authorized outside their
	// allowed scopes.
	for _, scopeID := range input.Scopes {
		if !client.IsScopeAllowed(scopeID) {
			return nil, apperrors.Wrap(apperrors.ErrInvalidScope, "scope "+scopeID+" is not allowed for this client")
		}
	}

	finalized, err := g.scopes.FinalizeScopes(
		ctx,
		input.Scopes,
		scopeDomain.GrantAuthorizationCode,
		client.AllowedScopes,
	)
	if err != nil {
		return nil, err
	}
	scopeIDs := make([]string, 0, len(finalized))
	for _, scope := range finalized {
		scopeIDs = append(scopeIDs, scope.ID)
	}

	plainCode, record, err := g.tokenFactory.NewOpaqueToken(
		oauthDomain.TokenKindAuthorizationCode,
		client.ID,
		&input.SubjectID,
		scopeIDs,
	)
	if err != nil {
		return nil, err
	}

	if err := g.tokenRepo.Create(ctx, record); err != nil {
		return nil, err
	}

	return &oauthDomain.IssueAuthorizationCodeOutput{
		Code:      plainCode,
		ExpiresAt: record.ExpiresAt,
	}, nil
}

// CleanExpiredTokens removes token records past their expiry.
func (g *grantUseCase) CleanExpiredTokens(ctx context.Context) (int64, error) {
	deleted, err := g.tokenRepo.DeleteExpired(ctx, time.Now().UTC())
	if err != nil {
		return 0, err
	}
	g.logger.Info("expired tokens removed", slog.Int64("count", deleted))
	return deleted, nil
}
