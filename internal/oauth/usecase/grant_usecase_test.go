package usecase

import (
	"context"
	"io"
	"log/slog"
	"slices"
	"sync"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"github.com/allisson/tokend/internal/config"
	apperrors "github.com/allisson/tokend/internal/errors"
	"github.com/allisson/tokend/internal/keys"
	"github.com/allisson/tokend/internal/lock"
	oauthDomain "github.com/allisson/tokend/internal/oauth/domain"
	oauthService "github.com/allisson/tokend/internal/oauth/service"
	scopeDomain "github.com/allisson/tokend/internal/scope/domain"
	subjectDomain "github.com/allisson/tokend/internal/subject/domain"
)

// fakeClientRepo is an in-memory ClientRepository.
type fakeClientRepo struct {
	mu      sync.Mutex
	clients map[uuid.UUID]*oauthDomain.Client
}

func newFakeClientRepo() *fakeClientRepo {
	return &fakeClientRepo{clients: make(map[uuid.UUID]*oauthDomain.Client)}
}

func (f *fakeClientRepo) Create(_ context.Context, client *oauthDomain.Client) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, existing := range f.clients {
		if existing.ClientID == client.ClientID {
			return oauthDomain.ErrClientExists
		}
	}
	f.clients[client.ID] = client
	return nil
}

func (f *fakeClientRepo) GetByClientID(_ context.Context, clientID string) (*oauthDomain.Client, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, client := range f.clients {
		if client.ClientID == clientID {
			return client, nil
		}
	}
	return nil, oauthDomain.ErrClientNotFound
}

func (f *fakeClientRepo) GetByID(_ context.Context, id uuid.UUID) (*oauthDomain.Client, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	client, ok := f.clients[id]
	if !ok {
		return nil, oauthDomain.ErrClientNotFound
	}
	return client, nil
}

// fakeTokenRepo is an in-memory TokenRepository with an atomic Consume.
type fakeTokenRepo struct {
	mu     sync.Mutex
	tokens map[uuid.UUID]*oauthDomain.Token
}

func newFakeTokenRepo() *fakeTokenRepo {
	return &fakeTokenRepo{tokens: make(map[uuid.UUID]*oauthDomain.Token)}
}

func (f *fakeTokenRepo) Create(_ context.Context, token *oauthDomain.Token) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	copied := *token
	f.tokens[token.ID] = &copied
	return nil
}

func (f *fakeTokenRepo) GetByTokenHash(_ context.Context, tokenHash string) (*oauthDomain.Token, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, token := range f.tokens {
		if token.TokenHash == tokenHash {
			copied := *token
			return &copied, nil
		}
	}
	return nil, oauthDomain.ErrTokenNotFound
}

func (f *fakeTokenRepo) Consume(_ context.Context, id uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	token, ok := f.tokens[id]
	if !ok || token.RevokedAt != nil {
		return oauthDomain.ErrTokenConsumed
	}
	now := time.Now().UTC()
	token.RevokedAt = &now
	return nil
}

func (f *fakeTokenRepo) Revoke(_ context.Context, id uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if token, ok := f.tokens[id]; ok && token.RevokedAt == nil {
		now := time.Now().UTC()
		token.RevokedAt = &now
	}
	return nil
}

func (f *fakeTokenRepo) IsRevoked(_ context.Context, id uuid.UUID) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	token, ok := f.tokens[id]
	if !ok {
		return false, oauthDomain.ErrTokenNotFound
	}
	return token.RevokedAt != nil, nil
}

func (f *fakeTokenRepo) DeleteExpired(_ context.Context, cutoff time.Time) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var deleted int64
	for id, token := range f.tokens {
		if token.ExpiresAt.Before(cutoff) {
			delete(f.tokens, id)
			deleted++
		}
	}
	return deleted, nil
}

// countByKind counts persisted records of one kind.
func (f *fakeTokenRepo) countByKind(kind oauthDomain.TokenKind) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	var count int
	for _, token := range f.tokens {
		if token.Kind == kind {
			count++
		}
	}
	return count
}

// fakeSubjects is an in-memory SubjectResolver with plain-text passwords.
type fakeSubjects struct {
	subjects map[uuid.UUID]*subjectDomain.Subject
}

func (f *fakeSubjects) Authenticate(_ context.Context, username, password string) (*subjectDomain.Subject, error) {
	for _, subject := range f.subjects {
		if subject.Username == username && subject.Password == password && subject.IsActive {
			return subject, nil
		}
	}
	return nil, subjectDomain.ErrInvalidCredentials
}

func (f *fakeSubjects) GetByID(_ context.Context, id uuid.UUID) (*subjectDomain.Subject, error) {
	subject, ok := f.subjects[id]
	if !ok {
		return nil, subjectDomain.ErrSubjectNotFound
	}
	return subject, nil
}

// fakeScopeAuthorizer finalizes against a static scope table.
type fakeScopeAuthorizer struct {
	scopes map[string]*scopeDomain.Scope
}

func (f *fakeScopeAuthorizer) FinalizeScopes(
	_ context.Context,
	requested []string,
	grantType scopeDomain.GrantType,
	clientAllowed []string,
) ([]*scopeDomain.Scope, error) {
	if grantType == scopeDomain.GrantClientCredentials && len(clientAllowed) > 0 {
		for _, scopeID := range requested {
			if !slices.Contains(clientAllowed, scopeID) {
				return nil, apperrors.Wrap(apperrors.ErrInvalidScope, "scope "+scopeID+" is not allowed for this client")
			}
		}
	}
	finalized := requested
	if len(finalized) == 0 {
		finalized = clientAllowed
	}
	var result []*scopeDomain.Scope
	for _, scopeID := range finalized {
		scope, ok := f.scopes[scopeID]
		if !ok || !scope.EnabledFor(grantType) {
			return nil, apperrors.Wrap(apperrors.ErrInvalidScope, "scope "+scopeID+" is not available")
		}
		result = append(result, scope)
	}
	return result, nil
}

// fakeTxManager runs the function without a real transaction.
type fakeTxManager struct{}

func (fakeTxManager) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

// fakeSecretService compares secrets in plain text to keep tests fast.
type fakeSecretService struct{}

func (fakeSecretService) GenerateSecret() (string, string, error) {
	return "plain-secret", "plain-secret", nil
}

func (fakeSecretService) HashSecret(plainSecret string) (string, error) {
	return plainSecret, nil
}

func (fakeSecretService) CompareSecret(plainSecret, hashedSecret string) bool {
	return plainSecret == hashedSecret
}

// grantFixture wires a GrantUseCase over in-memory collaborators.
type grantFixture struct {
	useCase    GrantUseCase
	config     *config.Config
	clientRepo *fakeClientRepo
	tokenRepo  *fakeTokenRepo
	subjects   *fakeSubjects
	factory    oauthService.TokenFactory
	publicKey  any
	client     *oauthDomain.Client
	subject    *subjectDomain.Subject
	scopes     map[string]*scopeDomain.Scope
}

func allGrants() map[scopeDomain.GrantType]scopeDomain.GrantTypeSetting {
	settings := make(map[scopeDomain.GrantType]scopeDomain.GrantTypeSetting)
	for _, grantType := range scopeDomain.GrantTypes {
		settings[grantType] = scopeDomain.GrantTypeSetting{Enabled: true}
	}
	return settings
}

func newGrantFixture(t *testing.T) *grantFixture {
	t.Helper()

	cfg := &config.Config{
		IssuerURL:                   "https://auth.example.com",
		AccessTokenExpiration:       time.Hour,
		RefreshTokenExpiration:      14 * 24 * time.Hour,
		AuthorizationCodeExpiration: 10 * time.Minute,
		RefreshTokenEnabled:         true,
		LockWaitTimeout:             5 * time.Second,
	}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	privateKey, err := keys.GenerateKey(2048)
	require.NoError(t, err)
	keyStore := keys.NewKeyStore(&keys.SigningKey{ID: "test-1", Key: privateKey})

	policyID := "permission"
	scopes := map[string]*scopeDomain.Scope{
		"content:read": {
			ID:         "content:read",
			GrantTypes: allGrants(),
			PolicyID:   &policyID,
		},
		"openid": {
			ID:         "openid",
			GrantTypes: allGrants(),
			PolicyID:   &policyID,
		},
		"profile": {
			ID:         "profile",
			GrantTypes: allGrants(),
			PolicyID:   &policyID,
		},
	}

	subject := &subjectDomain.Subject{
		ID:          uuid.Must(uuid.NewV7()),
		Username:    "alice",
		Password:    "Str0ng!Password",
		Permissions: []string{"view content"},
		IsActive:    true,
	}

	client := &oauthDomain.Client{
		ID:                  uuid.Must(uuid.NewV7()),
		ClientID:            "web-app",
		Secret:              "client-secret",
		Name:                "Web App",
		IsActive:            true,
		RefreshTokenEnabled: true,
		CreatedAt:           time.Now().UTC(),
	}

	clientRepo := newFakeClientRepo()
	require.NoError(t, clientRepo.Create(context.Background(), client))
	tokenRepo := newFakeTokenRepo()
	subjects := &fakeSubjects{subjects: map[uuid.UUID]*subjectDomain.Subject{subject.ID: subject}}

	factory := oauthService.NewTokenFactory(cfg)
	useCase := NewGrantUseCase(
		cfg,
		logger,
		lock.NewMemoryLock(),
		fakeTxManager{},
		clientRepo,
		tokenRepo,
		subjects,
		&fakeScopeAuthorizer{scopes: scopes},
		fakeSecretService{},
		factory,
		oauthService.NewClaimBuilder(cfg, logger),
		oauthService.NewTokenSigner(keyStore),
	)

	return &grantFixture{
		useCase:    useCase,
		config:     cfg,
		clientRepo: clientRepo,
		tokenRepo:  tokenRepo,
		subjects:   subjects,
		factory:    factory,
		publicKey:  &privateKey.PublicKey,
		client:     client,
		subject:    subject,
		scopes:     scopes,
	}
}

func (f *grantFixture) parseClaims(t *testing.T, signed string) jwt.MapClaims {
	t.Helper()
	parsed, err := jwt.Parse(signed, func(token *jwt.Token) (any, error) {
		return f.publicKey, nil
	}, jwt.WithValidMethods([]string{"RS256"}))
	require.NoError(t, err)
	claims, ok := parsed.Claims.(jwt.MapClaims)
	require.True(t, ok)
	return claims
}

func TestGrantUseCase_ClientCredentials(t *testing.T) {
	ctx := context.Background()

	t.Run("Success_IssuesAccessToken", func(t *testing.T) {
		fixture := newGrantFixture(t)
		fixture.client.RefreshTokenEnabled = false

		result, err := fixture.useCase.Token(ctx, &oauthDomain.TokenRequest{
			GrantType:    "client_credentials",
			ClientID:     "web-app",
			ClientSecret: "client-secret",
			Scope:        "content:read",
		})
		require.NoError(t, err)

		assert.Equal(t, "Bearer", result.TokenType)
		assert.Equal(t, int64(3600), result.ExpiresIn)
		assert.Equal(t, "content:read", result.Scope)
		assert.Empty(t, result.RefreshToken)
		assert.Empty(t, result.IDToken)

		claims := fixture.parseClaims(t, result.AccessToken)
		assert.Equal(t, "web-app", claims["aud"])
		assert.Equal(t, "content:read", claims["scope"])
		_, hasSub := claims["sub"]
		assert.False(t, hasSub)

		assert.Equal(t, 1, fixture.tokenRepo.countByKind(oauthDomain.TokenKindAccess))
		assert.Equal(t, 0, fixture.tokenRepo.countByKind(oauthDomain.TokenKindRefresh))
	})

	t.Run("Success_DefaultSubject", func(t *testing.T) {
		fixture := newGrantFixture(t)
		fixture.client.DefaultSubjectID = &fixture.subject.ID

		result, err := fixture.useCase.Token(ctx, &oauthDomain.TokenRequest{
			GrantType:    "client_credentials",
			ClientID:     "web-app",
			ClientSecret: "client-secret",
			Scope:        "content:read",
		})
		require.NoError(t, err)

		claims := fixture.parseClaims(t, result.AccessToken)
		assert.Equal(t, fixture.subject.ID.String(), claims["sub"])
	})

	t.Run("Success_EmptyScopeFallsBackToClientDefaults", func(t *testing.T) {
		fixture := newGrantFixture(t)
		fixture.client.AllowedScopes = []string{"content:read"}

		result, err := fixture.useCase.Token(ctx, &oauthDomain.TokenRequest{
			GrantType:    "client_credentials",
			ClientID:     "web-app",
			ClientSecret: "client-secret",
		})
		require.NoError(t, err)
		assert.Equal(t, "content:read", result.Scope)
	})

	t.Run("Error_MissingScopeWithoutDefaults", func(t *testing.T) {
		fixture := newGrantFixture(t)

		_, err := fixture.useCase.Token(ctx, &oauthDomain.TokenRequest{
			GrantType:    "client_credentials",
			ClientID:     "web-app",
			ClientSecret: "client-secret",
		})
		assert.ErrorIs(t, err, apperrors.ErrInvalidRequest)
	})

	t.Run("Error_ScopeOutsideAllowedList", func(t *testing.T) {
		fixture := newGrantFixture(t)
		fixture.client.AllowedScopes = []string{"content:read"}

		_, err := fixture.useCase.Token(ctx, &oauthDomain.TokenRequest{
			GrantType:    "client_credentials",
			ClientID:     "web-app",
			ClientSecret: "client-secret",
			Scope:        "profile",
		})
		assert.ErrorIs(t, err, apperrors.ErrInvalidScope)
	})

	t.Run("Error_UnknownClient", func(t *testing.T) {
		fixture := newGrantFixture(t)

		_, err := fixture.useCase.Token(ctx, &oauthDomain.TokenRequest{
			GrantType:    "client_credentials",
			ClientID:     "ghost",
			ClientSecret: "client-secret",
			Scope:        "content:read",
		})
		assert.ErrorIs(t, err, apperrors.ErrInvalidClient)
	})

	t.Run("Error_WrongSecret", func(t *testing.T) {
		fixture := newGrantFixture(t)

		_, err := fixture.useCase.Token(ctx, &oauthDomain.TokenRequest{
			GrantType:    "client_credentials",
			ClientID:     "web-app",
			ClientSecret: "wrong",
			Scope:        "content:read",
		})
		assert.ErrorIs(t, err, apperrors.ErrInvalidClient)
	})

	t.Run("Error_InactiveClient", func(t *testing.T) {
		fixture := newGrantFixture(t)
		fixture.client.IsActive = false

		_, err := fixture.useCase.Token(ctx, &oauthDomain.TokenRequest{
			GrantType:    "client_credentials",
			ClientID:     "web-app",
			ClientSecret: "client-secret",
			Scope:        "content:read",
		})
		assert.ErrorIs(t, err, apperrors.ErrInvalidClient)
	})

	t.Run("Error_MissingGrantType", func(t *testing.T) {
		fixture := newGrantFixture(t)

		_, err := fixture.useCase.Token(ctx, &oauthDomain.TokenRequest{
			ClientID:     "web-app",
			ClientSecret: "client-secret",
		})
		assert.ErrorIs(t, err, apperrors.ErrInvalidRequest)
	})

	t.Run("Error_UnknownGrantType", func(t *testing.T) {
		fixture := newGrantFixture(t)

		_, err := fixture.useCase.Token(ctx, &oauthDomain.TokenRequest{
			GrantType:    "implicit",
			ClientID:     "web-app",
			ClientSecret: "client-secret",
		})
		assert.ErrorIs(t, err, apperrors.ErrUnsupportedGrantType)
	})
}

func TestGrantUseCase_Password(t *testing.T) {
	ctx := context.Background()

	t.Run("Success_IssuesRefreshAndIDToken", func(t *testing.T) {
		fixture := newGrantFixture(t)

		result, err := fixture.useCase.Token(ctx, &oauthDomain.TokenRequest{
			GrantType:    "password",
			ClientID:     "web-app",
			ClientSecret: "client-secret",
			Username:     "alice",
			Password:     "Str0ng!Password",
			Scope:        "content:read openid profile",
		})
		require.NoError(t, err)

		assert.NotEmpty(t, result.RefreshToken)
		require.NotEmpty(t, result.IDToken)

		idClaims := fixture.parseClaims(t, result.IDToken)
		assert.Equal(t, "https://auth.example.com", idClaims["iss"])
		assert.Equal(t, fixture.subject.ID.String(), idClaims["sub"])
		assert.Equal(t, "alice", idClaims["preferred_username"])

		assert.Equal(t, 1, fixture.tokenRepo.countByKind(oauthDomain.TokenKindRefresh))
	})

	t.Run("Success_RefreshCarveOutWhenClientDisabled", func(t *testing.T) {
		fixture := newGrantFixture(t)
		fixture.client.RefreshTokenEnabled = false

		result, err := fixture.useCase.Token(ctx, &oauthDomain.TokenRequest{
			GrantType:    "password",
			ClientID:     "web-app",
			ClientSecret: "client-secret",
			Username:     "alice",
			Password:     "Str0ng!Password",
			Scope:        "content:read",
		})
		require.NoError(t, err)
		assert.NotEmpty(t, result.RefreshToken)
		assert.Empty(t, result.IDToken)
	})

	t.Run("Error_WrongPassword", func(t *testing.T) {
		fixture := newGrantFixture(t)

		_, err := fixture.useCase.Token(ctx, &oauthDomain.TokenRequest{
			GrantType:    "password",
			ClientID:     "web-app",
			ClientSecret: "client-secret",
			Username:     "alice",
			Password:     "wrong",
			Scope:        "content:read",
		})
		assert.ErrorIs(t, err, apperrors.ErrAccessDenied)
		assert.Equal(t, 0, fixture.tokenRepo.countByKind(oauthDomain.TokenKindAccess))
	})

	t.Run("Error_MissingCredentials", func(t *testing.T) {
		fixture := newGrantFixture(t)

		_, err := fixture.useCase.Token(ctx, &oauthDomain.TokenRequest{
			GrantType:    "password",
			ClientID:     "web-app",
			ClientSecret: "client-secret",
			Username:     "alice",
		})
		assert.ErrorIs(t, err, apperrors.ErrInvalidRequest)
	})
}

func TestGrantUseCase_AuthorizationCode(t *testing.T) {
	ctx := context.Background()

	issueCode := func(t *testing.T, fixture *grantFixture, scopes []string) string {
		t.Helper()
		output, err := fixture.useCase.IssueAuthorizationCode(ctx, &oauthDomain.IssueAuthorizationCodeInput{
			ClientID:  "web-app",
			SubjectID: fixture.subject.ID,
			Scopes:    scopes,
		})
		require.NoError(t, err)
		return output.Code
	}

	t.Run("Success_ExchangeCode", func(t *testing.T) {
		fixture := newGrantFixture(t)
		code := issueCode(t, fixture, []string{"content:read", "openid"})

		result, err := fixture.useCase.Token(ctx, &oauthDomain.TokenRequest{
			GrantType:    "authorization_code",
			ClientID:     "web-app",
			ClientSecret: "client-secret",
			Code:         code,
		})
		require.NoError(t, err)

		assert.Equal(t, "content:read openid", result.Scope)
		assert.NotEmpty(t, result.RefreshToken)
		assert.NotEmpty(t, result.IDToken)

		claims := fixture.parseClaims(t, result.AccessToken)
		assert.Equal(t, fixture.subject.ID.String(), claims["sub"])
	})

	t.Run("Error_CodeIsSingleUse", func(t *testing.T) {
		fixture := newGrantFixture(t)
		code := issueCode(t, fixture, []string{"content:read"})

		req := &oauthDomain.TokenRequest{
			GrantType:    "authorization_code",
			ClientID:     "web-app",
			ClientSecret: "client-secret",
			Code:         code,
		}

		_, err := fixture.useCase.Token(ctx, req)
		require.NoError(t, err)

		_, err = fixture.useCase.Token(ctx, req)
		assert.ErrorIs(t, err, apperrors.ErrInvalidGrant)
	})

	t.Run("Success_RetryAfterRejectedScopes", func(t *testing.T) {
		fixture := newGrantFixture(t)
		code := issueCode(t, fixture, []string{"content:read"})

		req := &oauthDomain.TokenRequest{
			GrantType:    "authorization_code",
			ClientID:     "web-app",
			ClientSecret: "client-secret",
			Code:         code,
		}

		fixture.scopes["content:read"].GrantTypes[scopeDomain.GrantAuthorizationCode] = scopeDomain.GrantTypeSetting{Enabled: false}
		_, err := fixture.useCase.Token(ctx, req)
		assert.ErrorIs(t, err, apperrors.ErrInvalidScope)

		// The rejection must not spend the code.
		fixture.scopes["content:read"].GrantTypes[scopeDomain.GrantAuthorizationCode] = scopeDomain.GrantTypeSetting{Enabled: true}
		result, err := fixture.useCase.Token(ctx, req)
		require.NoError(t, err)
		assert.Equal(t, "content:read", result.Scope)
	})

	t.Run("Error_UnknownCode", func(t *testing.T) {
		fixture := newGrantFixture(t)

		_, err := fixture.useCase.Token(ctx, &oauthDomain.TokenRequest{
			GrantType:    "authorization_code",
			ClientID:     "web-app",
			ClientSecret: "client-secret",
			Code:         "not-a-code",
		})
		assert.ErrorIs(t, err, apperrors.ErrInvalidGrant)
	})

	t.Run("Error_IssueCodeOutsideClientAllowList", func(t *testing.T) {
		fixture := newGrantFixture(t)
		fixture.client.AllowedScopes = []string{"content:read"}

		_, err := fixture.useCase.IssueAuthorizationCode(ctx, &oauthDomain.IssueAuthorizationCodeInput{
			ClientID:  "web-app",
			SubjectID: fixture.subject.ID,
			Scopes:    []string{"content:read", "profile"},
		})
		assert.ErrorIs(t, err, apperrors.ErrInvalidScope)
	})

	t.Run("Error_CodeFromAnotherClient", func(t *testing.T) {
		fixture := newGrantFixture(t)
		code := issueCode(t, fixture, []string{"content:read"})

		other := &oauthDomain.Client{
			ID:       uuid.Must(uuid.NewV7()),
			ClientID: "other-app",
			Secret:   "other-secret",
			IsActive: true,
		}
		require.NoError(t, fixture.clientRepo.Create(ctx, other))

		_, err := fixture.useCase.Token(ctx, &oauthDomain.TokenRequest{
			GrantType:    "authorization_code",
			ClientID:     "other-app",
			ClientSecret: "other-secret",
			Code:         code,
		})
		assert.ErrorIs(t, err, apperrors.ErrInvalidGrant)
	})
}

func TestGrantUseCase_RefreshToken(t *testing.T) {
	ctx := context.Background()

	obtainRefresh := func(t *testing.T, fixture *grantFixture, scope string) string {
		t.Helper()
		result, err := fixture.useCase.Token(ctx, &oauthDomain.TokenRequest{
			GrantType:    "password",
			ClientID:     "web-app",
			ClientSecret: "client-secret",
			Username:     "alice",
			Password:     "Str0ng!Password",
			Scope:        scope,
		})
		require.NoError(t, err)
		require.NotEmpty(t, result.RefreshToken)
		return result.RefreshToken
	}

	t.Run("Success_RotatesRefreshToken", func(t *testing.T) {
		fixture := newGrantFixture(t)
		refreshToken := obtainRefresh(t, fixture, "content:read")

		result, err := fixture.useCase.Token(ctx, &oauthDomain.TokenRequest{
			GrantType:    "refresh_token",
			ClientID:     "web-app",
			ClientSecret: "client-secret",
			RefreshToken: refreshToken,
		})
		require.NoError(t, err)

		assert.Equal(t, "content:read", result.Scope)
		assert.NotEmpty(t, result.RefreshToken)
		assert.NotEqual(t, refreshToken, result.RefreshToken)
	})

	t.Run("Success_NarrowsScopes", func(t *testing.T) {
		fixture := newGrantFixture(t)
		refreshToken := obtainRefresh(t, fixture, "content:read profile")

		result, err := fixture.useCase.Token(ctx, &oauthDomain.TokenRequest{
			GrantType:    "refresh_token",
			ClientID:     "web-app",
			ClientSecret: "client-secret",
			RefreshToken: refreshToken,
			Scope:        "content:read",
		})
		require.NoError(t, err)
		assert.Equal(t, "content:read", result.Scope)
	})

	t.Run("Error_CannotWidenScopes", func(t *testing.T) {
		fixture := newGrantFixture(t)
		refreshToken := obtainRefresh(t, fixture, "content:read")

		_, err := fixture.useCase.Token(ctx, &oauthDomain.TokenRequest{
			GrantType:    "refresh_token",
			ClientID:     "web-app",
			ClientSecret: "client-secret",
			RefreshToken: refreshToken,
			Scope:        "content:read profile",
		})
		assert.ErrorIs(t, err, apperrors.ErrInvalidScope)
	})

	t.Run("Error_RefreshTokenIsSingleUse", func(t *testing.T) {
		fixture := newGrantFixture(t)
		refreshToken := obtainRefresh(t, fixture, "content:read")

		req := &oauthDomain.TokenRequest{
			GrantType:    "refresh_token",
			ClientID:     "web-app",
			ClientSecret: "client-secret",
			RefreshToken: refreshToken,
		}

		_, err := fixture.useCase.Token(ctx, req)
		require.NoError(t, err)

		_, err = fixture.useCase.Token(ctx, req)
		assert.ErrorIs(t, err, apperrors.ErrInvalidGrant)
	})

	t.Run("Success_RetryAfterRejectedScopes", func(t *testing.T) {
		fixture := newGrantFixture(t)
		refreshToken := obtainRefresh(t, fixture, "content:read")

		req := &oauthDomain.TokenRequest{
			GrantType:    "refresh_token",
			ClientID:     "web-app",
			ClientSecret: "client-secret",
			RefreshToken: refreshToken,
		}

		fixture.scopes["content:read"].GrantTypes[scopeDomain.GrantRefreshToken] = scopeDomain.GrantTypeSetting{Enabled: false}
		_, err := fixture.useCase.Token(ctx, req)
		assert.ErrorIs(t, err, apperrors.ErrInvalidScope)

		// The rejection must not spend the refresh token.
		fixture.scopes["content:read"].GrantTypes[scopeDomain.GrantRefreshToken] = scopeDomain.GrantTypeSetting{Enabled: true}
		result, err := fixture.useCase.Token(ctx, req)
		require.NoError(t, err)
		assert.Equal(t, "content:read", result.Scope)
		assert.NotEqual(t, refreshToken, result.RefreshToken)
	})

	t.Run("Error_GrantDisabledGlobally", func(t *testing.T) {
		fixture := newGrantFixture(t)
		refreshToken := obtainRefresh(t, fixture, "content:read")
		fixture.config.RefreshTokenEnabled = false

		_, err := fixture.useCase.Token(ctx, &oauthDomain.TokenRequest{
			GrantType:    "refresh_token",
			ClientID:     "web-app",
			ClientSecret: "client-secret",
			RefreshToken: refreshToken,
		})
		assert.ErrorIs(t, err, apperrors.ErrUnsupportedGrantType)
	})
}

func TestGrantUseCase_ConcurrentIdenticalRequests(t *testing.T) {
	ctx := context.Background()
	fixture := newGrantFixture(t)
	fixture.client.RefreshTokenEnabled = false

	req := &oauthDomain.TokenRequest{
		GrantType:    "client_credentials",
		ClientID:     "web-app",
		ClientSecret: "client-secret",
		Scope:        "content:read",
	}

	// Hold the grant lock so both submissions are in flight together.
	useCase := fixture.useCase.(*grantUseCase)
	key := lock.Key(req.LockKeyParts()...)
	release, err := useCase.grantLock.Acquire(ctx, key, time.Second)
	require.NoError(t, err)

	const workers = 2
	results := make([]*oauthDomain.TokenResult, workers)
	var group errgroup.Group
	for i := 0; i < workers; i++ {
		group.Go(func() error {
			result, err := fixture.useCase.Token(ctx, req)
			if err != nil {
				return err
			}
			results[i] = result
			return nil
		})
	}

	time.Sleep(50 * time.Millisecond)
	release()
	require.NoError(t, group.Wait())

	// Identical payloads collapse onto one execution: a single persisted
	// access token, the same response for both callers.
	assert.Equal(t, 1, fixture.tokenRepo.countByKind(oauthDomain.TokenKindAccess))
	assert.Equal(t, results[0].AccessToken, results[1].AccessToken)
}

func TestGrantUseCase_LockTimeout(t *testing.T) {
	ctx := context.Background()
	fixture := newGrantFixture(t)
	fixture.config.LockWaitTimeout = 50 * time.Millisecond

	req := &oauthDomain.TokenRequest{
		GrantType:    "client_credentials",
		ClientID:     "web-app",
		ClientSecret: "client-secret",
		Scope:        "content:read",
	}

	// Hold the lock for this exact payload so the request times out.
	key := lock.Key(req.LockKeyParts()...)
	useCase := fixture.useCase.(*grantUseCase)
	release, err := useCase.grantLock.Acquire(ctx, key, time.Second)
	require.NoError(t, err)
	defer release()

	_, err = fixture.useCase.Token(ctx, req)
	assert.ErrorIs(t, err, apperrors.ErrTemporarilyUnavailable)
	assert.Equal(t, 0, fixture.tokenRepo.countByKind(oauthDomain.TokenKindAccess))
}

func TestGrantUseCase_CleanExpiredTokens(t *testing.T) {
	ctx := context.Background()
	fixture := newGrantFixture(t)

	expired := &oauthDomain.Token{
		ID:        uuid.Must(uuid.NewV7()),
		TokenHash: "expired-hash",
		Kind:      oauthDomain.TokenKindAccess,
		ClientID:  fixture.client.ID,
		IssuedAt:  time.Now().UTC().Add(-2 * time.Hour),
		ExpiresAt: time.Now().UTC().Add(-time.Hour),
	}
	require.NoError(t, fixture.tokenRepo.Create(ctx, expired))

	deleted, err := fixture.useCase.CleanExpiredTokens(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), deleted)
}
