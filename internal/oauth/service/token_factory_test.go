package service

import (
	"crypto/sha256"
	"encoding/hex"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/allisson/tokend/internal/config"
	"github.com/allisson/tokend/internal/oauth/domain"
)

func testConfig() *config.Config {
	return &config.Config{
		IssuerURL:                   "https://auth.example.com",
		AccessTokenExpiration:       time.Hour,
		RefreshTokenExpiration:      14 * 24 * time.Hour,
		AuthorizationCodeExpiration: 10 * time.Minute,
	}
}

func TestTokenFactory_NewOpaqueToken(t *testing.T) {
	factory := NewTokenFactory(testConfig())
	clientID := uuid.Must(uuid.NewV7())
	subjectID := uuid.Must(uuid.NewV7())

	t.Run("Success_RefreshToken", func(t *testing.T) {
		plain, token, err := factory.NewOpaqueToken(
			domain.TokenKindRefresh,
			clientID,
			&subjectID,
			[]string{"content:read", "openid"},
		)
		require.NoError(t, err)

		assert.NotEmpty(t, plain)
		assert.Equal(t, domain.TokenKindRefresh, token.Kind)
		assert.Equal(t, clientID, token.ClientID)
		assert.Equal(t, &subjectID, token.SubjectID)
		assert.Equal(t, "content:read openid", token.Scopes)
		assert.Nil(t, token.RevokedAt)

		wantHash := sha256.Sum256([]byte(plain))
		assert.Equal(t, hex.EncodeToString(wantHash[:]), token.TokenHash)
		assert.Equal(t, 14*24*time.Hour, token.ExpiresAt.Sub(token.IssuedAt))
	})

	t.Run("Success_AuthorizationCodeLifetime", func(t *testing.T) {
		_, token, err := factory.NewOpaqueToken(
			domain.TokenKindAuthorizationCode,
			clientID,
			&subjectID,
			nil,
		)
		require.NoError(t, err)
		assert.Equal(t, 10*time.Minute, token.ExpiresAt.Sub(token.IssuedAt))
		assert.Empty(t, token.Scopes)
	})

	t.Run("Success_TokensAreUnique", func(t *testing.T) {
		first, _, err := factory.NewOpaqueToken(domain.TokenKindRefresh, clientID, nil, nil)
		require.NoError(t, err)
		second, _, err := factory.NewOpaqueToken(domain.TokenKindRefresh, clientID, nil, nil)
		require.NoError(t, err)
		assert.NotEqual(t, first, second)
	})
}

func TestTokenFactory_Lifetime(t *testing.T) {
	factory := NewTokenFactory(testConfig())

	assert.Equal(t, time.Hour, factory.Lifetime(domain.TokenKindAccess))
	assert.Equal(t, 14*24*time.Hour, factory.Lifetime(domain.TokenKindRefresh))
	assert.Equal(t, 10*time.Minute, factory.Lifetime(domain.TokenKindAuthorizationCode))
}
