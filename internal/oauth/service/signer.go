package service

import (
	"github.com/golang-jwt/jwt/v5"

	"github.com/allisson/tokend/internal/keys"

	apperrors "github.com/allisson/tokend/internal/errors"
)

// rs256Signer implements TokenSigner with RS256 and the KeyStore's active key.
// Both access and ID tokens are signed asymmetrically so resource servers
// verify against the published JWKS without sharing secrets.
type rs256Signer struct {
	keyStore *keys.KeyStore
}

// NewTokenSigner creates a TokenSigner backed by the key store.
func NewTokenSigner(keyStore *keys.KeyStore) TokenSigner {
	return &rs256Signer{
		keyStore: keyStore,
	}
}

// Sign produces a compact RS256 JWT. The header carries the active key id
// ("kid") and the token id ("jti") so introspection can locate the stored
// record without parsing the payload.
func (s *rs256Signer) Sign(claims jwt.MapClaims, tokenID string) (string, error) {
	signingKey, ok := s.keyStore.Active()
	if !ok {
		return "", apperrors.Wrap(apperrors.ErrServerError, "no active signing key configured")
	}

	token := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	token.Header["kid"] = signingKey.ID
	token.Header["jti"] = tokenID

	signed, err := token.SignedString(signingKey.Key)
	if err != nil {
		return "", apperrors.Wrap(err, "failed to sign token")
	}
	return signed, nil
}
