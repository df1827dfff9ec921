// Package keys manages the RSA signing key material used for token
// signing and exposes it as a JWKS document.
package keys

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/base64"
	"encoding/pem"
	"fmt"
	"math/big"
	"os"

	"gocloud.dev/secrets"

	"github.com/allisson/tokend/internal/config"

	// Register all KMS provider drivers
	_ "gocloud.dev/secrets/awskms"
	_ "gocloud.dev/secrets/azurekeyvault"
	_ "gocloud.dev/secrets/gcpkms"
	_ "gocloud.dev/secrets/hashivault"
	_ "gocloud.dev/secrets/localsecrets"
)

// JWK is a single RSA public key in JSON Web Key format.
type JWK struct {
	Kty string `json:"kty"`
	Kid string `json:"kid"`
	Use string `json:"use"`
	Alg string `json:"alg"`
	N   string `json:"n"`
	E   string `json:"e"`
}

// Document is the JSON Web Key Set served at /.well-known/jwks.json.
// Keys is always a JSON array, never null.
type Document struct {
	Keys []JWK `json:"keys"`
}

// SigningKey pairs an RSA private key with the key id advertised in
// token headers and the JWKS document.
type SigningKey struct {
	ID  string
	Key *rsa.PrivateKey
}

// KeyStore holds the active signing key. A KeyStore without a key is
// valid: signing fails but the JWKS document is served with an empty
// key set.
type KeyStore struct {
	active *SigningKey
}

// NewKeyStore creates a KeyStore with the given active key. Pass nil
// for an unconfigured store.
func NewKeyStore(active *SigningKey) *KeyStore {
	return &KeyStore{active: active}
}

// Load builds a KeyStore from configuration. When SIGNING_KEY_PATH is
// empty it returns an unconfigured store without error. When the key
// file is KMS-wrapped, the configured keeper unwraps it before parsing.
func Load(ctx context.Context, cfg *config.Config) (*KeyStore, error) {
	if cfg.SigningKeyPath == "" {
		return NewKeyStore(nil), nil
	}

	data, err := os.ReadFile(cfg.SigningKeyPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read signing key file: %w", err)
	}

	if cfg.SigningKeyKMSWrapped {
		data, err = unwrap(ctx, cfg.KMSKeyURI, data)
		if err != nil {
			return nil, err
		}
	}

	key, err := ParsePrivateKeyPEM(data)
	if err != nil {
		return nil, err
	}

	return NewKeyStore(&SigningKey{ID: cfg.SigningKeyID, Key: key}), nil
}

// Active returns the active signing key, or false when none is
// configured.
func (s *KeyStore) Active() (*SigningKey, bool) {
	if s.active == nil {
		return nil, false
	}
	return s.active, true
}

// JWKS returns the public key set document. An unconfigured store
// yields an empty (but non-nil) key list.
func (s *KeyStore) JWKS() Document {
	doc := Document{Keys: []JWK{}}
	if s.active == nil {
		return doc
	}

	pub := &s.active.Key.PublicKey
	doc.Keys = append(doc.Keys, JWK{
		Kty: "RSA",
		Kid: s.active.ID,
		Use: "sig",
		Alg: "RS256",
		N:   base64.RawURLEncoding.EncodeToString(pub.N.Bytes()),
		E:   base64.RawURLEncoding.EncodeToString(big.NewInt(int64(pub.E)).Bytes()),
	})
	return doc
}

// unwrap opens the configured KMS keeper and decrypts the wrapped key
// material. Supports: gcpkms://, awskms://, azurekeyvault://,
// hashivault://, base64key://
func unwrap(ctx context.Context, keyURI string, ciphertext []byte) ([]byte, error) {
	keeper, err := secrets.OpenKeeper(ctx, keyURI)
	if err != nil {
		return nil, fmt.Errorf("failed to open KMS keeper: %w", err)
	}
	defer func() { _ = keeper.Close() }()

	plaintext, err := keeper.Decrypt(ctx, ciphertext)
	if err != nil {
		return nil, fmt.Errorf("failed to unwrap signing key: %w", err)
	}
	return plaintext, nil
}

// ParsePrivateKeyPEM parses an RSA private key from PKCS#1 or PKCS#8
// PEM data.
func ParsePrivateKeyPEM(data []byte) (*rsa.PrivateKey, error) {
	block, _ := pem.Decode(data)
	if block == nil {
		return nil, fmt.Errorf("failed to decode signing key PEM block")
	}

	switch block.Type {
	case "RSA PRIVATE KEY":
		key, err := x509.ParsePKCS1PrivateKey(block.Bytes)
		if err != nil {
			return nil, fmt.Errorf("failed to parse PKCS#1 signing key: %w", err)
		}
		return key, nil
	case "PRIVATE KEY":
		parsed, err := x509.ParsePKCS8PrivateKey(block.Bytes)
		if err != nil {
			return nil, fmt.Errorf("failed to parse PKCS#8 signing key: %w", err)
		}
		key, ok := parsed.(*rsa.PrivateKey)
		if !ok {
			return nil, fmt.Errorf("signing key is not an RSA key")
		}
		return key, nil
	default:
		return nil, fmt.Errorf("unsupported signing key PEM type: %s", block.Type)
	}
}

// GenerateKey creates a new RSA private key for token signing.
func GenerateKey(bits int) (*rsa.PrivateKey, error) {
	key, err := rsa.GenerateKey(rand.Reader, bits)
	if err != nil {
		return nil, fmt.Errorf("failed to generate signing key: %w", err)
	}
	return key, nil
}

// MarshalPrivateKeyPEM encodes a private key as a PKCS#8 PEM block.
func MarshalPrivateKeyPEM(key *rsa.PrivateKey) ([]byte, error) {
	der, err := x509.MarshalPKCS8PrivateKey(key)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal signing key: %w", err)
	}
	return pem.EncodeToMemory(&pem.Block{Type: "PRIVATE KEY", Bytes: der}), nil
}
