package service

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/allisson/tokend/internal/config"
	oauthDomain "github.com/allisson/tokend/internal/oauth/domain"
	subjectDomain "github.com/allisson/tokend/internal/subject/domain"
)

// ClaimContext carries everything a claim source may need to resolve a value.
type ClaimContext struct {
	Client  *oauthDomain.Client
	Subject *subjectDomain.Subject
	Scopes  []string
	TokenID uuid.UUID
	Now     time.Time
}

// IDClaimExtractor derives ID token claims from the subject for one scope.
type IDClaimExtractor func(subject *subjectDomain.Subject) (map[string]any, error)

// ClaimBuilder assembles access and ID token claim sets.
//
// Every private claim is applied individually: a failing claim source or
// extractor is logged and skipped, and the rest of the set is still built
// and signed. Registered claims are never overridden by extensions.
type ClaimBuilder struct {
	config     *config.Config
	logger     *slog.Logger
	sources    []ClaimSource
	extractors map[string]IDClaimExtractor
}

// NewClaimBuilder creates a ClaimBuilder with the given access token claim
// sources. Standard ID token extractors for the profile scope are
// preregistered; RegisterIDClaimExtractor adds more.
func NewClaimBuilder(cfg *config.Config, logger *slog.Logger, sources ...ClaimSource) *ClaimBuilder {
	builder := &ClaimBuilder{
		config:     cfg,
		logger:     logger,
		sources:    sources,
		extractors: make(map[string]IDClaimExtractor),
	}
	builder.RegisterIDClaimExtractor("profile", profileClaims)
	return builder
}

// RegisterIDClaimExtractor binds an ID token claim extractor to a scope id.
func (b *ClaimBuilder) RegisterIDClaimExtractor(scopeID string, extractor IDClaimExtractor) {
	b.extractors[scopeID] = extractor
}

// AccessTokenClaims builds the access token claim set.
//
// Registered claims: aud (client id), jti (token id), iat and nbf (now),
// exp (now plus access lifetime), scope (space-joined, when non-empty),
// sub (when a subject is present).
func (b *ClaimBuilder) AccessTokenClaims(ctx context.Context, claimCtx *ClaimContext) jwt.MapClaims {
	claims := jwt.MapClaims{
		"aud": claimCtx.Client.ClientID,
		"jti": claimCtx.TokenID.String(),
		"iat": claimCtx.Now.Unix(),
		"nbf": claimCtx.Now.Unix(),
		"exp": claimCtx.Now.Add(b.config.AccessTokenExpiration).Unix(),
	}
	if len(claimCtx.Scopes) > 0 {
		claims["scope"] = strings.Join(claimCtx.Scopes, " ")
	}
	if claimCtx.Subject != nil {
		claims["sub"] = claimCtx.Subject.ID.String()
	}

	for _, source := range b.sources {
		name := source.Name()
		if _, reserved := claims[name]; reserved {
			b.logger.Warn("claim source shadows a registered claim, skipped",
				slog.String("claim", name),
			)
			continue
		}
		value, err := source.Resolve(ctx, claimCtx)
		if err != nil {
			b.logger.Warn("claim source failed, claim skipped",
				slog.String("claim", name),
				slog.Any("error", err),
			)
			continue
		}
		claims[name] = value
	}

	return claims
}

// IDTokenClaims builds the OpenID Connect ID token claim set. The caller is
// responsible for only requesting one when the openid scope was granted and
// a subject is present.
func (b *ClaimBuilder) IDTokenClaims(claimCtx *ClaimContext) jwt.MapClaims {
	claims := jwt.MapClaims{
		"iss": b.config.IssuerURL,
		"aud": claimCtx.Client.ClientID,
		"sub": claimCtx.Subject.ID.String(),
		"iat": claimCtx.Now.Unix(),
		"exp": claimCtx.Now.Add(b.config.AccessTokenExpiration).Unix(),
	}

	for _, scopeID := range claimCtx.Scopes {
		extractor, ok := b.extractors[scopeID]
		if !ok {
			continue
		}
		extracted, err := extractor(claimCtx.Subject)
		if err != nil {
			b.logger.Warn("id token claim extractor failed, claims skipped",
				slog.String("scope", scopeID),
				slog.Any("error", err),
			)
			continue
		}
		for name, value := range extracted {
			if _, reserved := claims[name]; reserved {
				continue
			}
			claims[name] = value
		}
	}

	return claims
}

// profileClaims is the builtin extractor for the profile scope.
func profileClaims(subject *subjectDomain.Subject) (map[string]any, error) {
	return map[string]any{
		"preferred_username": subject.Username,
	}, nil
}
