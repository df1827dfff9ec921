// Package domain defines the hierarchical scope model used during token
// issuance.
//
// Scopes form a forest: leaf scopes carry a granularity policy deciding
// which host permissions they cover, umbrella scopes group children and
// carry no policy of their own. Scopes are authored administratively and
// are read-only to the issuance path.
package domain

import (
	"time"
)

// GrantType identifies an OAuth2 flow a scope may be enabled for.
type GrantType string

const (
	// GrantAuthorizationCode is the authorization code flow.
	GrantAuthorizationCode GrantType = "authorization_code"

	// GrantClientCredentials is the client credentials flow.
	GrantClientCredentials GrantType = "client_credentials"

	// GrantPassword is the resource owner password flow.
	GrantPassword GrantType = "password"

	// GrantRefreshToken is the refresh token flow.
	GrantRefreshToken GrantType = "refresh_token"
)

// GrantTypes lists all supported grant types.
var GrantTypes = []GrantType{
	GrantAuthorizationCode,
	GrantClientCredentials,
	GrantPassword,
	GrantRefreshToken,
}

// Valid reports whether g is a supported grant type.
func (g GrantType) Valid() bool {
	switch g {
	case GrantAuthorizationCode, GrantClientCredentials, GrantPassword, GrantRefreshToken:
		return true
	}
	return false
}

// GrantTypeSetting configures whether a scope participates in a grant type.
type GrantTypeSetting struct {
	Enabled     bool   `json:"enabled"`
	Description string `json:"description,omitempty"`
}

// Scope is a named permission unit a client can request.
//
// Invariant: exactly one of {IsUmbrella, PolicyID present} holds. An
// umbrella scope never has a parent; a leaf scope may reference an
// umbrella (or another leaf) via ParentID. The parent chain is acyclic,
// enforced at write time.
type Scope struct {
	ID           string // Stable slug, e.g. "content:read" or "openid"
	Name         string
	Description  string
	IsUmbrella   bool
	ParentID     *string
	GrantTypes   map[GrantType]GrantTypeSetting
	PolicyID     *string        // Granularity policy id, nil for umbrellas
	PolicyConfig map[string]any // Policy-specific configuration, nil for umbrellas
	CreatedAt    time.Time
}

// EnabledFor reports whether the scope participates in the given grant
// type.
func (s *Scope) EnabledFor(grantType GrantType) bool {
	setting, ok := s.GrantTypes[grantType]
	return ok && setting.Enabled
}

// CreateScopeInput contains the parameters for authoring a new scope.
type CreateScopeInput struct {
	ID           string
	Name         string
	Description  string
	IsUmbrella   bool
	ParentID     *string
	GrantTypes   map[GrantType]GrantTypeSetting
	PolicyID     *string
	PolicyConfig map[string]any
}
