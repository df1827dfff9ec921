// Package domain defines the core OAuth domain entities and types.
package domain

import (
	"slices"
	"time"

	"github.com/google/uuid"
)

// Client represents an OAuth client application registered with the server.
//
// AllowedScopes restricts which scopes the client may request; an empty list
// means unrestricted. DefaultSubjectID, when set, is the service identity
// that client_credentials tokens act on behalf of.
type Client struct {
	ID                  uuid.UUID
	ClientID            string
	Secret              string
	Name                string
	IsActive            bool
	AllowedScopes       []string
	DefaultSubjectID    *uuid.UUID
	RefreshTokenEnabled bool
	CreatedAt           time.Time
}

// IsScopeAllowed reports whether the client may request the given scope.
// Clients with an empty allowed list are unrestricted.
func (c *Client) IsScopeAllowed(scopeID string) bool {
	if len(c.AllowedScopes) == 0 {
		return true
	}
	return slices.Contains(c.AllowedScopes, scopeID)
}

// CreateClientInput contains the input data for client registration.
type CreateClientInput struct {
	ClientID            string     `json:"client_id"`
	Name                string     `json:"name"`
	AllowedScopes       []string   `json:"allowed_scopes"`
	DefaultSubjectID    *uuid.UUID `json:"default_subject_id"`
	RefreshTokenEnabled bool       `json:"refresh_token_enabled"`
}

// CreateClientOutput carries the one-time plain secret back to the caller.
type CreateClientOutput struct {
	Client      *Client
	PlainSecret string
}
