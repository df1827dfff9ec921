package dto

import (
	oauthDomain "github.com/allisson/tokend/internal/oauth/domain"
)

// TokenResponse is the RFC 6749 success body of POST /oauth/token.
// Optional members are omitted entirely rather than sent as empty
// strings, so a grant without a refresh token has no refresh_token key.
type TokenResponse struct {
	AccessToken  string `json:"access_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int64  `json:"expires_in"`
	Scope        string `json:"scope,omitempty"`
	RefreshToken string `json:"refresh_token,omitempty"`
	IDToken      string `json:"id_token,omitempty"`
}

// MapTokenResultToResponse converts a domain token result to the API response.
func MapTokenResultToResponse(result *oauthDomain.TokenResult) TokenResponse {
	return TokenResponse{
		AccessToken:  result.AccessToken,
		TokenType:    result.TokenType,
		ExpiresIn:    result.ExpiresIn,
		Scope:        result.Scope,
		RefreshToken: result.RefreshToken,
		IDToken:      result.IDToken,
	}
}
