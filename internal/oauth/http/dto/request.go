// Package dto provides data transfer objects for the token endpoint.
package dto

import (
	oauthDomain "github.com/allisson/tokend/internal/oauth/domain"
)

// TokenRequest is the form-encoded body of POST /oauth/token as defined
// by RFC 6749. Client credentials may also arrive via HTTP Basic auth,
// which takes precedence over the form fields.
type TokenRequest struct {
	GrantType    string `form:"grant_type"`
	ClientID     string `form:"client_id"`
	ClientSecret string `form:"client_secret"`
	Scope        string `form:"scope"`
	Code         string `form:"code"`
	RedirectURI  string `form:"redirect_uri"`
	Username     string `form:"username"`
	Password     string `form:"password"`
	RefreshToken string `form:"refresh_token"`
}

// ToDomain converts the request to the domain token request.
func (r *TokenRequest) ToDomain() *oauthDomain.TokenRequest {
	return &oauthDomain.TokenRequest{
		GrantType:    r.GrantType,
		ClientID:     r.ClientID,
		ClientSecret: r.ClientSecret,
		Scope:        r.Scope,
		Code:         r.Code,
		RedirectURI:  r.RedirectURI,
		Username:     r.Username,
		Password:     r.Password,
		RefreshToken: r.RefreshToken,
	}
}
