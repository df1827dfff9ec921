// Package http provides HTTP handlers for the token endpoint and the
// JWKS document.
package http

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/allisson/tokend/internal/httputil"
	"github.com/allisson/tokend/internal/oauth/http/dto"
	oauthUseCase "github.com/allisson/tokend/internal/oauth/usecase"

	apperrors "github.com/allisson/tokend/internal/errors"
)

// TokenHandler handles HTTP requests for the token endpoint.
type TokenHandler struct {
	grantUseCase oauthUseCase.GrantUseCase
	logger       *slog.Logger
}

// NewTokenHandler creates a new token handler with required dependencies.
func NewTokenHandler(
	grantUseCase oauthUseCase.GrantUseCase,
	logger *slog.Logger,
) *TokenHandler {
	return &TokenHandler{
		grantUseCase: grantUseCase,
		logger:       logger,
	}
}

// TokenHandler exchanges grant credentials for tokens.
// POST /oauth/token - Form-encoded per RFC 6749. Client credentials
// are accepted via HTTP Basic auth or the client_id/client_secret form
// fields; Basic auth wins when both are present.
// Returns 200 OK with the token response, or an RFC 6749 error body.
func (h *TokenHandler) TokenHandler(c *gin.Context) {
	var req dto.TokenRequest

	if err := c.ShouldBind(&req); err != nil {
		httputil.HandleOAuthErrorGin(c,
			apperrors.Wrap(apperrors.ErrInvalidRequest, "malformed request body"),
			h.logger)
		return
	}

	if username, password, ok := c.Request.BasicAuth(); ok {
		req.ClientID = username
		req.ClientSecret = password
	}

	result, err := h.grantUseCase.Token(c.Request.Context(), req.ToDomain())
	if err != nil {
		httputil.HandleOAuthErrorGin(c, err, h.logger)
		return
	}

	// RFC 6749 Section 5.1: token responses must not be cached.
	c.Header("Cache-Control", "no-store")
	c.Header("Pragma", "no-cache")
	c.JSON(http.StatusOK, dto.MapTokenResultToResponse(result))
}
