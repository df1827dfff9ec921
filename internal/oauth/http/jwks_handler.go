package http

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/allisson/tokend/internal/keys"
)

// JWKSHandler serves the public signing keys as a JWKS document.
type JWKSHandler struct {
	keyStore *keys.KeyStore
	logger   *slog.Logger
}

// NewJWKSHandler creates a new JWKS handler.
func NewJWKSHandler(keyStore *keys.KeyStore, logger *slog.Logger) *JWKSHandler {
	return &JWKSHandler{
		keyStore: keyStore,
		logger:   logger,
	}
}

// JWKSHandler returns the JSON Web Key Set for token verification.
// GET /.well-known/jwks.json - No authentication required.
// The document contains only public key material and is safe to cache.
func (h *JWKSHandler) JWKSHandler(c *gin.Context) {
	c.Header("Cache-Control", "public, max-age=300")
	c.JSON(http.StatusOK, h.keyStore.JWKS())
}
