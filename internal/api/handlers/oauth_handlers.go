package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/shopops/backoffice/internal/domain"
	"github.com/shopops/backoffice/pkg/logging"
	"github.com/shopops/backoffice/pkg/middleware"
)

// TokenExchanger trades an authorization code for a token pair
type TokenExchanger interface {
	Exchange(ctx context.Context, code string) (*domain.OAuthToken, error)
}

// TokenStorer makes a token current for the configured mall
type TokenStorer interface {
	Store(ctx context.Context, token *domain.OAuthToken) error
}

// OAuthHandlers completes the app authorisation redirect
type OAuthHandlers struct {
	exchanger TokenExchanger
	storer    TokenStorer
	logger    *logging.Logger
}

func NewOAuthHandlers(exchanger TokenExchanger, storer TokenStorer, logger *logging.Logger) *OAuthHandlers {
	return &OAuthHandlers{
		exchanger: exchanger,
		storer:    storer,
		logger:    logger,
	}
}

func (h *OAuthHandlers) RegisterRoutes(router *gin.RouterGroup) {
	router.GET("/oauth/callback", h.Callback)
}

// Callback handles GET /oauth/callback?code=...
func (h *OAuthHandlers) Callback(c *gin.Context) {
	responder := middleware.NewErrorResponder(c, h.logger.Logger).WithMapper(MapError)

	if reason := c.Query("error"); reason != "" {
		responder.RespondBadRequest("authorisation was declined: " + reason)
		return
	}
	code := c.Query("code")
	if code == "" {
		responder.RespondValidationError("validation failed", map[string]string{"code": "is required"})
		return
	}

	token, err := h.exchanger.Exchange(c.Request.Context(), code)
	if err != nil {
		responder.RespondWithError(err)
		return
	}
	if err := h.storer.Store(c.Request.Context(), token); err != nil {
		responder.RespondInternalError(err)
		return
	}

	h.logger.WithContext(c.Request.Context()).Info("Mall authorised",
		"mall_id", token.MallID,
		"expires_at", token.ExpiresAt,
	)
	c.JSON(http.StatusOK, gin.H{
		"mall_id":                  token.MallID,
		"expires_at":               token.ExpiresAt,
		"refresh_token_expires_at": token.RefreshTokenExpiresAt,
		"scopes":                   token.Scopes,
	})
}
