package handler

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/cityinfo-api/internal/logger"
	"github.com/iliyamo/cityinfo-api/internal/service"
	"github.com/iliyamo/cityinfo-api/internal/utils"
)

// TokenIssuer validates credentials and signs an access token.
type TokenIssuer interface {
	Authenticate(ctx context.Context, userName, password string) (utils.AccessToken, error)
}

// AuthHandler bundles dependencies for auth endpoints.
type AuthHandler struct {
	Issuer TokenIssuer
}

func NewAuthHandler(issuer TokenIssuer) *AuthHandler {
	return &AuthHandler{Issuer: issuer}
}

// Authenticate exchanges a user name and password for a bearer token. The
// response body is the compact token as a JSON string. Bad credentials
// yield a bare 401.
func (h *AuthHandler) Authenticate(c echo.Context) error {
	var req authenticationRequest
	if err := c.Bind(&req); err != nil {
		return err
	}
	req.UserName = strings.TrimSpace(req.UserName)
	if err := c.Validate(&req); err != nil {
		return err
	}

	ctx, cancel := withTimeout(c)
	defer cancel()

	tok, err := h.Issuer.Authenticate(ctx, req.UserName, req.Password)
	if err != nil {
		if errors.Is(err, service.ErrInvalidCredentials) {
			logger.From(ctx).Info("authentication rejected", logger.UserName(req.UserName))
			return echo.ErrUnauthorized
		}
		return err
	}
	return c.JSON(http.StatusOK, tok.Token)
}
