package middleware // declare the middleware package; contains reusable HTTP middleware functions

import (
	"net/http" // HTTP status codes for responses
	"strings"  // string utilities for prefix checking and trimming

	"github.com/labstack/echo/v4" // Echo framework used for defining middleware and handlers

	"github.com/iliyamo/cityinfo-api/internal/utils" // token parsing shared with the issuer
)

// Context keys set by JWTAuth.
const (
	ContextKeyUserID = "user_id"
	ContextKeyClaims = "claims"
)

// JWTAuth returns an Echo middleware that validates a Bearer access token
// against the same key, issuer and audience the Authenticator signs with.
// On success the subject is stored under "user_id" and the full claim set
// under "claims" so handlers and policies can read them with ClaimsFrom.
func JWTAuth(opts utils.TokenOptions) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			// A valid header starts with "Bearer " followed by the JWT.
			auth := c.Request().Header.Get(echo.HeaderAuthorization)
			if !strings.HasPrefix(auth, "Bearer ") {
				c.Response().Header().Set(echo.HeaderWWWAuthenticate, "Bearer")
				return echo.NewHTTPError(http.StatusUnauthorized, "missing bearer token")
			}
			raw := strings.TrimSpace(strings.TrimPrefix(auth, "Bearer "))

			// Signature, algorithm, issuer, audience and expiry are all
			// checked by ParseAccessToken.
			claims, err := utils.ParseAccessToken(raw, opts)
			if err != nil {
				c.Response().Header().Set(echo.HeaderWWWAuthenticate, `Bearer error="invalid_token"`)
				return echo.NewHTTPError(http.StatusUnauthorized, "invalid token")
			}

			c.Set(ContextKeyUserID, claims.Subject)
			c.Set(ContextKeyClaims, claims)
			return next(c)
		}
	}
}

// ClaimsFrom returns the claims stored by JWTAuth, or nil on routes that
// are not protected.
func ClaimsFrom(c echo.Context) *utils.Claims {
	claims, _ := c.Get(ContextKeyClaims).(*utils.Claims)
	return claims
}
