package middleware

// identity.go defines helpers shared across middleware files for telling
// callers apart in cache and rate-limit keys.

import "github.com/labstack/echo/v4"

// userID returns the subject stored by JWTAuth, or "guest" when the
// request is not authenticated.
func userID(c echo.Context) string {
	if s, ok := c.Get(ContextKeyUserID).(string); ok && s != "" {
		return s
	}
	return "guest"
}
