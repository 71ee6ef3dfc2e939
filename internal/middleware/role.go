package middleware // middleware provides shared request processing for handlers

import (
	"net/http" // http package defines standard HTTP status codes

	"github.com/labstack/echo/v4" // echo provides middleware chaining and context
)

// RequireClaim returns a middleware that enforces that the authenticated
// user carries claim with one of the allowed values. Only the profile
// claims issued by this API are known: "city", "given_name" and
// "family_name". Unauthenticated requests get 401, authenticated users
// with the wrong value get 403. It assumes JWTAuth ran before it.
func RequireClaim(claim string, allowed ...string) echo.MiddlewareFunc {
	// Build a set of allowed values for constant-time lookups.
	set := make(map[string]bool, len(allowed))
	for _, v := range allowed {
		set[v] = true
	}
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			claims := ClaimsFrom(c)
			if claims == nil {
				return echo.NewHTTPError(http.StatusUnauthorized, "authentication required")
			}
			var value string
			switch claim {
			case "city":
				value = claims.City
			case "given_name":
				value = claims.GivenName
			case "family_name":
				value = claims.FamilyName
			}
			if !set[value] {
				return echo.NewHTTPError(http.StatusForbidden, "forbidden")
			}
			return next(c)
		}
	}
}

// MustBeFromParis admits only users whose city claim is Paris.
func MustBeFromParis() echo.MiddlewareFunc { return RequireClaim("city", "Paris") }
