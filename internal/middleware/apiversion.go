package middleware

import (
	"strings"

	"github.com/labstack/echo/v4"
)

// API version reporting headers.
const (
	HeaderSupportedVersions  = "api-supported-versions"
	HeaderDeprecatedVersions = "api-deprecated-versions"
)

// ReportAPIVersions advertises the versions a route group answers to.
// Headers are set before the handler runs so error responses carry them too.
func ReportAPIVersions(supported, deprecated []string) echo.MiddlewareFunc {
	sup := strings.Join(supported, ", ")
	dep := strings.Join(deprecated, ", ")
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			h := c.Response().Header()
			if sup != "" {
				h.Set(HeaderSupportedVersions, sup)
			}
			if dep != "" {
				h.Set(HeaderDeprecatedVersions, dep)
			}
			return next(c)
		}
	}
}
