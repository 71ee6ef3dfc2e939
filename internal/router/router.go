package router // package router defines how HTTP routes are registered for the API

import (
	"github.com/labstack/echo/v4" // import the Echo web framework to handle routing

	"github.com/iliyamo/cityinfo-api/internal/handler"    // handlers that implement the endpoints
	"github.com/iliyamo/cityinfo-api/internal/middleware" // metrics collectors for /metrics
)

// RegisterRoutes registers the unauthenticated operational endpoints:
// liveness, database readiness and Prometheus metrics.
func RegisterRoutes(e *echo.Echo, db handler.Pinger, m *middleware.Metrics) {
	e.GET("/healthz", handler.Health)
	e.GET("/readyz", handler.Ready(db))
	if m != nil {
		e.GET("/metrics", m.Handler())
	}
}

// RegisterAuth registers the token endpoint. It is unversioned and needs
// no token itself.
func RegisterAuth(e *echo.Echo, a *handler.AuthHandler) {
	e.POST("/api/authentication/authenticate", a.Authenticate)
}

// versionGroups creates one group per accepted spelling of each version,
// e.g. "1.0" is reachable as /api/v1 and /api/v1.0.
func versionGroups(e *echo.Echo, versions []string, m ...echo.MiddlewareFunc) []*echo.Group {
	var groups []*echo.Group
	for _, v := range versions {
		for _, prefix := range versionPrefixes(v) {
			groups = append(groups, e.Group(prefix, m...))
		}
	}
	return groups
}

func versionPrefixes(v string) []string {
	prefixes := []string{"/api/v" + v}
	if short, ok := trimZeroMinor(v); ok {
		prefixes = append(prefixes, "/api/v"+short)
	}
	return prefixes
}

// trimZeroMinor turns "2.0" into "2". Versions like "0.1" have no short form.
func trimZeroMinor(v string) (string, bool) {
	const suffix = ".0"
	if len(v) > len(suffix) && v[len(v)-len(suffix):] == suffix {
		return v[:len(v)-len(suffix)], true
	}
	return "", false
}
