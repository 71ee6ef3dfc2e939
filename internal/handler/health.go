package handler // declare the package name; contains HTTP handlers

import (
	"context"
	"net/http" // net/http provides status codes and response helpers
	"time"

	"github.com/labstack/echo/v4" // echo is the web framework used for this project

	"github.com/iliyamo/cityinfo-api/internal/logger"
)

// Health is a simple liveness endpoint used by load balancers and
// monitoring systems to verify that the process is running.
func Health(c echo.Context) error {
	return c.String(http.StatusOK, "ok")
}

// Pinger reports whether a backing store is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Ready answers 200 only when the database responds within two seconds.
func Ready(db Pinger) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx, cancel := context.WithTimeout(c.Request().Context(), 2*time.Second)
		defer cancel()
		if err := db.Ping(ctx); err != nil {
			logger.From(ctx).Warn("readiness check failed", logger.Err(err))
			return c.String(http.StatusServiceUnavailable, "database unavailable")
		}
		return c.String(http.StatusOK, "ready")
	}
}
