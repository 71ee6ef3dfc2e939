package handler

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/cityinfo-api/internal/repository"
)

// requestTimeout bounds the store calls of a single request.
const requestTimeout = 5 * time.Second

// SessionFactory opens a fresh unit of work for one request.
type SessionFactory func() repository.CityInfoRepository

// idParam parses a positive numeric path parameter.
func idParam(c echo.Context, name string) (uint64, error) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		return 0, problem(http.StatusBadRequest, "invalid %s", name)
	}
	return id, nil
}

func withTimeout(c echo.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(c.Request().Context(), requestTimeout)
}

// errSaveFailed answers a unit of work that committed without touching a row.
var errSaveFailed = problem(http.StatusInternalServerError, "A problem happened while handling your request.")
