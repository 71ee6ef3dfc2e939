package middleware

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/iliyamo/cityinfo-api/internal/logger"
)

// HeaderRequestID carries the correlation id in both directions.
const HeaderRequestID = "X-Request-ID"

// RequestLogger assigns a request id (reusing a sane inbound X-Request-ID),
// attaches a request-scoped zap logger to the request context and writes
// one access log line per request once the handler chain returns.
func RequestLogger(base *zap.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()
			rid := strings.TrimSpace(req.Header.Get(HeaderRequestID))
			if rid == "" || len(rid) > 128 {
				rid = uuid.NewString()
			}
			c.Response().Header().Set(HeaderRequestID, rid)

			log := base.With(logger.RequestID(rid))
			ctx := logger.WithRequestID(logger.ToContext(req.Context(), log), rid)
			c.SetRequest(req.WithContext(ctx))

			start := time.Now()
			err := next(c)

			status := c.Response().Status
			if err != nil {
				var he *echo.HTTPError
				if errors.As(err, &he) {
					status = he.Code
				} else {
					status = http.StatusInternalServerError
				}
			}
			fields := []zap.Field{
				logger.Method(req.Method),
				logger.Path(req.URL.Path),
				logger.Status(status),
				logger.Duration(time.Since(start)),
				logger.ClientIP(c.RealIP()),
			}
			switch {
			case status >= 500:
				log.Error("http", append(fields, logger.Err(err))...)
			case status >= 400:
				log.Warn("http", fields...)
			default:
				log.Info("http", fields...)
			}
			return err
		}
	}
}
