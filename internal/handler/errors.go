package handler

import (
	"errors"
	"fmt"
	"net/http"
	"os"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/cityinfo-api/internal/logger"
)

// MIMEProblemJSON is the media type of RFC 7807 problem documents.
const MIMEProblemJSON = "application/problem+json"

// ProblemDetails is the body of every error response.
type ProblemDetails struct {
	Type           string              `json:"type"`
	Title          string              `json:"title"`
	Status         int                 `json:"status"`
	Detail         string              `json:"detail,omitempty"`
	Instance       string              `json:"instance,omitempty"`
	Errors         map[string][]string `json:"errors,omitempty"`
	AdditionalInfo string              `json:"additionalInfo"`
	Server         string              `json:"server"`
	TraceID        string              `json:"traceId,omitempty"`
}

// problemTypes maps status codes to their RFC 9110 sections.
var problemTypes = map[int]string{
	http.StatusBadRequest:            "https://tools.ietf.org/html/rfc9110#section-15.5.1",
	http.StatusUnauthorized:          "https://tools.ietf.org/html/rfc9110#section-15.5.2",
	http.StatusForbidden:             "https://tools.ietf.org/html/rfc9110#section-15.5.4",
	http.StatusNotFound:              "https://tools.ietf.org/html/rfc9110#section-15.5.5",
	http.StatusMethodNotAllowed:      "https://tools.ietf.org/html/rfc9110#section-15.5.6",
	http.StatusRequestEntityTooLarge: "https://tools.ietf.org/html/rfc9110#section-15.5.14",
	http.StatusUnsupportedMediaType:  "https://tools.ietf.org/html/rfc9110#section-15.5.16",
	http.StatusTooManyRequests:       "https://tools.ietf.org/html/rfc6585#section-4",
	http.StatusInternalServerError:   "https://tools.ietf.org/html/rfc9110#section-15.6.1",
	http.StatusServiceUnavailable:    "https://tools.ietf.org/html/rfc9110#section-15.6.4",
}

// NewHTTPErrorHandler renders every error as problem details. Unexpected
// errors are logged and become 500; their text is only exposed outside
// production.
func NewHTTPErrorHandler(prod bool) echo.HTTPErrorHandler {
	server, err := os.Hostname()
	if err != nil {
		server = "unknown"
	}
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}
		ctx := c.Request().Context()
		p := ProblemDetails{
			Instance:       c.Request().URL.Path,
			AdditionalInfo: "Additional Info Example",
			Server:         server,
			TraceID:        logger.RequestIDFrom(ctx),
		}

		var (
			ve *ValidationError
			he *echo.HTTPError
		)
		switch {
		case errors.As(err, &ve):
			p.Status = http.StatusBadRequest
			p.Title = "One or more validation errors occurred."
			p.Errors = ve.Errors
		case errors.As(err, &he):
			p.Status = he.Code
			if msg, ok := he.Message.(string); ok && msg != http.StatusText(he.Code) {
				p.Detail = msg
			}
			if he.Code >= http.StatusInternalServerError {
				logger.From(ctx).Error("request failed", logger.Err(err))
			}
		default:
			p.Status = http.StatusInternalServerError
			logger.From(ctx).Error("unhandled error", logger.Err(err))
			if !prod {
				p.Detail = err.Error()
			}
		}
		if p.Title == "" {
			p.Title = http.StatusText(p.Status)
		}
		p.Type = problemTypes[p.Status]
		if p.Type == "" {
			p.Type = "about:blank"
		}

		if c.Request().Method == http.MethodHead {
			err = c.NoContent(p.Status)
		} else {
			c.Response().Header().Set(echo.HeaderContentType, MIMEProblemJSON)
			err = c.JSON(p.Status, p)
		}
		if err != nil {
			logger.From(ctx).Warn("writing error response failed", logger.Err(err))
		}
	}
}

// problem builds an error the handler renders with the given detail.
func problem(status int, format string, args ...interface{}) *echo.HTTPError {
	return echo.NewHTTPError(status, fmt.Sprintf(format, args...))
}
