package middleware

import (
	"database/sql"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the HTTP collectors exposed on /metrics.
type Metrics struct {
	registry        *prometheus.Registry
	requestsTotal   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	inflight        *prometheus.GaugeVec
}

// NewMetrics registers the HTTP collectors, the Go runtime collectors and,
// when db is not nil, the connection pool stats on a fresh registry.
func NewMetrics(db *sql.DB) (*Metrics, error) {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		requestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of processed HTTP requests",
		}, []string{"method", "path", "status"}),
		requestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latency",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "path"}),
		inflight: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "http_inflight_requests",
			Help: "In-flight requests by method and route",
		}, []string{"method", "path"}),
	}

	cs := []prometheus.Collector{
		m.requestsTotal,
		m.requestDuration,
		m.inflight,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	}
	if db != nil {
		cs = append(cs, collectors.NewDBStatsCollector(db, "cityinfo"))
	}
	for _, c := range cs {
		if err := m.registry.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// Middleware records count, latency and in-flight gauges per route
// template, so /cities/1 and /cities/2 share a series.
func (m *Metrics) Middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			method := strings.ToUpper(c.Request().Method)
			path := c.Path()
			if path == "" {
				path = "unmatched"
			}

			m.inflight.WithLabelValues(method, path).Inc()
			start := time.Now()
			err := next(c)
			m.inflight.WithLabelValues(method, path).Dec()
			m.requestDuration.WithLabelValues(method, path).Observe(time.Since(start).Seconds())

			status := c.Response().Status
			if err != nil {
				// The error handler has not written yet; use the status it will.
				var he *echo.HTTPError
				if errors.As(err, &he) {
					status = he.Code
				} else {
					status = http.StatusInternalServerError
				}
			}
			m.requestsTotal.WithLabelValues(method, path, strconv.Itoa(status)).Inc()
			return err
		}
	}
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() echo.HandlerFunc {
	return echo.WrapHandler(promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{}))
}
