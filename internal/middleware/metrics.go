package middleware

import (
    "strconv"
    "time"

    "github.com/labstack/echo/v4"
    "github.com/prometheus/client_golang/prometheus"
    "github.com/prometheus/client_golang/prometheus/promauto"
)

var (
    httpRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
        Name: "taskhub_http_requests_total",
        Help: "Total HTTP requests by method, route and status.",
    }, []string{"method", "route", "status"})

    httpRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
        Name:    "taskhub_http_request_duration_seconds",
        Help:    "HTTP request latency by method, route and status.",
        Buckets: prometheus.DefBuckets,
    }, []string{"method", "route", "status"})

    authDenialsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
        Name: "taskhub_auth_denials_total",
        Help: "Authorization denials by action and reason.",
    }, []string{"action", "reason"})
)

// Metrics records request count and latency per route.
func Metrics(next echo.HandlerFunc) echo.HandlerFunc {
    return func(c echo.Context) error {
        start := time.Now()
        err := next(c)
        status := strconv.Itoa(c.Response().Status)
        method := c.Request().Method
        route := c.Path()
        httpRequestsTotal.WithLabelValues(method, route, status).Inc()
        httpRequestDuration.WithLabelValues(method, route, status).Observe(time.Since(start).Seconds())
        return err
    }
}

// CountAuthDenial bumps the denial counter; called by handlers when the
// authorization engine refuses a request.
func CountAuthDenial(action, reason string) {
    authDenialsTotal.WithLabelValues(action, reason).Inc()
}
