// Package logger builds the application's zap logger.  Production gets
// structured JSON, everything else gets the human-readable development
// encoder.
package logger

import (
    "time"

    "github.com/labstack/echo/v4"
    "go.uber.org/zap"
    "go.uber.org/zap/zapcore"
)

// New constructs a logger for the given environment ("prod" selects the
// JSON encoder).  Construction failures fall back to a no-op logger so
// logging can never take the service down.
func New(env string) *zap.Logger {
    var cfg zap.Config
    if env == "prod" || env == "production" {
        cfg = zap.NewProductionConfig()
    } else {
        cfg = zap.NewDevelopmentConfig()
        cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
    }
    l, err := cfg.Build()
    if err != nil {
        return zap.NewNop()
    }
    return l
}

// RequestLogger returns an echo middleware that logs one line per request
// with method, route, status and latency.
func RequestLogger(l *zap.Logger) echo.MiddlewareFunc {
    return func(next echo.HandlerFunc) echo.HandlerFunc {
        return func(c echo.Context) error {
            start := time.Now()
            err := next(c)
            if err != nil {
                c.Error(err)
            }
            l.Info("request",
                zap.String("method", c.Request().Method),
                zap.String("path", c.Path()),
                zap.Int("status", c.Response().Status),
                zap.Duration("latency", time.Since(start)),
                zap.String("request_id", c.Response().Header().Get(echo.HeaderXRequestID)),
            )
            return nil
        }
    }
}
