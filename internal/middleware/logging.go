// Package middleware provides HTTP middleware for the Unify Echo server.
// Global middleware is registered in internal/app/app.go, per-route
// middleware in each plugin's routes.go.
package middleware

import (
	"log/slog"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/abuobaidahamim/Unify/internal/apperror"
	"github.com/abuobaidahamim/Unify/internal/metrics"
)

// RequestLogger returns middleware that logs every request with method,
// path, status, latency and remote IP, and records the request metrics.
// Form bodies are never logged; they carry passwords.
func RequestLogger() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()

			err := next(c)

			latency := time.Since(start)
			req := c.Request()
			status := c.Response().Status
			if err != nil && !c.Response().Committed {
				// The error handler has not written yet.
				status = apperror.SafeCode(err)
				if he, ok := err.(*echo.HTTPError); ok {
					status = he.Code
				}
			}

			metrics.HTTPRequests.WithLabelValues(req.Method, strconv.Itoa(status)).Inc()
			metrics.HTTPDuration.WithLabelValues(req.Method).Observe(latency.Seconds())

			attrs := []slog.Attr{
				slog.String("method", req.Method),
				slog.String("path", req.URL.Path),
				slog.Int("status", status),
				slog.Duration("latency", latency),
				slog.String("remote_ip", c.RealIP()),
			}
			if req.URL.RawQuery != "" {
				attrs = append(attrs, slog.String("query", req.URL.RawQuery))
			}

			level := slog.LevelInfo
			if status >= 500 {
				level = slog.LevelError
			} else if status >= 400 {
				level = slog.LevelWarn
			}

			slog.LogAttrs(req.Context(), level, "request", attrs...)
			return err
		}
	}
}
