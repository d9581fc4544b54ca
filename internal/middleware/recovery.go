package middleware

import (
	"fmt"
	"log/slog"
	"runtime/debug"

	"github.com/labstack/echo/v4"

	"github.com/abuobaidahamim/Unify/internal/apperror"
	"github.com/abuobaidahamim/Unify/internal/metrics"
)

// Recovery turns a handler panic into an internal error for the app's
// error handler. The stack goes to the log, never to the client.
func Recovery() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) (err error) {
			defer func() {
				r := recover()
				if r == nil {
					return
				}
				metrics.Panics.Inc()
				slog.Error("handler panic",
					slog.String("route", c.Path()),
					slog.String("ip", c.RealIP()),
					slog.Any("panic", r),
					slog.String("stack", string(debug.Stack())),
				)
				err = apperror.NewInternal(fmt.Errorf("panic in %s: %v", c.Path(), r))
			}()
			return next(c)
		}
	}
}
