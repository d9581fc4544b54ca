// Package app is the application bootstrap and dependency injection root.
// It holds the shared infrastructure (DB pool, Redis client, gateway, Echo
// instance) and wires the plugins together.
package app

import (
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"

	"github.com/abuobaidahamim/Unify/internal/apperror"
	"github.com/abuobaidahamim/Unify/internal/backend"
	"github.com/abuobaidahamim/Unify/internal/config"
	"github.com/abuobaidahamim/Unify/internal/middleware"
	"github.com/abuobaidahamim/Unify/internal/plugins/audit"
	"github.com/abuobaidahamim/Unify/internal/plugins/auth"
	"github.com/abuobaidahamim/Unify/internal/templates/pages"
)

// Deps are the dependencies built in main.go. DB and Redis are nil with
// BACKEND=memory. A nil Activity disables the activity log.
type Deps struct {
	DB       *sql.DB
	Redis    *redis.Client
	Gateway  auth.Gateway
	Breaker  *backend.Breaker
	Activity audit.Service
}

// App holds all shared dependencies and the Echo HTTP server instance.
type App struct {
	Config   *config.Config
	DB       *sql.DB
	Redis    *redis.Client
	Gateway  auth.Gateway
	Breaker  *backend.Breaker
	Activity audit.Service
	Echo     *echo.Echo
}

// New creates the App and configures Echo with global middleware and
// error handling.
func New(cfg *config.Config, deps Deps) *App {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	middleware.TrustedProxies(e, cfg.TrustedProxies)

	app := &App{
		Config:   cfg,
		DB:       deps.DB,
		Redis:    deps.Redis,
		Gateway:  deps.Gateway,
		Breaker:  deps.Breaker,
		Activity: deps.Activity,
		Echo:     e,
	}

	app.setupMiddleware()
	e.HTTPErrorHandler = app.errorHandler
	e.Static("/static", "static")

	return app
}

// setupMiddleware registers global middleware. Recovery is outermost;
// LoadSession runs last so handlers see the current user.
func (a *App) setupMiddleware() {
	a.Echo.Use(middleware.Recovery())
	a.Echo.Use(middleware.RequestLogger())
	a.Echo.Use(middleware.SecurityHeaders(a.Config.IsProduction()))
	a.Echo.Use(middleware.CSRF())
	a.Echo.Use(auth.LoadSession(a.Gateway))
}

// errorHandler maps errors to responses: JSON for /api, an error page for
// browsers. htmx requests get the page retargeted to <body> so it does not
// land inside a fragment; 401s redirect to the login page.
func (a *App) errorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	code := http.StatusInternalServerError
	message := defaultErrorMessage(code)

	var appErr *apperror.AppError
	var echoErr *echo.HTTPError
	switch {
	case errors.As(err, &appErr):
		code = appErr.Code
		message = appErr.Message
		if appErr.Internal != nil {
			slog.Error("internal error",
				slog.String("type", appErr.Type),
				slog.Any("internal", appErr.Internal),
				slog.String("path", c.Request().URL.Path),
			)
		}
	case errors.As(err, &echoErr):
		code = echoErr.Code
		if msg, ok := echoErr.Message.(string); ok {
			message = msg
		} else {
			message = defaultErrorMessage(code)
		}
	default:
		slog.Error("unhandled error",
			slog.Any("error", err),
			slog.String("path", c.Request().URL.Path),
		)
	}

	if strings.HasPrefix(c.Request().URL.Path, "/api") {
		_ = c.JSON(code, map[string]string{
			"error":   http.StatusText(code),
			"message": message,
		})
		return
	}

	if code == http.StatusUnauthorized {
		_ = middleware.Redirect(c, auth.LoginPath)
		return
	}

	if c.Request().Header.Get("HX-Request") == "true" {
		c.Response().Header().Set("HX-Retarget", "body")
		c.Response().Header().Set("HX-Reswap", "innerHTML")
	}

	if err := middleware.Render(c, code, pages.ErrorPage(code, message)); err != nil {
		slog.Error("rendering error page", slog.Any("error", err))
	}
}

// defaultErrorMessage returns a friendly message for common status codes.
func defaultErrorMessage(code int) string {
	switch code {
	case http.StatusBadRequest:
		return "The request was invalid or cannot be processed."
	case http.StatusForbidden:
		return "You don't have permission to do that. Reload the page and try again."
	case http.StatusNotFound:
		return "The page you're looking for doesn't exist."
	case http.StatusMethodNotAllowed:
		return "This action is not allowed."
	case http.StatusTooManyRequests:
		return "You're making too many requests. Please slow down."
	case http.StatusServiceUnavailable:
		return "The service is temporarily unavailable. Please try again later."
	default:
		return "Something went wrong on our end. Please try again."
	}
}

// Start begins listening for HTTP requests on the configured port.
func (a *App) Start() error {
	addr := fmt.Sprintf(":%d", a.Config.Port)
	slog.Info("starting Unify server",
		slog.String("addr", addr),
		slog.String("env", a.Config.Env),
		slog.String("backend", a.Config.Backend),
	)
	return a.Echo.Start(addr)
}
