package app

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sony/gobreaker"

	"github.com/abuobaidahamim/Unify/internal/middleware"
	"github.com/abuobaidahamim/Unify/internal/plugins/audit"
	"github.com/abuobaidahamim/Unify/internal/plugins/auth"
	"github.com/abuobaidahamim/Unify/internal/plugins/profile"
	"github.com/abuobaidahamim/Unify/internal/templates/layouts"
	"github.com/abuobaidahamim/Unify/internal/templates/pages"
)

// healthTimeout bounds each dependency ping in /healthz.
const healthTimeout = 2 * time.Second

// RegisterRoutes sets up all application routes. This is the one place
// plugins are mounted.
func (a *App) RegisterRoutes() {
	e := a.Echo

	middleware.LayoutInjector = injectLayout

	e.GET("/", func(c echo.Context) error {
		return middleware.Render(c, http.StatusOK, pages.Landing())
	})
	e.GET("/healthz", a.health)
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	var recorder auth.ActivityRecorder
	if a.Activity != nil {
		recorder = a.Activity
		audit.RegisterRoutes(e, audit.NewHandler(a.Activity), auth.RequireAuth())
	}

	auth.RegisterRoutes(e, auth.NewHandler(a.Gateway, recorder, a.Config.Auth.SessionTTL))
	profile.RegisterRoutes(e, profile.NewHandler(a.Gateway, a.Activity), auth.RequireAuth())
}

// injectLayout copies the signed-in student, CSRF token and path into the
// template context.
func injectLayout(c echo.Context, ctx context.Context) context.Context {
	if s := auth.GetSession(c); s != nil {
		ctx = layouts.SetIsAuthenticated(ctx, true)
		ctx = layouts.SetUserEmail(ctx, s.Email)
	}
	ctx = layouts.SetCSRFToken(ctx, middleware.GetCSRFToken(c))
	return layouts.SetActivePath(ctx, c.Request().URL.Path)
}

// health pings MariaDB and Redis when configured and reports the breaker
// state. Any failed check returns 503.
func (a *App) health(c echo.Context) error {
	checks := map[string]string{}
	healthy := true

	check := func(name string, ping func(context.Context) error) {
		ctx, cancel := context.WithTimeout(c.Request().Context(), healthTimeout)
		defer cancel()
		if err := ping(ctx); err != nil {
			checks[name] = "down"
			healthy = false
			return
		}
		checks[name] = "ok"
	}

	if a.DB != nil {
		check("mariadb", a.DB.PingContext)
	}
	if a.Redis != nil {
		check("redis", func(ctx context.Context) error { return a.Redis.Ping(ctx).Err() })
	}
	if a.Breaker != nil {
		state := a.Breaker.State()
		checks["breaker"] = state.String()
		if state == gobreaker.StateOpen {
			healthy = false
		}
	}

	status, code := "ok", http.StatusOK
	if !healthy {
		status, code = "unavailable", http.StatusServiceUnavailable
	}
	return c.JSON(code, map[string]any{"status": status, "checks": checks})
}
