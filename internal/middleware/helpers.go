package middleware

import (
	"context"
	"net/http"

	"github.com/a-h/templ"
	"github.com/labstack/echo/v4"
)

// LayoutInjector copies layout data (signed-in email, CSRF token, active
// path) from the Echo context into the context.Context that templates
// render with. Registered once at startup in app/routes.go, so this package
// never imports plugin types.
var LayoutInjector func(echo.Context, context.Context) context.Context

// IsHTMX reports whether the request was initiated by htmx and is not a
// boosted navigation. Handlers use it to choose between a fragment and a
// full page.
func IsHTMX(c echo.Context) bool {
	return c.Request().Header.Get("HX-Request") == "true" &&
		c.Request().Header.Get("HX-Boosted") != "true"
}

// Render writes a templ component with the given status code, after running
// the LayoutInjector if one is registered.
func Render(c echo.Context, statusCode int, component templ.Component) error {
	ctx := c.Request().Context()
	if LayoutInjector != nil {
		ctx = LayoutInjector(c, ctx)
	}

	c.Response().Header().Set("Content-Type", "text/html; charset=utf-8")
	c.Response().WriteHeader(statusCode)
	return component.Render(ctx, c.Response().Writer)
}

// Redirect navigates the browser to path after a form submission: an
// HX-Redirect header for htmx requests, a 303 See Other otherwise.
func Redirect(c echo.Context, path string) error {
	if IsHTMX(c) {
		c.Response().Header().Set("HX-Redirect", path)
		return c.NoContent(http.StatusNoContent)
	}
	return c.Redirect(http.StatusSeeOther, path)
}
