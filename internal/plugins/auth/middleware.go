package auth

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
)

// contextKeySession is the Echo context key for the resolved session.
const contextKeySession = "auth_session"

// LoadSession returns middleware that resolves the session cookie, if any,
// and makes the session the current user for the rest of the request:
// it is stored on the Echo context and on the request's context.Context,
// where Gateway.GetCurrentUser finds it. Stale cookies are cleared.
func LoadSession(gateway Gateway) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			token := getSessionToken(c)
			if token == "" {
				return next(c)
			}

			req := c.Request()
			session := gateway.ResolveSession(req.Context(), token)
			if session == nil {
				clearSessionCookie(c)
				return next(c)
			}

			c.Set(contextKeySession, session)
			c.SetRequest(req.WithContext(WithSession(req.Context(), session)))
			return next(c)
		}
	}
}

// RequireAuth returns middleware that rejects requests without a session
// loaded by LoadSession: browsers are redirected to /login, API clients get
// a JSON 401.
func RequireAuth() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if GetSession(c) == nil {
				return handleUnauthenticated(c)
			}
			return next(c)
		}
	}
}

// handleUnauthenticated returns the response for a request with no session.
func handleUnauthenticated(c echo.Context) error {
	if strings.HasPrefix(c.Request().URL.Path, "/api") {
		return c.JSON(http.StatusUnauthorized, map[string]string{
			"error":   "unauthorized",
			"message": "authentication required",
		})
	}

	if c.Request().Header.Get("HX-Request") == "true" {
		c.Response().Header().Set("HX-Redirect", LoginPath)
		return c.NoContent(http.StatusNoContent)
	}

	return c.Redirect(http.StatusSeeOther, LoginPath)
}

// GetSession returns the session loaded for this request, or nil.
func GetSession(c echo.Context) *Session {
	session, _ := c.Get(contextKeySession).(*Session)
	return session
}
