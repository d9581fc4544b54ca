package middleware

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/hex"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/abuobaidahamim/Unify/internal/apperror"
)

// csrfTokenLength is the number of random bytes in a token (64 hex chars).
const csrfTokenLength = 32

// CSRFCookieName is the cookie holding the CSRF token. The base layout's
// script reads it, so it is not HttpOnly.
const CSRFCookieName = "unify_csrf"

// csrfHeaderName is the header htmx sends the token in.
const csrfHeaderName = "X-CSRF-Token"

// CSRFFormField is the hidden form field for plain form submissions.
const CSRFFormField = "csrf_token"

// CSRF returns middleware implementing the double-submit cookie pattern on
// state-changing requests. Every response carries a token cookie; POST,
// PUT, PATCH and DELETE must echo it back in the X-CSRF-Token header or
// the csrf_token form field, or get a 403.
//
// /api/ routes are skipped. Their POSTs are stateless validation
// endpoints; the session-reading activity endpoint is a GET.
func CSRF() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()
			if strings.HasPrefix(req.URL.Path, "/api/") {
				return next(c)
			}

			var cookieToken string
			if cookie, err := req.Cookie(CSRFCookieName); err == nil && cookie.Value != "" {
				cookieToken = cookie.Value
			} else {
				token, genErr := generateCSRFToken()
				if genErr != nil {
					return apperror.NewInternal(genErr)
				}
				c.SetCookie(&http.Cookie{
					Name:     CSRFCookieName,
					Value:    token,
					Path:     "/",
					Secure:   req.TLS != nil || req.Header.Get("X-Forwarded-Proto") == "https",
					SameSite: http.SameSiteLaxMode,
				})
				cookieToken = token
			}
			c.Set(CSRFFormField, cookieToken)

			if isSafeMethod(req.Method) {
				return next(c)
			}

			submitted := req.Header.Get(csrfHeaderName)
			if submitted == "" {
				submitted = req.FormValue(CSRFFormField)
			}

			// Constant-time so the token cannot be probed byte by byte.
			if submitted == "" || subtle.ConstantTimeCompare([]byte(submitted), []byte(cookieToken)) != 1 {
				return apperror.NewForbidden("invalid or missing CSRF token")
			}

			return next(c)
		}
	}
}

// isSafeMethod returns true for HTTP methods that should not change state.
func isSafeMethod(method string) bool {
	return method == http.MethodGet ||
		method == http.MethodHead ||
		method == http.MethodOptions
}

// generateCSRFToken generates a random hex-encoded token.
func generateCSRFToken() (string, error) {
	b := make([]byte, csrfTokenLength)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

// GetCSRFToken returns the request's CSRF token for embedding in forms.
func GetCSRFToken(c echo.Context) string {
	if token, ok := c.Get(CSRFFormField).(string); ok {
		return token
	}
	return ""
}
