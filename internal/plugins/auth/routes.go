package auth

import (
	"time"

	"github.com/labstack/echo/v4"

	"github.com/abuobaidahamim/Unify/internal/middleware"
)

// RegisterRoutes sets up the auth routes. They are public; LoadSession is
// expected to run globally so the GET handlers can redirect students who
// are already signed in.
//
// Submissions are rate-limited per IP: 10 per minute for login, 5 for
// signup. Live validation endpoints are called per keystroke and are not.
func RegisterRoutes(e *echo.Echo, h *Handler) {
	e.GET("/login", h.LoginForm)
	e.POST("/login", h.Login, middleware.RateLimit(10, time.Minute))
	e.GET("/signup", h.SignupForm)
	e.POST("/signup", h.Signup, middleware.RateLimit(5, time.Minute))
	e.POST("/logout", h.Logout)

	e.POST("/validate/email", h.ValidateEmail)
	e.POST("/validate/password", h.ValidatePassword)

	api := e.Group("/api/v1/validate")
	api.POST("/email", h.ValidateEmailAPI)
	api.POST("/password", h.ValidatePasswordAPI)
}
