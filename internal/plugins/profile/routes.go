package profile

import (
	"github.com/labstack/echo/v4"
)

// RegisterRoutes mounts the profile routes. requireAuth guards every one.
func RegisterRoutes(e *echo.Echo, h *Handler, requireAuth echo.MiddlewareFunc) {
	e.GET("/profile-setup", h.SetupForm, requireAuth)
	e.POST("/profile-setup", h.Setup, requireAuth)
	e.GET("/dashboard", h.Dashboard, requireAuth)
}
