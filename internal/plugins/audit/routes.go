package audit

import (
	"github.com/labstack/echo/v4"
)

// RegisterRoutes mounts the activity API behind requireAuth.
func RegisterRoutes(e *echo.Echo, h *Handler, requireAuth echo.MiddlewareFunc) {
	e.GET("/api/v1/activity", h.Activity, requireAuth)
}
