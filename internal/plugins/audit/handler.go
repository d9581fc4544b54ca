package audit

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/abuobaidahamim/Unify/internal/apperror"
	"github.com/abuobaidahamim/Unify/internal/plugins/auth"
)

// Handler serves the activity log API.
type Handler struct {
	service Service
}

// NewHandler creates a new audit handler.
func NewHandler(service Service) *Handler {
	return &Handler{service: service}
}

// Activity returns the signed-in student's recent activity as JSON
// (GET /api/v1/activity).
func (h *Handler) Activity(c echo.Context) error {
	session := auth.GetSession(c)
	if session == nil {
		return apperror.NewUnauthorized("authentication required")
	}

	entries, err := h.service.Recent(c.Request().Context(), session.UID)
	if err != nil {
		return err
	}
	if entries == nil {
		entries = []Entry{}
	}
	return c.JSON(http.StatusOK, map[string]any{"entries": entries})
}
