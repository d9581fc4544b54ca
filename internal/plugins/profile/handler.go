package profile

import (
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/abuobaidahamim/Unify/internal/apperror"
	"github.com/abuobaidahamim/Unify/internal/metrics"
	"github.com/abuobaidahamim/Unify/internal/middleware"
	"github.com/abuobaidahamim/Unify/internal/plugins/audit"
	"github.com/abuobaidahamim/Unify/internal/plugins/auth"
)

// Handler serves profile setup and the dashboard. Every route runs behind
// auth.RequireAuth, so a session is always in the request context.
type Handler struct {
	gateway  auth.Gateway
	activity audit.Service
}

// NewHandler creates a new profile handler. activity may be nil, in which
// case saves go unrecorded and the dashboard shows no activity.
func NewHandler(gateway auth.Gateway, activity audit.Service) *Handler {
	return &Handler{gateway: gateway, activity: activity}
}

// SetupForm renders the profile form, pre-filled when a profile exists
// (GET /profile-setup).
func (h *Handler) SetupForm(c echo.Context) error {
	state := SetupState{CSRFToken: middleware.GetCSRFToken(c)}
	if p := h.gateway.GetCurrentUserProfile(c.Request().Context()); p != nil {
		state.Form = formFromProfile(p)
	}
	return middleware.Render(c, http.StatusOK, SetupPage(state))
}

// Setup validates and saves the profile, then navigates to the dashboard
// (POST /profile-setup).
func (h *Handler) Setup(c echo.Context) error {
	var form SetupForm
	if err := c.Bind(&form); err != nil {
		return apperror.NewBadRequest("invalid request")
	}

	state := SetupState{CSRFToken: middleware.GetCSRFToken(c), Form: form}
	if errs := state.Form.Validate(); len(errs) > 0 {
		for field := range errs {
			metrics.ValidationRejections.WithLabelValues("profile", field).Inc()
		}
		state.Errors = errs
		return renderSetup(c, state)
	}

	result := h.gateway.SaveProfile(c.Request().Context(), state.Form.Profile())
	if !result.Success {
		state.FormError = result.Message
		return renderSetup(c, state)
	}

	if session := h.gateway.GetCurrentUser(c.Request().Context()); session != nil && h.activity != nil {
		h.activity.Record(c.Request().Context(), session.UID, auth.ActivityProfileSaved, c.RealIP())
	}
	return middleware.Redirect(c, auth.DashboardPath)
}

// Dashboard shows the student's profile, sending students without one to
// the setup form (GET /dashboard).
func (h *Handler) Dashboard(c echo.Context) error {
	ctx := c.Request().Context()
	p := h.gateway.GetCurrentUserProfile(ctx)
	if p == nil {
		return c.Redirect(http.StatusSeeOther, auth.ProfileSetupPath)
	}

	var recent []audit.Entry
	if session := h.gateway.GetCurrentUser(ctx); session != nil && h.activity != nil {
		entries, err := h.activity.Recent(ctx, session.UID)
		if err != nil {
			slog.Warn("dashboard activity unavailable", slog.Any("error", err))
		}
		recent = entries
	}
	return middleware.Render(c, http.StatusOK, DashboardPage(p, recent))
}

func renderSetup(c echo.Context, state SetupState) error {
	if middleware.IsHTMX(c) {
		return middleware.Render(c, http.StatusOK, SetupFormComponent(state))
	}
	return middleware.Render(c, http.StatusOK, SetupPage(state))
}
