package auth

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/abuobaidahamim/Unify/internal/apperror"
	"github.com/abuobaidahamim/Unify/internal/metrics"
	"github.com/abuobaidahamim/Unify/internal/middleware"
	"github.com/abuobaidahamim/Unify/internal/validation"
)

// sessionCookieName is the HTTP cookie used to store the session token.
const sessionCookieName = "unify_session"

// Navigation destinations after a successful submission.
const (
	DashboardPath    = "/dashboard"
	ProfileSetupPath = "/profile-setup"
	LoginPath        = "/login"
)

// Locally produced form messages.
const (
	msgLoginEmailInvalid    = "Please use a student email (.edu)."
	msgSignupEmailInvalid   = "Please use a valid student email (must contain .edu in the domain)."
	msgEmailHint            = "Must end with .edu"
	msgPasswordRequirements = "Password does not meet the requirements."
)

// Handler holds the login and signup form controllers. Each submission is
// handled sequentially: validate locally, call the gateway once, then
// either navigate or re-render the form with an inline error.
type Handler struct {
	gateway    Gateway
	activity   ActivityRecorder
	sessionTTL time.Duration
}

// NewHandler creates a new auth handler. sessionTTL sets the cookie
// lifetime; activity may be nil.
func NewHandler(gateway Gateway, activity ActivityRecorder, sessionTTL time.Duration) *Handler {
	return &Handler{gateway: gateway, activity: activity, sessionTTL: sessionTTL}
}

// --- Login ---

// LoginForm renders the login page (GET /login).
func (h *Handler) LoginForm(c echo.Context) error {
	ctx := c.Request().Context()
	if h.gateway.GetCurrentUser(ctx) != nil {
		return c.Redirect(http.StatusSeeOther, h.landingFor(ctx))
	}
	return middleware.Render(c, http.StatusOK, LoginPage(FormState{CSRFToken: middleware.GetCSRFToken(c)}))
}

// Login processes the login form submission (POST /login).
func (h *Handler) Login(c echo.Context) error {
	var req Credential
	if err := c.Bind(&req); err != nil {
		return apperror.NewBadRequest("invalid request")
	}

	email := strings.TrimSpace(req.Email)
	state := FormState{CSRFToken: middleware.GetCSRFToken(c), Email: email}

	if !validation.IsValidStudentEmail(email) {
		metrics.ValidationRejections.WithLabelValues("login", string(FieldEmail)).Inc()
		state.EmailError = msgLoginEmailInvalid
		return renderLogin(c, state)
	}

	ctx := c.Request().Context()
	result := h.gateway.LoginUser(ctx, email, req.Password)
	if !result.Success {
		state.SetError(result.Kind, result.Message)
		return renderLogin(c, state)
	}

	h.replaceSession(c, result.User)
	h.record(c, result.User.UID, ActivityLogin)

	// The new session becomes the current user for the profile check.
	return middleware.Redirect(c, h.landingFor(WithSession(ctx, result.User)))
}

// --- Signup ---

// SignupForm renders the signup page (GET /signup).
func (h *Handler) SignupForm(c echo.Context) error {
	ctx := c.Request().Context()
	if h.gateway.GetCurrentUser(ctx) != nil {
		return c.Redirect(http.StatusSeeOther, h.landingFor(ctx))
	}
	return middleware.Render(c, http.StatusOK, SignupPage(FormState{CSRFToken: middleware.GetCSRFToken(c)}))
}

// Signup processes the signup form submission (POST /signup).
func (h *Handler) Signup(c echo.Context) error {
	var req Credential
	if err := c.Bind(&req); err != nil {
		return apperror.NewBadRequest("invalid request")
	}

	email := strings.TrimSpace(req.Email)
	state := FormState{
		CSRFToken: middleware.GetCSRFToken(c),
		Email:     email,
		Report:    validation.CheckPasswordStrength(req.Password),
	}

	if !validation.IsValidStudentEmail(email) {
		metrics.ValidationRejections.WithLabelValues("signup", string(FieldEmail)).Inc()
		state.EmailError = msgSignupEmailInvalid
		return renderSignup(c, state)
	}

	if !state.Report.Strong() {
		metrics.ValidationRejections.WithLabelValues("signup", string(FieldPassword)).Inc()
		state.PasswordError = msgPasswordRequirements
		state.ShowRequirements = true
		return renderSignup(c, state)
	}

	result := h.gateway.RegisterUser(c.Request().Context(), email, req.Password)
	if !result.Success {
		state.SetError(result.Kind, result.Message)
		return renderSignup(c, state)
	}

	h.replaceSession(c, result.User)
	h.record(c, result.User.UID, ActivitySignup)
	return middleware.Redirect(c, ProfileSetupPath)
}

// --- Live validation (editing state) ---

// ValidateEmail returns the email hint fragment (POST /validate/email).
// An empty field shows no hint.
func (h *Handler) ValidateEmail(c echo.Context) error {
	email := strings.TrimSpace(c.FormValue("email"))
	msg := ""
	if email != "" && !validation.IsValidStudentEmail(email) {
		msg = msgEmailHint
	}
	return middleware.Render(c, http.StatusOK, EmailHint(msg))
}

// ValidatePassword returns the requirement indicators (POST /validate/password).
func (h *Handler) ValidatePassword(c echo.Context) error {
	report := validation.CheckPasswordStrength(c.FormValue("password"))
	return middleware.Render(c, http.StatusOK, PasswordFeedback(report))
}

// ValidateEmailAPI is the JSON form of ValidateEmail (POST /api/v1/validate/email).
func (h *Handler) ValidateEmailAPI(c echo.Context) error {
	var req Credential
	if err := c.Bind(&req); err != nil {
		return apperror.NewBadRequest("invalid request")
	}
	resp := EmailValidationResponse{Valid: validation.IsValidStudentEmail(req.Email)}
	if !resp.Valid {
		resp.Message = msgEmailHint
	}
	return c.JSON(http.StatusOK, resp)
}

// ValidatePasswordAPI is the JSON form of ValidatePassword (POST /api/v1/validate/password).
func (h *Handler) ValidatePasswordAPI(c echo.Context) error {
	var req Credential
	if err := c.Bind(&req); err != nil {
		return apperror.NewBadRequest("invalid request")
	}
	report := validation.CheckPasswordStrength(req.Password)
	return c.JSON(http.StatusOK, PasswordValidationResponse{Strong: report.Strong(), Checks: report})
}

// --- Logout ---

// Logout ends the session and clears the cookie (POST /logout).
func (h *Handler) Logout(c echo.Context) error {
	if session := GetSession(c); session != nil {
		h.record(c, session.UID, ActivityLogout)
	}
	if token := getSessionToken(c); token != "" {
		h.gateway.Logout(c.Request().Context(), token)
	}
	clearSessionCookie(c)
	return middleware.Redirect(c, LoginPath)
}

// --- Helpers ---

// landingFor picks the post-login destination for the session in ctx.
func (h *Handler) landingFor(ctx context.Context) string {
	if h.gateway.UserHasProfile(ctx) {
		return DashboardPath
	}
	return ProfileSetupPath
}

// replaceSession signs out any session the request already carried, then
// issues the cookie for the new one.
func (h *Handler) replaceSession(c echo.Context, session *Session) {
	if old := getSessionToken(c); old != "" && old != session.Token {
		h.gateway.Logout(c.Request().Context(), old)
	}
	setSessionCookie(c, session.Token, h.sessionTTL)
}

// record logs an account event when an activity recorder is configured.
func (h *Handler) record(c echo.Context, uid, action string) {
	if h.activity != nil {
		h.activity.Record(c.Request().Context(), uid, action, c.RealIP())
	}
}

func renderLogin(c echo.Context, state FormState) error {
	if middleware.IsHTMX(c) {
		return middleware.Render(c, http.StatusOK, LoginFormComponent(state))
	}
	return middleware.Render(c, http.StatusOK, LoginPage(state))
}

func renderSignup(c echo.Context, state FormState) error {
	if middleware.IsHTMX(c) {
		return middleware.Render(c, http.StatusOK, SignupFormComponent(state))
	}
	return middleware.Render(c, http.StatusOK, SignupPage(state))
}

// --- Cookie helpers ---

// getSessionToken reads the session token from the cookie.
func getSessionToken(c echo.Context) string {
	cookie, err := c.Cookie(sessionCookieName)
	if err != nil || cookie.Value == "" {
		return ""
	}
	return cookie.Value
}

// setSessionCookie sets the HttpOnly session cookie. Secure is set when
// the request arrived over TLS, directly or via the proxy.
func setSessionCookie(c echo.Context, token string, ttl time.Duration) {
	req := c.Request()
	c.SetCookie(&http.Cookie{
		Name:     sessionCookieName,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		Secure:   req.TLS != nil || req.Header.Get("X-Forwarded-Proto") == "https",
		SameSite: http.SameSiteLaxMode,
		MaxAge:   int(ttl.Seconds()),
	})
}

// clearSessionCookie removes the session cookie by setting MaxAge to -1.
func clearSessionCookie(c echo.Context) {
	c.SetCookie(&http.Cookie{
		Name:     sessionCookieName,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		MaxAge:   -1,
	})
}
