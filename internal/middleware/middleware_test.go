package middleware

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abuobaidahamim/Unify/internal/apperror"
)

func okHandler(c echo.Context) error { return c.NoContent(http.StatusOK) }

func TestIPLimiters_BurstThenRefill(t *testing.T) {
	l := newIPLimiters(3, time.Minute)
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

	for i := 0; i < 3; i++ {
		assert.True(t, l.allow("10.0.0.1", now), "request %d", i+1)
	}
	assert.False(t, l.allow("10.0.0.1", now), "fourth request in the same instant")
	assert.True(t, l.allow("10.0.0.2", now), "other IPs have their own bucket")

	// One token refills every window/maxRequests.
	assert.True(t, l.allow("10.0.0.1", now.Add(20*time.Second)))
	assert.False(t, l.allow("10.0.0.1", now.Add(20*time.Second)))
}

func TestIPLimiters_SweepsIdleEntries(t *testing.T) {
	l := newIPLimiters(1, time.Minute)
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

	l.allow("10.0.0.1", now)
	l.allow("10.0.0.2", now.Add(idleLimiterTTL+time.Second))

	assert.NotContains(t, l.entries, "10.0.0.1")
	assert.Contains(t, l.entries, "10.0.0.2")
}

func TestIPLimiters_SweepsAtMostOncePerInterval(t *testing.T) {
	l := newIPLimiters(1, time.Minute)
	start := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

	l.allow("10.0.0.1", start)
	lastSweep := start.Add(idleLimiterTTL - 10*time.Second)
	l.allow("10.0.0.2", lastSweep)
	require.Contains(t, l.entries, "10.0.0.1", "not idle yet")

	// 10.0.0.1 is now idle, but the previous sweep was 11s ago.
	l.allow("10.0.0.3", start.Add(idleLimiterTTL+time.Second))
	assert.Contains(t, l.entries, "10.0.0.1")

	l.allow("10.0.0.4", lastSweep.Add(sweepInterval))
	assert.NotContains(t, l.entries, "10.0.0.1")
	assert.Len(t, l.entries, 3)
}

func TestRateLimit_Returns429(t *testing.T) {
	e := echo.New()
	h := RateLimit(1, time.Minute)(okHandler)

	req := httptest.NewRequest(http.MethodPost, "/login", nil)
	req.RemoteAddr = "192.0.2.1:1234"

	require.NoError(t, h(e.NewContext(req, httptest.NewRecorder())))

	err := h(e.NewContext(req, httptest.NewRecorder()))
	require.Error(t, err)
	assert.Equal(t, http.StatusTooManyRequests, apperror.SafeCode(err))
}

func TestCSRF_SetsCookieOnGet(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/login", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	require.NoError(t, CSRF()(okHandler)(c))

	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, CSRFCookieName, cookies[0].Name)
	assert.Len(t, cookies[0].Value, csrfTokenLength*2)
	assert.Equal(t, cookies[0].Value, GetCSRFToken(c))
}

func TestCSRF_ValidatesMutatingRequests(t *testing.T) {
	const token = "abc123"

	tests := []struct {
		name     string
		header   string
		form     string
		wantCode int
	}{
		{"header match", token, "", http.StatusOK},
		{"form field match", "", token, http.StatusOK},
		{"missing", "", "", http.StatusForbidden},
		{"mismatch", "wrong", "", http.StatusForbidden},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := echo.New()
			form := url.Values{}
			if tt.form != "" {
				form.Set(CSRFFormField, tt.form)
			}
			req := httptest.NewRequest(http.MethodPost, "/login", strings.NewReader(form.Encode()))
			req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationForm)
			req.AddCookie(&http.Cookie{Name: CSRFCookieName, Value: token})
			if tt.header != "" {
				req.Header.Set(csrfHeaderName, tt.header)
			}
			rec := httptest.NewRecorder()

			err := CSRF()(okHandler)(e.NewContext(req, rec))
			if tt.wantCode == http.StatusOK {
				require.NoError(t, err)
				assert.Equal(t, http.StatusOK, rec.Code)
				return
			}
			require.Error(t, err)
			assert.Equal(t, tt.wantCode, apperror.SafeCode(err))
		})
	}
}

func TestCSRF_SkipsAPI(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/validate/email", nil)
	rec := httptest.NewRecorder()

	require.NoError(t, CSRF()(okHandler)(e.NewContext(req, rec)))
	assert.Empty(t, rec.Result().Cookies())
}

func TestBuildIPExtractor(t *testing.T) {
	extract := buildIPExtractor([]string{"10.0.0.0/8", "not-a-cidr"})

	tests := []struct {
		name       string
		remoteAddr string
		headers    map[string]string
		want       string
	}{
		{"untrusted peer ignores headers", "203.0.113.5:4000", map[string]string{"X-Real-IP": "1.2.3.4"}, "203.0.113.5"},
		{"trusted peer uses X-Real-IP", "10.1.2.3:4000", map[string]string{"X-Real-IP": "1.2.3.4"}, "1.2.3.4"},
		{"trusted peer uses leftmost XFF", "10.1.2.3:4000", map[string]string{"X-Forwarded-For": "5.6.7.8, 10.0.0.9"}, "5.6.7.8"},
		{"trusted peer without headers", "10.1.2.3:4000", nil, "10.1.2.3"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.RemoteAddr = tt.remoteAddr
			for k, v := range tt.headers {
				req.Header.Set(k, v)
			}
			assert.Equal(t, tt.want, extract(req))
		})
	}
}

func TestIsHTMX(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("HX-Request", "true")
	assert.True(t, IsHTMX(e.NewContext(req, httptest.NewRecorder())))

	req.Header.Set("HX-Boosted", "true")
	assert.False(t, IsHTMX(e.NewContext(req, httptest.NewRecorder())))
}

func TestSecurityHeaders(t *testing.T) {
	tests := []struct {
		name      string
		hsts      bool
		path      string
		wantHSTS  bool
		wantCache string
	}{
		{"page in production", true, "/login", true, "no-store"},
		{"page in development", false, "/dashboard", false, "no-store"},
		{"static asset", true, "/static/css/app.css", true, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := echo.New()
			rec := httptest.NewRecorder()
			c := e.NewContext(httptest.NewRequest(http.MethodGet, tt.path, nil), rec)

			require.NoError(t, SecurityHeaders(tt.hsts)(okHandler)(c))

			h := rec.Header()
			assert.Contains(t, h.Get("Content-Security-Policy"), "frame-ancestors 'none'")
			assert.Equal(t, "DENY", h.Get("X-Frame-Options"))
			assert.Equal(t, tt.wantHSTS, h.Get("Strict-Transport-Security") != "")
			assert.Equal(t, tt.wantCache, h.Get("Cache-Control"))
		})
	}
}

func TestRecovery_ReturnsInternalError(t *testing.T) {
	e := echo.New()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/boom", nil), httptest.NewRecorder())

	err := Recovery()(func(echo.Context) error { panic("boom") })(c)

	require.Error(t, err)
	assert.Equal(t, http.StatusInternalServerError, apperror.SafeCode(err))
	assert.NotContains(t, apperror.SafeMessage(err), "boom")
}
