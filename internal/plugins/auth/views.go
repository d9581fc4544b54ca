package auth

import (
	"context"
	"io"

	"github.com/a-h/templ"

	"github.com/abuobaidahamim/Unify/internal/templates/layouts"
	"github.com/abuobaidahamim/Unify/internal/validation"
)

// requirementIDs maps password rule names to the indicator element IDs.
var requirementIDs = map[string]string{
	"length":  "reqLength",
	"lower":   "reqLower",
	"upper":   "reqUpper",
	"number":  "reqNumber",
	"special": "reqSpecial",
}

// LoginPage renders the full login page.
func LoginPage(state FormState) templ.Component {
	return layouts.Base("Log in", LoginFormComponent(state))
}

// LoginFormComponent renders only the login form, for htmx swaps.
func LoginFormComponent(state FormState) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		h := layouts.NewWriter(w)
		h.Raw(`<div class="card"><h1>Log in</h1>`,
			`<form id="loginForm" method="post" action="/login" hx-post="/login" hx-target="this" hx-swap="outerHTML" novalidate>`)
		csrfField(h, state.CSRFToken)
		formError(h, state.FormError)
		emailField(h, state)

		h.Raw(`<label for="password">Password</label>`,
			`<input id="password" name="password" type="password" autocomplete="current-password" required>`)
		errorLine(h, "passwordError", state.PasswordError, false)

		h.Raw(`<button type="submit">Log in</button></form>`,
			`<p>New here? <a href="/signup">Create an account</a></p></div>`)
		return h.Err()
	})
}

// SignupPage renders the full signup page.
func SignupPage(state FormState) templ.Component {
	return layouts.Base("Sign up", SignupFormComponent(state))
}

// SignupFormComponent renders only the signup form, for htmx swaps.
func SignupFormComponent(state FormState) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		h := layouts.NewWriter(w)
		h.Raw(`<div class="card"><h1>Create your account</h1>`,
			`<form id="signupForm" method="post" action="/signup" hx-post="/signup" hx-target="this" hx-swap="outerHTML" novalidate>`)
		csrfField(h, state.CSRFToken)
		formError(h, state.FormError)
		emailField(h, state)

		h.Raw(`<label for="password">Password</label>`,
			`<input id="password" name="password" type="password" autocomplete="new-password" required`,
			` hx-post="/validate/password" hx-trigger="input changed delay:150ms, focus"`,
			` hx-target="#passwordRequirements" hx-swap="outerHTML">`)
		errorLine(h, "passwordError", state.PasswordError, false)
		h.Component(ctx, PasswordRequirements(state.Report, state.ShowRequirements))

		h.Raw(`<button type="submit">Sign up</button></form>`,
			`<p>Already registered? <a href="/login">Log in</a></p></div>`)
		return h.Err()
	})
}

// EmailHint renders the email error line, for live validation swaps.
func EmailHint(message string) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		h := layouts.NewWriter(w)
		errorLine(h, "emailError", message, false)
		return h.Err()
	})
}

// PasswordRequirements renders the requirement indicators. A rule's item
// carries the "valid" class exactly when the rule is met.
func PasswordRequirements(report validation.PasswordStrengthReport, show bool) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		h := layouts.NewWriter(w)
		h.Raw(`<ul id="passwordRequirements" class="requirements`)
		if show {
			h.Raw(` show`)
		}
		h.Raw(`">`)
		for _, rule := range report.Rules() {
			h.Raw(`<li`)
			h.Attr("id", requirementIDs[rule.Name])
			if rule.Met {
				h.Raw(` class="valid"`)
			}
			h.Raw(`>`)
			h.Text(rule.Label)
			h.Raw(`</li>`)
		}
		h.Raw(`</ul>`)
		return h.Err()
	})
}

// PasswordFeedback is the live password response: fresh indicators plus
// an out-of-band swap that clears any stale password error.
func PasswordFeedback(report validation.PasswordStrengthReport) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		h := layouts.NewWriter(w)
		h.Component(ctx, PasswordRequirements(report, true))
		errorLine(h, "passwordError", "", true)
		return h.Err()
	})
}

// --- Fragments ---

func csrfField(h *layouts.Writer, token string) {
	h.Raw(`<input type="hidden" name="csrf_token"`)
	h.Attr("value", token)
	h.Raw(`>`)
}

func formError(h *layouts.Writer, message string) {
	if message == "" {
		return
	}
	h.Raw(`<p class="error" role="alert">`)
	h.Text(message)
	h.Raw(`</p>`)
}

func emailField(h *layouts.Writer, state FormState) {
	h.Raw(`<label for="email">Student email</label>`,
		`<input id="email" name="email" type="email" autocomplete="email" required`)
	h.Attr("value", state.Email)
	h.Raw(` hx-post="/validate/email" hx-trigger="input changed delay:200ms" hx-target="#emailError" hx-swap="outerHTML">`)
	errorLine(h, "emailError", state.EmailError, false)
}

func errorLine(h *layouts.Writer, id, message string, oob bool) {
	h.Raw(`<p`)
	h.Attr("id", id)
	h.Raw(` class="error"`)
	if oob {
		h.Raw(` hx-swap-oob="true"`)
	}
	h.Raw(`>`)
	h.Text(message)
	h.Raw(`</p>`)
}
