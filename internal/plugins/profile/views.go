package profile

import (
	"context"
	"io"
	"time"

	"github.com/a-h/templ"

	"github.com/abuobaidahamim/Unify/internal/plugins/audit"
	"github.com/abuobaidahamim/Unify/internal/plugins/auth"
	"github.com/abuobaidahamim/Unify/internal/templates/layouts"
)

// setupField describes one input on the setup form.
type setupField struct {
	name, label, inputType string
	value                  func(SetupForm) string
	required               bool
}

var setupFields = []setupField{
	{"full_name", "Full name", "text", func(f SetupForm) string { return f.FullName }, true},
	{"student_id", "Student ID", "text", func(f SetupForm) string { return f.StudentID }, false},
	{"university", "University", "text", func(f SetupForm) string { return f.University }, true},
	{"department", "Department", "text", func(f SetupForm) string { return f.Department }, false},
	{"year", "Year of study", "number", func(f SetupForm) string { return f.Year }, false},
}

// SetupPage renders the full profile setup page.
func SetupPage(state SetupState) templ.Component {
	return layouts.Base("Set up your profile", SetupFormComponent(state))
}

// SetupFormComponent renders only the form, for htmx swaps.
func SetupFormComponent(state SetupState) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		h := layouts.NewWriter(w)
		h.Raw(`<div class="card"><h1>Set up your profile</h1>`,
			`<form id="profileForm" method="post" action="/profile-setup" hx-post="/profile-setup" hx-target="this" hx-swap="outerHTML" novalidate>`,
			`<input type="hidden" name="csrf_token"`)
		h.Attr("value", state.CSRFToken)
		h.Raw(`>`)

		if state.FormError != "" {
			h.Raw(`<p class="error" role="alert">`)
			h.Text(state.FormError)
			h.Raw(`</p>`)
		}

		for _, f := range setupFields {
			h.Raw(`<label`)
			h.Attr("for", f.name)
			h.Raw(`>`)
			h.Text(f.label)
			h.Raw(`</label><input`)
			h.Attr("id", f.name)
			h.Attr("name", f.name)
			h.Attr("type", f.inputType)
			h.Attr("value", f.value(state.Form))
			if f.required {
				h.Raw(` required`)
			}
			h.Raw(`><p`)
			h.Attr("id", f.name+"Error")
			h.Raw(` class="error">`)
			h.Text(state.Errors[f.name])
			h.Raw(`</p>`)
		}

		h.Raw(`<button type="submit">Save profile</button></form></div>`)
		return h.Err()
	})
}

// dashboardRows lists the profile fields shown on the dashboard.
var dashboardRows = []struct{ key, label string }{
	{"email", "Email"},
	{"student_id", "Student ID"},
	{"university", "University"},
	{"department", "Department"},
	{"year", "Year"},
}

// DashboardPage renders the signed-in student's dashboard.
func DashboardPage(p auth.Profile, recent []audit.Entry) templ.Component {
	return layouts.Base("Dashboard", templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		h := layouts.NewWriter(w)
		h.Raw(`<div class="card"><h1>Welcome, `)
		h.Text(stringField(p, "full_name"))
		h.Raw(`</h1><dl class="profile">`)
		for _, row := range dashboardRows {
			v := stringField(p, row.key)
			if v == "" {
				continue
			}
			h.Raw(`<dt>`)
			h.Text(row.label)
			h.Raw(`</dt><dd>`)
			h.Text(v)
			h.Raw(`</dd>`)
		}
		h.Raw(`</dl><a href="/profile-setup">Edit profile</a></div>`)
		if len(recent) > 0 {
			h.Raw(`<div class="card"><h2>Recent activity</h2><ul class="activity">`)
			for _, e := range recent {
				h.Raw(`<li><span>`)
				h.Text(e.Label())
				h.Raw(`</span> <time datetime="`)
				h.Text(e.CreatedAt.Format(time.RFC3339))
				h.Raw(`">`)
				h.Text(e.CreatedAt.Format("Jan 2, 2006 15:04 MST"))
				h.Raw(`</time></li>`)
			}
			h.Raw(`</ul></div>`)
		}
		return h.Err()
	}))
}
