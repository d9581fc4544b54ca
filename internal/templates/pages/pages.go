// Package pages holds the standalone pages that do not belong to a plugin.
package pages

import (
	"context"
	"io"
	"strconv"

	"github.com/a-h/templ"

	"github.com/abuobaidahamim/Unify/internal/templates/layouts"
)

// Landing is the public home page.
func Landing() templ.Component {
	return layouts.Base("Welcome", templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		h := layouts.NewWriter(w)
		h.Raw(`<section class="hero"><h1>Unify</h1>`,
			`<p>The student network. Sign up with your university email to get started.</p>`)
		if layouts.IsAuthenticated(ctx) {
			h.Raw(`<a class="button" href="/dashboard">Go to dashboard</a>`)
		} else {
			h.Raw(`<a class="button" href="/signup">Create an account</a> `,
				`<a class="button secondary" href="/login">Log in</a>`)
		}
		h.Raw(`</section>`)
		return h.Err()
	}))
}

// ErrorPage renders a full error page for the given status code.
func ErrorPage(code int, message string) templ.Component {
	return layouts.Base("Error", templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		h := layouts.NewWriter(w)
		h.Raw(`<section class="error-page"><h1>`)
		h.Text(strconv.Itoa(code))
		h.Raw(`</h1><p>`)
		h.Text(message)
		h.Raw(`</p><a href="/">Back to home</a></section>`)
		return h.Err()
	}))
}
