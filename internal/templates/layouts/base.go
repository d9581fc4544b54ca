package layouts

import (
	"context"
	"io"

	"github.com/a-h/templ"
)

// htmxSrc is the pinned htmx build loaded by every page.
const htmxSrc = "https://unpkg.com/htmx.org@2.0.4/dist/htmx.min.js"

// csrfScript sends the CSRF cookie value as a header on every htmx request.
const csrfScript = `document.addEventListener('htmx:configRequest', function (evt) {
  var m = document.cookie.match(/(?:^|; )unify_csrf=([^;]*)/);
  if (m) evt.detail.headers['X-CSRF-Token'] = decodeURIComponent(m[1]);
});`

// Base wraps body in the HTML document shell with the navigation bar.
func Base(title string, body templ.Component) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		h := NewWriter(w)
		h.Raw(`<!DOCTYPE html><html lang="en"><head><meta charset="utf-8">`,
			`<meta name="viewport" content="width=device-width, initial-scale=1">`,
			`<title>`)
		h.Text(title)
		h.Raw(` | Unify</title>`,
			`<link rel="stylesheet" href="/static/css/app.css">`,
			`<script src="`, htmxSrc, `" defer></script>`,
			`<script>`, csrfScript, `</script>`,
			`</head><body>`)

		nav(ctx, h)

		h.Raw(`<main class="container">`)
		h.Component(ctx, body)
		h.Raw(`</main></body></html>`)
		return h.Err()
	})
}

// nav renders the top bar. Signed-in students get a logout button.
func nav(ctx context.Context, h *Writer) {
	h.Raw(`<nav class="nav"><a href="/" class="brand">Unify</a><div class="nav-links">`)
	if IsAuthenticated(ctx) {
		h.Raw(`<span class="nav-user">`)
		h.Text(GetUserEmail(ctx))
		h.Raw(`</span><form method="post" action="/logout" class="inline">`)
		h.Raw(`<input type="hidden" name="csrf_token"`)
		h.Attr("value", GetCSRFToken(ctx))
		h.Raw(`><button type="submit">Log out</button></form>`)
	} else {
		navLink(ctx, h, "/login", "Log in")
		navLink(ctx, h, "/signup", "Sign up")
	}
	h.Raw(`</div></nav>`)
}

func navLink(ctx context.Context, h *Writer, href, label string) {
	h.Raw(`<a`)
	h.Attr("href", href)
	if GetActivePath(ctx) == href {
		h.Raw(` class="active"`)
	}
	h.Raw(`>`)
	h.Text(label)
	h.Raw(`</a>`)
}
