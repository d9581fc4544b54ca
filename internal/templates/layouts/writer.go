package layouts

import (
	"context"
	"io"

	"github.com/a-h/templ"
)

// Writer accumulates HTML output for hand-built templ components and
// remembers the first write error so callers check it once at the end.
type Writer struct {
	w   io.Writer
	err error
}

// NewWriter wraps w.
func NewWriter(w io.Writer) *Writer {
	return &Writer{w: w}
}

// Raw writes trusted markup as-is.
func (h *Writer) Raw(parts ...string) {
	for _, p := range parts {
		if h.err != nil {
			return
		}
		_, h.err = io.WriteString(h.w, p)
	}
}

// Text writes s HTML-escaped.
func (h *Writer) Text(s string) {
	h.Raw(templ.EscapeString(s))
}

// Attr writes name="value" with the value escaped, preceded by a space.
func (h *Writer) Attr(name, value string) {
	h.Raw(" ", name, `="`, templ.EscapeString(value), `"`)
}

// Component renders a nested component.
func (h *Writer) Component(ctx context.Context, c templ.Component) {
	if h.err != nil || c == nil {
		return
	}
	h.err = c.Render(ctx, h.w)
}

// Err returns the first error encountered.
func (h *Writer) Err() error {
	return h.err
}
