// Package sanitize strips markup from user-supplied profile text before it
// reaches the document store. Profile fields are plain text, so the strict
// bluemonday policy is used: every tag is removed and only the text
// content survives.
package sanitize

import (
	"html"
	"strings"
	"sync"

	"github.com/microcosm-cc/bluemonday"
)

// policy is the shared strict policy. bluemonday policies are safe for
// concurrent use once built.
var (
	policy     *bluemonday.Policy
	policyOnce sync.Once
)

func getPolicy() *bluemonday.Policy {
	policyOnce.Do(func() {
		policy = bluemonday.StrictPolicy()
	})
	return policy
}

// Text removes all HTML from input and trims surrounding whitespace.
// bluemonday escapes the surviving text for HTML output; it is unescaped
// again here because the result is stored as plain text and escaped by
// the templates at render time.
func Text(input string) string {
	if input == "" {
		return ""
	}
	return strings.TrimSpace(html.UnescapeString(getPolicy().Sanitize(input)))
}
