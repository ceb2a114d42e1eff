// Package sanitize strips model-generated markup down to the subset of HTML
// Telegram accepts.
package sanitize

import (
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

var policy = func() *bluemonday.Policy {
	p := bluemonday.NewPolicy()
	p.AllowElements("b", "i", "u")
	p.AllowAttrs("href").OnElements("a")
	return p
}()

// HTML reduces text to the b/i/u/a[href] allowlist. Superscript markers
// become a caret and <br> becomes a newline before stripping, so those two
// survive as plain text.
func HTML(text string) string {
	text = strings.ReplaceAll(text, "<sup>", "^")
	text = strings.ReplaceAll(text, "</sup>", "")
	text = strings.ReplaceAll(text, "<br>", "\n")
	text = strings.ReplaceAll(text, "<br/>", "\n")
	text = strings.ReplaceAll(text, "<br />", "\n")
	return policy.Sanitize(text)
}
