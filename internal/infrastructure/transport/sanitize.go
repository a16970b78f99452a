package transport

import (
	"regexp"
	"strings"
)

// Telegram supports only <b>, <i>, <u>, <s>, <code>, <pre>, <a>. Generated
// content arrives with arbitrary HTML and must be reduced to that set.
var (
	strongOpenRe  = regexp.MustCompile(`<strong>`)
	strongCloseRe = regexp.MustCompile(`</strong>`)
	emOpenRe      = regexp.MustCompile(`<em>`)
	emCloseRe     = regexp.MustCompile(`</em>`)
	paraOpenRe    = regexp.MustCompile(`<p>`)
	paraCloseRe   = regexp.MustCompile(`</p>`)
	strippedRe    = regexp.MustCompile(`</?(?:div|span|h[1-6]|ul|ol|li|br)[^>]*>`)
	blankRunsRe   = regexp.MustCompile(`\n{3,}`)
)

// SanitizeHTML maps common rich-text tags to their Telegram equivalents and
// strips everything else, keeping the inner text.
func SanitizeHTML(content string) string {
	content = paraOpenRe.ReplaceAllString(content, "")
	content = paraCloseRe.ReplaceAllString(content, "\n\n")
	content = strongOpenRe.ReplaceAllString(content, "<b>")
	content = strongCloseRe.ReplaceAllString(content, "</b>")
	content = emOpenRe.ReplaceAllString(content, "<i>")
	content = emCloseRe.ReplaceAllString(content, "</i>")
	content = strippedRe.ReplaceAllString(content, "")
	content = blankRunsRe.ReplaceAllString(content, "\n\n")
	return strings.TrimSpace(content)
}
