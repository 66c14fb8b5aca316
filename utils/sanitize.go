package utils

import (
	"html"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

var (
	sanitizer = bluemonday.UGCPolicy()
	stripper  = bluemonday.StrictPolicy()
)

// Sanitize cleans user HTML such as comment bodies, keeping safe formatting.
func Sanitize(input string) string {
	return sanitizer.Sanitize(input)
}

// StripTags removes every tag and collapses whitespace, returning plain text
// with entities decoded. Post titles go through it.
func StripTags(input string) string {
	return html.UnescapeString(strings.Join(strings.Fields(stripper.Sanitize(input)), " "))
}
