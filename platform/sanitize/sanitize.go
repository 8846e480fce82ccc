// Package sanitize provides text sanitization utilities for user-submitted input.
package sanitize

import (
	"regexp"
	"strings"
)

var (
	htmlTagRegex    = regexp.MustCompile(`<[^>]*>`)
	whitespaceRegex = regexp.MustCompile(`\s+`)
)

// StripHTML removes all HTML tags from a string, making it safe for text-only display.
func StripHTML(s string) string {
	result := htmlTagRegex.ReplaceAllString(s, "")
	result = strings.NewReplacer(
		"&lt;", "<",
		"&gt;", ">",
		"&amp;", "&",
		"&quot;", "\"",
		"&#39;", "'",
	).Replace(result)
	// Re-strip after entity decode to catch encoded tags
	result = htmlTagRegex.ReplaceAllString(result, "")
	return strings.TrimSpace(result)
}

// Text strips HTML and collapses runs of whitespace into single spaces.
// Use for single-line fields such as names and cities.
func Text(s string) string {
	return whitespaceRegex.ReplaceAllString(StripHTML(s), " ")
}

// Multiline strips HTML but keeps line breaks. Use for free-form messages.
func Multiline(s string) string {
	return StripHTML(s)
}

// Email lower-cases and trims an address.
func Email(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// Optional sanitizes s with fn and returns nil when the result is empty.
func Optional(s string, fn func(string) string) *string {
	result := fn(s)
	if result == "" {
		return nil
	}
	return &result
}
