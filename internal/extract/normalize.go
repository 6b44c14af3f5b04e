package extract

import (
	"regexp"
	"strings"
)

var (
	tagPattern        = regexp.MustCompile(`<[^>]*>`)
	whitespacePattern = regexp.MustCompile(`\s+`)
)

// Normalize strips chat markup from raw input: brace characters, HTML-like
// tags, and whitespace runs. Total on any input, including empty.
func Normalize(raw string) string {
	cleaned := strings.NewReplacer("{", "", "}", "").Replace(raw)
	cleaned = tagPattern.ReplaceAllString(cleaned, " ")
	cleaned = whitespacePattern.ReplaceAllString(cleaned, " ")
	return strings.TrimSpace(cleaned)
}
