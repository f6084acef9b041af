package store

import (
	"regexp"
	"strings"
)

// ftsSafe matches queries composed only of word characters and whitespace,
// which FTS5's default tokenizer accepts unescaped as a bare phrase.
var ftsSafe = regexp.MustCompile(`^[\w\s]*$`)

// sanitizeFTSQuery prepares a user query for FTS5's MATCH operator.
//
// A bare-word query passes through untouched so multi-term queries still
// benefit from FTS5's implicit AND. Anything containing punctuation (which
// FTS5 would otherwise interpret as query-syntax operators: NOT, NEAR,
// column filters, etc.) is wrapped in a quoted phrase, with embedded quotes
// doubled per FTS5's escaping rule.
func sanitizeFTSQuery(q string) string {
	trimmed := strings.TrimSpace(q)
	if trimmed == "" {
		return trimmed
	}
	if ftsSafe.MatchString(trimmed) {
		return trimmed
	}
	escaped := strings.ReplaceAll(trimmed, `"`, `""`)
	return `"` + escaped + `"`
}
