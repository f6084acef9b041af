package observer

import (
	"crypto/sha256"
	"encoding/hex"
	"regexp"
	"strings"
)

var (
	absPathRe      = regexp.MustCompile(`/\S+`)
	relPathRe      = regexp.MustCompile(`\.{1,2}/\S+`)
	uuidRe         = regexp.MustCompile(`(?i)[0-9a-f]{8}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{12}`)
	isoTimestampRe = regexp.MustCompile(`\d{4}-\d{2}-\d{2}T\d{2}:\d{2}:\d{2}(\.\d+)?(Z|[+-]\d{2}:\d{2})?`)
)

// computeErrorFingerprint normalizes an error message so that two
// occurrences differing only in machine-specific details (absolute/relative
// paths, line:column suffixes, UUIDs, ISO timestamps) collapse to the same
// 16-hex-character fingerprint, per spec.md section 4.4.2.
func computeErrorFingerprint(text string) string {
	norm := uuidRe.ReplaceAllString(text, "<uuid>")
	norm = isoTimestampRe.ReplaceAllString(norm, "<timestamp>")
	norm = absPathRe.ReplaceAllString(norm, "<path>")
	norm = relPathRe.ReplaceAllString(norm, "<path>")
	norm = strings.ToLower(strings.TrimSpace(norm))

	sum := sha256.Sum256([]byte(norm))
	return hex.EncodeToString(sum[:])[:16]
}
