package evidence

import (
	"strings"
	"unicode"
)

// SanitizeText normalizes raw text evidence: line endings collapse to \n and
// control characters are stripped, keeping letters, numbers, punctuation,
// symbols and spacing in any script. It never fails; empty input yields empty
// output. Applying it twice is the same as applying it once.
func SanitizeText(s string) string {
	if s == "" {
		return ""
	}
	s = strings.ReplaceAll(s, "\r\n", "\n")
	s = strings.ReplaceAll(s, "\r", "\n")

	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if r == '\n' || r == '\t' {
			b.WriteRune(r)
			continue
		}
		if unicode.IsControl(r) {
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}
