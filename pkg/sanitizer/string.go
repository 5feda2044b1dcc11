// Package sanitizer normalizes user-supplied text before validation so that
// length limits apply to the content users actually meant to send.
package sanitizer

import (
	"strings"
	"unicode"
)

// TrimAndNormalize trims surrounding whitespace and collapses interior runs
// of whitespace into single spaces. Control characters are dropped.
func TrimAndNormalize(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}

	var result strings.Builder
	var lastWasSpace bool

	for _, r := range s {
		switch {
		case unicode.IsSpace(r):
			if !lastWasSpace {
				result.WriteRune(' ')
				lastWasSpace = true
			}
		case unicode.IsControl(r):
			// skip
		default:
			result.WriteRune(r)
			lastWasSpace = false
		}
	}

	return result.String()
}

func NormalizeTitle(title string) string {
	return TrimAndNormalize(title)
}

// NormalizeDescription keeps single newlines so multi-line descriptions stay
// readable, normalizing whitespace within each line.
func NormalizeDescription(desc string) string {
	lines := strings.Split(desc, "\n")
	out := make([]string, 0, len(lines))
	for _, line := range lines {
		normalized := TrimAndNormalize(line)
		if normalized != "" {
			out = append(out, normalized)
		}
	}
	return strings.Join(out, "\n")
}
