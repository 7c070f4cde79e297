package textutil

import (
	"strings"
	"unicode"
)

// DefaultSlugLength caps topic and title slugs embedded in file names.
const DefaultSlugLength = 50

// Slug keeps letters, digits, spaces, hyphens and underscores, replaces every
// other rune with '_' and caps the result at maxRunes runes. Spaces are kept
// as-is so existing session folders stay readable by older tooling.
func Slug(value string, maxRunes int) string {
	if maxRunes <= 0 {
		maxRunes = DefaultSlugLength
	}
	var b strings.Builder
	count := 0
	for _, r := range value {
		if count >= maxRunes {
			break
		}
		switch {
		case unicode.IsLetter(r), unicode.IsDigit(r), r == ' ', r == '-', r == '_':
			b.WriteRune(r)
		default:
			b.WriteRune('_')
		}
		count++
	}
	return b.String()
}

// Truncate caps value at maxRunes runes. ok is false when nothing was cut.
func Truncate(value string, maxRunes int) (string, bool) {
	if maxRunes <= 0 {
		return value, false
	}
	count := 0
	for idx := range value {
		if count == maxRunes {
			return value[:idx], true
		}
		count++
	}
	return value, false
}

// Ellipsize truncates to maxRunes and appends "..." when text was cut.
func Ellipsize(value string, maxRunes int) string {
	out, cut := Truncate(value, maxRunes)
	if cut {
		return out + "..."
	}
	return out
}
