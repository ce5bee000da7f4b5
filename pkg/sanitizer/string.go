package sanitizer

import (
	"strings"
	"unicode"
)

// collapse drops control and format characters (zero-width spaces, BOMs)
// and joins the remaining words with single spaces.
func collapse(s string) string {
	cleaned := strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return ' '
		}
		if unicode.IsControl(r) || unicode.Is(unicode.Cf, r) {
			return -1
		}
		return r
	}, s)
	return strings.Join(strings.Fields(cleaned), " ")
}

// NormalizeRoomName keeps case, so "R1" and "r1" are different rooms.
func NormalizeRoomName(name string) string {
	return collapse(name)
}

func NormalizeDescription(description string) string {
	return collapse(description)
}

// NormalizeReference only trims. References are case-sensitive.
func NormalizeReference(reference string) string {
	return strings.TrimFunc(reference, func(r rune) bool {
		return unicode.IsSpace(r) || unicode.Is(unicode.Cf, r)
	})
}
