// Package intent classifies inbound patient text.
package intent

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Normalize lower-cases and strips accents, surrounding whitespace, leading
// '¡'/'¿' and trailing '.'/'!', so "Sí." and "SI" compare equal.
func Normalize(text string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	stripped, _, err := transform.String(t, text)
	if err != nil {
		stripped = text
	}
	stripped = strings.ToLower(strings.TrimSpace(stripped))
	stripped = strings.TrimRight(stripped, ".!")
	return strings.TrimSpace(strings.TrimLeft(stripped, "¡¿"))
}

var affirmatives = map[string]struct{}{
	"si":        {},
	"ok":        {},
	"listo":     {},
	"confirmo":  {},
	"confirmar": {},
}

// IsAffirmative reports whether the whole message is a confirmation keyword.
func IsAffirmative(text string) bool {
	_, ok := affirmatives[Normalize(text)]
	return ok
}
