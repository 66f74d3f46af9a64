// Package textnorm canonicalizes free text for fuzzy comparison of column
// names and city values.
package textnorm

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var stripMarks = runes.Remove(runes.In(unicode.Mn))

// Normalize lowercases and trims s, decomposes it (NFKD), drops combining
// marks and every character outside [a-z0-9].
//
// Example: "  Precio Unitario (€) " → "preciounitario"
func Normalize(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return ""
	}

	decomposed, _, err := transform.String(transform.Chain(norm.NFKD, stripMarks), s)
	if err != nil {
		decomposed = s
	}

	var b strings.Builder
	b.Grow(len(decomposed))
	for i := 0; i < len(decomposed); i++ {
		c := decomposed[i]
		if (c >= 'a' && c <= 'z') || (c >= '0' && c <= '9') {
			b.WriteByte(c)
		}
	}
	return b.String()
}

// Fold lowercases, trims and strips accents but keeps spaces and
// punctuation, so "  Bogotá " → "bogota" and "Santa Marta" → "santa marta".
func Fold(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return ""
	}
	folded, _, err := transform.String(transform.Chain(norm.NFD, stripMarks, norm.NFC), s)
	if err != nil {
		return s
	}
	return folded
}
