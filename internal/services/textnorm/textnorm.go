// Package textnorm canonicalizes rendered text before comparison.
package textnorm

import (
	"html"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"
)

// maxDecodePasses bounds entity decoding for double-encoded text ("&amp;#39;")
const maxDecodePasses = 2

// Normalize decodes HTML entities, applies NFC and trims surrounding
// whitespace (including non-breaking spaces). Case is preserved.
func Normalize(s string) string {
	if s == "" {
		return ""
	}
	for i := 0; i < maxDecodePasses; i++ {
		decoded := html.UnescapeString(s)
		if decoded == s {
			break
		}
		s = decoded
	}
	return strings.TrimSpace(norm.NFC.String(s))
}

// Key returns the comparison key for s: Normalize followed by case folding
func Key(s string) string {
	return cases.Fold().String(Normalize(s))
}

// Equal reports whether a and b are the same text after normalization,
// ignoring case
func Equal(a, b string) bool {
	return Key(a) == Key(b)
}

// Blank reports whether s is empty after normalization
func Blank(s string) bool {
	return Normalize(s) == ""
}

// Contains reports whether the normalized haystack contains needle, ignoring case
func Contains(haystack, needle string) bool {
	return strings.Contains(Key(haystack), Key(needle))
}
