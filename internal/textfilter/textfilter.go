package textfilter

import (
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var dReplacer = strings.NewReplacer("đ", "d", "Đ", "d")

// Fold lowercases s and strips Vietnamese tone and vowel marks, so
// "Sữa Rửa Mặt" and "sua rua mat" fold to the same string.
func Fold(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(t, s)
	if err != nil {
		folded = s
	}
	folded = dReplacer.Replace(folded)
	return cases.Fold().String(folded)
}

// Matches reports whether text contains term, ignoring case and diacritics.
// An empty term matches everything.
func Matches(text, term string) bool {
	term = strings.TrimSpace(term)
	if term == "" {
		return true
	}
	return strings.Contains(Fold(text), Fold(term))
}

// Filter keeps the rows whose text matches term, preserving order.
func Filter[T any](rows []T, term string, textOf func(T) string) []T {
	out := make([]T, 0, len(rows))
	for _, r := range rows {
		if Matches(textOf(r), term) {
			out = append(out, r)
		}
	}
	return out
}
