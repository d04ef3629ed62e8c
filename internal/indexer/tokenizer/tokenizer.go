// Package tokenizer provides the text normalisation shared by the build jobs
// and the query engines. It lower-cases and NFC-normalises terms, splits free
// text on non-alphanumeric boundaries, and maps surface words to lemmas.
package tokenizer

import (
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// Normalize returns the canonical form of a term: Unicode NFC, lower case,
// surrounding whitespace removed.
func Normalize(term string) string {
	return norm.NFC.String(strings.ToLower(strings.TrimSpace(term)))
}

// Words breaks text into normalised words. Runs of letters and digits form a
// word; everything else separates words and is dropped.
func Words(text string) []string {
	fields := strings.FieldsFunc(text, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	words := make([]string, 0, len(fields))
	for _, f := range fields {
		if w := Normalize(f); w != "" {
			words = append(words, w)
		}
	}
	return words
}

// IsCyrillic reports whether the word contains any Cyrillic letter.
func IsCyrillic(word string) bool {
	for _, r := range word {
		if unicode.Is(unicode.Cyrillic, r) {
			return true
		}
	}
	return false
}
