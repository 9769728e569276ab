package utils

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var answerStripper = transform.Chain(
	norm.NFD,
	runes.Remove(runes.In(unicode.Mn)),
	norm.NFC,
)

// NormalizeAnswer canonicalizes a security-question answer for comparison:
// accents are stripped, punctuation becomes spaces, whitespace collapses and
// the result is lowercased. "Mary-Ann O'Brien " and "MARY ANN OBRIEN"
// normalize to the same string.
func NormalizeAnswer(answer string) string {
	stripped, _, err := transform.String(answerStripper, answer)
	if err != nil {
		stripped = answer
	}

	var b strings.Builder
	b.Grow(len(stripped))
	for _, r := range stripped {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(unicode.ToLower(r))
		case r == '-' || unicode.IsSpace(r):
			b.WriteRune(' ')
		}
		// Other punctuation (apostrophes, dots) is dropped entirely.
	}

	return strings.Join(strings.Fields(b.String()), " ")
}

// AnswersMatch reports whether a user-supplied answer matches the stored one
// after normalization.
func AnswersMatch(stored, supplied string) bool {
	return NormalizeAnswer(stored) == NormalizeAnswer(supplied)
}
