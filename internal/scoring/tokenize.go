package scoring

import (
	"log/slog"
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var nonTokenChars = regexp.MustCompile(`[^\pL\pN\s]+`)

// Tokenize splits free-form text into lower-case, unicode-folded tokens so
// keyword matching is insensitive to case, punctuation, and diacritics.
func Tokenize(text string) []string {
	// the transform chain must be rebuilt per call; norm carries state
	normFunc := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	split := strings.ToLower(nonTokenChars.ReplaceAllString(text, " "))
	folded, _, err := transform.String(normFunc, split)
	if err != nil {
		slog.Warn("unicode normalization error", "err", err)
		folded = split
	}
	return strings.Fields(folded)
}

// Normalize renders text as a single space-joined token string, suitable for
// exact-phrase containment checks.
func Normalize(text string) string {
	return strings.Join(Tokenize(text), " ")
}
