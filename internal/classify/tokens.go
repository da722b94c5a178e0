package classify

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var stopwords = map[string]bool{
	"the": true, "and": true, "for": true, "are": true, "but": true, "not": true,
	"you": true, "your": true, "all": true, "any": true, "can": true, "had": true,
	"her": true, "was": true, "one": true, "our": true, "out": true, "has": true,
	"have": true, "his": true, "how": true, "its": true, "who": true, "did": true,
	"this": true, "that": true, "with": true, "from": true, "they": true, "them": true,
	"will": true, "would": true, "there": true, "their": true, "what": true, "when": true,
	"where": true, "which": true, "while": true, "about": true, "into": true, "just": true,
	"than": true, "then": true, "these": true, "those": true, "very": true, "also": true,
	"been": true, "being": true, "were": true, "does": true, "some": true, "such": true,
	"only": true, "other": true, "more": true, "most": true, "over": true, "here": true,
	"http": true, "https": true, "www": true, "com": true,
	"para": true, "por": true, "que": true, "uma": true, "los": true, "las": true,
}

// fold lower-cases text and strips diacritics so "Café" and "cafe" compare equal
func fold(text string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(t, text)
	if err != nil {
		folded = text
	}
	return strings.ToLower(folded)
}

// words splits folded text into letter/digit runs
func words(text string) []string {
	return strings.FieldsFunc(fold(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

// contentTokens returns the distinct, stopword-filtered tokens of at least three runes
func contentTokens(text string) map[string]struct{} {
	tokens := make(map[string]struct{})
	for _, word := range words(text) {
		if len([]rune(word)) < 3 || stopwords[word] {
			continue
		}
		tokens[word] = struct{}{}
	}
	return tokens
}

func clamp(value, lo, hi float64) float64 {
	if value < lo {
		return lo
	}
	if value > hi {
		return hi
	}
	return value
}
