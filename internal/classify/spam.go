package classify

import (
	"regexp"
	"strings"
	"unicode"
)

const spamThreshold = 0.8

var rawURLPattern = regexp.MustCompile(`(?i)https?://`)

var spamPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\bclick (here|the link)\b`),
	regexp.MustCompile(`(?i)\b(free|easy) (money|followers|likes|iphone)\b`),
	regexp.MustCompile(`(?i)\b(dm|inbox|message) me\b`),
	regexp.MustCompile(`(?i)\bcheck (out )?my (profile|page|bio|channel)\b`),
	regexp.MustCompile(`(?i)\bfollow (me|back)\b`),
	regexp.MustCompile(`(?i)\b(work from home|earn \$?\d+|make money)\b`),
	regexp.MustCompile(`(?i)\b(crypto|bitcoin|forex) (giveaway|investment|signals?)\b`),
	regexp.MustCompile(`(?i)\b(promo code|discount code|limited offer|buy now)\b`),
	regexp.MustCompile(`(?i)\b(whatsapp|telegram) (me|\+?\d)`),
}

// Spam scores how likely a mention is spam. link is the mention URL; raw URLs are
// counted across the text and the link together, and again within the text alone.
// The returned confidence is the clamped score itself.
func Spam(text, link string) (bool, float64) {
	trimmed := strings.TrimSpace(text)
	score := 0.0

	switch length := len([]rune(trimmed)); {
	case length == 0:
		score += 0.45
	case length < 4:
		score += 0.25
	}

	textURLs := countURLs(trimmed)
	if textURLs+countURLs(link) >= 2 {
		score += 0.45
	}
	switch {
	case textURLs >= 2:
		score += 0.4
	case textURLs == 1:
		score += 0.15
	}

	if hasRepeatedRun(trimmed, 5) {
		score += 0.2
	}

	if symbolRatio(trimmed) >= 0.8 {
		score += 0.3
	}

	for _, pattern := range spamPatterns {
		if pattern.MatchString(trimmed) {
			score += 0.35
		}
	}

	return score >= spamThreshold, clamp(score, 0.35, 0.99)
}

func countURLs(text string) int {
	return len(rawURLPattern.FindAllStringIndex(text, -1))
}

// hasRepeatedRun reports a run of at least n identical non-space runes
func hasRepeatedRun(text string, n int) bool {
	var last rune
	run := 0
	for _, r := range text {
		if r == last && !unicode.IsSpace(r) {
			run++
			if run >= n {
				return true
			}
			continue
		}
		last = r
		run = 1
	}
	return false
}

// symbolRatio is the share of non-space runes that are not letters
func symbolRatio(text string) float64 {
	total, symbols := 0, 0
	for _, r := range text {
		if unicode.IsSpace(r) {
			continue
		}
		total++
		if !unicode.IsLetter(r) {
			symbols++
		}
	}
	if total < 3 {
		return 0
	}
	return float64(symbols) / float64(total)
}
