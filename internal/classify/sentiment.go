package classify

import (
	"math"
	"strings"

	"github.com/brandlens/mentions-sync/internal/models"
)

var positivePhrases = []string{
	"good", "great", "excellent", "love", "loved", "awesome", "fantastic", "amazing",
	"helpful", "perfect", "best", "thanks", "thank you", "recommend", "happy", "beautiful",
	"delicious", "congrats", "congratulations", "well done", "nice", "wonderful",
	"adoro", "otimo", "excelente", "incrivel", "parabens", "obrigado",
}

var negativePhrases = []string{
	"bad", "terrible", "awful", "hate", "broken", "worst", "scam", "refund", "disappointed",
	"disappointing", "poor", "problem", "issue", "complaint", "never again", "rude", "slow",
	"waste", "useless", "horrible", "not working", "doesn't work", "fraud",
	"pessimo", "horrivel", "ruim", "golpe", "decepcionado",
}

// Result is a label with a confidence in [0, 1]
type Result struct {
	Label      string
	Confidence float64
}

// Sentiment scores text by phrase presence. Ties and texts without signal are neutral
// with low confidence; empty text is unknown.
func Sentiment(text string) Result {
	tokens := words(text)
	if len(tokens) == 0 {
		return Result{Label: models.SentimentUnknown, Confidence: 0.5}
	}

	padded := " " + strings.Join(tokens, " ") + " "
	positive := countPhrases(padded, positivePhrases)
	negative := countPhrases(padded, negativePhrases)

	if positive == negative {
		return Result{Label: models.SentimentNeutral, Confidence: 0.55}
	}

	margin := math.Abs(float64(positive-negative)) / float64(positive+negative)
	confidence := math.Min(0.9, 0.55+0.35*margin)
	if positive > negative {
		return Result{Label: models.SentimentPositive, Confidence: confidence}
	}
	return Result{Label: models.SentimentNegative, Confidence: confidence}
}

func countPhrases(padded string, phrases []string) int {
	count := 0
	for _, phrase := range phrases {
		// phrases are matched on folded word boundaries
		needle := " " + strings.Join(words(phrase), " ") + " "
		if strings.Contains(padded, needle) {
			count++
		}
	}
	return count
}
