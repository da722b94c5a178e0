package classify

import (
	"math"

	"github.com/brandlens/mentions-sync/internal/models"
)

const (
	DefaultReviewThreshold = 0.6
	minReviewThreshold     = 0.45
	maxReviewThreshold     = 0.9
)

// Input is everything the classifiers look at for one mention
type Input struct {
	Text               string
	URL                string
	PostText           string
	ProviderSentiment  string
	ProviderConfidence float64
}

// ReviewThreshold clamps a configured threshold into the supported range
func ReviewThreshold(value float64) float64 {
	if value <= 0 || math.IsNaN(value) {
		return DefaultReviewThreshold
	}
	return clamp(value, minReviewThreshold, maxReviewThreshold)
}

// Classify runs all heuristics. A provider sentiment other than unknown is trusted as-is;
// spam and relatedness are always computed locally. NeedsReview is raised when the
// weakest of the three confidences falls below threshold.
func Classify(in Input, threshold float64) models.Classification {
	result := models.Classification{}

	if in.ProviderSentiment != "" && in.ProviderSentiment != models.SentimentUnknown {
		result.Sentiment = in.ProviderSentiment
		result.SentimentSource = models.SentimentSourceProvider
		result.SentimentConfidence = clamp(in.ProviderConfidence, 0, 1)
	} else {
		fallback := Sentiment(in.Text)
		result.Sentiment = fallback.Label
		result.SentimentSource = models.SentimentSourceModel
		result.SentimentConfidence = fallback.Confidence
	}

	result.IsSpam, result.SpamConfidence = Spam(in.Text, in.URL)
	result.RelatedToPostText, result.RelatedToPostTextConfidence = Relatedness(in.Text, in.PostText)

	result.Confidence = math.Min(result.SentimentConfidence, math.Min(result.SpamConfidence, result.RelatedToPostTextConfidence))
	result.NeedsReview = result.Confidence < ReviewThreshold(threshold)

	return result
}
