package classify

import "math"

const (
	relatedRatio   = 0.35
	unrelatedRatio = 0.08
	bandRatio      = 0.2
)

// Relatedness estimates whether a comment responds to its parent post by token
// overlap. Missing text on either side is insufficient evidence, not a negative signal.
func Relatedness(commentText, postText string) (bool, float64) {
	comment := contentTokens(commentText)
	post := contentTokens(postText)
	if len(comment) == 0 || len(post) == 0 {
		return false, 0.5
	}

	shared := 0
	for token := range comment {
		if _, ok := post[token]; ok {
			shared++
		}
	}

	ratio := float64(shared) / math.Min(float64(len(comment)), float64(len(post)))

	switch {
	case ratio >= relatedRatio:
		return true, math.Min(0.95, 0.6+(ratio-relatedRatio)/(1-relatedRatio)*0.35)
	case ratio <= unrelatedRatio:
		return false, 0.8 - ratio*1.25
	default:
		return ratio >= bandRatio, 0.55
	}
}
