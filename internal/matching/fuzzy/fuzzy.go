// internal/matching/fuzzy/fuzzy.go

// Package fuzzy wraps the string-similarity metrics used by the scoring
// engine and the race matcher. Every function returns a normalized score in
// [0,1], 1 meaning identical.
package fuzzy

import (
	"strings"

	"github.com/adrg/strutil"
	"github.com/adrg/strutil/metrics"
)

var (
	jaroWinkler  = metrics.NewJaroWinkler()
	sorensenDice = metrics.NewSorensenDice()
)

// Similarity scores two normalized strings with Jaro-Winkler. Used for full
// names and cities, where shared prefixes matter.
func Similarity(a, b string) float64 {
	if a == "" || b == "" {
		return 0
	}
	if a == b {
		return 1
	}
	return strutil.Similarity(a, b, jaroWinkler)
}

// KeywordSimilarity scores two keyword lists with Sorensen-Dice over their
// joined forms, which tolerates word reordering better than edit distance.
func KeywordSimilarity(a, b []string) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	ja := strings.Join(a, " ")
	jb := strings.Join(b, " ")
	if ja == jb {
		return 1
	}
	return strutil.Similarity(ja, jb, sorensenDice)
}

// Weighted combines per-field scores with their weights, clamped to [0,1].
// Scores and weights are parallel slices.
func Weighted(scores, weights []float64) float64 {
	var sum float64
	for i, s := range scores {
		sum += s * weights[i]
	}
	return Clamp(sum)
}

// Clamp bounds a score to [0,1].
func Clamp(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
