// internal/workers/matching/score-confidence/models.go
package scoreconfidence

import "competition-matcher/internal/models"

// Confidence modes reported back to the process.
const (
	ModeAdjusted = "adjusted"
	ModeNewEvent = "new-event"
)

type Input struct {
	MatchResult    *models.MatchResult       `json:"matchResult"`
	Competition    models.ScrapedCompetition `json:"competition"`
	BaseConfidence float64                   `json:"baseConfidence,omitempty"`
	Tier           string                    `json:"tier,omitempty"`
}

type Output struct {
	Confidence float64 `json:"confidence"`
	Mode       string  `json:"confidenceMode"`
}
