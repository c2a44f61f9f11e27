// internal/matching/confidence/adjuster.go

// Package confidence post-processes a match verdict's confidence with
// corroborating signals before it justifies a review proposal.
package confidence

import (
	"math"

	"competition-matcher/internal/models"
)

const (
	exactBonus     = 0.05
	contactBonus   = 0.02
	multiRaceBonus = 0.01
	tierBonus      = 0.01

	// A verdict below this bar penalizes the whole proposal.
	weakVerdictBar = 0.8
)

// Signals carries the corroborating facts of the scraped record and, for
// new-event proposals, the proposed event itself.
type Signals struct {
	HasContactInfo bool
	RaceCount      int
	Tier           string
}

// Adjusted computes the confidence of an update proposal justified by a
// found match. The verdict's own confidence drags the result down when the
// match was weak.
func Adjusted(base float64, result *models.MatchResult, sig Signals) float64 {
	c := base
	if result.Type == models.MatchTypeExact {
		c += exactBonus
	}
	c = applyRecordBonuses(c, sig)
	if result.Confidence < weakVerdictBar {
		c *= result.Confidence
	}
	return round2(clamp(c))
}

// NewEvent computes the confidence of a brand-new-event proposal. The logic
// is inverted: a strong rejected match is evidence of a probable duplicate,
// so it suppresses confidence in creating a new record.
func NewEvent(base float64, result *models.MatchResult, sig Signals) float64 {
	rejected := result.BestRejectedScore()

	var c float64
	if rejected == 0 {
		c = math.Min(base+0.05, 1)
	} else {
		c = base * (1 - rejected*0.5)
	}

	c = applyRecordBonuses(c, sig)
	if models.TierAtLeastRegional(sig.Tier) {
		c += tierBonus
	}
	return round2(clamp(c))
}

func applyRecordBonuses(c float64, sig Signals) float64 {
	if sig.HasContactInfo {
		c += contactBonus
	}
	if sig.RaceCount > 1 {
		c += multiRaceBonus
	}
	return c
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

func clamp(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
