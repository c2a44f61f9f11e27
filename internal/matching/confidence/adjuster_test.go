// internal/matching/confidence/adjuster_test.go
package confidence

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"competition-matcher/internal/models"
)

// ==========================
// Adjusted Confidence
// ==========================

func TestAdjusted(t *testing.T) {
	tests := []struct {
		name     string
		base     float64
		result   *models.MatchResult
		sig      Signals
		expected float64
	}{
		{
			name:     "strong fuzzy match keeps the base",
			base:     0.7,
			result:   &models.MatchResult{Type: models.MatchTypeFuzzy, Confidence: 0.85},
			expected: 0.7,
		},
		{
			name:     "exact match bonus",
			base:     0.7,
			result:   &models.MatchResult{Type: models.MatchTypeExact, Confidence: 0.97},
			expected: 0.75,
		},
		{
			name:     "contact and multi-race bonuses stack",
			base:     0.7,
			result:   &models.MatchResult{Type: models.MatchTypeExact, Confidence: 0.97},
			sig:      Signals{HasContactInfo: true, RaceCount: 3},
			expected: 0.78,
		},
		{
			name:     "single race earns no bonus",
			base:     0.7,
			result:   &models.MatchResult{Type: models.MatchTypeFuzzy, Confidence: 0.85},
			sig:      Signals{RaceCount: 1},
			expected: 0.7,
		},
		{
			name:     "weak verdict penalizes the whole proposal",
			base:     0.7,
			result:   &models.MatchResult{Type: models.MatchTypeFuzzy, Confidence: 0.76},
			expected: 0.53, // 0.7 * 0.76 rounded
		},
		{
			name:     "capped at one",
			base:     0.99,
			result:   &models.MatchResult{Type: models.MatchTypeExact, Confidence: 1},
			sig:      Signals{HasContactInfo: true, RaceCount: 2},
			expected: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.expected, Adjusted(tt.base, tt.result, tt.sig), 1e-9)
		})
	}
}

// ==========================
// New-Event Confidence
// ==========================

func TestNewEvent(t *testing.T) {
	noMatch := func(rejected float64) *models.MatchResult {
		r := &models.MatchResult{Type: models.MatchTypeNone}
		if rejected > 0 {
			r.RejectedMatches = []models.RejectedMatch{{Combined: rejected}}
		}
		return r
	}

	tests := []struct {
		name     string
		base     float64
		result   *models.MatchResult
		sig      Signals
		expected float64
	}{
		{
			name:     "no rejected candidate boosts the base",
			base:     0.7,
			result:   noMatch(0),
			expected: 0.75,
		},
		{
			name:     "near-miss rejected match suppresses creation",
			base:     0.7,
			result:   noMatch(0.6),
			expected: 0.49, // 0.7 * (1 - 0.3) rounded
		},
		{
			name:     "regional tier bonus",
			base:     0.7,
			result:   noMatch(0),
			sig:      Signals{Tier: models.TierRegional},
			expected: 0.76,
		},
		{
			name:     "departmental tier earns no bonus",
			base:     0.7,
			result:   noMatch(0),
			sig:      Signals{Tier: models.TierDepartmental},
			expected: 0.75,
		},
		{
			name:     "all bonuses stack",
			base:     0.7,
			result:   noMatch(0),
			sig:      Signals{HasContactInfo: true, RaceCount: 2, Tier: models.TierNational},
			expected: 0.79,
		},
		{
			name:     "boost capped at one before bonuses",
			base:     0.98,
			result:   noMatch(0),
			expected: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.expected, NewEvent(tt.base, tt.result, tt.sig), 1e-9)
		})
	}
}

func TestNewEvent_MonotonicInRejectedScore(t *testing.T) {
	result := func(rejected float64) *models.MatchResult {
		if rejected == 0 {
			return &models.MatchResult{Type: models.MatchTypeNone}
		}
		return &models.MatchResult{
			Type:            models.MatchTypeNone,
			RejectedMatches: []models.RejectedMatch{{Combined: rejected}},
		}
	}

	prev := 2.0
	for s := 0.0; s <= 1.0; s += 0.05 {
		got := NewEvent(0.8, result(s), Signals{})
		assert.LessOrEqual(t, got, prev, "rejected score %.2f", s)
		prev = got
	}
}

func TestNewEvent_LowerThanAdjustedForAcceptedScores(t *testing.T) {
	// A rejected score high enough to have been a match must suppress
	// creation confidence below what accepting that match would carry.
	for s := 0.75; s <= 1.0; s += 0.05 {
		match := &models.MatchResult{Type: models.MatchTypeFuzzy, Confidence: s}
		noMatch := &models.MatchResult{
			Type:            models.MatchTypeNone,
			RejectedMatches: []models.RejectedMatch{{Combined: s}},
		}

		accepted := Adjusted(0.7, match, Signals{})
		created := NewEvent(0.7, noMatch, Signals{})
		assert.Less(t, created, accepted, "score %.2f", s)
	}
}
