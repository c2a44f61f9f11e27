// internal/models/match.go
package models

// MatchType classifies the verdict of one matching invocation.
type MatchType string

const (
	MatchTypeExact MatchType = "EXACT_MATCH"
	MatchTypeFuzzy MatchType = "FUZZY_MATCH"
	MatchTypeNone  MatchType = "NO_MATCH"
)

// ScoredCandidate carries the per-field similarity scores of one candidate.
// Combined is always clamped to [0,1].
type ScoredCandidate struct {
	Event           CandidateEvent `json:"event"`
	NameScore       float64        `json:"nameScore"`
	KeywordScore    float64        `json:"keywordScore"`
	CityScore       float64        `json:"cityScore"`
	DepartmentMatch bool           `json:"departmentMatch"`
	DateProximity   float64        `json:"dateProximity"`
	Combined        float64        `json:"combined"`
}

// RejectedMatch is the summary of a scored candidate that was not accepted.
// Surfaced so a reviewer can override a false negative without re-running
// retrieval.
type RejectedMatch struct {
	EventID         int64   `json:"eventId"`
	EventName       string  `json:"eventName"`
	NameScore       float64 `json:"nameScore"`
	KeywordScore    float64 `json:"keywordScore"`
	CityScore       float64 `json:"cityScore"`
	DepartmentMatch bool    `json:"departmentMatch"`
	Combined        float64 `json:"combined"`
}

// MatchResult is the sole output of the scoring engine.
type MatchResult struct {
	Type            MatchType       `json:"type"`
	Event           *CandidateEvent `json:"event,omitempty"`
	Edition         *Edition        `json:"edition,omitempty"`
	Confidence      float64         `json:"confidence"`
	RejectedMatches []RejectedMatch `json:"rejectedMatches,omitempty"`
}

// BestRejectedScore returns the combined score of the strongest rejected
// candidate, 0 when none was retained.
func (r *MatchResult) BestRejectedScore() float64 {
	if len(r.RejectedMatches) == 0 {
		return 0
	}
	best := r.RejectedMatches[0].Combined
	for _, m := range r.RejectedMatches[1:] {
		if m.Combined > best {
			best = m.Combined
		}
	}
	return best
}

// RacePair links a scraped race to the stored race it resolves to.
type RacePair struct {
	Scraped   RaceRecord  `json:"scraped"`
	Stored    EditionRace `json:"stored"`
	NameScore float64     `json:"nameScore"`
}

// Pairing is the race matcher output: resolved pairs plus the scraped races
// that imply a new race to create.
type Pairing struct {
	Matched   []RacePair   `json:"matched"`
	Unmatched []RaceRecord `json:"unmatched"`
}
