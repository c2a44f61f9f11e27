// internal/models/event.go
package models

import "time"

// Event tiers, ordered. Used by the confidence adjuster only.
const (
	TierDepartmental  = "departmental"
	TierRegional      = "regional"
	TierNational      = "national"
	TierInternational = "international"
)

// TierAtLeastRegional reports whether tier is regional or above.
func TierAtLeastRegional(tier string) bool {
	switch tier {
	case TierRegional, TierNational, TierInternational:
		return true
	}
	return false
}

// CandidateEvent is a reference-store event with the editions intersecting the
// retrieval window. Read-only snapshot, fetched per matching attempt.
type CandidateEvent struct {
	ID         int64     `json:"id"`
	Name       string    `json:"name"`
	City       string    `json:"city"`
	Department string    `json:"department"`
	Tier       string    `json:"tier,omitempty"`
	Editions   []Edition `json:"editions"`
}

// EditionForYear returns the edition whose year matches, if any.
func (e *CandidateEvent) EditionForYear(year int) *Edition {
	for i := range e.Editions {
		if e.Editions[i].Year == year {
			return &e.Editions[i]
		}
	}
	return nil
}

// Edition is one year's occurrence of a recurring event.
type Edition struct {
	ID        int64      `json:"id"`
	Year      int        `json:"year"`
	StartDate *time.Time `json:"startDate,omitempty"`
}

// EditionRace is a stored sub-event of an edition.
type EditionRace struct {
	ID              int64      `json:"id"`
	Name            string     `json:"name"`
	DistanceMeters  float64    `json:"distanceMeters,omitempty"`
	ElevationMeters float64    `json:"elevationMeters,omitempty"`
	StartTime       *time.Time `json:"startTime,omitempty"`
}
