// internal/models/competition.go
package models

import (
	"strings"
	"time"

	apperrors "competition-matcher/internal/common/errors"
)

// ScrapedCompetition is one record from the federation calendar feed, one per
// (name, place, date) observed occurrence. It is never mutated by the matcher.
type ScrapedCompetition struct {
	Name         string       `json:"name"`
	City         string       `json:"city"`
	Department   string       `json:"department"`
	Date         time.Time    `json:"date"`
	Races        []RaceRecord `json:"races,omitempty"`
	ContactEmail string       `json:"contactEmail,omitempty"`
	ContactPhone string       `json:"contactPhone,omitempty"`
}

// Validate fails fast on records that must not reach scoring: a missing name
// would silently score against an empty string, a zero date breaks the
// temporal window.
func (c *ScrapedCompetition) Validate() error {
	var missing []string
	if strings.TrimSpace(c.Name) == "" {
		missing = append(missing, "name")
	}
	if c.Date.IsZero() {
		missing = append(missing, "date")
	}
	if len(missing) > 0 {
		return apperrors.NewInvalidCompetitionError("missing fields: " + strings.Join(missing, ", "))
	}
	return nil
}

// HasContactInfo reports whether the organizer left any contact detail.
func (c *ScrapedCompetition) HasContactInfo() bool {
	return c.ContactEmail != "" || c.ContactPhone != ""
}

// RaceRecord is a scraped sub-event of a competition.
type RaceRecord struct {
	Name            string     `json:"name"`
	DistanceMeters  float64    `json:"distanceMeters,omitempty"`
	ElevationMeters float64    `json:"elevationMeters,omitempty"`
	StartTime       *time.Time `json:"startTime,omitempty"`
}
