// internal/workers/matching/match-races/models.go
package matchraces

import "competition-matcher/internal/models"

type Input struct {
	EditionID    int64                `json:"editionId"`
	ScrapedRaces []models.RaceRecord  `json:"scrapedRaces"`
	StoredRaces  []models.EditionRace `json:"storedRaces,omitempty"`
}

type Output struct {
	Matched      []models.RacePair   `json:"matched"`
	Unmatched    []models.RaceRecord `json:"unmatched"`
	NewRaceCount int                 `json:"newRaceCount"`
}
