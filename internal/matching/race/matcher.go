// internal/matching/race/matcher.go

// Package race pairs the scraped races of a competition with the known races
// of a resolved edition. Distance is the strongest discriminant for foot
// races, so pairing buckets by distance first and only falls back to name
// similarity when a bucket is ambiguous or absent.
package race

import (
	"math"

	"competition-matcher/internal/common/logger"
	"competition-matcher/internal/common/metrics"
	"competition-matcher/internal/matching/fuzzy"
	"competition-matcher/internal/matching/normalize"
	"competition-matcher/internal/models"
)

const (
	defaultTolerancePercent = 0.05

	// Name score bars. The fallback pool has no distance corroborating the
	// pair, so its bar is stricter.
	fallbackAcceptBar = 0.7
	groupAcceptBar    = 0.5

	nameWeight    = 0.6
	keywordWeight = 0.4
)

type Matcher struct {
	tolerance float64
	logger    logger.Logger
}

// NewMatcher builds a race matcher with the given relative distance
// tolerance (0 selects the default of 5%).
func NewMatcher(tolerancePercent float64, log logger.Logger) *Matcher {
	if tolerancePercent <= 0 {
		tolerancePercent = defaultTolerancePercent
	}
	return &Matcher{
		tolerance: tolerancePercent,
		logger:    log.WithFields(map[string]interface{}{"component": "race-matcher"}),
	}
}

// distanceGroup holds the stored races merged under one representative
// distance. The representative is the first member's distance.
type distanceGroup struct {
	distance float64
	races    []models.EditionRace
}

// MatchRaces pairs scraped races against the stored races of an edition.
// Scraped races that pair with nothing are returned as unmatched, implying a
// new race to create. Stored races are not consumed: two scraped records may
// resolve to the same stored race, which the reviewer surface reconciles.
func (m *Matcher) MatchRaces(scraped []models.RaceRecord, stored []models.EditionRace) models.Pairing {
	groups, fallback := m.groupByDistance(stored)

	pairing := models.Pairing{}
	for _, rec := range scraped {
		if rec.DistanceMeters <= 0 {
			// No distance means no safe bucket, not even the fallback pool.
			pairing.Unmatched = append(pairing.Unmatched, rec)
			metrics.RacesUnmatched.Inc()
			continue
		}

		pair, ok := m.resolve(rec, groups, fallback)
		if !ok {
			pairing.Unmatched = append(pairing.Unmatched, rec)
			metrics.RacesUnmatched.Inc()
			continue
		}
		pairing.Matched = append(pairing.Matched, pair)
	}

	m.logger.Debug("races paired", map[string]interface{}{
		"scraped":   len(scraped),
		"stored":    len(stored),
		"matched":   len(pairing.Matched),
		"unmatched": len(pairing.Unmatched),
	})
	return pairing
}

// groupByDistance merges stored races whose distances agree within the
// relative tolerance. A race joins the first group whose representative is
// close enough, else it starts a new group. Distance-less races form the
// fallback pool.
func (m *Matcher) groupByDistance(stored []models.EditionRace) ([]distanceGroup, []models.EditionRace) {
	var groups []distanceGroup
	var fallback []models.EditionRace

	for _, r := range stored {
		if r.DistanceMeters <= 0 {
			fallback = append(fallback, r)
			continue
		}
		joined := false
		for i := range groups {
			if m.withinTolerance(r.DistanceMeters, groups[i].distance) {
				groups[i].races = append(groups[i].races, r)
				joined = true
				break
			}
		}
		if !joined {
			groups = append(groups, distanceGroup{distance: r.DistanceMeters, races: []models.EditionRace{r}})
		}
	}
	return groups, fallback
}

func (m *Matcher) withinTolerance(distance, representative float64) bool {
	return math.Abs(distance-representative) <= representative*m.tolerance
}

func (m *Matcher) resolve(rec models.RaceRecord, groups []distanceGroup, fallback []models.EditionRace) (models.RacePair, bool) {
	group := m.findGroup(rec.DistanceMeters, groups)
	if group == nil {
		return m.matchByName(rec, fallback, fallbackAcceptBar, false)
	}

	if len(group.races) == 1 {
		// Distance alone is unambiguous.
		return models.RacePair{Scraped: rec, Stored: group.races[0], NameScore: 1}, true
	}

	return m.matchByName(rec, group.races, groupAcceptBar, true)
}

func (m *Matcher) findGroup(distance float64, groups []distanceGroup) *distanceGroup {
	for i := range groups {
		if m.withinTolerance(distance, groups[i].distance) {
			return &groups[i]
		}
	}
	return nil
}

// matchByName picks the best name match among pool, accepting it only above
// bar. Inside a distance group the score blends full-name and keyword
// similarity, against the fallback pool the full name alone decides.
func (m *Matcher) matchByName(rec models.RaceRecord, pool []models.EditionRace, bar float64, blendKeywords bool) (models.RacePair, bool) {
	scrapedName := normalize.Normalize(normalize.StripRaceSuffix(rec.Name))
	keywords := raceKeywords(rec.Name)

	var best models.EditionRace
	bestScore := -1.0
	for _, r := range pool {
		storedName := normalize.Normalize(normalize.StripRaceSuffix(r.Name))
		score := fuzzy.Similarity(scrapedName, storedName)
		if blendKeywords {
			score = fuzzy.Weighted(
				[]float64{score, fuzzy.KeywordSimilarity(keywords, raceKeywords(r.Name))},
				[]float64{nameWeight, keywordWeight},
			)
		}
		if score > bestScore {
			bestScore = score
			best = r
		}
	}

	if bestScore < bar {
		return models.RacePair{}, false
	}
	return models.RacePair{Scraped: rec, Stored: best, NameScore: bestScore}, true
}

func raceKeywords(name string) []string {
	return normalize.Keywords(normalize.StripRaceSuffix(name))
}
