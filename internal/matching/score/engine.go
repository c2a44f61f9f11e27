// internal/matching/score/engine.go

// Package score implements the weighted fuzzy scoring model that decides
// whether a scraped competition is an already-known event.
package score

import (
	"context"
	"math"
	"sort"
	"time"

	"competition-matcher/internal/common/logger"
	"competition-matcher/internal/common/metrics"
	"competition-matcher/internal/matching/fuzzy"
	"competition-matcher/internal/matching/normalize"
	"competition-matcher/internal/matching/retrieval"
	"competition-matcher/internal/models"
)

const (
	// Classification tiers. The exact bar is the only configurable one.
	exactThreshold   = 0.95
	floorThreshold   = 0.3
	defaultThreshold = 0.75

	// Near-perfect name/keyword agreement tolerates a city mismatch
	// (adjoining-town cases).
	nearPerfectBar = 0.9

	// Department agreement compensates a weak city signal.
	departmentBonus = 0.15

	// Keyword-dominant matches with a weak full-name score must share real
	// keywords or get damped, not zeroed: a trace signal still ranks.
	guardDamping       = 0.3
	distinctiveWordLen = 8
	maxRejectedMatches = 3
)

// CandidateRetriever is the slice of the retrieval API the engine needs.
type CandidateRetriever interface {
	FindCandidates(ctx context.Context, name, city, department string, date time.Time) ([]models.CandidateEvent, error)
}

// Config carries the externally tunable scoring knob.
type Config struct {
	SimilarityThreshold float64
}

type Engine struct {
	retriever CandidateRetriever
	cfg       Config
	logger    logger.Logger
}

func NewEngine(retriever CandidateRetriever, cfg Config, log logger.Logger) *Engine {
	if cfg.SimilarityThreshold == 0 {
		cfg.SimilarityThreshold = defaultThreshold
	}
	return &Engine{
		retriever: retriever,
		cfg:       cfg,
		logger:    log.WithFields(map[string]interface{}{"component": "score-engine"}),
	}
}

// MatchCompetition resolves one scraped competition against the reference
// store. A retrieval failure aborts the invocation with a typed error; a
// legitimate empty candidate set yields NO_MATCH with confidence 0.
func (e *Engine) MatchCompetition(ctx context.Context, scraped *models.ScrapedCompetition) (*models.MatchResult, error) {
	if err := scraped.Validate(); err != nil {
		return nil, err
	}

	cleanName := normalize.StripEditionMarkers(scraped.Name)
	normName := normalize.Normalize(cleanName)
	normCity := normalize.Normalize(scraped.City)
	dept := normalize.NormalizeDepartment(scraped.Department)
	keywords := normalize.Keywords(cleanName)

	candidates, err := e.retriever.FindCandidates(ctx, cleanName, scraped.City, dept, scraped.Date)
	if err != nil {
		return nil, err
	}
	if len(candidates) == 0 {
		metrics.MatchesTotal.WithLabelValues(string(models.MatchTypeNone)).Inc()
		return &models.MatchResult{Type: models.MatchTypeNone, Confidence: 0}, nil
	}

	scored := make([]models.ScoredCandidate, 0, len(candidates))
	for _, c := range candidates {
		scored = append(scored, e.scoreCandidate(c, normName, keywords, normCity, dept, scraped.Date))
	}

	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].Combined > scored[j].Combined
	})

	result := e.classify(scored, scraped.Date)

	e.logger.Info("competition scored", map[string]interface{}{
		"name":       scraped.Name,
		"candidates": len(candidates),
		"type":       result.Type,
		"confidence": result.Confidence,
	})
	metrics.MatchesTotal.WithLabelValues(string(result.Type)).Inc()

	return result, nil
}

// scoreCandidate computes the per-field scores and their combination for one
// candidate. Combined is always clamped to [0,1].
func (e *Engine) scoreCandidate(c models.CandidateEvent, normName string, keywords []string, normCity, dept string, date time.Time) models.ScoredCandidate {
	candClean := normalize.StripEditionMarkers(c.Name)
	candName := normalize.Normalize(candClean)
	candCity := normalize.Normalize(c.City)
	candKeywords := normalize.Keywords(candClean)

	nameScore := fuzzy.Similarity(normName, candName)
	keywordScore := fuzzy.KeywordSimilarity(keywords, candKeywords)
	cityScore := fuzzy.Similarity(normCity, candCity)
	proximity := dateProximity(date, c.Editions)

	keywordScore = applyKeywordGuard(nameScore, keywordScore, keywords, candKeywords)

	deptMatch := dept != "" && normalize.NormalizeDepartment(c.Department) == dept

	sc := models.ScoredCandidate{
		Event:           c,
		NameScore:       nameScore,
		KeywordScore:    keywordScore,
		CityScore:       cityScore,
		DepartmentMatch: deptMatch,
		DateProximity:   proximity,
	}
	sc.Combined = combine(sc)
	return sc
}

// applyKeywordGuard validates matches that come mostly from keywords: the two
// names must share at least two keywords, or exactly one distinctive (long)
// keyword; otherwise the keyword score is damped.
func applyKeywordGuard(nameScore, keywordScore float64, scraped, candidate []string) float64 {
	if keywordScore <= nameScore || nameScore >= 0.5 {
		return keywordScore
	}

	shared := normalize.SharedKeywords(scraped, candidate)
	if len(shared) >= 2 {
		return keywordScore
	}
	if len(shared) == 1 && len(shared[0]) >= distinctiveWordLen {
		return keywordScore
	}
	return keywordScore * guardDamping
}

// dateProximity is the linear decay of closeness between the scraped date and
// the nearest edition start, reaching 0 at 90 days. No dated edition means 0.
func dateProximity(date time.Time, editions []models.Edition) float64 {
	best := -1.0
	for _, ed := range editions {
		if ed.StartDate == nil {
			continue
		}
		days := math.Abs(date.Sub(*ed.StartDate).Hours() / 24)
		p := 1 - days/retrieval.WindowDays
		if p < 0 {
			p = 0
		}
		if p > best {
			best = p
		}
	}
	if best < 0 {
		return 0
	}
	return best
}

// combine folds the per-field scores into the final candidate score.
func combine(sc models.ScoredCandidate) float64 {
	best := math.Max(sc.NameScore, sc.KeywordScore)

	// Confidence degrades to at most 80% of its text-derived value at 90+
	// days of date difference, undiminished at zero days.
	dateMultiplier := 0.8 + sc.DateProximity*0.2

	var combined float64
	if best >= nearPerfectBar {
		if sc.DepartmentMatch {
			// The raw weights sum past 1 so a fully agreeing candidate
			// clamps to exactly 1.0.
			combined = (best*0.90 + sc.CityScore*0.05 + departmentBonus) * dateMultiplier
		} else {
			combined = (best*0.95 + sc.CityScore*0.05) * dateMultiplier
		}
	} else {
		// The bonus only compensates a weak city signal here, a strong
		// city score already carries its own weight.
		bonus := 0.0
		if sc.DepartmentMatch && sc.CityScore < 0.9 {
			bonus = departmentBonus
		}
		alt := math.Min(sc.NameScore, sc.KeywordScore)
		combined = (best*0.5 + sc.CityScore*0.3 + alt*0.2 + bonus) * dateMultiplier
	}

	return fuzzy.Clamp(combined)
}

// classify turns the ranked candidates into the final verdict. Below-bar
// candidates are never silently dropped: the top three are always reported
// for human override.
func (e *Engine) classify(scored []models.ScoredCandidate, date time.Time) *models.MatchResult {
	rejected := rejectedSummaries(scored)
	top := scored[0]

	if top.Combined < floorThreshold {
		return &models.MatchResult{
			Type:            models.MatchTypeNone,
			Confidence:      0,
			RejectedMatches: rejected,
		}
	}

	matchType := models.MatchTypeNone
	switch {
	case top.Combined >= exactThreshold:
		matchType = models.MatchTypeExact
	case top.Combined >= e.cfg.SimilarityThreshold:
		matchType = models.MatchTypeFuzzy
	}

	if matchType == models.MatchTypeNone {
		return &models.MatchResult{
			Type:            models.MatchTypeNone,
			Confidence:      0,
			RejectedMatches: rejected,
		}
	}

	event := top.Event
	return &models.MatchResult{
		Type:            matchType,
		Event:           &event,
		Edition:         event.EditionForYear(date.Year()),
		Confidence:      top.Combined,
		RejectedMatches: rejected,
	}
}

func rejectedSummaries(scored []models.ScoredCandidate) []models.RejectedMatch {
	n := len(scored)
	if n > maxRejectedMatches {
		n = maxRejectedMatches
	}
	out := make([]models.RejectedMatch, 0, n)
	for _, sc := range scored[:n] {
		out = append(out, models.RejectedMatch{
			EventID:         sc.Event.ID,
			EventName:       sc.Event.Name,
			NameScore:       sc.NameScore,
			KeywordScore:    sc.KeywordScore,
			CityScore:       sc.CityScore,
			DepartmentMatch: sc.DepartmentMatch,
			Combined:        sc.Combined,
		})
	}
	return out
}
