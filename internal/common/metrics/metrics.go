// internal/common/metrics/metrics.go
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	MatchesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "matcher_matches_total",
			Help: "Match verdicts produced, by verdict type",
		},
		[]string{"type"},
	)

	RetrievalFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "matcher_retrieval_failures_total",
			Help: "Candidate store queries that failed or timed out",
		},
		[]string{"code"},
	)

	MatchDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "matcher_duration_seconds",
			Help: "Duration of one matching invocation in seconds",
		},
		[]string{"task_type"},
	)

	DuplicateProposals = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "matcher_duplicate_proposals_total",
			Help: "Proposals suppressed by the batch duplicate guard",
		},
	)

	RacesUnmatched = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "matcher_races_unmatched_total",
			Help: "Scraped races flagged as new races to create",
		},
	)
)
