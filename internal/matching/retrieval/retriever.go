// internal/matching/retrieval/retriever.go

// Package retrieval builds the bounded candidate set for a scraped
// competition by running an escalating sequence of store queries.
package retrieval

import (
	"context"
	"errors"
	"time"

	apperrors "competition-matcher/internal/common/errors"
	"competition-matcher/internal/common/logger"
	"competition-matcher/internal/common/metrics"
	"competition-matcher/internal/matching/normalize"
	"competition-matcher/internal/models"
)

const (
	// CandidateCap bounds the candidate set for cost control.
	CandidateCap = 100

	// widenThreshold: the widened pass only runs when the restrictive pass
	// found fewer candidates than this.
	widenThreshold = 10

	// WindowDays is the half-width of the temporal window around the
	// scraped date.
	WindowDays = 90
)

// Query describes one retrieval pass against the candidate store.
type Query struct {
	NameWords  []string
	CityWords  []string
	Department string
	From       time.Time
	To         time.Time
	ExcludeIDs []int64
	Limit      int
}

// CandidateStore is the outbound boundary to the reference store. It must
// support text-containment filtering on name/city, equality on a normalized
// department code and a date-range predicate over editions.
type CandidateStore interface {
	FindEvents(ctx context.Context, q Query) ([]models.CandidateEvent, error)
}

// pass is one entry of the ordered retrieval plan.
type pass struct {
	name string
	// skip reports whether the pass is unnecessary given how many
	// candidates earlier passes found.
	skip  func(found int) bool
	query Query
}

// Retriever runs the retrieval plan with a per-query timeout. It holds no
// state between invocations; the store handle is injected by the caller.
type Retriever struct {
	store   CandidateStore
	timeout time.Duration
	logger  logger.Logger
}

func NewRetriever(store CandidateStore, timeout time.Duration, log logger.Logger) *Retriever {
	return &Retriever{
		store:   store,
		timeout: timeout,
		logger:  log.WithFields(map[string]interface{}{"component": "retriever"}),
	}
}

// FindCandidates returns up to CandidateCap events whose editions intersect
// the +/-90 day window around date. Store failures surface as typed retrieval
// errors, never as an empty list.
func (r *Retriever) FindCandidates(ctx context.Context, name, city, department string, date time.Time) ([]models.CandidateEvent, error) {
	nameWords := normalize.Keywords(name)
	cityWords := normalize.Keywords(city)
	dept := normalize.NormalizeDepartment(department)
	from := date.AddDate(0, 0, -WindowDays)
	to := date.AddDate(0, 0, WindowDays)

	// Restrictive pass: same department plus any significant name word.
	// With no usable department it degrades to name-only within the window.
	// Widened pass: any significant city or name word, all departments; only
	// reached when the restrictive pass came back sparse.
	passes := []pass{
		{
			name:  "restrictive",
			query: Query{NameWords: nameWords, Department: dept, From: from, To: to},
		},
		{
			name:  "widened",
			skip:  func(found int) bool { return found >= widenThreshold },
			query: Query{NameWords: nameWords, CityWords: cityWords, From: from, To: to},
		},
	}

	var out []models.CandidateEvent
	var exclude []int64

	for _, p := range passes {
		if len(out) >= CandidateCap {
			break
		}
		if p.skip != nil && p.skip(len(out)) {
			continue
		}

		q := p.query
		q.ExcludeIDs = exclude
		q.Limit = CandidateCap - len(out)

		qctx, cancel := context.WithTimeout(ctx, r.timeout)
		events, err := r.store.FindEvents(qctx, q)
		cancel()
		if err != nil {
			if errors.Is(err, context.DeadlineExceeded) {
				metrics.RetrievalFailures.WithLabelValues(string(apperrors.ErrCodeRetrievalTimeout)).Inc()
				return nil, apperrors.NewRetrievalTimeoutError(p.name)
			}
			metrics.RetrievalFailures.WithLabelValues(string(apperrors.ErrCodeRetrievalFailed)).Inc()
			return nil, apperrors.NewRetrievalFailedError(err)
		}

		for _, ev := range events {
			out = append(out, ev)
			exclude = append(exclude, ev.ID)
		}

		r.logger.Debug("retrieval pass done", map[string]interface{}{
			"pass":  p.name,
			"found": len(events),
			"total": len(out),
		})
	}

	return out, nil
}
