// internal/workers/matching/match-competition/handler_test.go
package matchcompetition

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/pb"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"competition-matcher/internal/common/logger"
	"competition-matcher/internal/matching/dedupe"
	"competition-matcher/internal/models"
	"competition-matcher/internal/workers/matching/workertest"

	apperrors "competition-matcher/internal/common/errors"
)

// ==========================
// Test Helper Functions
// ==========================

var testDate = time.Date(2025, 4, 13, 0, 0, 0, 0, time.UTC)

type stubMatcher struct {
	result *models.MatchResult
	err    error
	calls  int
}

func (s *stubMatcher) MatchCompetition(_ context.Context, _ *models.ScrapedCompetition) (*models.MatchResult, error) {
	s.calls++
	return s.result, s.err
}

func createTestConfig() *Config {
	return &Config{
		Timeout:        10 * time.Second,
		ResultCacheTTL: 10 * time.Minute,
	}
}

func setupMockRedis(t *testing.T) *redis.Client {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return client
}

func createTestCompetition() models.ScrapedCompetition {
	return models.ScrapedCompetition{
		Name:       "Trail des Loups",
		City:       "Quimper",
		Department: "29",
		Date:       testDate,
	}
}

func fuzzyResult() *models.MatchResult {
	start := testDate
	return &models.MatchResult{
		Type:       models.MatchTypeFuzzy,
		Event:      &models.CandidateEvent{ID: 42, Name: "Trail des Loups"},
		Edition:    &models.Edition{ID: 420, Year: 2025, StartDate: &start},
		Confidence: 0.83,
	}
}

func newTestHandler(t *testing.T, matcher CompetitionMatcher, redisClient *redis.Client) *Handler {
	t.Helper()
	return NewHandler(createTestConfig(), matcher, redisClient, dedupe.NewMemoryGuard(), logger.NewTestLogger(t))
}

// ==========================
// Execute
// ==========================

func TestExecute_MatchProducesProposal(t *testing.T) {
	matcher := &stubMatcher{result: fuzzyResult()}
	h := newTestHandler(t, matcher, nil)

	output, err := h.Execute(context.Background(), &Input{Competition: createTestCompetition()})

	require.NoError(t, err)
	assert.Equal(t, models.MatchTypeFuzzy, output.MatchResult.Type)
	assert.NotEmpty(t, output.ProposalID)
	assert.False(t, output.Duplicate)
}

func TestExecute_SameEditionInBatchIsSuppressed(t *testing.T) {
	matcher := &stubMatcher{result: fuzzyResult()}
	h := newTestHandler(t, matcher, nil)

	first, err := h.Execute(context.Background(), &Input{Competition: createTestCompetition()})
	require.NoError(t, err)
	require.False(t, first.Duplicate)

	// A different listing resolving to the same edition within the batch.
	other := createTestCompetition()
	other.Name = "Trail des Loups de Quimper"
	second, err := h.Execute(context.Background(), &Input{Competition: other})
	require.NoError(t, err)

	assert.True(t, second.Duplicate)
	assert.Empty(t, second.ProposalID)
	assert.NotNil(t, second.MatchResult, "the verdict is still reported alongside the duplicate flag")
}

func TestExecute_NoMatchSkipsGuard(t *testing.T) {
	matcher := &stubMatcher{result: &models.MatchResult{Type: models.MatchTypeNone}}
	h := newTestHandler(t, matcher, nil)

	first, err := h.Execute(context.Background(), &Input{Competition: createTestCompetition()})
	require.NoError(t, err)
	second, err := h.Execute(context.Background(), &Input{Competition: createTestCompetition()})
	require.NoError(t, err)

	assert.False(t, first.Duplicate)
	assert.False(t, second.Duplicate, "no-match verdicts carry no edition to collide on")
}

func TestExecute_ResultCacheShortCircuitsRescrape(t *testing.T) {
	matcher := &stubMatcher{result: fuzzyResult()}
	h := newTestHandler(t, matcher, setupMockRedis(t))

	_, err := h.Execute(context.Background(), &Input{Competition: createTestCompetition()})
	require.NoError(t, err)

	output, err := h.Execute(context.Background(), &Input{Competition: createTestCompetition()})
	require.NoError(t, err)

	assert.True(t, output.FromCache)
	assert.Equal(t, 1, matcher.calls, "the cached verdict must not trigger a second scoring run")
	assert.Equal(t, models.MatchTypeFuzzy, output.MatchResult.Type)
}

func TestExecute_MatcherErrorPropagates(t *testing.T) {
	matcher := &stubMatcher{err: apperrors.NewRetrievalTimeoutError("restrictive")}
	h := newTestHandler(t, matcher, nil)

	output, err := h.Execute(context.Background(), &Input{Competition: createTestCompetition()})

	require.Error(t, err)
	assert.Nil(t, output)
	assert.True(t, apperrors.IsRetrievalFailure(err))
}

func TestExecute_InvalidCompetitionRejected(t *testing.T) {
	matcher := &stubMatcher{result: fuzzyResult()}
	h := newTestHandler(t, matcher, nil)

	comp := createTestCompetition()
	comp.Name = ""
	_, err := h.Execute(context.Background(), &Input{Competition: comp})

	require.Error(t, err)
	var stdErr *apperrors.StandardError
	require.ErrorAs(t, err, &stdErr)
	assert.Equal(t, apperrors.ErrCodeInvalidCompetition, stdErr.Code)
	assert.Zero(t, matcher.calls)
}

// ==========================
// Input Validation
// ==========================

func TestValidateInput(t *testing.T) {
	h := newTestHandler(t, &stubMatcher{}, nil)

	tests := []struct {
		name      string
		variables string
		wantErr   bool
	}{
		{
			name:      "valid input",
			variables: `{"competition": {"name": "Trail des Loups", "date": "2025-04-13T00:00:00Z"}}`,
			wantErr:   false,
		},
		{
			name:      "missing competition",
			variables: `{"somethingElse": true}`,
			wantErr:   true,
		},
		{
			name:      "missing name",
			variables: `{"competition": {"date": "2025-04-13T00:00:00Z"}}`,
			wantErr:   true,
		},
		{
			name:      "empty name",
			variables: `{"competition": {"name": "", "date": "2025-04-13T00:00:00Z"}}`,
			wantErr:   true,
		},
		{
			name:      "missing date",
			variables: `{"competition": {"name": "Trail des Loups"}}`,
			wantErr:   true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := h.validateInput(tt.variables)
			if tt.wantErr {
				require.Error(t, err)
				var stdErr *apperrors.StandardError
				require.ErrorAs(t, err, &stdErr)
				assert.Equal(t, apperrors.ErrCodeInvalidCompetition, stdErr.Code)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

// ==========================
// Cache Key
// ==========================

func TestCacheKey_IdentityFieldsOnly(t *testing.T) {
	a := createTestCompetition()
	b := createTestCompetition()
	b.ContactEmail = "orga@example.org"

	assert.Equal(t, cacheKey(&a), cacheKey(&b), "contact details do not change the listing identity")

	c := createTestCompetition()
	c.Date = testDate.AddDate(0, 0, 7)
	assert.NotEqual(t, cacheKey(&a), cacheKey(&c))
}

// ==========================
// Handle
// ==========================

type panickyMatcher struct{}

func (panickyMatcher) MatchCompetition(context.Context, *models.ScrapedCompetition) (*models.MatchResult, error) {
	panic("nil candidate edition")
}

func testJob(variables string) entities.Job {
	return entities.Job{ActivatedJob: &pb.ActivatedJob{Key: 7, Retries: 3, Variables: variables}}
}

const validVariables = `{"competition":{"name":"Trail des Loups","city":"Quimper","department":"29","date":"2025-04-13T00:00:00Z"}}`

func TestHandle_CompletedJobCarriesResult(t *testing.T) {
	matcher := &stubMatcher{result: fuzzyResult()}
	h := newTestHandler(t, matcher, nil)
	client := workertest.NewClient()

	h.Handle(client, testJob(validVariables))

	require.Len(t, client.Completed, 1)
	assert.Empty(t, client.Failed)
	assert.Empty(t, client.Thrown)
	output, ok := client.Completed[0].Variables.(*Output)
	require.True(t, ok)
	assert.Equal(t, models.MatchTypeFuzzy, output.MatchResult.Type)
}

func TestHandle_PanicIsReportedAsJobError(t *testing.T) {
	h := newTestHandler(t, panickyMatcher{}, nil)
	client := workertest.NewClient()

	h.Handle(client, testJob(validVariables))

	assert.Empty(t, client.Completed, "a panicking job must not complete")
	assert.Empty(t, client.Failed)
	require.Len(t, client.Thrown, 1, "a panicking job must still be reported to the engine")
	assert.Equal(t, string(apperrors.ErrCodeWorkerPanic), client.Thrown[0].ErrorCode)
	assert.Equal(t, int64(7), client.Thrown[0].JobKey)
}

func TestHandle_RetryableErrorFailsJobWithRetries(t *testing.T) {
	matcher := &stubMatcher{err: apperrors.NewRetrievalFailedError(errors.New("connection refused"))}
	h := newTestHandler(t, matcher, nil)
	client := workertest.NewClient()

	h.Handle(client, testJob(validVariables))

	assert.Empty(t, client.Completed)
	assert.Empty(t, client.Thrown)
	require.Len(t, client.Failed, 1)
	assert.Equal(t, int32(2), client.Failed[0].Retries)
}

func TestHandle_InvalidVariablesThrowError(t *testing.T) {
	h := newTestHandler(t, &stubMatcher{}, nil)
	client := workertest.NewClient()

	h.Handle(client, testJob(`{"competition":{"city":"Quimper"}}`))

	assert.Empty(t, client.Completed)
	require.Len(t, client.Thrown, 1)
	assert.Equal(t, string(apperrors.ErrCodeInvalidCompetition), client.Thrown[0].ErrorCode)
}
