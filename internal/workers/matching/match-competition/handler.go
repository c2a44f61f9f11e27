// internal/workers/matching/match-competition/handler.go
package matchcompetition

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	"competition-matcher/internal/common/logger"
	"competition-matcher/internal/common/metrics"
	"competition-matcher/internal/matching/dedupe"
	"competition-matcher/internal/models"

	apperrors "competition-matcher/internal/common/errors"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/xeipuuv/gojsonschema"
)

const (
	TaskType = "match-competition"

	resultCachePrefix = "matcher:result:"
)

// inputSchema gates the job variables before any typed decoding, so a record
// missing its name or date fails fast with a validation error instead of
// scoring against an empty string.
var inputSchema = map[string]interface{}{
	"type":     "object",
	"required": []interface{}{"competition"},
	"properties": map[string]interface{}{
		"competition": map[string]interface{}{
			"type":     "object",
			"required": []interface{}{"name", "date"},
			"properties": map[string]interface{}{
				"name": map[string]interface{}{"type": "string", "minLength": 1},
				"date": map[string]interface{}{"type": "string", "minLength": 1},
			},
		},
	},
}

// CompetitionMatcher is the scoring engine surface the worker depends on.
type CompetitionMatcher interface {
	MatchCompetition(ctx context.Context, scraped *models.ScrapedCompetition) (*models.MatchResult, error)
}

type Handler struct {
	config       *Config
	matcher      CompetitionMatcher
	redis        *redis.Client
	guard        dedupe.Guard
	errorHandler *apperrors.ErrorHandler
	logger       logger.Logger
}

func NewHandler(config *Config, matcher CompetitionMatcher, redisClient *redis.Client, guard dedupe.Guard, log logger.Logger) *Handler {
	return &Handler{
		config:       config,
		matcher:      matcher,
		redis:        redisClient,
		guard:        guard,
		errorHandler: apperrors.NewErrorHandler(log),
		logger:       log.WithFields(map[string]interface{}{"taskType": TaskType}),
	}
}

func (h *Handler) Handle(client worker.JobClient, job entities.Job) {
	// One record must never take down the batch worker. The job still has to
	// be reported, or the engine re-delivers it forever at timeout cadence.
	defer func() {
		if r := recover(); r != nil {
			h.logger.Error("recovered from panic", map[string]interface{}{
				"jobKey": job.Key,
				"panic":  r,
			})
			h.errorHandler.HandleJobError(context.Background(), client, job, apperrors.NewWorkerPanicError(r))
		}
	}()

	h.logger.Info("processing job", map[string]interface{}{
		"jobKey":      job.Key,
		"workflowKey": job.ProcessInstanceKey,
	})

	ctx, cancel := context.WithTimeout(context.Background(), h.config.Timeout)
	defer cancel()

	if err := h.validateInput(job.Variables); err != nil {
		h.errorHandler.HandleJobError(ctx, client, job, err)
		return
	}

	var input Input
	if err := json.Unmarshal([]byte(job.Variables), &input); err != nil {
		h.errorHandler.HandleJobError(ctx, client, job, apperrors.NewInvalidCompetitionError(err.Error()))
		return
	}

	start := time.Now()
	output, err := h.Execute(ctx, &input)
	metrics.MatchDuration.WithLabelValues(TaskType).Observe(time.Since(start).Seconds())
	if err != nil {
		h.errorHandler.HandleJobError(ctx, client, job, err)
		return
	}

	h.completeJob(client, job, output)
}

// Execute resolves one scraped competition. Exported for direct invocation in
// tests and batch tooling.
func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	comp := input.Competition
	if err := comp.Validate(); err != nil {
		return nil, err
	}

	if cached := h.cachedResult(ctx, &comp); cached != nil {
		h.logger.Debug("result cache hit", map[string]interface{}{"name": comp.Name})
		return &Output{MatchResult: cached, FromCache: true, Duplicate: true}, nil
	}

	result, err := h.matcher.MatchCompetition(ctx, &comp)
	if err != nil {
		return nil, err
	}

	output := &Output{MatchResult: result}

	// Proposals are edition-scoped: only a verdict that resolved an edition
	// can collide with a sibling record in the batch.
	if result.Type != models.MatchTypeNone && result.Edition != nil {
		seen, err := h.guard.SeenAndRecord(ctx, dedupe.Proposal{
			EventID:   result.Event.ID,
			EditionID: result.Edition.ID,
			Kind:      dedupe.KindEditionUpdate,
		})
		if err != nil {
			return nil, err
		}
		if seen {
			metrics.DuplicateProposals.Inc()
			output.Duplicate = true
		}
	}

	if !output.Duplicate {
		output.ProposalID = uuid.New().String()
	}

	h.cacheResult(ctx, &comp, result)
	return output, nil
}

func (h *Handler) validateInput(variables string) error {
	result, err := gojsonschema.Validate(
		gojsonschema.NewGoLoader(inputSchema),
		gojsonschema.NewStringLoader(variables),
	)
	if err != nil {
		return apperrors.NewInvalidCompetitionError(fmt.Sprintf("validation error: %v", err))
	}
	if !result.Valid() {
		errs := make([]string, len(result.Errors()))
		for i, desc := range result.Errors() {
			errs[i] = desc.String()
		}
		return apperrors.NewInvalidCompetitionError(fmt.Sprintf("%v", errs))
	}
	return nil
}

// cacheKey hashes the identity fields of the scraped record, so a re-scrape
// of the same listing within the TTL reuses the verdict.
func cacheKey(comp *models.ScrapedCompetition) string {
	sum := sha256.Sum256([]byte(fmt.Sprintf(
		"%s|%s|%s|%s",
		comp.Name, comp.City, comp.Department, comp.Date.Format("2006-01-02"),
	)))
	return resultCachePrefix + hex.EncodeToString(sum[:])
}

func (h *Handler) cachedResult(ctx context.Context, comp *models.ScrapedCompetition) *models.MatchResult {
	if h.redis == nil || h.config.ResultCacheTTL <= 0 {
		return nil
	}
	val, err := h.redis.Get(ctx, cacheKey(comp)).Result()
	if err != nil {
		return nil
	}
	var result models.MatchResult
	if err := json.Unmarshal([]byte(val), &result); err != nil {
		return nil
	}
	return &result
}

func (h *Handler) cacheResult(ctx context.Context, comp *models.ScrapedCompetition, result *models.MatchResult) {
	if h.redis == nil || h.config.ResultCacheTTL <= 0 {
		return
	}
	data, err := json.Marshal(result)
	if err != nil {
		return
	}
	if err := h.redis.Set(ctx, cacheKey(comp), data, h.config.ResultCacheTTL).Err(); err != nil {
		h.logger.Warn("result cache write failed", map[string]interface{}{"error": err})
	}
}

func (h *Handler) completeJob(client worker.JobClient, job entities.Job, output *Output) {
	cmd, err := client.NewCompleteJobCommand().
		JobKey(job.Key).
		VariablesFromObject(output)
	if err != nil {
		h.logger.Error("failed to create complete job command", map[string]interface{}{
			"error": err,
		})
		return
	}
	_, err = cmd.Send(context.Background())
	if err != nil {
		h.logger.Error("failed to send complete job command", map[string]interface{}{
			"error": err,
		})
	}
}
