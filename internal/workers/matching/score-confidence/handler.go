// internal/workers/matching/score-confidence/handler.go
package scoreconfidence

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"competition-matcher/internal/common/logger"
	"competition-matcher/internal/common/metrics"
	"competition-matcher/internal/matching/confidence"
	"competition-matcher/internal/models"

	apperrors "competition-matcher/internal/common/errors"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
)

const (
	TaskType = "score-confidence"

	// Reviewer prior when the process does not carry an extraction score.
	defaultBaseConfidence = 0.7
)

var errMissingResult = errors.New("missing match result")

type Handler struct {
	config       *Config
	errorHandler *apperrors.ErrorHandler
	logger       logger.Logger
}

func NewHandler(config *Config, log logger.Logger) *Handler {
	return &Handler{
		config:       config,
		errorHandler: apperrors.NewErrorHandler(log),
		logger:       log.WithFields(map[string]interface{}{"taskType": TaskType}),
	}
}

func (h *Handler) Handle(client worker.JobClient, job entities.Job) {
	// A panicking record must still be reported, or the engine re-delivers
	// the job forever at timeout cadence.
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

	var input Input
	if err := json.Unmarshal([]byte(job.Variables), &input); err != nil {
		h.errorHandler.HandleJobError(ctx, client, job, apperrors.NewMatchScoringFailedError(err))
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

// Execute post-processes a verdict's confidence with the scraped record's
// corroborating signals.
func (h *Handler) Execute(_ context.Context, input *Input) (*Output, error) {
	if input.MatchResult == nil {
		return nil, apperrors.NewMatchScoringFailedError(errMissingResult)
	}

	base := input.BaseConfidence
	if base <= 0 {
		base = defaultBaseConfidence
	}

	sig := confidence.Signals{
		HasContactInfo: input.Competition.HasContactInfo(),
		RaceCount:      len(input.Competition.Races),
		Tier:           h.tier(input),
	}

	output := &Output{}
	if input.MatchResult.Type == models.MatchTypeNone {
		output.Mode = ModeNewEvent
		output.Confidence = confidence.NewEvent(base, input.MatchResult, sig)
	} else {
		output.Mode = ModeAdjusted
		output.Confidence = confidence.Adjusted(base, input.MatchResult, sig)
	}

	h.logger.Info("confidence adjusted", map[string]interface{}{
		"mode":       output.Mode,
		"base":       base,
		"confidence": output.Confidence,
	})
	return output, nil
}

// tier prefers the matched event's tier, falling back to the tier the
// process proposes for a new event.
func (h *Handler) tier(input *Input) string {
	if input.MatchResult.Event != nil && input.MatchResult.Event.Tier != "" {
		return input.MatchResult.Event.Tier
	}
	return input.Tier
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
