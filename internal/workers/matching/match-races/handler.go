// internal/workers/matching/match-races/handler.go
package matchraces

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"competition-matcher/internal/common/logger"
	"competition-matcher/internal/common/metrics"
	"competition-matcher/internal/matching/race"
	"competition-matcher/internal/models"

	apperrors "competition-matcher/internal/common/errors"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
)

const (
	TaskType = "match-races"
)

type Handler struct {
	config       *Config
	db           *sql.DB
	matcher      *race.Matcher
	errorHandler *apperrors.ErrorHandler
	logger       logger.Logger
}

func NewHandler(config *Config, db *sql.DB, log logger.Logger) *Handler {
	return &Handler{
		config:       config,
		db:           db,
		matcher:      race.NewMatcher(config.DistanceTolerancePercent, log),
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
		h.errorHandler.HandleJobError(ctx, client, job, apperrors.NewRaceMatchFailedError(err))
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

// Execute pairs the scraped races of one listing against an edition's known
// races. When the variables do not carry the stored races, they are loaded
// from the reference store by edition.
func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	stored := input.StoredRaces
	if len(stored) == 0 && input.EditionID > 0 {
		var err error
		stored, err = h.loadEditionRaces(ctx, input.EditionID)
		if err != nil {
			return nil, apperrors.NewRaceMatchFailedError(err)
		}
	}

	pairing := h.matcher.MatchRaces(input.ScrapedRaces, stored)

	return &Output{
		Matched:      pairing.Matched,
		Unmatched:    pairing.Unmatched,
		NewRaceCount: len(pairing.Unmatched),
	}, nil
}

func (h *Handler) loadEditionRaces(ctx context.Context, editionID int64) ([]models.EditionRace, error) {
	rows, err := h.db.QueryContext(ctx, `
		SELECT id, name, distance_meters, elevation_meters, start_time
		FROM races WHERE edition_id = $1
		ORDER BY id`, editionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var races []models.EditionRace
	for rows.Next() {
		var r models.EditionRace
		var distance, elevation sql.NullFloat64
		var start sql.NullTime
		if err := rows.Scan(&r.ID, &r.Name, &distance, &elevation, &start); err != nil {
			return nil, err
		}
		r.DistanceMeters = distance.Float64
		r.ElevationMeters = elevation.Float64
		if start.Valid {
			t := start.Time
			r.StartTime = &t
		}
		races = append(races, r)
	}
	return races, rows.Err()
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
