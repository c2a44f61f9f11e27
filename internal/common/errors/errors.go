// Package errors provides standardized error handling for the matching workflow.
package errors

import (
	"fmt"
	"time"
)

// ==========================
// 1. Standard Error Types
// ==========================

// ErrorCode represents standardized internal error codes.
type ErrorCode string

const (
	ErrCodeRetrievalFailed  ErrorCode = "RETRIEVAL_FAILED"
	ErrCodeRetrievalTimeout ErrorCode = "RETRIEVAL_TIMEOUT"

	ErrCodeInvalidCompetition ErrorCode = "INVALID_COMPETITION"
	ErrCodeMatchScoringFailed ErrorCode = "MATCH_SCORING_FAILED"

	ErrCodeRaceMatchFailed ErrorCode = "RACE_MATCH_FAILED"

	ErrCodeDedupeCheckFailed ErrorCode = "DEDUPE_CHECK_FAILED"

	ErrCodeDatabaseConnectionFailed ErrorCode = "DATABASE_CONNECTION_FAILED"

	ErrCodeWorkerPanic ErrorCode = "WORKER_PANIC"
)

// StandardError represents a structured application error.
type StandardError struct {
	Code      ErrorCode              `json:"code"`
	Message   string                 `json:"message"`
	Details   string                 `json:"details,omitempty"`
	Retryable bool                   `json:"retryable"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
}

func (e *StandardError) Error() string {
	return fmt.Sprintf("StandardError[%s]: %s", e.Code, e.Message)
}

// IsRetrievalFailure reports whether err is a candidate-store failure, as opposed
// to a legitimate empty result. Callers use this to decide between retry and
// deferral instead of treating the record as NO_MATCH.
func IsRetrievalFailure(err error) bool {
	stdErr, ok := err.(*StandardError)
	if !ok {
		return false
	}
	return stdErr.Code == ErrCodeRetrievalFailed || stdErr.Code == ErrCodeRetrievalTimeout
}

// ==========================
// 2. BPMN Error Integration
// ==========================

// BPMNError represents an error that can be thrown to the workflow engine.
type BPMNError struct {
	Code           string                 `json:"code"`
	Message        string                 `json:"message"`
	Details        string                 `json:"details,omitempty"`
	Retryable      bool                   `json:"retryable"`
	Retries        int                    `json:"retries"`
	ErrorVariables map[string]interface{} `json:"errorVariables,omitempty"`
}

func (e *BPMNError) Error() string {
	return fmt.Sprintf("BPMNError[%s]: %s", e.Code, e.Message)
}

// ToErrorVariables returns a map suitable for setting job fail variables.
func (e *BPMNError) ToErrorVariables() map[string]interface{} {
	vars := map[string]interface{}{
		"errorCode":    e.Code,
		"errorMessage": e.Message,
		"errorDetails": e.Details,
		"retryable":    e.Retryable,
	}

	if e.ErrorVariables != nil {
		for k, v := range e.ErrorVariables {
			vars[k] = v
		}
	}

	return vars
}

// ConvertToBPMNError maps a StandardError onto the workflow error shape.
func ConvertToBPMNError(stdErr *StandardError) *BPMNError {
	return &BPMNError{
		Code:      string(stdErr.Code),
		Message:   stdErr.Message,
		Details:   stdErr.Details,
		Retryable: stdErr.Retryable,
		Retries:   GetRetryCount(stdErr.Code),
	}
}

// GetRetryCount returns how many workflow retries a given error code deserves.
func GetRetryCount(code ErrorCode) int {
	switch code {
	case ErrCodeRetrievalFailed, ErrCodeRetrievalTimeout,
		ErrCodeDatabaseConnectionFailed, ErrCodeDedupeCheckFailed:
		return 3
	default:
		return 0
	}
}

// ==========================
// 3. Error Constructors
// ==========================

// NewRetrievalFailedError creates a retryable candidate-store query error.
func NewRetrievalFailedError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeRetrievalFailed,
		Message:   "Candidate store query failed",
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewRetrievalTimeoutError creates a retryable query timeout error.
func NewRetrievalTimeoutError(pass string) *StandardError {
	return &StandardError{
		Code:      ErrCodeRetrievalTimeout,
		Message:   "Candidate store query timeout",
		Details:   fmt.Sprintf("pass: %s", pass),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewInvalidCompetitionError creates a non-retryable validation error for a
// scraped record missing mandatory fields.
func NewInvalidCompetitionError(details string) *StandardError {
	return &StandardError{
		Code:      ErrCodeInvalidCompetition,
		Message:   "Scraped competition failed validation",
		Details:   details,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewMatchScoringFailedError creates a non-retryable scoring error.
func NewMatchScoringFailedError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeMatchScoringFailed,
		Message:   "Fuzzy scoring failed",
		Details:   err.Error(),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewRaceMatchFailedError creates a non-retryable race pairing error.
func NewRaceMatchFailedError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeRaceMatchFailed,
		Message:   "Race pairing failed",
		Details:   err.Error(),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewDedupeCheckFailedError creates a retryable error for a failed persisted
// duplicate check.
func NewDedupeCheckFailedError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeDedupeCheckFailed,
		Message:   "Duplicate-proposal check failed",
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewDatabaseConnectionFailedError creates a retryable database connection error.
func NewDatabaseConnectionFailedError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeDatabaseConnectionFailed,
		Message:   "Database connection error",
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewWorkerPanicError wraps a recovered panic value. Non-retryable: a panic
// is deterministic for a given record, so re-delivering the job would loop.
func NewWorkerPanicError(v interface{}) *StandardError {
	return &StandardError{
		Code:      ErrCodeWorkerPanic,
		Message:   "Worker panicked while processing the job",
		Details:   fmt.Sprintf("panic: %v", v),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}
