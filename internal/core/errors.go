package core

import (
	"errors"
	"fmt"
	"time"
)

// StageError represents a failure inside one rewrite stage. A stage failure
// aborts the whole chapter run; the orchestrator never persists partial output.
type StageError struct {
	Stage     string
	Chapter   int
	Attempt   int
	Cause     error
	Timestamp time.Time
}

func (e *StageError) Error() string {
	return fmt.Sprintf("stage %s failed for chapter %d (attempt %d): %v", e.Stage, e.Chapter, e.Attempt, e.Cause)
}

func (e *StageError) Unwrap() error {
	return e.Cause
}

// NewStageError creates a StageError with the current timestamp.
func NewStageError(stage string, chapter, attempt int, cause error) *StageError {
	return &StageError{
		Stage:     stage,
		Chapter:   chapter,
		Attempt:   attempt,
		Cause:     cause,
		Timestamp: time.Now(),
	}
}

// ExtractionError reports a malformed structured payload from the generation
// service. The ledger is never touched when one of these is returned.
type ExtractionError struct {
	Chapter int
	Detail  string
	Raw     string
}

func (e *ExtractionError) Error() string {
	return fmt.Sprintf("extraction failed for chapter %d: %s", e.Chapter, e.Detail)
}

var (
	ErrRateLimited    = errors.New("rate limited")
	ErrTimeout        = errors.New("operation timed out")
	ErrNetworkError   = errors.New("network error")
	ErrServerError    = errors.New("server error")
	ErrNoAPIKey       = errors.New("API key not configured")
	ErrInvalidInput   = errors.New("invalid input")
	ErrPromptTooLarge = errors.New("prompt exceeds limit")
	ErrNotIndexed     = errors.New("book is not indexed")
	ErrChapterRange   = errors.New("chapter index out of range")
	ErrBatchTooLarge  = errors.New("embedding batch too large")
)

// IsRetryable reports whether an error is worth another attempt at the
// service-adapter boundary. Stage-level failures are never retried.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}

	var stageErr *StageError
	if errors.As(err, &stageErr) {
		return false
	}

	return errors.Is(err, ErrRateLimited) ||
		errors.Is(err, ErrTimeout) ||
		errors.Is(err, ErrNetworkError) ||
		errors.Is(err, ErrServerError)
}

// IsTerminal reports whether an error can never succeed on retry.
func IsTerminal(err error) bool {
	if err == nil {
		return false
	}

	return errors.Is(err, ErrNoAPIKey) ||
		errors.Is(err, ErrInvalidInput) ||
		errors.Is(err, ErrPromptTooLarge) ||
		errors.Is(err, ErrNotIndexed) ||
		errors.Is(err, ErrChapterRange)
}
