package slr

import (
	"errors"
	"fmt"
	"strings"

	"google.golang.org/genai"
)

var (
	// ErrEmptyInput is returned when a run is requested with no usable input.
	ErrEmptyInput = errors.New("input is empty")
	// ErrRunInProgress is returned when a run is requested while another one is running.
	ErrRunInProgress = errors.New("a run is already in progress")
	// ErrRetriesExhausted is the fallback failure when retries end without a captured error.
	ErrRetriesExhausted = errors.New("failed after multiple retries")
	// ErrInvalidTransition is returned when a unit status would regress or skip a state.
	ErrInvalidTransition = errors.New("invalid status transition")
	// ErrUnknownUnit is returned for status updates on a unit the tracker does not know.
	ErrUnknownUnit = errors.New("unknown work unit")
	// ErrEmptyResponse is returned when the model answers without any text.
	ErrEmptyResponse = errors.New("model returned no text")
	// ErrNoRecognizableColumns is returned by ingestion when no record can be built.
	ErrNoRecognizableColumns = errors.New("no recognizable columns (expected id, title, abstract or description)")
	// ErrClientMissing is returned when the genai client is nil.
	ErrClientMissing = errors.New("client not initialized")
)

// InputError reports an empty or invalid run request. No run is started.
type InputError struct {
	Mode Mode
	Err  error
}

func (e *InputError) Error() string {
	return fmt.Sprintf("%s input: %v", e.Mode, e.Err)
}

func (e *InputError) Unwrap() error { return e.Err }

// RateLimitError marks a transient "slow down" answer from the model service.
// Invokers may return it directly; IsRateLimit also recognises genai API errors.
type RateLimitError struct {
	Err error
}

func (e *RateLimitError) Error() string {
	if e.Err == nil {
		return "rate limited"
	}
	return "rate limited: " + e.Err.Error()
}

func (e *RateLimitError) Unwrap() error { return e.Err }

// ModelError is the terminal failure of one work unit at the gateway.
type ModelError struct {
	Unit     string
	Attempts int
	Err      error
}

func (e *ModelError) Error() string {
	return fmt.Sprintf("model call for %s failed after %d attempt(s): %v", e.Unit, e.Attempts, e.Err)
}

func (e *ModelError) Unwrap() error { return e.Err }

// ParseError is returned by the export path when the accumulated markdown
// cannot be reshaped into a table. It never affects the in-progress table.
type ParseError struct {
	Lines  int
	Reason string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse table: %s (%d structural lines)", e.Reason, e.Lines)
}

// IngestionError is returned when a source file yields no records.
type IngestionError struct {
	Source string
	Err    error
}

func (e *IngestionError) Error() string {
	if e.Source == "" {
		return "ingest: " + e.Err.Error()
	}
	return fmt.Sprintf("ingest %s: %v", e.Source, e.Err)
}

func (e *IngestionError) Unwrap() error { return e.Err }

// IsRateLimit reports whether err signals that the caller must slow down:
// an explicit RateLimitError, a genai API error with HTTP 429 or
// RESOURCE_EXHAUSTED status, or an error message mentioning 429 or quota.
func IsRateLimit(err error) bool {
	if err == nil {
		return false
	}

	var rl *RateLimitError
	if errors.As(err, &rl) {
		return true
	}

	var apiErr genai.APIError
	if errors.As(err, &apiErr) && apiErrorIsRateLimit(apiErr) {
		return true
	}
	var apiErrPtr *genai.APIError
	if errors.As(err, &apiErrPtr) && apiErrPtr != nil && apiErrorIsRateLimit(*apiErrPtr) {
		return true
	}

	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "429") ||
		strings.Contains(msg, "quota") ||
		strings.Contains(msg, "rate limit") ||
		strings.Contains(msg, "resource_exhausted")
}

func apiErrorIsRateLimit(e genai.APIError) bool {
	return e.Code == 429 || strings.EqualFold(e.Status, "RESOURCE_EXHAUSTED")
}
