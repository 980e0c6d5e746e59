package service

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidInput is returned when input validation fails.
	ErrInvalidInput = errors.New("invalid input")
	// ErrNotFound is returned when a requested resource is not found.
	ErrNotFound = errors.New("not found")
	// ErrModelUnavailable is returned when an embedding or language model backend
	// is unreachable or not initialized. Fatal for the current operation; the
	// caller may retry later.
	ErrModelUnavailable = errors.New("model backend unavailable")
	// ErrNoContent is returned when an ingested source is empty or whitespace-only.
	ErrNoContent = errors.New("no content")
)

// ValidationError represents a validation error with a field name.
// It is a client error and is never retried.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error on field %s: %s", e.Field, e.Message)
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrInvalidInput
}

// IngestionError wraps a failure processing one source. It carries the source
// identifier and the cause, and never aborts sibling sources in a batch.
type IngestionError struct {
	SourceID string
	Err      error
}

func (e *IngestionError) Error() string {
	return fmt.Sprintf("ingestion failed for source %s: %v", e.SourceID, e.Err)
}

func (e *IngestionError) Unwrap() error {
	return e.Err
}

// ModelUnavailable wraps a cause with ErrModelUnavailable so callers can match
// on the sentinel while operators keep the detail.
func ModelUnavailable(cause error) error {
	if cause == nil {
		return ErrModelUnavailable
	}
	return fmt.Errorf("%w: %v", ErrModelUnavailable, cause)
}

// WrapError wraps an error with additional context.
func WrapError(err error, msg string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", msg, err)
}
