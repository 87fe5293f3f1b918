package service

import (
	"errors"
	"fmt"

	"github.com/phrazzld/audiobrief/internal/domain"
	"github.com/phrazzld/audiobrief/internal/store"
)

// Service sentinel errors. The API layer maps them to status codes with
// errors.Is, so callers should never compare error strings.
var (
	// ErrTaskNotFound is returned when a reference matches neither a task ID
	// nor a known query. API layer maps this to HTTP 404.
	ErrTaskNotFound = errors.New("audiobook task not found")

	// ErrNotRetryable is returned by Retry for tasks that are running or
	// already finished. It wraps domain.ErrInvalidTransition.
	// API layer maps this to HTTP 409.
	ErrNotRetryable = fmt.Errorf("%w: audiobook task cannot be retried", domain.ErrInvalidTransition)
)

// AudiobookServiceError wraps unexpected errors from the audiobook service
// with the operation that failed.
type AudiobookServiceError struct {
	// Operation is the operation that failed (e.g. "submit", "status")
	Operation string
	// Message is a human-readable description of the error
	Message string
	// Err is the underlying error that caused the failure
	Err error
}

// Error implements the error interface.
func (e *AudiobookServiceError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("audiobook service %s failed: %s: %v", e.Operation, e.Message, e.Err)
	}
	return fmt.Sprintf("audiobook service %s failed: %s", e.Operation, e.Message)
}

// Unwrap returns the wrapped error to support errors.Is/errors.As.
func (e *AudiobookServiceError) Unwrap() error {
	return e.Err
}

// NewAudiobookServiceError wraps err for the given operation. Known sentinel
// errors are returned directly so callers can match them.
func NewAudiobookServiceError(operation, message string, err error) error {
	if err == nil {
		return nil
	}

	switch {
	case errors.Is(err, ErrTaskNotFound), errors.Is(err, store.ErrTaskNotFound):
		return ErrTaskNotFound
	case errors.Is(err, ErrNotRetryable), errors.Is(err, domain.ErrInvalidInput):
		return err
	}

	return &AudiobookServiceError{
		Operation: operation,
		Message:   message,
		Err:       err,
	}
}
