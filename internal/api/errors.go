package api

import (
	"errors"
	"net/http"

	"github.com/phrazzld/audiobrief/internal/api/shared"
	"github.com/phrazzld/audiobrief/internal/domain"
	"github.com/phrazzld/audiobrief/internal/service"
	"github.com/phrazzld/audiobrief/internal/store"
	"github.com/phrazzld/audiobrief/internal/task"
)

// MapErrorToStatusCode maps internal errors to HTTP status codes. It is the
// only place where that mapping happens.
func MapErrorToStatusCode(err error) int {
	switch {
	case errors.Is(err, domain.ErrInvalidInput),
		errors.Is(err, domain.ErrValidation),
		errors.Is(err, domain.ErrInvalidID),
		errors.Is(err, store.ErrInvalidEntity):
		return http.StatusBadRequest

	case errors.Is(err, service.ErrTaskNotFound),
		errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound

	case errors.Is(err, service.ErrNotRetryable),
		errors.Is(err, domain.ErrInvalidTransition):
		return http.StatusConflict

	case errors.Is(err, task.ErrQueueClosed):
		return http.StatusServiceUnavailable

	default:
		return http.StatusInternalServerError
	}
}

// GetSafeErrorMessage returns a client-facing message that never includes
// internal details.
func GetSafeErrorMessage(err error) string {
	switch {
	case err == nil:
		return "An unexpected error occurred"
	case errors.Is(err, domain.ErrInvalidInput):
		return "Query must not be empty"
	case errors.Is(err, domain.ErrInvalidID):
		return "Invalid task ID"
	case errors.Is(err, domain.ErrValidation),
		errors.Is(err, store.ErrInvalidEntity):
		return "Invalid request"
	case errors.Is(err, service.ErrTaskNotFound),
		errors.Is(err, store.ErrNotFound):
		return "Audiobook task not found"
	case errors.Is(err, service.ErrNotRetryable),
		errors.Is(err, domain.ErrInvalidTransition):
		return "Task cannot be retried in its current state"
	case errors.Is(err, task.ErrQueueClosed):
		return "Service is shutting down"
	default:
		return "An unexpected error occurred"
	}
}

// HandleAPIError writes the mapped status and safe message for err and logs
// the redacted details. A non-empty message overrides the safe message.
func HandleAPIError(w http.ResponseWriter, r *http.Request, err error, message string) {
	if message == "" {
		message = GetSafeErrorMessage(err)
	}
	shared.RespondWithErrorAndLog(w, r, MapErrorToStatusCode(err), message, err)
}
