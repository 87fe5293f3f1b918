package store

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/audiobrief/internal/domain"
)

// TaskStore persists audiobook tasks. The store is the source of truth for
// task status; every other view of a task is derived from it.
type TaskStore interface {
	// Create inserts a new task. It returns ErrDuplicate if an in-flight task
	// (pending, processing or processing_timeout) already holds the fingerprint.
	Create(ctx context.Context, task *domain.Task) error

	// GetByID returns ErrTaskNotFound when no task has the given ID.
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Task, error)

	// GetActiveByFingerprint returns the in-flight task for a fingerprint, or
	// ErrTaskNotFound.
	GetActiveByFingerprint(ctx context.Context, fingerprint string) (*domain.Task, error)

	// GetLatestByFingerprint returns the most recently created task for a
	// fingerprint regardless of status, or ErrTaskNotFound.
	GetLatestByFingerprint(ctx context.Context, fingerprint string) (*domain.Task, error)

	// Update persists status, error, result and metadata of an existing task.
	// It returns ErrTaskNotFound if the row no longer exists.
	Update(ctx context.Context, task *domain.Task) error

	// Mutate loads a task, applies fn and persists the result atomically.
	// If fn returns an error nothing is written and the error is returned.
	Mutate(ctx context.Context, id uuid.UUID, fn func(task *domain.Task) error) (*domain.Task, error)

	// ListByStatus returns tasks in the given status whose last update is
	// older than olderThan, oldest first. A zero olderThan returns all.
	ListByStatus(ctx context.Context, status domain.TaskStatus, olderThan time.Duration) ([]*domain.Task, error)
}

// ResultCache stores completed results by fingerprint. It is derived state:
// implementations may lose entries at any time.
type ResultCache interface {
	// Get returns ErrCacheMiss when no live entry exists.
	Get(ctx context.Context, fingerprint string) (*domain.Result, error)

	// Set stores result with the given time to live.
	Set(ctx context.Context, fingerprint string, result domain.Result, ttl time.Duration) error
}
