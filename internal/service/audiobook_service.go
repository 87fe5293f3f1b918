package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/audiobrief/internal/domain"
	"github.com/phrazzld/audiobrief/internal/store"
	"github.com/phrazzld/audiobrief/internal/task"
	"golang.org/x/sync/singleflight"
)

// Enqueuer hands a persisted pending task to the background runner.
type Enqueuer interface {
	Enqueue(taskID uuid.UUID) error
}

// SubmitRequest is a request to turn a query into an audio summary.
type SubmitRequest struct {
	Query string
	// ChatID is the chat to notify on completion; zero uses the default.
	// Only the submission that creates the task records its chat. A request
	// that joins an in-flight task or a concurrent submission is not notified.
	ChatID int64
}

// TaskHandle is what a submitter gets back. Cached handles carry the result
// and need no background work; TaskID is uuid.Nil when the result came
// straight from the cache.
type TaskHandle struct {
	TaskID uuid.UUID
	Status domain.TaskStatus
	Result *domain.Result
	Cached bool
}

// TaskSnapshot is a read-only view of a task for status queries.
type TaskSnapshot struct {
	TaskID       uuid.UUID
	Query        string
	Status       domain.TaskStatus
	Result       *domain.Result
	Error        string
	Title        string
	Author       string
	Determinable *bool
	Attempts     int
	Cached       bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// AudiobookService accepts submissions, answers status queries and exposes
// the retry triggers for parked tasks.
type AudiobookService struct {
	tasks    store.TaskStore
	cache    store.ResultCache
	queue    Enqueuer
	cacheTTL time.Duration
	logger   *slog.Logger

	// group collapses concurrent submissions of one fingerprint.
	group singleflight.Group
}

// NewAudiobookService creates an AudiobookService. cache may be nil, in
// which case only completed tasks younger than cacheTTL are reused.
func NewAudiobookService(
	tasks store.TaskStore,
	cache store.ResultCache,
	queue Enqueuer,
	cacheTTL time.Duration,
	logger *slog.Logger,
) (*AudiobookService, error) {
	if tasks == nil {
		return nil, &AudiobookServiceError{Operation: "create_service", Message: "task store cannot be nil"}
	}
	if queue == nil {
		return nil, &AudiobookServiceError{Operation: "create_service", Message: "queue cannot be nil"}
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &AudiobookService{
		tasks:    tasks,
		cache:    cache,
		queue:    queue,
		cacheTTL: cacheTTL,
		logger:   logger.With("component", "audiobook_service"),
	}, nil
}

// Submit returns a handle for the query. A fresh result is returned as a
// cached handle; an in-flight task for the same fingerprint is joined;
// otherwise a new pending task is created and queued. Concurrent identical
// submissions share a single lookup and at most one new task.
func (s *AudiobookService) Submit(ctx context.Context, req SubmitRequest) (*TaskHandle, error) {
	query := strings.TrimSpace(req.Query)
	fingerprint := domain.Normalize(query)
	if fingerprint == "" {
		return nil, fmt.Errorf("%w: query cannot be empty", domain.ErrInvalidInput)
	}

	// The leader's cancellation must not fail the callers sharing its result.
	sharedCtx := context.WithoutCancel(ctx)
	v, err, shared := s.group.Do(fingerprint, func() (any, error) {
		return s.submit(sharedCtx, query, fingerprint, req.ChatID)
	})
	if err != nil {
		s.logger.Error("submission failed", "fingerprint", fingerprint, "error", err)
		return nil, NewAudiobookServiceError("submit", "failed to submit query", err)
	}
	if shared {
		s.logger.Debug("joined concurrent submission", "fingerprint", fingerprint)
	}

	handle := *v.(*TaskHandle)
	return &handle, nil
}

func (s *AudiobookService) submit(
	ctx context.Context,
	query, fingerprint string,
	chatID int64,
) (*TaskHandle, error) {
	log := s.logger.With("fingerprint", fingerprint)

	if result, ok := s.cachedResult(ctx, fingerprint, log); ok {
		log.Info("serving cached result")
		return &TaskHandle{Status: domain.TaskStatusCompleted, Result: result, Cached: true}, nil
	}

	latest, err := s.tasks.GetLatestByFingerprint(ctx, fingerprint)
	switch {
	case errors.Is(err, store.ErrTaskNotFound):
	case err != nil:
		return nil, fmt.Errorf("look up task for fingerprint: %w", err)
	case latest.FreshFor(s.cacheTTL, time.Now().UTC()):
		log.Info("serving recent completed task", "task_id", latest.ID)
		s.backfillCache(ctx, latest, log)
		return &TaskHandle{
			TaskID: latest.ID,
			Status: domain.TaskStatusCompleted,
			Result: latest.Result,
			Cached: true,
		}, nil
	case latest.Status.InFlight():
		return s.join(ctx, latest, log)
	}

	t, err := domain.NewTask(query, chatID)
	if err != nil {
		return nil, err
	}
	if err := s.tasks.Create(ctx, t); err != nil {
		if !errors.Is(err, store.ErrDuplicate) {
			return nil, fmt.Errorf("create task: %w", err)
		}
		// Another process won the race for this fingerprint.
		active, getErr := s.tasks.GetActiveByFingerprint(ctx, fingerprint)
		if getErr != nil {
			return nil, fmt.Errorf("re-read task after duplicate insert: %w", getErr)
		}
		return s.join(ctx, active, log)
	}

	log.Info("task created", "task_id", t.ID)
	s.enqueue(t.ID, log)
	return handleFor(t), nil
}

// join returns the handle of an in-flight task. A task parked in
// processing_timeout is moved back to pending and queued again.
func (s *AudiobookService) join(ctx context.Context, t *domain.Task, log *slog.Logger) (*TaskHandle, error) {
	if t.Status != domain.TaskStatusProcessingTimeout {
		log.Info("joining in-flight task", "task_id", t.ID, "status", t.Status)
		return handleFor(t), nil
	}

	requeued, err := s.requeue(ctx, t.ID)
	if err != nil {
		return nil, err
	}
	log.Info("resubmission requeued timed out task", "task_id", t.ID)
	return handleFor(requeued), nil
}

// requeue moves a processing_timeout task back to pending and queues it.
// A task that is already pending is only queued again.
func (s *AudiobookService) requeue(ctx context.Context, taskID uuid.UUID) (*domain.Task, error) {
	t, err := s.tasks.Mutate(ctx, taskID, func(t *domain.Task) error {
		switch t.Status {
		case domain.TaskStatusProcessingTimeout:
			return t.Requeue()
		case domain.TaskStatusPending:
			return nil
		default:
			return fmt.Errorf("%w: task is %s", ErrNotRetryable, t.Status)
		}
	})
	if err != nil {
		return nil, err
	}
	s.enqueue(t.ID, s.logger)
	return t, nil
}

func (s *AudiobookService) enqueue(taskID uuid.UUID, log *slog.Logger) {
	err := s.queue.Enqueue(taskID)
	switch {
	case err == nil:
	case errors.Is(err, task.ErrQueueFull):
		log.Warn("queue full, task left pending for the monitor", "task_id", taskID)
	default:
		log.Error("failed to enqueue task", "task_id", taskID, "error", err)
	}
}

func (s *AudiobookService) cachedResult(
	ctx context.Context,
	fingerprint string,
	log *slog.Logger,
) (*domain.Result, bool) {
	if s.cache == nil {
		return nil, false
	}
	result, err := s.cache.Get(ctx, fingerprint)
	if err != nil {
		if !errors.Is(err, store.ErrCacheMiss) {
			log.Warn("cache lookup failed, falling back to the store", "error", err)
		}
		return nil, false
	}
	return result, true
}

// backfillCache restores an entry the cache lost, for the rest of its TTL.
func (s *AudiobookService) backfillCache(ctx context.Context, t *domain.Task, log *slog.Logger) {
	if s.cache == nil || t.CompletedAt == nil {
		return
	}
	remaining := s.cacheTTL - time.Since(*t.CompletedAt)
	if remaining <= 0 {
		return
	}
	if err := s.cache.Set(ctx, t.Fingerprint, *t.Result, remaining); err != nil {
		log.Warn("failed to backfill cache", "error", err)
	}
}

// Status looks a task up by reference: a UUID is a task ID, anything else
// is treated as a query and resolved through the cache and then the latest
// task for its fingerprint.
func (s *AudiobookService) Status(ctx context.Context, ref string) (*TaskSnapshot, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return nil, fmt.Errorf("%w: reference cannot be empty", domain.ErrInvalidInput)
	}

	if id, err := uuid.Parse(ref); err == nil {
		t, err := s.tasks.GetByID(ctx, id)
		if err != nil {
			return nil, NewAudiobookServiceError("status", "failed to load task", err)
		}
		return snapshotFor(t), nil
	}

	fingerprint := domain.Normalize(ref)
	log := s.logger.With("fingerprint", fingerprint)
	if result, ok := s.cachedResult(ctx, fingerprint, log); ok {
		return &TaskSnapshot{
			Query:  ref,
			Status: domain.TaskStatusCompleted,
			Result: result,
			Title:  result.Title,
			Author: result.Author,
			Cached: true,
		}, nil
	}

	t, err := s.tasks.GetLatestByFingerprint(ctx, fingerprint)
	if err != nil {
		return nil, NewAudiobookServiceError("status", "failed to load task by query", err)
	}
	return snapshotFor(t), nil
}

// Retry is the external retry trigger for a single task. A task parked in
// processing_timeout goes back to pending; a pending task is queued again.
// Any other status yields ErrNotRetryable.
func (s *AudiobookService) Retry(ctx context.Context, taskID uuid.UUID) (*TaskSnapshot, error) {
	t, err := s.requeue(ctx, taskID)
	if err != nil {
		return nil, NewAudiobookServiceError("retry", "failed to retry task", err)
	}
	s.logger.Info("task retried", "task_id", taskID)
	return snapshotFor(t), nil
}

// ContinueProcessing requeues every task parked in processing_timeout and
// returns how many were requeued.
func (s *AudiobookService) ContinueProcessing(ctx context.Context) (int, error) {
	parked, err := s.tasks.ListByStatus(ctx, domain.TaskStatusProcessingTimeout, 0)
	if err != nil {
		return 0, NewAudiobookServiceError("continue_processing", "failed to list timed out tasks", err)
	}

	requeued := 0
	for _, t := range parked {
		if _, err := s.requeue(ctx, t.ID); err != nil {
			// Someone else moved it in the meantime.
			if errors.Is(err, ErrNotRetryable) || errors.Is(err, store.ErrTaskNotFound) {
				continue
			}
			return requeued, NewAudiobookServiceError("continue_processing", "failed to requeue task", err)
		}
		requeued++
	}

	s.logger.Info("continued processing of timed out tasks", "found", len(parked), "requeued", requeued)
	return requeued, nil
}

func handleFor(t *domain.Task) *TaskHandle {
	return &TaskHandle{
		TaskID: t.ID,
		Status: t.Status,
		Result: t.Result,
	}
}

func snapshotFor(t *domain.Task) *TaskSnapshot {
	return &TaskSnapshot{
		TaskID:       t.ID,
		Query:        t.Query,
		Status:       t.Status,
		Result:       t.Result,
		Error:        t.Error,
		Title:        t.Title,
		Author:       t.Author,
		Determinable: t.Determinable,
		Attempts:     t.Attempts,
		CreatedAt:    t.CreatedAt,
		UpdatedAt:    t.UpdatedAt,
	}
}
