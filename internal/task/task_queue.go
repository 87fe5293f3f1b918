package task

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"
)

// Common errors returned by the TaskQueue
var (
	ErrQueueClosed = errors.New("task queue is closed")
	ErrQueueFull   = errors.New("task queue is full")
)

// TaskQueue is a bounded, non-blocking queue of task IDs that satisfies both
// TaskQueueReader and TaskQueueWriter.
type TaskQueue struct {
	mu     sync.Mutex
	tasks  chan uuid.UUID
	logger *slog.Logger
	closed bool
}

// NewTaskQueue creates a new task queue with the specified buffer size
func NewTaskQueue(size int, logger *slog.Logger) *TaskQueue {
	if size <= 0 {
		size = 1
	}
	return &TaskQueue{
		tasks:  make(chan uuid.UUID, size),
		logger: logger,
	}
}

// Enqueue adds a task ID to the queue without blocking.
func (q *TaskQueue) Enqueue(taskID uuid.UUID) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return ErrQueueClosed
	}

	select {
	case q.tasks <- taskID:
		q.logger.Debug("task enqueued",
			"task_id", taskID,
			"queue_len", len(q.tasks),
			"queue_cap", cap(q.tasks))
		return nil
	default:
		return fmt.Errorf("%w: queue capacity %d reached", ErrQueueFull, cap(q.tasks))
	}
}

// Close closes the task queue, preventing further task submission
func (q *TaskQueue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()

	if !q.closed {
		q.closed = true
		close(q.tasks)
		q.logger.Info("task queue closed")
	}
}

// GetChannel returns a read-only channel for consuming task IDs
func (q *TaskQueue) GetChannel() <-chan uuid.UUID {
	return q.tasks
}

// Len reports how many task IDs are waiting.
func (q *TaskQueue) Len() int {
	return len(q.tasks)
}
