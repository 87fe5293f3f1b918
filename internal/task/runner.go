package task

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/audiobrief/internal/domain"
	"github.com/phrazzld/audiobrief/internal/platform/logger"
	"github.com/phrazzld/audiobrief/internal/store"
)

// TaskRunnerConfig holds configuration for the task runner
type TaskRunnerConfig struct {
	// WorkerCount determines how many concurrent workers process tasks
	WorkerCount int

	// QueueSize determines the buffer size for the in-memory task queue
	QueueSize int

	// StuckTaskAge defines how long a task can sit in processing (or in
	// pending without being picked up) before the monitor acts on it
	StuckTaskAge time.Duration

	// StuckTaskCheckInterval defines how often to check for stuck tasks
	// If zero, defaults to 1 minute
	StuckTaskCheckInterval time.Duration
}

// DefaultTaskRunnerConfig returns a TaskRunnerConfig with reasonable defaults
func DefaultTaskRunnerConfig() TaskRunnerConfig {
	return TaskRunnerConfig{
		WorkerCount:            2,
		QueueSize:              100,
		StuckTaskAge:           30 * time.Minute,
		StuckTaskCheckInterval: time.Minute,
	}
}

// TaskRunner manages background task processing
type TaskRunner struct {
	store     store.TaskStore
	processor Processor
	queue     *TaskQueue
	pool      *WorkerPool
	config    TaskRunnerConfig
	logger    *slog.Logger

	mu       sync.Mutex
	inFlight map[uuid.UUID]struct{}

	ctx        context.Context
	cancelFunc context.CancelFunc
	wg         sync.WaitGroup
	stopOnce   sync.Once
}

// NewTaskRunner creates a new TaskRunner
func NewTaskRunner(
	taskStore store.TaskStore,
	processor Processor,
	config TaskRunnerConfig,
	logger *slog.Logger,
) *TaskRunner {
	if config.StuckTaskCheckInterval <= 0 {
		config.StuckTaskCheckInterval = time.Minute
	}
	if config.StuckTaskAge <= 0 {
		config.StuckTaskAge = DefaultTaskRunnerConfig().StuckTaskAge
	}

	logger = logger.With("component", "task_runner")
	ctx, cancel := context.WithCancel(context.Background())

	r := &TaskRunner{
		store:      taskStore,
		processor:  processor,
		queue:      NewTaskQueue(config.QueueSize, logger),
		config:     config,
		logger:     logger,
		inFlight:   make(map[uuid.UUID]struct{}),
		ctx:        ctx,
		cancelFunc: cancel,
	}
	r.pool = NewWorkerPool(r.queue, r.execute, WorkerPoolConfig{WorkerCount: config.WorkerCount}, logger)
	return r
}

// Enqueue schedules a task that is already persisted as pending. On
// ErrQueueFull the task stays pending and the monitor picks it up later.
func (r *TaskRunner) Enqueue(taskID uuid.UUID) error {
	return r.queue.Enqueue(taskID)
}

// Start recovers unfinished tasks, then starts the workers and the monitor.
func (r *TaskRunner) Start() error {
	if err := r.Recover(r.ctx); err != nil {
		return fmt.Errorf("failed to recover tasks: %w", err)
	}

	r.pool.Start()

	r.wg.Add(1)
	go r.stuckTaskMonitor()

	return nil
}

// Stop gracefully shuts down the task runner. Tasks already running finish;
// queued ones stay pending in the store.
func (r *TaskRunner) Stop() {
	r.stopOnce.Do(func() {
		r.cancelFunc()
		r.wg.Wait()
		r.pool.Stop()
		r.queue.Close()
	})
}

// Recover re-queues pending tasks and parks processing tasks left over from a
// previous process as processing_timeout, where a retry can pick them up.
func (r *TaskRunner) Recover(ctx context.Context) error {
	pendingTasks, err := r.store.ListByStatus(ctx, domain.TaskStatusPending, 0)
	if err != nil {
		return fmt.Errorf("failed to get pending tasks: %w", err)
	}

	processingTasks, err := r.store.ListByStatus(ctx, domain.TaskStatusProcessing, 0)
	if err != nil {
		return fmt.Errorf("failed to get processing tasks: %w", err)
	}

	r.logger.Info("recovering unfinished tasks",
		"pending_count", len(pendingTasks),
		"processing_count", len(processingTasks))

	for _, t := range pendingTasks {
		r.requeue(t.ID, "pending task recovered")
	}

	for _, t := range processingTasks {
		r.timeOut(ctx, t.ID, "interrupted by restart")
	}

	return nil
}

// execute is the worker pool's HandleFunc. It guarantees a task ID never runs
// twice at the same time within this runner.
func (r *TaskRunner) execute(ctx context.Context, taskID uuid.UUID) error {
	if !r.claim(taskID) {
		r.logger.Debug("task already running, dropping duplicate queue entry", "task_id", taskID)
		return nil
	}
	defer r.release(taskID)

	ctx = logger.WithLogger(ctx, r.logger.With("task_id", taskID))
	return r.processor.Process(ctx, taskID)
}

func (r *TaskRunner) claim(taskID uuid.UUID) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.inFlight[taskID]; ok {
		return false
	}
	r.inFlight[taskID] = struct{}{}
	return true
}

func (r *TaskRunner) release(taskID uuid.UUID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.inFlight, taskID)
}

// Running reports whether a worker of this runner is processing taskID.
func (r *TaskRunner) Running(taskID uuid.UUID) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.inFlight[taskID]
	return ok
}

// stuckTaskMonitor periodically sweeps tasks that stalled.
func (r *TaskRunner) stuckTaskMonitor() {
	defer r.wg.Done()

	ticker := time.NewTicker(r.config.StuckTaskCheckInterval)
	defer ticker.Stop()

	for {
		select {
		case <-r.ctx.Done():
			return
		case <-ticker.C:
			r.checkStuckTasks(r.ctx)
		}
	}
}

// checkStuckTasks parks processing tasks older than StuckTaskAge as
// processing_timeout and re-queues pending tasks that nobody picked up.
// Tasks a local worker is still running are left alone.
func (r *TaskRunner) checkStuckTasks(ctx context.Context) {
	stuck, err := r.store.ListByStatus(ctx, domain.TaskStatusProcessing, r.config.StuckTaskAge)
	if err != nil {
		r.logger.Error("failed to check for stuck tasks", "error", err)
	} else {
		for _, t := range stuck {
			if r.Running(t.ID) {
				continue
			}
			r.timeOut(ctx, t.ID, fmt.Sprintf("processing exceeded %s", r.config.StuckTaskAge))
		}
	}

	orphaned, err := r.store.ListByStatus(ctx, domain.TaskStatusPending, r.config.StuckTaskAge)
	if err != nil {
		r.logger.Error("failed to check for orphaned pending tasks", "error", err)
		return
	}
	for _, t := range orphaned {
		if r.Running(t.ID) {
			continue
		}
		r.requeue(t.ID, "orphaned pending task requeued")
	}
}

func (r *TaskRunner) requeue(taskID uuid.UUID, msg string) {
	if err := r.queue.Enqueue(taskID); err != nil {
		r.logger.Error("failed to requeue task", "task_id", taskID, "error", err)
		return
	}
	r.logger.Info(msg, "task_id", taskID)
}

func (r *TaskRunner) timeOut(ctx context.Context, taskID uuid.UUID, reason string) {
	_, err := r.store.Mutate(ctx, taskID, func(t *domain.Task) error {
		return t.TimeOut(reason)
	})
	if err != nil {
		r.logger.Error("failed to mark task as timed out",
			"task_id", taskID,
			"error", err)
		return
	}
	r.logger.Warn("task marked processing_timeout", "task_id", taskID, "reason", reason)
}
