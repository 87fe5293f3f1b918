package domain

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// TaskStatus represents the processing state of an audiobook task
type TaskStatus string

// Possible task status values
const (
	TaskStatusPending           TaskStatus = "pending"
	TaskStatusProcessing        TaskStatus = "processing"
	TaskStatusCompleted         TaskStatus = "completed"
	TaskStatusFailed            TaskStatus = "failed"
	TaskStatusProcessingTimeout TaskStatus = "processing_timeout"
)

// transitions lists every legal status move. Completed and failed are terminal.
var transitions = map[TaskStatus][]TaskStatus{
	TaskStatusPending:           {TaskStatusProcessing, TaskStatusFailed},
	TaskStatusProcessing:        {TaskStatusCompleted, TaskStatusFailed, TaskStatusProcessingTimeout},
	TaskStatusProcessingTimeout: {TaskStatusPending},
	TaskStatusCompleted:         nil,
	TaskStatusFailed:            nil,
}

// Valid reports whether the status is one of the known values.
func (s TaskStatus) Valid() bool {
	_, ok := transitions[s]
	return ok
}

// Terminal reports whether no further transitions are possible.
func (s TaskStatus) Terminal() bool {
	return s == TaskStatusCompleted || s == TaskStatusFailed
}

// InFlight reports whether a task in this status still owns its fingerprint,
// i.e. a new submission for the same query must not start another run.
func (s TaskStatus) InFlight() bool {
	return s == TaskStatusPending || s == TaskStatusProcessing || s == TaskStatusProcessingTimeout
}

// CanTransitionTo reports whether moving from s to next is allowed.
func (s TaskStatus) CanTransitionTo(next TaskStatus) bool {
	for _, allowed := range transitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// Task is one durable pipeline record: a user query being turned into a
// spoken summary. Only the pipeline orchestrator mutates it.
type Task struct {
	ID          uuid.UUID  `json:"id"`
	Query       string     `json:"query"`
	Fingerprint string     `json:"fingerprint"`
	Status      TaskStatus `json:"status"`
	Result      *Result    `json:"result,omitempty"`
	Error       string     `json:"error,omitempty"`

	// Metadata surfaced by the model, kept on failure as well.
	Determinable *bool  `json:"determinable,omitempty"`
	Title        string `json:"title,omitempty"`
	Author       string `json:"author,omitempty"`

	// ChatID is the chat to notify when the task finishes; zero means none.
	ChatID int64 `json:"chat_id,omitempty"`

	Attempts    int        `json:"attempts"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

// NewTask creates a pending task for the given query.
// Returns ErrInvalidInput if the query is empty after trimming.
func NewTask(query string, chatID int64) (*Task, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, fmt.Errorf("%w: query cannot be empty", ErrInvalidInput)
	}

	now := time.Now().UTC()
	task := &Task{
		ID:          uuid.New(),
		Query:       query,
		Fingerprint: Normalize(query),
		Status:      TaskStatusPending,
		ChatID:      chatID,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := task.Validate(); err != nil {
		return nil, err
	}
	return task, nil
}

// Validate checks if the Task has valid data.
func (t *Task) Validate() error {
	if t.ID == uuid.Nil {
		return fmt.Errorf("%w: task ID cannot be empty", ErrValidation)
	}
	if t.Fingerprint == "" {
		return fmt.Errorf("%w: fingerprint cannot be empty", ErrValidation)
	}
	if !t.Status.Valid() {
		return ErrInvalidTaskStatus
	}
	if t.Status == TaskStatusCompleted && t.Result == nil {
		return fmt.Errorf("%w: completed task must carry a result", ErrValidation)
	}
	return nil
}

func (t *Task) transition(next TaskStatus) error {
	if !t.Status.CanTransitionTo(next) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, t.Status, next)
	}
	t.Status = next
	t.UpdatedAt = time.Now().UTC()
	return nil
}

// Start moves a pending task to processing and counts the attempt.
func (t *Task) Start() error {
	if err := t.transition(TaskStatusProcessing); err != nil {
		return err
	}
	t.Attempts++
	t.Error = ""
	return nil
}

// Complete records the result of a successful run.
func (t *Task) Complete(result Result) error {
	if err := t.transition(TaskStatusCompleted); err != nil {
		return err
	}
	t.Result = &result
	t.Title = result.Title
	t.Author = result.Author
	t.Error = ""
	completedAt := t.UpdatedAt
	t.CompletedAt = &completedAt
	return nil
}

// Fail records a terminal failure with a human-readable reason.
func (t *Task) Fail(reason string) error {
	if err := t.transition(TaskStatusFailed); err != nil {
		return err
	}
	t.Error = reason
	return nil
}

// TimeOut parks the task after an upstream deadline; it stays eligible for retry.
func (t *Task) TimeOut(reason string) error {
	if err := t.transition(TaskStatusProcessingTimeout); err != nil {
		return err
	}
	t.Error = reason
	return nil
}

// Requeue moves a timed-out task back to pending so it can run again.
func (t *Task) Requeue() error {
	return t.transition(TaskStatusPending)
}

// ApplySummaryMetadata copies the model's metadata onto the task.
func (t *Task) ApplySummaryMetadata(record SummaryRecord) {
	determinable := record.Determinable
	t.Determinable = &determinable
	if record.Title != "" {
		t.Title = record.Title
	}
	if record.Author != "" {
		t.Author = record.Author
	}
}

// FreshFor reports whether a completed task is recent enough to be reused
// as a cached result.
func (t *Task) FreshFor(ttl time.Duration, now time.Time) bool {
	if t.Status != TaskStatusCompleted || t.Result == nil || t.CompletedAt == nil {
		return false
	}
	return now.Sub(*t.CompletedAt) < ttl
}
