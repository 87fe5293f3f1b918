package events

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/audiobrief/internal/domain"
)

// Task event types.
const (
	TypeTaskCompleted = "task.completed"
	TypeTaskFailed    = "task.failed"
)

// TaskEvent describes a task that has just reached a terminal status.
// It is a snapshot; handlers must not assume the task is unchanged since.
type TaskEvent struct {
	// ID is a unique identifier for this event
	ID uuid.UUID `json:"id"`

	// Type is TypeTaskCompleted or TypeTaskFailed
	Type string `json:"type"`

	TaskID      uuid.UUID         `json:"task_id"`
	Query       string            `json:"query"`
	Fingerprint string            `json:"fingerprint"`
	Status      domain.TaskStatus `json:"status"`
	Result      *domain.Result    `json:"result,omitempty"`
	Error       string            `json:"error,omitempty"`
	Title       string            `json:"title,omitempty"`
	Author      string            `json:"author,omitempty"`

	// ChatID is the chat that asked for the task; zero means none.
	ChatID int64 `json:"chat_id,omitempty"`

	CreatedAt time.Time `json:"created_at"`
}

// NewTaskEvent builds the event for a terminal task.
func NewTaskEvent(task *domain.Task) (*TaskEvent, error) {
	var eventType string
	switch task.Status {
	case domain.TaskStatusCompleted:
		eventType = TypeTaskCompleted
	case domain.TaskStatusFailed:
		eventType = TypeTaskFailed
	default:
		return nil, fmt.Errorf("no event for task %s in status %s", task.ID, task.Status)
	}

	event := &TaskEvent{
		ID:          uuid.New(),
		Type:        eventType,
		TaskID:      task.ID,
		Query:       task.Query,
		Fingerprint: task.Fingerprint,
		Status:      task.Status,
		Error:       task.Error,
		Title:       task.Title,
		Author:      task.Author,
		ChatID:      task.ChatID,
		CreatedAt:   time.Now().UTC(),
	}
	if task.Result != nil {
		result := *task.Result
		event.Result = &result
	}
	return event, nil
}

// EventHandler defines an interface for components that can handle events.
type EventHandler interface {
	// HandleEvent processes the given event within the provided context.
	// Returns an error if the event cannot be handled successfully.
	HandleEvent(ctx context.Context, event *TaskEvent) error
}

// HandlerFunc adapts an ordinary function to EventHandler.
type HandlerFunc func(ctx context.Context, event *TaskEvent) error

// HandleEvent calls f(ctx, event).
func (f HandlerFunc) HandleEvent(ctx context.Context, event *TaskEvent) error {
	return f(ctx, event)
}

// EventEmitter defines an interface for components that can emit events.
// This allows the pipeline to publish events without direct knowledge of handlers.
type EventEmitter interface {
	// EmitEvent publishes the given event to all registered handlers.
	EmitEvent(ctx context.Context, event *TaskEvent) error
}
