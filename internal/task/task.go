package task

import (
	"context"

	"github.com/google/uuid"
)

// Processor executes one task. Implementations record the outcome on the
// task itself; a returned error means the outcome could not be recorded.
type Processor interface {
	Process(ctx context.Context, taskID uuid.UUID) error
}

// ProcessorFunc adapts a function to Processor.
type ProcessorFunc func(ctx context.Context, taskID uuid.UUID) error

// Process calls f(ctx, taskID).
func (f ProcessorFunc) Process(ctx context.Context, taskID uuid.UUID) error {
	return f(ctx, taskID)
}

// Synthesizer turns text into MP3 bytes.
type Synthesizer interface {
	Synthesize(ctx context.Context, text, voice string) ([]byte, error)
}

// ArtifactStore uploads a finished audio file and returns its public URL.
type ArtifactStore interface {
	Upload(ctx context.Context, path string, data []byte) (string, error)
}

// TaskQueueReader provides read-only access to the task channel
// allowing workers to consume task IDs without the ability to enqueue
type TaskQueueReader interface {
	// GetChannel returns a read-only channel for consuming task IDs
	GetChannel() <-chan uuid.UUID
}

// TaskQueueWriter provides write access to the task queue
type TaskQueueWriter interface {
	// Enqueue adds a task ID to the queue for processing
	// Returns an error if the queue is full or closed
	Enqueue(taskID uuid.UUID) error

	// Close closes the task queue, preventing further task submission
	Close()
}
