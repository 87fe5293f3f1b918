package mocks

import (
	"sync"

	"github.com/google/uuid"
)

// MockEnqueuer records enqueued task IDs.
type MockEnqueuer struct {
	EnqueueFn func(taskID uuid.UUID) error

	mu  sync.Mutex
	ids []uuid.UUID
}

// Enqueue implements service.Enqueuer.
func (m *MockEnqueuer) Enqueue(taskID uuid.UUID) error {
	m.mu.Lock()
	m.ids = append(m.ids, taskID)
	m.mu.Unlock()

	if m.EnqueueFn != nil {
		return m.EnqueueFn(taskID)
	}
	return nil
}

// IDs returns the enqueued task IDs in order.
func (m *MockEnqueuer) IDs() []uuid.UUID {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]uuid.UUID(nil), m.ids...)
}
