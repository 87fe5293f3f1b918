package mocks

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/audiobrief/internal/domain"
	"github.com/phrazzld/audiobrief/internal/store"
)

// MockTaskStore is an in-memory store.TaskStore. It enforces the one
// in-flight task per fingerprint rule the database index enforces.
type MockTaskStore struct {
	CreateFn       func(ctx context.Context, task *domain.Task) error
	GetByIDFn      func(ctx context.Context, id uuid.UUID) (*domain.Task, error)
	UpdateFn       func(ctx context.Context, task *domain.Task) error
	MutateFn       func(ctx context.Context, id uuid.UUID, fn func(*domain.Task) error) (*domain.Task, error)
	ListByStatusFn func(ctx context.Context, status domain.TaskStatus, olderThan time.Duration) ([]*domain.Task, error)

	mu          sync.Mutex
	tasks       map[uuid.UUID]*domain.Task
	CreateCalls int
	MutateCalls int
}

var _ store.TaskStore = (*MockTaskStore)(nil)

// NewMockTaskStore creates an empty MockTaskStore.
func NewMockTaskStore() *MockTaskStore {
	return &MockTaskStore{tasks: make(map[uuid.UUID]*domain.Task)}
}

// Put stores a copy of task directly, bypassing every rule.
func (m *MockTaskStore) Put(task *domain.Task) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ensure()
	m.tasks[task.ID] = cloneTask(task)
}

// Snapshot returns a copy of the stored task, or nil.
func (m *MockTaskStore) Snapshot(id uuid.UUID) *domain.Task {
	m.mu.Lock()
	defer m.mu.Unlock()
	if t, ok := m.tasks[id]; ok {
		return cloneTask(t)
	}
	return nil
}

// Count returns the number of stored tasks.
func (m *MockTaskStore) Count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.tasks)
}

// Create implements store.TaskStore.
func (m *MockTaskStore) Create(ctx context.Context, task *domain.Task) error {
	m.mu.Lock()
	m.CreateCalls++
	m.mu.Unlock()

	if m.CreateFn != nil {
		return m.CreateFn(ctx, task)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.ensure()
	if task.Status.InFlight() {
		for _, existing := range m.tasks {
			if existing.Fingerprint == task.Fingerprint && existing.Status.InFlight() {
				return fmt.Errorf("%w: in-flight task for %q", store.ErrDuplicate, task.Fingerprint)
			}
		}
	}
	m.tasks[task.ID] = cloneTask(task)
	return nil
}

// GetByID implements store.TaskStore.
func (m *MockTaskStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.Task, error) {
	if m.GetByIDFn != nil {
		return m.GetByIDFn(ctx, id)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.tasks[id]
	if !ok {
		return nil, store.ErrTaskNotFound
	}
	return cloneTask(t), nil
}

// GetActiveByFingerprint implements store.TaskStore.
func (m *MockTaskStore) GetActiveByFingerprint(_ context.Context, fingerprint string) (*domain.Task, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, t := range m.tasks {
		if t.Fingerprint == fingerprint && t.Status.InFlight() {
			return cloneTask(t), nil
		}
	}
	return nil, store.ErrTaskNotFound
}

// GetLatestByFingerprint implements store.TaskStore.
func (m *MockTaskStore) GetLatestByFingerprint(_ context.Context, fingerprint string) (*domain.Task, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var latest *domain.Task
	for _, t := range m.tasks {
		if t.Fingerprint != fingerprint {
			continue
		}
		if latest == nil || t.CreatedAt.After(latest.CreatedAt) {
			latest = t
		}
	}
	if latest == nil {
		return nil, store.ErrTaskNotFound
	}
	return cloneTask(latest), nil
}

// Update implements store.TaskStore.
func (m *MockTaskStore) Update(ctx context.Context, task *domain.Task) error {
	if m.UpdateFn != nil {
		return m.UpdateFn(ctx, task)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.tasks[task.ID]; !ok {
		return store.ErrTaskNotFound
	}
	m.tasks[task.ID] = cloneTask(task)
	return nil
}

// Mutate implements store.TaskStore. The whole load-apply-save runs under
// the store lock, like a row lock in the database.
func (m *MockTaskStore) Mutate(
	ctx context.Context,
	id uuid.UUID,
	fn func(*domain.Task) error,
) (*domain.Task, error) {
	m.mu.Lock()
	m.MutateCalls++
	m.mu.Unlock()

	if m.MutateFn != nil {
		return m.MutateFn(ctx, id, fn)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	stored, ok := m.tasks[id]
	if !ok {
		return nil, store.ErrTaskNotFound
	}
	working := cloneTask(stored)
	if err := fn(working); err != nil {
		return nil, err
	}
	m.tasks[id] = cloneTask(working)
	return working, nil
}

// ListByStatus implements store.TaskStore.
func (m *MockTaskStore) ListByStatus(
	ctx context.Context,
	status domain.TaskStatus,
	olderThan time.Duration,
) ([]*domain.Task, error) {
	if m.ListByStatusFn != nil {
		return m.ListByStatusFn(ctx, status, olderThan)
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	cutoff := time.Now().UTC().Add(-olderThan)
	var out []*domain.Task
	for _, t := range m.tasks {
		if t.Status != status {
			continue
		}
		if olderThan > 0 && !t.UpdatedAt.Before(cutoff) {
			continue
		}
		out = append(out, cloneTask(t))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (m *MockTaskStore) ensure() {
	if m.tasks == nil {
		m.tasks = make(map[uuid.UUID]*domain.Task)
	}
}

func cloneTask(t *domain.Task) *domain.Task {
	c := *t
	if t.Result != nil {
		r := *t.Result
		c.Result = &r
	}
	if t.Determinable != nil {
		d := *t.Determinable
		c.Determinable = &d
	}
	if t.CompletedAt != nil {
		ts := *t.CompletedAt
		c.CompletedAt = &ts
	}
	return &c
}
