package task

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWorkerPool_ProcessesQueuedTasks(t *testing.T) {
	t.Parallel()

	q := NewTaskQueue(10, testLogger())
	var mu sync.Mutex
	seen := map[uuid.UUID]bool{}
	var wg sync.WaitGroup

	pool := NewWorkerPool(q, func(_ context.Context, id uuid.UUID) error {
		defer wg.Done()
		mu.Lock()
		seen[id] = true
		mu.Unlock()
		return nil
	}, WorkerPoolConfig{WorkerCount: 3}, testLogger())
	pool.Start()
	defer pool.Stop()

	ids := []uuid.UUID{uuid.New(), uuid.New(), uuid.New(), uuid.New()}
	wg.Add(len(ids))
	for _, id := range ids {
		require.NoError(t, q.Enqueue(id))
	}
	wg.Wait()

	mu.Lock()
	defer mu.Unlock()
	for _, id := range ids {
		assert.True(t, seen[id])
	}
}

func TestWorkerPool_ErrorsAndPanicsReachErrorHandler(t *testing.T) {
	t.Parallel()

	q := NewTaskQueue(10, testLogger())
	failing, panicking := uuid.New(), uuid.New()

	pool := NewWorkerPool(q, func(_ context.Context, id uuid.UUID) error {
		if id == panicking {
			panic("boom")
		}
		return errors.New("handler failed")
	}, WorkerPoolConfig{WorkerCount: 1}, testLogger())

	var mu sync.Mutex
	got := map[uuid.UUID]error{}
	done := make(chan struct{}, 2)
	pool.SetErrorHandler(func(id uuid.UUID, err error) {
		mu.Lock()
		got[id] = err
		mu.Unlock()
		done <- struct{}{}
	})
	pool.Start()
	defer pool.Stop()

	require.NoError(t, q.Enqueue(failing))
	require.NoError(t, q.Enqueue(panicking))
	for i := 0; i < 2; i++ {
		select {
		case <-done:
		case <-time.After(2 * time.Second):
			t.Fatal("error handler was not called")
		}
	}

	mu.Lock()
	defer mu.Unlock()
	assert.EqualError(t, got[failing], "handler failed")
	assert.Contains(t, got[panicking].Error(), "panicked: boom")
}

func TestWorkerPool_StopLetsRunningTaskFinish(t *testing.T) {
	t.Parallel()

	q := NewTaskQueue(1, testLogger())
	started := make(chan struct{})
	var finished atomic.Bool
	var ctxErr atomic.Value

	pool := NewWorkerPool(q, func(ctx context.Context, _ uuid.UUID) error {
		close(started)
		time.Sleep(50 * time.Millisecond)
		if err := ctx.Err(); err != nil {
			ctxErr.Store(err)
		}
		finished.Store(true)
		return nil
	}, WorkerPoolConfig{WorkerCount: 0}, testLogger())
	pool.Start()

	require.NoError(t, q.Enqueue(uuid.New()))
	<-started
	pool.Stop()

	assert.True(t, finished.Load())
	assert.Nil(t, ctxErr.Load(), "task context must not be cancelled by Stop")
}
