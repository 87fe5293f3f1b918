package mocks

import (
	"context"
	"sync"
	"time"

	"github.com/phrazzld/audiobrief/internal/domain"
	"github.com/phrazzld/audiobrief/internal/store"
)

type cacheEntry struct {
	result    domain.Result
	expiresAt time.Time
}

// MockResultCache is an in-memory store.ResultCache honoring TTLs against
// an adjustable clock.
type MockResultCache struct {
	GetFn func(ctx context.Context, fingerprint string) (*domain.Result, error)
	SetFn func(ctx context.Context, fingerprint string, result domain.Result, ttl time.Duration) error

	mu       sync.Mutex
	entries  map[string]cacheEntry
	offset   time.Duration
	GetCalls int
	SetCalls int
}

var _ store.ResultCache = (*MockResultCache)(nil)

// NewMockResultCache creates an empty cache.
func NewMockResultCache() *MockResultCache {
	return &MockResultCache{entries: make(map[string]cacheEntry)}
}

// Advance moves the cache clock forward by d.
func (m *MockResultCache) Advance(d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.offset += d
}

// Get implements store.ResultCache.
func (m *MockResultCache) Get(ctx context.Context, fingerprint string) (*domain.Result, error) {
	m.mu.Lock()
	m.GetCalls++
	m.mu.Unlock()

	if m.GetFn != nil {
		return m.GetFn(ctx, fingerprint)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	entry, ok := m.entries[fingerprint]
	if !ok || !m.now().Before(entry.expiresAt) {
		return nil, store.ErrCacheMiss
	}
	result := entry.result
	return &result, nil
}

// Set implements store.ResultCache.
func (m *MockResultCache) Set(ctx context.Context, fingerprint string, result domain.Result, ttl time.Duration) error {
	m.mu.Lock()
	m.SetCalls++
	m.mu.Unlock()

	if m.SetFn != nil {
		return m.SetFn(ctx, fingerprint, result, ttl)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.entries == nil {
		m.entries = make(map[string]cacheEntry)
	}
	m.entries[fingerprint] = cacheEntry{result: result, expiresAt: m.now().Add(ttl)}
	return nil
}

func (m *MockResultCache) now() time.Time {
	return time.Now().Add(m.offset)
}
