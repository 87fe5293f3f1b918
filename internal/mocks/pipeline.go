package mocks

import (
	"context"
	"sync"

	"github.com/phrazzld/audiobrief/internal/events"
)

// MockSummarizer implements generation.Summarizer for testing
type MockSummarizer struct {
	SummarizeFn func(ctx context.Context, instructions, query string) (string, error)

	// Default response values
	Response string
	Err      error

	mu      sync.Mutex
	calls   int
	queries []string
}

// Summarize implements generation.Summarizer.
func (m *MockSummarizer) Summarize(ctx context.Context, instructions, query string) (string, error) {
	m.mu.Lock()
	m.calls++
	m.queries = append(m.queries, query)
	m.mu.Unlock()

	if m.SummarizeFn != nil {
		return m.SummarizeFn(ctx, instructions, query)
	}
	return m.Response, m.Err
}

// Calls returns how many times Summarize was called.
func (m *MockSummarizer) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// Queries returns every query passed to Summarize.
func (m *MockSummarizer) Queries() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.queries...)
}

// MockSynthesizer implements task.Synthesizer for testing
type MockSynthesizer struct {
	SynthesizeFn func(ctx context.Context, text, voice string) ([]byte, error)

	Audio []byte
	Err   error

	mu     sync.Mutex
	calls  int
	texts  []string
	voices []string
}

// Synthesize implements task.Synthesizer.
func (m *MockSynthesizer) Synthesize(ctx context.Context, text, voice string) ([]byte, error) {
	m.mu.Lock()
	m.calls++
	m.texts = append(m.texts, text)
	m.voices = append(m.voices, voice)
	m.mu.Unlock()

	if m.SynthesizeFn != nil {
		return m.SynthesizeFn(ctx, text, voice)
	}
	if m.Err != nil {
		return nil, m.Err
	}
	if m.Audio == nil {
		return []byte("ID3-fake-mp3"), nil
	}
	return m.Audio, nil
}

// Calls returns how many times Synthesize was called.
func (m *MockSynthesizer) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// Texts returns every text passed to Synthesize.
func (m *MockSynthesizer) Texts() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.texts...)
}

// Voices returns every voice passed to Synthesize.
func (m *MockSynthesizer) Voices() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.voices...)
}

// MockArtifactStore implements task.ArtifactStore for testing
type MockArtifactStore struct {
	UploadFn func(ctx context.Context, path string, data []byte) (string, error)

	// BaseURL prefixes the returned URL when UploadFn is nil.
	BaseURL string
	Err     error

	mu    sync.Mutex
	calls int
	paths []string
}

// Upload implements task.ArtifactStore.
func (m *MockArtifactStore) Upload(ctx context.Context, path string, data []byte) (string, error) {
	m.mu.Lock()
	m.calls++
	m.paths = append(m.paths, path)
	m.mu.Unlock()

	if m.UploadFn != nil {
		return m.UploadFn(ctx, path, data)
	}
	if m.Err != nil {
		return "", m.Err
	}
	base := m.BaseURL
	if base == "" {
		base = "https://blob.example"
	}
	return base + "/" + path, nil
}

// Calls returns how many times Upload was called.
func (m *MockArtifactStore) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// Paths returns every path passed to Upload.
func (m *MockArtifactStore) Paths() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.paths...)
}

// MockEventEmitter implements events.EventEmitter and records every event.
type MockEventEmitter struct {
	EmitEventFn func(ctx context.Context, event *events.TaskEvent) error

	Err error

	mu     sync.Mutex
	events []*events.TaskEvent
}

// EmitEvent implements events.EventEmitter.
func (m *MockEventEmitter) EmitEvent(ctx context.Context, event *events.TaskEvent) error {
	m.mu.Lock()
	m.events = append(m.events, event)
	m.mu.Unlock()

	if m.EmitEventFn != nil {
		return m.EmitEventFn(ctx, event)
	}
	return m.Err
}

// Events returns the events emitted so far.
func (m *MockEventEmitter) Events() []*events.TaskEvent {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]*events.TaskEvent(nil), m.events...)
}
