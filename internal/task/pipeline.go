package task

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/audiobrief/internal/domain"
	"github.com/phrazzld/audiobrief/internal/events"
	"github.com/phrazzld/audiobrief/internal/generation"
	"github.com/phrazzld/audiobrief/internal/platform/logger"
	"github.com/phrazzld/audiobrief/internal/platform/tts"
	"github.com/phrazzld/audiobrief/internal/sanitize"
	"github.com/phrazzld/audiobrief/internal/store"
)

const (
	defaultLLMTimeout       = 60 * time.Second
	defaultSynthesisTimeout = 5 * time.Minute
)

var errNotPending = errors.New("task is not pending")

// PipelineConfig holds the tunables of a pipeline run.
type PipelineConfig struct {
	// LLMTimeout bounds the summarization call. Defaults to 60s.
	LLMTimeout time.Duration

	// SynthesisTimeout bounds the speech synthesis run. Defaults to 5m.
	SynthesisTimeout time.Duration

	// Voice is passed to the synthesizer.
	Voice string

	// CacheTTL is how long a completed result is served from cache.
	CacheTTL time.Duration

	// ObjectPrefix is prepended to every uploaded object name.
	ObjectPrefix string

	// UniqueNames suffixes object names with the task ID.
	UniqueNames bool
}

// PipelineDeps are the collaborators of a SummaryPipeline.
type PipelineDeps struct {
	Store        store.TaskStore
	Cache        store.ResultCache
	Instructions generation.InstructionsSource
	Summarizer   generation.Summarizer
	Synthesizer  Synthesizer
	Artifacts    ArtifactStore
	Emitter      events.EventEmitter
}

// SummaryPipeline drives one task from pending to a terminal status:
// summarize, sanitize, synthesize, upload, record, cache, notify.
type SummaryPipeline struct {
	deps   PipelineDeps
	config PipelineConfig
	logger *slog.Logger
}

var _ Processor = (*SummaryPipeline)(nil)

// NewSummaryPipeline validates deps and returns a pipeline.
func NewSummaryPipeline(deps PipelineDeps, config PipelineConfig, logger *slog.Logger) (*SummaryPipeline, error) {
	switch {
	case deps.Store == nil:
		return nil, fmt.Errorf("pipeline: task store is required")
	case deps.Instructions == nil:
		return nil, fmt.Errorf("pipeline: instructions source is required")
	case deps.Summarizer == nil:
		return nil, fmt.Errorf("pipeline: summarizer is required")
	case deps.Synthesizer == nil:
		return nil, fmt.Errorf("pipeline: synthesizer is required")
	case deps.Artifacts == nil:
		return nil, fmt.Errorf("pipeline: artifact store is required")
	}
	if config.LLMTimeout <= 0 {
		config.LLMTimeout = defaultLLMTimeout
	}
	if config.SynthesisTimeout <= 0 {
		config.SynthesisTimeout = defaultSynthesisTimeout
	}

	return &SummaryPipeline{
		deps:   deps,
		config: config,
		logger: logger.With("component", "summary_pipeline"),
	}, nil
}

// run carries the state of one Process call.
type run struct {
	id     uuid.UUID
	task   *domain.Task
	record *domain.SummaryRecord
	log    *slog.Logger
}

// Process runs the task with the given ID. Stage failures are recorded on
// the task; the returned error is non-nil only when the task could not be
// loaded or its outcome could not be persisted.
func (p *SummaryPipeline) Process(ctx context.Context, taskID uuid.UUID) error {
	log := p.logger.With("task_id", taskID)
	ctx = logger.WithLogger(ctx, log)

	task, err := p.deps.Store.Mutate(ctx, taskID, func(t *domain.Task) error {
		if t.Status != domain.TaskStatusPending {
			return errNotPending
		}
		return t.Start()
	})
	if errors.Is(err, errNotPending) {
		log.Debug("skipping task that is no longer pending")
		return nil
	}
	if err != nil {
		return fmt.Errorf("claim task %s: %w", taskID, err)
	}

	r := &run{
		id:   taskID,
		task: task,
		log:  log.With("fingerprint", task.Fingerprint, "attempt", task.Attempts),
	}
	r.log.Info("processing task")

	instructions, err := p.deps.Instructions.Load(ctx)
	if err != nil {
		return p.fail(ctx, r, fmt.Sprintf("load instructions: %v", err))
	}

	raw, err := p.summarize(ctx, instructions, task.Query)
	if err != nil {
		if errors.Is(err, generation.ErrUpstreamTimeout) || errors.Is(err, context.DeadlineExceeded) {
			return p.timeOut(ctx, r, err)
		}
		return p.fail(ctx, r, fmt.Sprintf("summarize: %v", err))
	}

	record, err := sanitize.Extract(raw)
	if err != nil {
		r.log.Warn("model response could not be parsed", "error", err, "response_len", len(raw))
		return p.fail(ctx, r, sanitize.ErrUnparseableResponse.Error())
	}
	r.record = &record

	if !record.Usable() {
		reason := record.Reason
		if reason == "" {
			reason = domain.ErrSummaryUnavailable.Error()
		}
		return p.fail(ctx, r, reason)
	}

	audio, err := p.synthesize(ctx, record.SummaryText)
	if err != nil {
		return p.fail(ctx, r, fmt.Sprintf("synthesize: %v", err))
	}

	objectPath := p.objectPath(task)
	url, err := p.deps.Artifacts.Upload(ctx, objectPath, audio)
	if err != nil {
		return p.fail(ctx, r, fmt.Sprintf("upload: %v", err))
	}

	result := domain.Result{
		FileURL:     url,
		SummaryText: record.SummaryText,
		Title:       record.Title,
		Author:      record.Author,
	}
	return p.complete(ctx, r, result)
}

func (p *SummaryPipeline) summarize(ctx context.Context, instructions, query string) (string, error) {
	llmCtx, cancel := context.WithTimeout(ctx, p.config.LLMTimeout)
	defer cancel()
	return p.deps.Summarizer.Summarize(llmCtx, instructions, query)
}

// synthesize runs the synthesizer under SynthesisTimeout. An expired
// deadline is reported as a *tts.SynthesisError wrapping
// context.DeadlineExceeded.
func (p *SummaryPipeline) synthesize(ctx context.Context, text string) ([]byte, error) {
	synthCtx, cancel := context.WithTimeout(ctx, p.config.SynthesisTimeout)
	defer cancel()

	audio, err := p.deps.Synthesizer.Synthesize(synthCtx, text, p.config.Voice)
	if err == nil || !errors.Is(synthCtx.Err(), context.DeadlineExceeded) {
		return audio, err
	}

	timeoutErr := &tts.SynthesisError{
		Voice: p.config.Voice,
		Err:   fmt.Errorf("%w after %s", context.DeadlineExceeded, p.config.SynthesisTimeout),
	}
	var engineErr *tts.SynthesisError
	if errors.As(err, &engineErr) {
		timeoutErr.ExitCode = engineErr.ExitCode
		timeoutErr.Stderr = engineErr.Stderr
	}
	return nil, timeoutErr
}

func (p *SummaryPipeline) objectPath(task *domain.Task) string {
	name := domain.ObjectName(task.Fingerprint)
	if p.config.UniqueNames {
		name = domain.UniqueObjectName(task.Fingerprint, task.ID)
	}
	return path.Join(p.config.ObjectPrefix, name)
}

func (p *SummaryPipeline) complete(ctx context.Context, r *run, result domain.Result) error {
	task, err := p.deps.Store.Mutate(ctx, r.id, func(t *domain.Task) error {
		t.ApplySummaryMetadata(*r.record)
		return t.Complete(result)
	})
	if err != nil {
		return fmt.Errorf("record completion of task %s: %w", r.id, err)
	}
	r.log.Info("task completed", "file_url", result.FileURL)

	if p.deps.Cache != nil && p.config.CacheTTL > 0 {
		if err := p.deps.Cache.Set(ctx, task.Fingerprint, result, p.config.CacheTTL); err != nil {
			r.log.Warn("failed to cache result", "error", err)
		}
	}

	p.emit(ctx, r, task)
	return nil
}

func (p *SummaryPipeline) fail(ctx context.Context, r *run, reason string) error {
	task, err := p.deps.Store.Mutate(ctx, r.id, func(t *domain.Task) error {
		if r.record != nil {
			t.ApplySummaryMetadata(*r.record)
		}
		return t.Fail(reason)
	})
	if err != nil {
		return fmt.Errorf("record failure of task %s: %w", r.id, err)
	}
	r.log.Warn("task failed", "reason", reason)

	p.emit(ctx, r, task)
	return nil
}

// timeOut parks the task; it is not terminal, so no event is emitted.
func (p *SummaryPipeline) timeOut(ctx context.Context, r *run, cause error) error {
	_, err := p.deps.Store.Mutate(ctx, r.id, func(t *domain.Task) error {
		return t.TimeOut(fmt.Sprintf("summarization timed out after %s", p.config.LLMTimeout))
	})
	if err != nil {
		return fmt.Errorf("record timeout of task %s: %w", r.id, err)
	}
	r.log.Warn("task timed out waiting for the model", "error", cause)
	return nil
}

func (p *SummaryPipeline) emit(ctx context.Context, r *run, task *domain.Task) {
	if p.deps.Emitter == nil {
		return
	}
	event, err := events.NewTaskEvent(task)
	if err != nil {
		r.log.Error("failed to build task event", "error", err)
		return
	}
	if err := p.deps.Emitter.EmitEvent(ctx, event); err != nil {
		r.log.Warn("notification failed", "event_type", event.Type, "error", err)
	}
}
