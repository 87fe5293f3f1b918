package main

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/phrazzld/audiobrief/internal/config"
	"github.com/phrazzld/audiobrief/internal/events"
	"github.com/phrazzld/audiobrief/internal/generation"
	"github.com/phrazzld/audiobrief/internal/platform/blob"
	"github.com/phrazzld/audiobrief/internal/platform/cache"
	"github.com/phrazzld/audiobrief/internal/platform/gemini"
	"github.com/phrazzld/audiobrief/internal/platform/notify"
	"github.com/phrazzld/audiobrief/internal/platform/postgres"
	"github.com/phrazzld/audiobrief/internal/platform/tts"
	"github.com/phrazzld/audiobrief/internal/service"
	"github.com/phrazzld/audiobrief/internal/store"
	"github.com/phrazzld/audiobrief/internal/task"
)

// application holds the shared dependencies and releases them on shutdown.
type application struct {
	config *config.Config
	logger *slog.Logger
	db     *sql.DB

	// Stores
	taskStore   store.TaskStore
	resultCache *cache.RedisCache

	// External adapters
	summarizer  generation.Summarizer
	synthesizer task.Synthesizer
	artifacts   blob.Store

	// Notifications
	eventEmitter  *events.InMemoryEventEmitter
	kafkaNotifier *notify.KafkaNotifier

	// Task handling
	pipeline         *task.SummaryPipeline
	taskRunner       *task.TaskRunner
	audiobookService *service.AudiobookService
}

// newApplication wires every dependency and starts the task runner.
func newApplication(ctx context.Context, cfg *config.Config, logger *slog.Logger, db *sql.DB) (*application, error) {
	app := &application{
		config: cfg,
		logger: logger,
		db:     db,
	}

	app.taskStore = postgres.NewPostgresTaskStore(db)

	var err error
	app.resultCache, err = cache.NewRedisCache(ctx, cfg.Redis, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize result cache: %w", err)
	}

	app.summarizer, err = gemini.NewSummarizer(ctx, logger.With("component", "llm_summarizer"), cfg.LLM)
	if err != nil {
		app.cleanup()
		return nil, fmt.Errorf("failed to initialize LLM summarizer: %w", err)
	}
	logger.Info("LLM summarizer initialized", "model", cfg.LLM.ModelName)

	app.synthesizer = tts.NewEdgeTTS(cfg.TTS.Command, cfg.TTS.Voice, logger)

	app.artifacts, err = blob.New(ctx, cfg.Blob, logger)
	if err != nil {
		app.cleanup()
		return nil, fmt.Errorf("failed to initialize artifact store: %w", err)
	}

	if err := app.setupNotifiers(); err != nil {
		app.cleanup()
		return nil, err
	}

	app.pipeline, err = task.NewSummaryPipeline(task.PipelineDeps{
		Store:        app.taskStore,
		Cache:        app.resultCache,
		Instructions: generation.FileInstructions{Path: cfg.LLM.InstructionsPath},
		Summarizer:   app.summarizer,
		Synthesizer:  app.synthesizer,
		Artifacts:    app.artifacts,
		Emitter:      app.eventEmitter,
	}, pipelineConfig(cfg), logger)
	if err != nil {
		app.cleanup()
		return nil, fmt.Errorf("failed to create summary pipeline: %w", err)
	}

	app.taskRunner, err = setupTaskRunner(app)
	if err != nil {
		app.cleanup()
		return nil, fmt.Errorf("failed to setup task runner: %w", err)
	}

	app.audiobookService, err = service.NewAudiobookService(
		app.taskStore,
		app.resultCache,
		app.taskRunner,
		cfg.Redis.CacheTTL,
		logger,
	)
	if err != nil {
		app.cleanup()
		return nil, fmt.Errorf("failed to create audiobook service: %w", err)
	}

	logger.Info("Application initialized successfully")
	return app, nil
}

// setupNotifiers registers the log notifier and any configured Telegram or
// Kafka notifiers on a fresh event emitter.
func (app *application) setupNotifiers() error {
	cfg := app.config.Notify
	app.eventEmitter = events.NewInMemoryEventEmitter(app.logger)
	app.eventEmitter.RegisterHandler(notify.NewLogNotifier(app.logger))

	if cfg.TelegramToken != "" {
		telegram, err := notify.NewTelegramNotifier(cfg.TelegramToken, cfg.TelegramChatID, app.logger)
		if err != nil {
			return fmt.Errorf("failed to initialize telegram notifier: %w", err)
		}
		app.eventEmitter.RegisterHandler(telegram)
		app.logger.Info("Telegram notifications enabled", "default_chat_id", cfg.TelegramChatID)
	}

	if cfg.KafkaBrokers != "" {
		kafka, err := notify.NewKafkaNotifier(cfg.KafkaBrokers, cfg.KafkaTopic, app.logger)
		if err != nil {
			return fmt.Errorf("failed to initialize kafka notifier: %w", err)
		}
		app.kafkaNotifier = kafka
		app.eventEmitter.RegisterHandler(kafka)
		app.logger.Info("Kafka notifications enabled", "topic", cfg.KafkaTopic)
	}

	return nil
}

// pipelineConfig derives the pipeline tunables from configuration.
func pipelineConfig(cfg *config.Config) task.PipelineConfig {
	return task.PipelineConfig{
		LLMTimeout:       cfg.LLM.Timeout(),
		SynthesisTimeout: cfg.TTS.Timeout(),
		Voice:            cfg.TTS.Voice,
		CacheTTL:         cfg.Redis.CacheTTL,
		ObjectPrefix:     cfg.Blob.Prefix,
		UniqueNames:      cfg.Blob.UniqueNames,
	}
}

// runnerConfig derives the task runner tunables from configuration.
func runnerConfig(cfg *config.Config) task.TaskRunnerConfig {
	return task.TaskRunnerConfig{
		WorkerCount:            cfg.Task.WorkerCount,
		QueueSize:              cfg.Task.QueueSize,
		StuckTaskAge:           time.Duration(cfg.Task.StuckTaskAgeMinutes) * time.Minute,
		StuckTaskCheckInterval: time.Duration(cfg.Task.StuckTaskCheckIntervalSeconds) * time.Second,
	}
}

// setupTaskRunner creates the runner over the pipeline and starts it, which
// also recovers tasks left over from a previous process.
func setupTaskRunner(app *application) (*task.TaskRunner, error) {
	taskRunner := task.NewTaskRunner(app.taskStore, app.pipeline, runnerConfig(app.config), app.logger)

	if err := taskRunner.Start(); err != nil {
		return nil, fmt.Errorf("failed to start task runner: %w", err)
	}
	return taskRunner, nil
}

// Run serves HTTP until shutdown.
func (app *application) Run(ctx context.Context) error {
	router := app.setupRouter()

	if err := app.startHTTPServer(ctx, router); err != nil {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}

// cleanup releases resources in reverse order of creation. It tolerates a
// partially initialized application.
func (app *application) cleanup() {
	if app.taskRunner != nil {
		app.taskRunner.Stop()
	}

	if app.kafkaNotifier != nil {
		app.kafkaNotifier.Close()
	}

	if closer, ok := app.artifacts.(io.Closer); ok {
		if err := closer.Close(); err != nil {
			app.logger.Error("Error closing artifact store", "error", err)
		}
	}

	if app.resultCache != nil {
		if err := app.resultCache.Close(); err != nil {
			app.logger.Error("Error closing result cache", "error", err)
		}
	}

	if app.db != nil {
		if err := app.db.Close(); err != nil {
			app.logger.Error("Error closing database connection", "error", err)
		}
	}

	app.logger.Info("Application shutdown completed")
}
