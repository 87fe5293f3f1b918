package main

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/phrazzld/audiobrief/internal/api"
	apiMiddleware "github.com/phrazzld/audiobrief/internal/api/middleware"
)

// setupRouter builds the router over the application's services.
func (app *application) setupRouter() http.Handler {
	media := api.NewMediaHandler(
		app.synthesizer,
		app.artifacts,
		app.config.TTS.Voice,
		app.config.TTS.Timeout(),
		app.logger,
	)
	return newRouter(app.audiobookService, media, app.logger)
}

// newRouter mounts middleware, the audiobook and media routes, and the health check.
func newRouter(svc api.AudiobookService, media *api.MediaHandler, logger *slog.Logger) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(apiMiddleware.Trace(logger))

	api.NewAudiobookHandler(svc, logger).Mount(r)
	media.Mount(r)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write([]byte("OK")); err != nil {
			logger.Error("Failed to write health check response", "error", err)
		}
	})

	return r
}
