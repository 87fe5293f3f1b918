package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/phrazzld/audiobrief/internal/api/shared"
	"github.com/phrazzld/audiobrief/internal/service"
)

// AudiobookService is the subset of service.AudiobookService the handlers use.
type AudiobookService interface {
	Submit(ctx context.Context, req service.SubmitRequest) (*service.TaskHandle, error)
	Status(ctx context.Context, ref string) (*service.TaskSnapshot, error)
	Retry(ctx context.Context, taskID uuid.UUID) (*service.TaskSnapshot, error)
	ContinueProcessing(ctx context.Context) (int, error)
}

var _ AudiobookService = (*service.AudiobookService)(nil)

// AudiobookHandler serves the audiobook endpoints.
type AudiobookHandler struct {
	service AudiobookService
	logger  *slog.Logger
}

// NewAudiobookHandler creates a new AudiobookHandler.
func NewAudiobookHandler(svc AudiobookService, logger *slog.Logger) *AudiobookHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &AudiobookHandler{
		service: svc,
		logger:  logger.With("component", "audiobook_handler"),
	}
}

// Mount registers the audiobook routes on r.
func (h *AudiobookHandler) Mount(r chi.Router) {
	r.Route("/api/audiobooks", func(r chi.Router) {
		r.Post("/", h.Submit)
		r.Get("/", h.GetByQuery)
		r.Post("/continue-processing", h.ContinueProcessing)
		r.Get("/{ref}", h.Get)
		r.Post("/{id}/retry", h.Retry)
	})

	// Path used by existing clients.
	r.Post("/generate-audio-book", h.Submit)
}

// Submit handles POST /api/audiobooks. It answers 202 with the task handle,
// or 200 with the result when it was served from cache.
func (h *AudiobookHandler) Submit(w http.ResponseWriter, r *http.Request) {
	var req SubmitAudiobookRequest
	if err := shared.DecodeJSON(w, r, &req); err != nil {
		shared.RespondWithErrorAndLog(w, r, http.StatusBadRequest, "Invalid request format", err)
		return
	}
	if err := shared.ValidateRequest(&req); err != nil {
		shared.RespondWithErrorAndLog(w, r, http.StatusBadRequest, shared.ValidationMessage(err), err)
		return
	}

	handle, err := h.service.Submit(r.Context(), service.SubmitRequest{
		Query:  req.Query,
		ChatID: req.ChatID,
	})
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	status := http.StatusAccepted
	if handle.Cached {
		status = http.StatusOK
	}
	shared.RespondWithJSON(w, r, status, handleToResponse(handle))
}

// Get handles GET /api/audiobooks/{ref}, where ref is a task ID or a query.
func (h *AudiobookHandler) Get(w http.ResponseWriter, r *http.Request) {
	h.respondWithStatus(w, r, chi.URLParam(r, "ref"))
}

// GetByQuery handles GET /api/audiobooks?query=...
func (h *AudiobookHandler) GetByQuery(w http.ResponseWriter, r *http.Request) {
	query := strings.TrimSpace(r.URL.Query().Get("query"))
	if query == "" {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid query: required field")
		return
	}
	h.respondWithStatus(w, r, query)
}

func (h *AudiobookHandler) respondWithStatus(w http.ResponseWriter, r *http.Request, ref string) {
	snapshot, err := h.service.Status(r.Context(), ref)
	if err != nil {
		if errors.Is(err, service.ErrTaskNotFound) {
			shared.RespondWithJSON(w, r, http.StatusNotFound, NotFoundResponse{
				Status:  statusNotFound,
				TraceID: shared.GetTraceID(r.Context()),
			})
			return
		}
		HandleAPIError(w, r, err, "")
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, snapshotToResponse(snapshot))
}

// Retry handles POST /api/audiobooks/{id}/retry.
func (h *AudiobookHandler) Retry(w http.ResponseWriter, r *http.Request) {
	taskID, ok := handlePathUUID(w, r, "id")
	if !ok {
		return
	}

	snapshot, err := h.service.Retry(r.Context(), taskID)
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}
	shared.RespondWithJSON(w, r, http.StatusAccepted, snapshotToResponse(snapshot))
}

// ContinueProcessing handles POST /api/audiobooks/continue-processing.
func (h *AudiobookHandler) ContinueProcessing(w http.ResponseWriter, r *http.Request) {
	n, err := h.service.ContinueProcessing(r.Context())
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}
	h.logger.Info("requeued timed out tasks", "requeued", n)
	shared.RespondWithJSON(w, r, http.StatusAccepted, ContinueProcessingResponse{Requeued: n})
}
