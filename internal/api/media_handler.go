package api

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"path"
	"regexp"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/phrazzld/audiobrief/internal/api/shared"
	"github.com/phrazzld/audiobrief/internal/task"
)

// MaxUploadBytes bounds a multipart upload.
const MaxUploadBytes = 32 << 20

const (
	speechReadyStatus = "Text-to-Speech endpoint is ready"
	uploadFormField   = "file"
)

// allowedUploadExtensions is the whitelist for POST /upload.
var allowedUploadExtensions = map[string]bool{
	"txt": true, "pdf": true, "png": true, "jpg": true, "jpeg": true, "gif": true, "mp3": true,
}

var unsafeFilenameChars = regexp.MustCompile(`[^A-Za-z0-9_.-]`)

// MediaHandler serves the direct text-to-speech and file upload endpoints.
// Neither goes through the task pipeline: both answer once the file is stored.
type MediaHandler struct {
	synthesizer   task.Synthesizer
	artifacts     task.ArtifactStore
	defaultVoice  string
	speechTimeout time.Duration
	logger        *slog.Logger
}

// NewMediaHandler creates a MediaHandler. speechTimeout bounds one synthesis.
func NewMediaHandler(
	synthesizer task.Synthesizer,
	artifacts task.ArtifactStore,
	defaultVoice string,
	speechTimeout time.Duration,
	logger *slog.Logger,
) *MediaHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &MediaHandler{
		synthesizer:   synthesizer,
		artifacts:     artifacts,
		defaultVoice:  defaultVoice,
		speechTimeout: speechTimeout,
		logger:        logger.With("component", "media_handler"),
	}
}

// Mount registers the media routes on r.
func (h *MediaHandler) Mount(r chi.Router) {
	r.Get("/text-to-speech", h.SpeechReady)
	r.Post("/text-to-speech", h.TextToSpeech)
	r.Post("/upload", h.Upload)
}

// SpeechReady handles GET /text-to-speech.
func (h *MediaHandler) SpeechReady(w http.ResponseWriter, r *http.Request) {
	shared.RespondWithJSON(w, r, http.StatusOK, SpeechReadyResponse{Status: speechReadyStatus})
}

// TextToSpeech handles POST /text-to-speech. It speaks the text, stores the
// MP3 as <filename>.mp3 and answers 201 with its URL.
func (h *MediaHandler) TextToSpeech(w http.ResponseWriter, r *http.Request) {
	var req TextToSpeechRequest
	if err := shared.DecodeJSON(w, r, &req); err != nil {
		shared.RespondWithErrorAndLog(w, r, http.StatusBadRequest, "Invalid request format", err)
		return
	}
	if err := shared.ValidateRequest(&req); err != nil {
		shared.RespondWithErrorAndLog(w, r, http.StatusBadRequest, shared.ValidationMessage(err), err)
		return
	}

	name := secureFilename(req.Filename)
	if strings.TrimSpace(req.Text) == "" || name == "" {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Please provide both text and filename")
		return
	}
	name += ".mp3"

	voice := req.Model
	if voice == "" {
		voice = h.defaultVoice
	}

	audio, err := h.synthesize(r.Context(), req.Text, voice)
	if err != nil {
		shared.RespondWithErrorAndLog(w, r, http.StatusInternalServerError, "Failed to generate audio", err)
		return
	}

	url, err := h.artifacts.Upload(r.Context(), name, audio)
	if err != nil {
		shared.RespondWithErrorAndLog(w, r, http.StatusInternalServerError, "Failed to upload file", err)
		return
	}

	h.logger.InfoContext(r.Context(), "speech uploaded", "path", name, "voice", voice, "bytes", len(audio))
	shared.RespondWithJSON(w, r, http.StatusCreated, FileURLResponse{FileURL: url})
}

func (h *MediaHandler) synthesize(ctx context.Context, text, voice string) ([]byte, error) {
	if h.speechTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.speechTimeout)
		defer cancel()
	}
	return h.synthesizer.Synthesize(ctx, text, voice)
}

// Upload handles POST /upload, a multipart form with one "file" part. Files
// with an extension outside the whitelist are rejected.
func (h *MediaHandler) Upload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, MaxUploadBytes)

	file, header, err := r.FormFile(uploadFormField)
	if err != nil {
		var tooLarge *http.MaxBytesError
		switch {
		case errors.As(err, &tooLarge):
			shared.RespondWithErrorAndLog(w, r, http.StatusRequestEntityTooLarge, "File too large", err)
		case errors.Is(err, http.ErrMissingFile) && r.MultipartForm != nil &&
			len(r.MultipartForm.Value[uploadFormField]) > 0:
			// A part without a filename is parsed as a plain form value.
			shared.RespondWithError(w, r, http.StatusBadRequest, "No selected file")
		default:
			shared.RespondWithErrorAndLog(w, r, http.StatusBadRequest, "No file part", err)
		}
		return
	}
	defer func() { _ = file.Close() }()

	name := secureFilename(header.Filename)
	if !allowedFile(name) {
		shared.RespondWithError(w, r, http.StatusBadRequest, "File type not allowed")
		return
	}

	content, err := io.ReadAll(file)
	if err != nil {
		shared.RespondWithErrorAndLog(w, r, http.StatusBadRequest, "Invalid request format",
			fmt.Errorf("read upload: %w", err))
		return
	}

	url, err := h.artifacts.Upload(r.Context(), name, content)
	if err != nil {
		shared.RespondWithErrorAndLog(w, r, http.StatusInternalServerError, "Failed to upload file", err)
		return
	}

	h.logger.InfoContext(r.Context(), "file uploaded", "path", name, "bytes", len(content))
	shared.RespondWithJSON(w, r, http.StatusCreated, FileURLResponse{FileURL: url})
}

// secureFilename reduces a client-supplied name to a flat, ASCII-only file
// name: directory parts become separators, whitespace runs become "_", and
// anything outside [A-Za-z0-9_.-] is dropped.
func secureFilename(name string) string {
	name = strings.NewReplacer("/", " ", "\\", " ").Replace(name)
	name = strings.Join(strings.Fields(name), "_")
	name = unsafeFilenameChars.ReplaceAllString(name, "")
	return strings.Trim(name, "._")
}

func allowedFile(name string) bool {
	ext := strings.TrimPrefix(path.Ext(name), ".")
	return ext != "" && allowedUploadExtensions[strings.ToLower(ext)]
}
