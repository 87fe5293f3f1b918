package api

import (
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/audiobrief/internal/service"
)

// statusNotFound is the status reported for unknown task references.
const statusNotFound = "not_found"

// SubmitAudiobookRequest is the body of POST /api/audiobooks.
type SubmitAudiobookRequest struct {
	Query string `json:"query" validate:"required,max=500"`

	// ChatID is optional. Telegram group chats have negative IDs.
	ChatID int64 `json:"chat_id"`
}

// AudiobookResponse describes a task, or a cached result that needs no task.
type AudiobookResponse struct {
	TaskID       string     `json:"task_id,omitempty"`
	Query        string     `json:"query,omitempty"`
	Status       string     `json:"status"`
	FileURL      string     `json:"file_url,omitempty"`
	SummaryText  string     `json:"summary_text,omitempty"`
	Title        string     `json:"title,omitempty"`
	Author       string     `json:"author,omitempty"`
	Determinable *bool      `json:"determinable,omitempty"`
	Error        string     `json:"error,omitempty"`
	Attempts     int        `json:"attempts,omitempty"`
	Cached       bool       `json:"cached,omitempty"`
	CreatedAt    *time.Time `json:"created_at,omitempty"`
	UpdatedAt    *time.Time `json:"updated_at,omitempty"`
}

// ContinueProcessingResponse reports how many parked tasks were requeued.
type ContinueProcessingResponse struct {
	Requeued int `json:"requeued"`
}

// NotFoundResponse is the body of a 404 for a task lookup.
type NotFoundResponse struct {
	Status  string `json:"status"`
	TraceID string `json:"trace_id,omitempty"`
}

func handleToResponse(h *service.TaskHandle) AudiobookResponse {
	resp := AudiobookResponse{
		Status: string(h.Status),
		Cached: h.Cached,
	}
	if h.TaskID != uuid.Nil {
		resp.TaskID = h.TaskID.String()
	}
	if h.Result != nil {
		resp.FileURL = h.Result.FileURL
		resp.SummaryText = h.Result.SummaryText
		resp.Title = h.Result.Title
		resp.Author = h.Result.Author
	}
	return resp
}

func snapshotToResponse(s *service.TaskSnapshot) AudiobookResponse {
	resp := AudiobookResponse{
		Query:        s.Query,
		Status:       string(s.Status),
		Title:        s.Title,
		Author:       s.Author,
		Determinable: s.Determinable,
		Error:        s.Error,
		Attempts:     s.Attempts,
		Cached:       s.Cached,
	}
	if s.TaskID != uuid.Nil {
		resp.TaskID = s.TaskID.String()
	}
	if s.Result != nil {
		resp.FileURL = s.Result.FileURL
		resp.SummaryText = s.Result.SummaryText
	}
	if !s.CreatedAt.IsZero() {
		createdAt, updatedAt := s.CreatedAt, s.UpdatedAt
		resp.CreatedAt = &createdAt
		resp.UpdatedAt = &updatedAt
	}
	return resp
}

// TextToSpeechRequest is the body of POST /text-to-speech. Model names the
// voice; empty means the configured default.
type TextToSpeechRequest struct {
	Text     string `json:"text" validate:"required,max=20000"`
	Filename string `json:"filename" validate:"required,max=200"`
	Model    string `json:"model" validate:"omitempty,max=100"`
}

// FileURLResponse is the 201 body of the media endpoints.
type FileURLResponse struct {
	FileURL string `json:"file_url"`
}

// SpeechReadyResponse is the body of GET /text-to-speech.
type SpeechReadyResponse struct {
	Status string `json:"status"`
}
