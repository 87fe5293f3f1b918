package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/phrazzld/audiobrief/internal/domain"
	"github.com/phrazzld/audiobrief/internal/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// MockAudiobookService is a function-field fake of AudiobookService.
type MockAudiobookService struct {
	SubmitFn             func(ctx context.Context, req service.SubmitRequest) (*service.TaskHandle, error)
	StatusFn             func(ctx context.Context, ref string) (*service.TaskSnapshot, error)
	RetryFn              func(ctx context.Context, taskID uuid.UUID) (*service.TaskSnapshot, error)
	ContinueProcessingFn func(ctx context.Context) (int, error)
}

func (m *MockAudiobookService) Submit(ctx context.Context, req service.SubmitRequest) (*service.TaskHandle, error) {
	if m.SubmitFn != nil {
		return m.SubmitFn(ctx, req)
	}
	return nil, errors.New("Submit not configured")
}

func (m *MockAudiobookService) Status(ctx context.Context, ref string) (*service.TaskSnapshot, error) {
	if m.StatusFn != nil {
		return m.StatusFn(ctx, ref)
	}
	return nil, errors.New("Status not configured")
}

func (m *MockAudiobookService) Retry(ctx context.Context, taskID uuid.UUID) (*service.TaskSnapshot, error) {
	if m.RetryFn != nil {
		return m.RetryFn(ctx, taskID)
	}
	return nil, errors.New("Retry not configured")
}

func (m *MockAudiobookService) ContinueProcessing(ctx context.Context) (int, error) {
	if m.ContinueProcessingFn != nil {
		return m.ContinueProcessingFn(ctx)
	}
	return 0, errors.New("ContinueProcessing not configured")
}

var (
	fixedTaskID = uuid.MustParse("22222222-2222-2222-2222-222222222222")
	fixedTime   = time.Date(2025, time.April, 1, 12, 0, 0, 0, time.UTC)
)

func newTestRouter(svc AudiobookService) http.Handler {
	r := chi.NewRouter()
	NewAudiobookHandler(svc, slog.New(slog.NewTextHandler(io.Discard, nil))).Mount(r)
	return r
}

func doRequest(t *testing.T, h http.Handler, method, target, body string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, reader)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	var decoded map[string]any
	if w.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &decoded), "body: %s", w.Body.String())
	}
	return w, decoded
}

func cachedResult() *domain.Result {
	return &domain.Result{
		FileURL:     "https://blob.example/audiobooks/atomic_habits_by_james_clear.mp3",
		SummaryText: "Small habits compound.",
		Title:       "Atomic Habits",
		Author:      "James Clear",
	}
}

func TestAudiobookHandler_Submit(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		path       string
		body       string
		submitFn   func(ctx context.Context, req service.SubmitRequest) (*service.TaskHandle, error)
		wantStatus int
		check      func(t *testing.T, body map[string]any)
	}{
		{
			name: "new task is accepted",
			path: "/api/audiobooks",
			body: `{"query": "Atomic Habits by James Clear", "chat_id": -1001}`,
			submitFn: func(_ context.Context, req service.SubmitRequest) (*service.TaskHandle, error) {
				if req.Query != "Atomic Habits by James Clear" || req.ChatID != -1001 {
					return nil, fmt.Errorf("unexpected request %+v", req)
				}
				return &service.TaskHandle{TaskID: fixedTaskID, Status: domain.TaskStatusPending}, nil
			},
			wantStatus: http.StatusAccepted,
			check: func(t *testing.T, body map[string]any) {
				assert.Equal(t, fixedTaskID.String(), body["task_id"])
				assert.Equal(t, "pending", body["status"])
				assert.NotContains(t, body, "cached")
			},
		},
		{
			name: "cache hit returns the result",
			path: "/api/audiobooks",
			body: `{"query": "atomic habits by james clear"}`,
			submitFn: func(context.Context, service.SubmitRequest) (*service.TaskHandle, error) {
				return &service.TaskHandle{Status: domain.TaskStatusCompleted, Result: cachedResult(), Cached: true}, nil
			},
			wantStatus: http.StatusOK,
			check: func(t *testing.T, body map[string]any) {
				assert.Equal(t, "completed", body["status"])
				assert.Equal(t, true, body["cached"])
				assert.Equal(t, cachedResult().FileURL, body["file_url"])
				assert.Equal(t, "Small habits compound.", body["summary_text"])
				assert.Equal(t, "James Clear", body["author"])
				assert.NotContains(t, body, "task_id")
			},
		},
		{
			name: "legacy path",
			path: "/generate-audio-book",
			body: `{"query": "Deep Work"}`,
			submitFn: func(context.Context, service.SubmitRequest) (*service.TaskHandle, error) {
				return &service.TaskHandle{TaskID: fixedTaskID, Status: domain.TaskStatusPending}, nil
			},
			wantStatus: http.StatusAccepted,
			check: func(t *testing.T, body map[string]any) {
				assert.Equal(t, fixedTaskID.String(), body["task_id"])
			},
		},
		{
			name:       "malformed json",
			path:       "/api/audiobooks",
			body:       `{"query": `,
			wantStatus: http.StatusBadRequest,
			check: func(t *testing.T, body map[string]any) {
				assert.Equal(t, "Invalid request format", body["error"])
			},
		},
		{
			name:       "missing query",
			path:       "/api/audiobooks",
			body:       `{"chat_id": 5}`,
			wantStatus: http.StatusBadRequest,
			check: func(t *testing.T, body map[string]any) {
				assert.Equal(t, "Invalid query: required field", body["error"])
			},
		},
		{
			name: "blank query rejected by the service",
			path: "/api/audiobooks",
			body: `{"query": "   "}`,
			submitFn: func(context.Context, service.SubmitRequest) (*service.TaskHandle, error) {
				return nil, fmt.Errorf("%w: query cannot be empty", domain.ErrInvalidInput)
			},
			wantStatus: http.StatusBadRequest,
			check: func(t *testing.T, body map[string]any) {
				assert.Equal(t, "Query must not be empty", body["error"])
			},
		},
		{
			name: "store failure is not leaked",
			path: "/api/audiobooks",
			body: `{"query": "Deep Work"}`,
			submitFn: func(context.Context, service.SubmitRequest) (*service.TaskHandle, error) {
				return nil, &service.AudiobookServiceError{
					Operation: "submit",
					Message:   "failed to submit query",
					Err:       errors.New("postgres://app:secret@db:5432 refused"),
				}
			},
			wantStatus: http.StatusInternalServerError,
			check: func(t *testing.T, body map[string]any) {
				assert.Equal(t, "An unexpected error occurred", body["error"])
			},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			router := newTestRouter(&MockAudiobookService{SubmitFn: tc.submitFn})

			w, body := doRequest(t, router, http.MethodPost, tc.path, tc.body)

			assert.Equal(t, tc.wantStatus, w.Code)
			assert.NotContains(t, w.Body.String(), "secret")
			tc.check(t, body)
		})
	}
}

func TestAudiobookHandler_Get(t *testing.T) {
	t.Parallel()

	determinable := true
	completed := &service.TaskSnapshot{
		TaskID:       fixedTaskID,
		Query:        "Atomic Habits",
		Status:       domain.TaskStatusCompleted,
		Result:       cachedResult(),
		Title:        "Atomic Habits",
		Author:       "James Clear",
		Determinable: &determinable,
		Attempts:     1,
		CreatedAt:    fixedTime,
		UpdatedAt:    fixedTime.Add(time.Minute),
	}

	tests := []struct {
		name       string
		target     string
		wantRef    string
		statusFn   func(ctx context.Context, ref string) (*service.TaskSnapshot, error)
		wantStatus int
		check      func(t *testing.T, body map[string]any)
	}{
		{
			name:    "by task id",
			target:  "/api/audiobooks/" + fixedTaskID.String(),
			wantRef: fixedTaskID.String(),
			statusFn: func(context.Context, string) (*service.TaskSnapshot, error) {
				return completed, nil
			},
			wantStatus: http.StatusOK,
			check: func(t *testing.T, body map[string]any) {
				assert.Equal(t, fixedTaskID.String(), body["task_id"])
				assert.Equal(t, "completed", body["status"])
				assert.Equal(t, cachedResult().FileURL, body["file_url"])
				assert.Equal(t, true, body["determinable"])
				assert.Equal(t, float64(1), body["attempts"])
				assert.Equal(t, "2025-04-01T12:00:00Z", body["created_at"])
			},
		},
		{
			name:    "by query parameter",
			target:  "/api/audiobooks?query=Atomic+Habits",
			wantRef: "Atomic Habits",
			statusFn: func(context.Context, string) (*service.TaskSnapshot, error) {
				return &service.TaskSnapshot{Status: domain.TaskStatusCompleted, Result: cachedResult(), Cached: true}, nil
			},
			wantStatus: http.StatusOK,
			check: func(t *testing.T, body map[string]any) {
				assert.Equal(t, true, body["cached"])
				assert.NotContains(t, body, "task_id")
				assert.NotContains(t, body, "created_at")
			},
		},
		{
			name:    "failed task reports its reason",
			target:  "/api/audiobooks/asdf%20qwerty",
			wantRef: "asdf qwerty",
			statusFn: func(context.Context, string) (*service.TaskSnapshot, error) {
				return &service.TaskSnapshot{
					TaskID: fixedTaskID,
					Status: domain.TaskStatusFailed,
					Error:  "summary could not be generated for the given query",
				}, nil
			},
			wantStatus: http.StatusOK,
			check: func(t *testing.T, body map[string]any) {
				assert.Equal(t, "failed", body["status"])
				assert.Equal(t, "summary could not be generated for the given query", body["error"])
				assert.NotContains(t, body, "file_url")
			},
		},
		{
			name:    "unknown reference",
			target:  "/api/audiobooks/" + fixedTaskID.String(),
			wantRef: fixedTaskID.String(),
			statusFn: func(context.Context, string) (*service.TaskSnapshot, error) {
				return nil, service.ErrTaskNotFound
			},
			wantStatus: http.StatusNotFound,
			check: func(t *testing.T, body map[string]any) {
				assert.Equal(t, "not_found", body["status"])
			},
		},
		{
			name:       "missing query parameter",
			target:     "/api/audiobooks",
			wantStatus: http.StatusBadRequest,
			check: func(t *testing.T, body map[string]any) {
				assert.Equal(t, "Invalid query: required field", body["error"])
			},
		},
		{
			name:    "store failure",
			target:  "/api/audiobooks?query=deep+work",
			wantRef: "deep work",
			statusFn: func(context.Context, string) (*service.TaskSnapshot, error) {
				return nil, errors.New("connection reset")
			},
			wantStatus: http.StatusInternalServerError,
			check: func(t *testing.T, body map[string]any) {
				assert.Equal(t, "An unexpected error occurred", body["error"])
			},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			var gotRef string
			svc := &MockAudiobookService{}
			if tc.statusFn != nil {
				svc.StatusFn = func(ctx context.Context, ref string) (*service.TaskSnapshot, error) {
					gotRef = ref
					return tc.statusFn(ctx, ref)
				}
			}

			w, body := doRequest(t, newTestRouter(svc), http.MethodGet, tc.target, "")

			assert.Equal(t, tc.wantStatus, w.Code)
			assert.Equal(t, tc.wantRef, gotRef)
			tc.check(t, body)
		})
	}
}

func TestAudiobookHandler_Retry(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		id         string
		retryErr   error
		wantStatus int
		wantBody   string
	}{
		{"requeued", fixedTaskID.String(), nil, http.StatusAccepted, `"status":"pending"`},
		{"malformed id", "not-a-uuid", nil, http.StatusBadRequest, "Invalid task ID"},
		{"unknown task", fixedTaskID.String(), service.ErrTaskNotFound, http.StatusNotFound, "Audiobook task not found"},
		{
			"finished task",
			fixedTaskID.String(),
			fmt.Errorf("%w: task is completed", service.ErrNotRetryable),
			http.StatusConflict,
			"Task cannot be retried in its current state",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			svc := &MockAudiobookService{
				RetryFn: func(_ context.Context, id uuid.UUID) (*service.TaskSnapshot, error) {
					if tc.retryErr != nil {
						return nil, tc.retryErr
					}
					return &service.TaskSnapshot{TaskID: id, Status: domain.TaskStatusPending, Attempts: 1}, nil
				},
			}

			w, _ := doRequest(t, newTestRouter(svc), http.MethodPost, "/api/audiobooks/"+tc.id+"/retry", "")

			assert.Equal(t, tc.wantStatus, w.Code)
			assert.Contains(t, w.Body.String(), tc.wantBody)
		})
	}
}

func TestAudiobookHandler_ContinueProcessing(t *testing.T) {
	t.Parallel()

	t.Run("reports requeued count", func(t *testing.T) {
		t.Parallel()
		svc := &MockAudiobookService{ContinueProcessingFn: func(context.Context) (int, error) { return 3, nil }}

		w, body := doRequest(t, newTestRouter(svc), http.MethodPost, "/api/audiobooks/continue-processing", "")

		assert.Equal(t, http.StatusAccepted, w.Code)
		assert.Equal(t, float64(3), body["requeued"])
	})

	t.Run("store failure", func(t *testing.T) {
		t.Parallel()
		svc := &MockAudiobookService{ContinueProcessingFn: func(context.Context) (int, error) {
			return 0, errors.New("connection reset")
		}}

		w, _ := doRequest(t, newTestRouter(svc), http.MethodPost, "/api/audiobooks/continue-processing", "")

		assert.Equal(t, http.StatusInternalServerError, w.Code)
	})
}
