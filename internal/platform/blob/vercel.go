package blob

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
)

// DefaultVercelBaseURL is the Vercel Blob upload endpoint.
const DefaultVercelBaseURL = "https://blob.vercel-storage.com"

// vercelAPIVersion is sent as x-api-version on every upload.
const vercelAPIVersion = "7"

// maxErrorBody bounds how much of a failed response is kept.
const maxErrorBody = 4096

// VercelStore uploads with a single authenticated PUT per object.
type VercelStore struct {
	baseURL string
	token   string
	client  *http.Client
	logger  *slog.Logger
}

// NewVercelStore creates a store for the given endpoint and read-write token.
func NewVercelStore(baseURL, token string, client *http.Client, logger *slog.Logger) *VercelStore {
	if baseURL == "" {
		baseURL = DefaultVercelBaseURL
	}
	if client == nil {
		client = http.DefaultClient
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &VercelStore{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		client:  client,
		logger:  logger.With("component", "vercel_blob"),
	}
}

type vercelPutResponse struct {
	URL string `json:"url"`
}

// Upload implements Store. Only HTTP 200 with a JSON url counts as success.
func (s *VercelStore) Upload(ctx context.Context, path string, data []byte) (string, error) {
	endpoint := s.baseURL + "/" + escapePath(path)

	req, err := http.NewRequestWithContext(ctx, http.MethodPut, endpoint, bytes.NewReader(data))
	if err != nil {
		return "", &UploadError{Path: path, Err: err}
	}
	req.Header.Set("Authorization", "Bearer "+s.token)
	req.Header.Set("Content-Type", "application/octet-stream")
	req.Header.Set("x-api-version", vercelAPIVersion)

	resp, err := s.client.Do(req)
	if err != nil {
		return "", &UploadError{Path: path, Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	if err != nil {
		return "", &UploadError{Path: path, StatusCode: resp.StatusCode, Err: fmt.Errorf("read response: %w", err)}
	}

	if resp.StatusCode != http.StatusOK {
		s.logger.WarnContext(ctx, "blob upload rejected",
			"path", path,
			"status", resp.StatusCode)
		return "", &UploadError{Path: path, StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(body))}
	}

	var out vercelPutResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return "", &UploadError{Path: path, StatusCode: resp.StatusCode, Body: string(body), Err: fmt.Errorf("decode response: %w", err)}
	}
	if out.URL == "" {
		return "", &UploadError{Path: path, StatusCode: resp.StatusCode, Body: string(body), Err: fmt.Errorf("response has no url")}
	}

	s.logger.InfoContext(ctx, "blob uploaded",
		"path", path,
		"bytes", len(data))
	return out.URL, nil
}

func escapePath(path string) string {
	segments := strings.Split(strings.TrimLeft(path, "/"), "/")
	for i, seg := range segments {
		segments[i] = url.PathEscape(seg)
	}
	return strings.Join(segments, "/")
}
