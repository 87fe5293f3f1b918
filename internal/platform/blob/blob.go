package blob

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/phrazzld/audiobrief/internal/config"
)

// Store uploads bytes under a path and returns a retrievable URL.
type Store interface {
	Upload(ctx context.Context, path string, data []byte) (string, error)
}

// ErrUnknownProvider is returned by New for an unsupported blob.provider.
var ErrUnknownProvider = errors.New("unknown blob provider")

// UploadError is returned when the backend rejects or fails an upload.
// StatusCode is zero when no HTTP response was received.
type UploadError struct {
	Path       string
	StatusCode int
	Body       string
	Err        error
}

func (e *UploadError) Error() string {
	switch {
	case e.Err != nil && e.StatusCode != 0:
		return fmt.Sprintf("upload of %s failed (status %d): %v", e.Path, e.StatusCode, e.Err)
	case e.Err != nil:
		return fmt.Sprintf("upload of %s failed: %v", e.Path, e.Err)
	default:
		return fmt.Sprintf("upload of %s failed with status %d: %s", e.Path, e.StatusCode, e.Body)
	}
}

func (e *UploadError) Unwrap() error {
	return e.Err
}

// New builds the Store selected by cfg.Provider.
func New(ctx context.Context, cfg config.BlobConfig, logger *slog.Logger) (Store, error) {
	switch cfg.Provider {
	case "", "vercel":
		return NewVercelStore(cfg.BaseURL, cfg.Token, &http.Client{Timeout: 5 * time.Minute}, logger), nil
	case "gcs":
		ttl := time.Duration(cfg.SignedURLTTLMinutes) * time.Minute
		return NewGCSStore(ctx, cfg.Bucket, ttl, logger)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownProvider, cfg.Provider)
	}
}
