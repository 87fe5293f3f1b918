package blob

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"cloud.google.com/go/storage"
	"google.golang.org/api/option"
)

// GCSStore writes objects to a Google Cloud Storage bucket.
type GCSStore struct {
	client       *storage.Client
	bucket       *storage.BucketHandle
	bucketName   string
	signedURLTTL time.Duration
	logger       *slog.Logger

	// signer overrides credential detection for signed URLs when set.
	signer *storage.SignedURLOptions
}

// NewGCSStore connects with application default credentials unless opts say
// otherwise. When signedURLTTL is positive, Upload returns a V4 signed GET
// URL instead of the public object URL.
func NewGCSStore(
	ctx context.Context,
	bucketName string,
	signedURLTTL time.Duration,
	logger *slog.Logger,
	opts ...option.ClientOption,
) (*GCSStore, error) {
	connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	client, err := storage.NewClient(connectCtx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCS client: %w", err)
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &GCSStore{
		client:       client,
		bucket:       client.Bucket(bucketName),
		bucketName:   bucketName,
		signedURLTTL: signedURLTTL,
		logger:       logger.With("component", "gcs_blob", "bucket", bucketName),
	}, nil
}

// Upload implements Store.
func (s *GCSStore) Upload(ctx context.Context, path string, data []byte) (string, error) {
	// The upload is finished even if the caller gives up mid-stream.
	uploadCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Minute)
	defer cancel()

	w := s.bucket.Object(path).NewWriter(uploadCtx)
	w.ContentType = "audio/mpeg"

	start := time.Now()
	if _, err := io.Copy(w, bytes.NewReader(data)); err != nil {
		_ = w.Close()
		return "", &UploadError{Path: path, Err: fmt.Errorf("stream to GCS: %w", err)}
	}
	if err := w.Close(); err != nil {
		return "", &UploadError{Path: path, Err: fmt.Errorf("finalize GCS upload: %w", err)}
	}

	s.logger.InfoContext(ctx, "blob uploaded",
		"path", path,
		"bytes", len(data),
		"duration_seconds", time.Since(start).Seconds())

	if s.signedURLTTL <= 0 {
		return PublicURL(s.bucketName, path), nil
	}

	signOpts := &storage.SignedURLOptions{}
	if s.signer != nil {
		*signOpts = *s.signer
	}
	signOpts.Scheme = storage.SigningSchemeV4
	signOpts.Method = http.MethodGet
	signOpts.Expires = time.Now().Add(s.signedURLTTL)

	signed, err := s.bucket.SignedURL(path, signOpts)
	if err != nil {
		return "", &UploadError{Path: path, Err: fmt.Errorf("sign URL: %w", err)}
	}
	return signed, nil
}

// Close releases the underlying client.
func (s *GCSStore) Close() error {
	return s.client.Close()
}

// PublicURL is the storage.googleapis.com URL of an object.
func PublicURL(bucket, path string) string {
	return fmt.Sprintf("https://storage.googleapis.com/%s/%s", bucket, escapePath(path))
}
