// Package shared holds the request and response helpers used by every HTTP
// handler: trace IDs, JSON decoding with validation, and error rendering.
package shared

import (
	"context"
	"strings"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
)

// ContextKey is the type of keys this package stores in a context.
type ContextKey string

// TraceIDKey is the context key for the request's trace ID.
const TraceIDKey ContextKey = "traceID"

// WithTraceID returns a context carrying the trace ID for the request. The
// chi request ID is reused when present so both appear as one value in logs;
// otherwise a fresh 32 character hex ID is generated.
func WithTraceID(ctx context.Context) context.Context {
	traceID := middleware.GetReqID(ctx)
	if traceID == "" {
		traceID = NewTraceID()
	}
	return context.WithValue(ctx, TraceIDKey, traceID)
}

// GetTraceID returns the trace ID stored in ctx, or "".
func GetTraceID(ctx context.Context) string {
	traceID, ok := ctx.Value(TraceIDKey).(string)
	if !ok {
		return ""
	}
	return traceID
}

// NewTraceID returns a random 32 character hex ID.
func NewTraceID() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")
}
