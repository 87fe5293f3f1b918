package notify

import (
	"context"
	"log/slog"

	"github.com/phrazzld/audiobrief/internal/events"
)

// LogNotifier writes one structured log line per task event.
type LogNotifier struct {
	logger *slog.Logger
}

// NewLogNotifier creates a LogNotifier.
func NewLogNotifier(logger *slog.Logger) *LogNotifier {
	return &LogNotifier{logger: logger.With(slog.String("component", "log_notifier"))}
}

// HandleEvent implements events.EventHandler.
func (n *LogNotifier) HandleEvent(ctx context.Context, event *events.TaskEvent) error {
	attrs := []any{
		slog.String("event_type", event.Type),
		slog.String("task_id", event.TaskID.String()),
		slog.String("fingerprint", event.Fingerprint),
		slog.String("status", string(event.Status)),
	}
	if event.Result != nil {
		attrs = append(attrs, slog.String("file_url", event.Result.FileURL))
	}

	if event.Type == events.TypeTaskFailed {
		n.logger.WarnContext(ctx, "audiobook task failed", append(attrs, slog.String("reason", event.Error))...)
		return nil
	}
	n.logger.InfoContext(ctx, "audiobook task completed", attrs...)
	return nil
}
