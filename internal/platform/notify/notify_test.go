package notify

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/confluentinc/confluent-kafka-go/v2/kafka"
	"github.com/google/uuid"
	"github.com/phrazzld/audiobrief/internal/domain"
	"github.com/phrazzld/audiobrief/internal/events"
	"github.com/phrazzld/audiobrief/internal/platform/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func completedEvent(chatID int64) *events.TaskEvent {
	return &events.TaskEvent{
		ID:          uuid.New(),
		Type:        events.TypeTaskCompleted,
		TaskID:      uuid.New(),
		Query:       "Atomic Habits",
		Fingerprint: "atomic_habits",
		Status:      domain.TaskStatusCompleted,
		Title:       "Atomic Habits",
		Author:      "James Clear",
		ChatID:      chatID,
		Result: &domain.Result{
			FileURL:     "https://blob.example/audiobooks/atomic_habits.mp3",
			SummaryText: "Small habits compound.",
		},
	}
}

func failedEvent() *events.TaskEvent {
	return &events.TaskEvent{
		ID:          uuid.New(),
		Type:        events.TypeTaskFailed,
		TaskID:      uuid.New(),
		Query:       "asdkjh qwe",
		Fingerprint: "asdkjh_qwe",
		Status:      domain.TaskStatusFailed,
		Error:       "summary could not be generated for the given query",
	}
}

// fakeBotAPI records sendMessage calls and answers getMe.
type fakeBotAPI struct {
	mu       sync.Mutex
	messages []map[string]string
	failSend bool
}

func (f *fakeBotAPI) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	switch {
	case strings.HasSuffix(r.URL.Path, "/getMe"):
		_, _ = io.WriteString(w, `{"ok":true,"result":{"id":1,"is_bot":true,"first_name":"audiobrief","username":"audiobrief_bot"}}`)
	case strings.HasSuffix(r.URL.Path, "/sendMessage"):
		if f.failSend {
			_, _ = io.WriteString(w, `{"ok":false,"error_code":400,"description":"Bad Request: chat not found"}`)
			return
		}
		_ = r.ParseForm()
		f.mu.Lock()
		f.messages = append(f.messages, map[string]string{
			"chat_id": r.PostForm.Get("chat_id"),
			"text":    r.PostForm.Get("text"),
		})
		f.mu.Unlock()
		_, _ = io.WriteString(w, `{"ok":true,"result":{"message_id":7,"date":0,"chat":{"id":1,"type":"private"}}}`)
	default:
		http.NotFound(w, r)
	}
}

func newTestTelegram(t *testing.T, api *fakeBotAPI, defaultChat int64) *TelegramNotifier {
	t.Helper()
	srv := httptest.NewServer(api)
	t.Cleanup(srv.Close)

	n, err := NewTelegramNotifierWithClient("123:abc", srv.URL+"/bot%s/%s", srv.Client(), defaultChat, discardLogger())
	require.NoError(t, err)
	return n
}

func TestTelegramNotifier(t *testing.T) {
	t.Parallel()

	t.Run("completed task goes to the task chat", func(t *testing.T) {
		t.Parallel()
		api := &fakeBotAPI{}
		n := newTestTelegram(t, api, 555)

		require.NoError(t, n.HandleEvent(context.Background(), completedEvent(42)))

		require.Len(t, api.messages, 1)
		assert.Equal(t, "42", api.messages[0]["chat_id"])
		assert.Contains(t, api.messages[0]["text"], "Atomic Habits by James Clear")
		assert.Contains(t, api.messages[0]["text"], "https://blob.example/audiobooks/atomic_habits.mp3")
	})

	t.Run("falls back to the default chat", func(t *testing.T) {
		t.Parallel()
		api := &fakeBotAPI{}
		n := newTestTelegram(t, api, 555)

		require.NoError(t, n.HandleEvent(context.Background(), failedEvent()))

		require.Len(t, api.messages, 1)
		assert.Equal(t, "555", api.messages[0]["chat_id"])
		assert.Contains(t, api.messages[0]["text"], "summary could not be generated")
	})

	t.Run("skips without any chat", func(t *testing.T) {
		t.Parallel()
		api := &fakeBotAPI{}
		n := newTestTelegram(t, api, 0)

		require.NoError(t, n.HandleEvent(context.Background(), completedEvent(0)))
		assert.Empty(t, api.messages)
	})

	t.Run("api error is returned", func(t *testing.T) {
		t.Parallel()
		api := &fakeBotAPI{failSend: true}
		n := newTestTelegram(t, api, 0)

		err := n.HandleEvent(context.Background(), completedEvent(42))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "chat not found")
	})
}

func TestNewTelegramNotifier_RequiresToken(t *testing.T) {
	t.Parallel()
	_, err := NewTelegramNotifier("", 1, discardLogger())
	assert.Error(t, err)
}

func TestFormatMessage(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		event *events.TaskEvent
		want  string
	}{
		{
			name:  "title and author",
			event: completedEvent(1),
			want:  "Your audio summary is ready: Atomic Habits by James Clear\nhttps://blob.example/audiobooks/atomic_habits.mp3",
		},
		{
			name: "query only",
			event: &events.TaskEvent{
				Type:   events.TypeTaskCompleted,
				Query:  "stoicism",
				Result: &domain.Result{FileURL: "https://blob.example/stoicism.mp3"},
			},
			want: "Your audio summary is ready: stoicism\nhttps://blob.example/stoicism.mp3",
		},
		{
			name:  "failure",
			event: failedEvent(),
			want:  "Could not create an audio summary for \"asdkjh qwe\".\nReason: summary could not be generated for the given query",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, formatMessage(tt.event))
		})
	}
}

type fakeProducer struct {
	mu       sync.Mutex
	messages []*kafka.Message
	err      error
	events   chan kafka.Event
	closed   bool
}

func newFakeProducer() *fakeProducer {
	return &fakeProducer{events: make(chan kafka.Event, 1)}
}

func (p *fakeProducer) Produce(msg *kafka.Message, _ chan kafka.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.messages = append(p.messages, msg)
	return nil
}

func (p *fakeProducer) Events() chan kafka.Event { return p.events }
func (p *fakeProducer) Flush(int) int            { return 0 }

func (p *fakeProducer) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.closed {
		p.closed = true
		close(p.events)
	}
}

func TestKafkaNotifier(t *testing.T) {
	t.Parallel()

	t.Run("publishes keyed by fingerprint", func(t *testing.T) {
		t.Parallel()
		p := newFakeProducer()
		n := newKafkaNotifier(p, "audiobook-events", discardLogger())
		defer n.Close()

		event := completedEvent(0)
		require.NoError(t, n.HandleEvent(context.Background(), event))

		require.Len(t, p.messages, 1)
		msg := p.messages[0]
		assert.Equal(t, "audiobook-events", *msg.TopicPartition.Topic)
		assert.Equal(t, []byte("atomic_habits"), msg.Key)
		assert.Contains(t, string(msg.Value), `"type":"task.completed"`)
		assert.Contains(t, string(msg.Value), event.TaskID.String())
	})

	t.Run("produce error", func(t *testing.T) {
		t.Parallel()
		p := newFakeProducer()
		p.err = errors.New("queue full")
		n := newKafkaNotifier(p, "audiobook-events", discardLogger())
		defer n.Close()

		err := n.HandleEvent(context.Background(), failedEvent())
		assert.ErrorContains(t, err, "queue full")
	})

	t.Run("cancelled context", func(t *testing.T) {
		t.Parallel()
		p := newFakeProducer()
		n := newKafkaNotifier(p, "audiobook-events", discardLogger())
		defer n.Close()

		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		assert.ErrorIs(t, n.HandleEvent(ctx, failedEvent()), context.Canceled)
		assert.Empty(t, p.messages)
	})
}

func TestLogNotifier(t *testing.T) {
	t.Parallel()
	log, buf := logger.GetTestLogger(t)
	n := NewLogNotifier(log)

	require.NoError(t, n.HandleEvent(context.Background(), completedEvent(0)))
	require.NoError(t, n.HandleEvent(context.Background(), failedEvent()))

	entries, err := buf.GetLogEntries()
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "audiobook task completed", entries[0]["msg"])
	assert.Equal(t, "atomic_habits", entries[0]["fingerprint"])
	assert.Equal(t, "WARN", entries[1]["level"])
	assert.Equal(t, "log_notifier", entries[1]["component"])
}
