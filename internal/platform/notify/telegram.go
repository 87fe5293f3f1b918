package notify

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/phrazzld/audiobrief/internal/events"
)

// messageSender is the subset of *tgbotapi.BotAPI the notifier needs.
type messageSender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// TelegramNotifier sends a chat message when a task finishes.
type TelegramNotifier struct {
	bot           messageSender
	defaultChatID int64
	logger        *slog.Logger
}

// NewTelegramNotifier authenticates against the Bot API at the default endpoint.
func NewTelegramNotifier(token string, defaultChatID int64, logger *slog.Logger) (*TelegramNotifier, error) {
	return NewTelegramNotifierWithClient(token, tgbotapi.APIEndpoint, nil, defaultChatID, logger)
}

// NewTelegramNotifierWithClient is NewTelegramNotifier with an explicit API
// endpoint format (see tgbotapi.APIEndpoint) and HTTP client. A nil client
// means http.DefaultClient.
func NewTelegramNotifierWithClient(
	token string,
	endpoint string,
	client tgbotapi.HTTPClient,
	defaultChatID int64,
	logger *slog.Logger,
) (*TelegramNotifier, error) {
	if token == "" {
		return nil, fmt.Errorf("telegram token is required")
	}
	if client == nil {
		client = defaultHTTPClient()
	}

	bot, err := tgbotapi.NewBotAPIWithClient(token, endpoint, client)
	if err != nil {
		return nil, fmt.Errorf("failed to authenticate telegram bot: %w", err)
	}

	return newTelegramNotifier(bot, defaultChatID, logger), nil
}

func newTelegramNotifier(bot messageSender, defaultChatID int64, logger *slog.Logger) *TelegramNotifier {
	return &TelegramNotifier{
		bot:           bot,
		defaultChatID: defaultChatID,
		logger:        logger.With(slog.String("component", "telegram_notifier")),
	}
}

// HandleEvent implements events.EventHandler.
func (n *TelegramNotifier) HandleEvent(ctx context.Context, event *events.TaskEvent) error {
	chatID := event.ChatID
	if chatID == 0 {
		chatID = n.defaultChatID
	}
	if chatID == 0 {
		n.logger.DebugContext(ctx, "no chat to notify",
			slog.String("task_id", event.TaskID.String()))
		return nil
	}

	msg := tgbotapi.NewMessage(chatID, formatMessage(event))
	if _, err := n.bot.Send(msg); err != nil {
		return fmt.Errorf("telegram notify chat %d: %w", chatID, err)
	}

	n.logger.InfoContext(ctx, "telegram notification sent",
		slog.String("task_id", event.TaskID.String()),
		slog.Int64("chat_id", chatID))
	return nil
}

func formatMessage(event *events.TaskEvent) string {
	var b strings.Builder
	if event.Type == events.TypeTaskFailed {
		fmt.Fprintf(&b, "Could not create an audio summary for %q.", event.Query)
		if event.Error != "" {
			fmt.Fprintf(&b, "\nReason: %s", event.Error)
		}
		return b.String()
	}

	b.WriteString("Your audio summary is ready")
	switch {
	case event.Title != "" && event.Author != "":
		fmt.Fprintf(&b, ": %s by %s", event.Title, event.Author)
	case event.Title != "":
		fmt.Fprintf(&b, ": %s", event.Title)
	default:
		fmt.Fprintf(&b, ": %s", event.Query)
	}
	if event.Result != nil {
		fmt.Fprintf(&b, "\n%s", event.Result.FileURL)
	}
	return b.String()
}
