package notify

import (
	"context"
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"
)

// LogNotifier writes fired notifications to the log. It is the default
// delivery channel when no external one is configured.
type LogNotifier struct {
	Logger *zerolog.Logger
}

func (n LogNotifier) Notify(_ context.Context, msg Notification) error {
	n.Logger.Info().
		Str("notification_id", msg.ID).
		Str("title", msg.Title).
		Str("body", msg.Body).
		Msg("hydration reminder fired")
	return nil
}

// TelegramNotifier delivers fired notifications to a Telegram chat.
type TelegramNotifier struct {
	api    *tgbotapi.BotAPI
	chatID int64
}

// NewTelegramNotifier creates a notifier posting to chatID.
func NewTelegramNotifier(token string, chatID int64) (*TelegramNotifier, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("create telegram bot: %w", err)
	}
	return &TelegramNotifier{api: api, chatID: chatID}, nil
}

func (n *TelegramNotifier) Notify(_ context.Context, msg Notification) error {
	text := fmt.Sprintf("%s\n%s", msg.Title, msg.Body)
	if _, err := n.api.Send(tgbotapi.NewMessage(n.chatID, text)); err != nil {
		return fmt.Errorf("send telegram notification: %w", err)
	}
	return nil
}
