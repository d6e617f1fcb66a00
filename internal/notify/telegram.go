// Package notify dispatches new-content notifications to downstream
// consumers.
package notify

import (
	"context"
	"fmt"
	"log/slog"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"inksync/internal/model"
)

type telegramAPI interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// Telegram pushes new-content signals to a Telegram chat.
type Telegram struct {
	api    telegramAPI
	chatID int64
	log    *slog.Logger
}

// NewTelegram creates a Telegram notifier for the given bot token and chat.
func NewTelegram(token string, chatID int64, log *slog.Logger) (*Telegram, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("create bot api: %w", err)
	}
	return &Telegram{api: api, chatID: chatID, log: log}, nil
}

// Notify sends a "new content available" message with the current unread
// count. Send failures are logged, never surfaced: notification delivery must
// not affect the sync outcome.
func (t *Telegram) Notify(_ context.Context, kind model.SourceKind, fresh, unread int) {
	msg := tgbotapi.NewMessage(t.chatID, FormatNewContent(kind, fresh, unread))
	msg.DisableWebPagePreview = true
	if _, err := t.api.Send(msg); err != nil {
		t.log.Error("send notification", "chat_id", t.chatID, "error", err)
	}
}
