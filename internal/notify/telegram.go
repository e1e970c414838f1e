// Package notify delivers proactive alerts to the administrator chat.
// Delivery is best-effort: failures are logged and swallowed, never surfaced
// to the operation that raised the alert, and never retried.
package notify

import (
	"context"
	"log/slog"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// MessageSender is the slice of the Telegram API the notifier needs.
type MessageSender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

type TelegramNotifier struct {
	api         MessageSender
	adminChatID int64
}

func NewTelegramNotifier(api MessageSender, adminChatID int64) *TelegramNotifier {
	return &TelegramNotifier{api: api, adminChatID: adminChatID}
}

// Alert sends text to the admin chat. It never returns an error; a missing
// configuration or a send failure is logged and dropped.
func (n *TelegramNotifier) Alert(ctx context.Context, text string) {
	if n == nil || n.api == nil || n.adminChatID == 0 {
		slog.WarnContext(ctx, "Telegram notifier not configured, dropping alert")
		return
	}

	msg := tgbotapi.NewMessage(n.adminChatID, text)
	msg.ParseMode = tgbotapi.ModeMarkdown
	if _, err := n.api.Send(msg); err != nil {
		slog.ErrorContext(ctx, "Failed to deliver admin alert", "error", err, "chat_id", n.adminChatID)
	}
}
