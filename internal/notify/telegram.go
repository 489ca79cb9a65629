package notify

import (
	"context"
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

type telegramAPI interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// TelegramBroadcaster posts notifications to a staff group chat.
type TelegramBroadcaster struct {
	bot    telegramAPI
	chatID int64
}

// NewTelegramBroadcaster authenticates the bot and targets chatID.
func NewTelegramBroadcaster(token string, chatID int64) (*TelegramBroadcaster, error) {
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("failed to create telegram bot: %w", err)
	}
	return &TelegramBroadcaster{bot: bot, chatID: chatID}, nil
}

// Name returns the channel name.
func (t *TelegramBroadcaster) Name() string { return "telegram" }

// Broadcast posts the notification to the chat.
func (t *TelegramBroadcaster) Broadcast(ctx context.Context, n Notification) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	msg := tgbotapi.NewMessage(t.chatID, fmt.Sprintf("%s\n%s\nRef: %s", n.Subject, n.Message, n.ReferenceID))
	msg.DisableWebPagePreview = true
	if _, err := t.bot.Send(msg); err != nil {
		return fmt.Errorf("failed to post to telegram: %w", err)
	}
	return nil
}
