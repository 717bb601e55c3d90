// Package notify delivers transfer notifications to users over Telegram.
package notify

import (
	"context"
	"errors"
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"budget/internal/amqp"
	"budget/internal/core"
)

// ErrNoChat is returned when a notification has nowhere to go.
var ErrNoChat = errors.New("no telegram chat configured")

// Sender is the part of *tgbotapi.BotAPI the notifier uses.
type Sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

type TelegramNotifier struct {
	sender Sender
}

// NewTelegramNotifier logs in to the Bot API with token.
func NewTelegramNotifier(token string) (*TelegramNotifier, error) {
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("create telegram bot: %w", err)
	}
	return NewTelegramNotifierWithSender(bot), nil
}

func NewTelegramNotifierWithSender(sender Sender) *TelegramNotifier {
	return &TelegramNotifier{sender: sender}
}

// NotifyTransfer sends one transfer message to chatID.
func (n *TelegramNotifier) NotifyTransfer(ctx context.Context, chatID int64, e *amqp.TransferEvent) error {
	if chatID == 0 {
		return ErrNoChat
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	msg := tgbotapi.NewMessage(chatID, FormatTransfer(e))
	if _, err := n.sender.Send(msg); err != nil {
		return fmt.Errorf("send telegram message: %w", err)
	}
	return nil
}

// FormatTransfer renders the text users see for a transfer.
func FormatTransfer(e *amqp.TransferEvent) string {
	return fmt.Sprintf("Moved $%s into %s (total $%s)",
		core.FromCents(e.AmountCents), e.BinName, core.FromCents(e.NewTotalCents))
}
