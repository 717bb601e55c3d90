package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"budget/internal/amqp"
	"budget/internal/cache"
	"budget/internal/core"
	"budget/internal/log"
	"budget/internal/storage"
)

const (
	seenCacheSize = 10000
	seenCacheTTL  = 24 * time.Hour
)

// ProfileReader looks up where a user wants to be notified.
type ProfileReader interface {
	GetProfile(ctx context.Context, userID string) (core.Profile, error)
}

// Notifier delivers one transfer message to a chat.
type Notifier interface {
	NotifyTransfer(ctx context.Context, chatID int64, e *amqp.TransferEvent) error
}

// NotifyWorker turns transfer events from the queue into user notifications.
type NotifyWorker struct {
	profiles ProfileReader
	notifier Notifier
	seen     *cache.LRUCache[struct{}]
}

func NewNotifyWorker(profiles ProfileReader, notifier Notifier) *NotifyWorker {
	return &NotifyWorker{
		profiles: profiles,
		notifier: notifier,
		seen:     cache.NewLRUCache[struct{}](seenCacheSize, seenCacheTTL),
	}
}

// HandleTransferEvent notifies the event's owner. Users without a chat are
// skipped. A returned error makes the consumer requeue the message.
func (w *NotifyWorker) HandleTransferEvent(ctx context.Context, e *amqp.TransferEvent) error {
	if _, dup := w.seen.Get(e.MessageID); dup {
		slog.DebugContext(ctx, "Skipping redelivered transfer event",
			log.FieldComponent, log.ComponentWorker,
			log.FieldMessageID, e.MessageID)
		return nil
	}

	profile, err := w.profiles.GetProfile(ctx, e.UserID)
	if errors.Is(err, storage.ErrNotFound) || (err == nil && profile.TelegramChatID == 0) {
		slog.DebugContext(ctx, "No chat configured, skipping notification",
			log.FieldComponent, log.ComponentWorker,
			log.FieldUserID, e.UserID)
		return nil
	}
	if err != nil {
		return fmt.Errorf("get profile: %w", err)
	}

	if err := w.notifier.NotifyTransfer(ctx, profile.TelegramChatID, e); err != nil {
		return fmt.Errorf("notify transfer: %w", err)
	}
	w.seen.Set(e.MessageID, struct{}{})

	slog.InfoContext(ctx, "Transfer notification sent",
		log.FieldComponent, log.ComponentWorker,
		log.FieldOperation, log.OpNotify,
		log.FieldMessageID, e.MessageID,
		log.FieldUserID, e.UserID,
		log.FieldBinID, e.BinID)
	return nil
}
