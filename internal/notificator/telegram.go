package notificator

import (
	"context"
	"fmt"
	"time"

	"github.com/go-telegram/bot"

	"github.com/core-coin/successio/internal/models"
	"github.com/core-coin/successio/pkg/logger"
)

// TelegramNotificator posts committed lifecycle events to an operations chat.
type TelegramNotificator struct {
	logger *logger.Logger
	bot    *bot.Bot
	chatID string

	send func(ctx context.Context, params *bot.SendMessageParams) error
}

func NewTelegramNotificator(logger *logger.Logger, token, chatID string) (*TelegramNotificator, error) {
	b, err := bot.New(token)
	if err != nil {
		return nil, fmt.Errorf("failed to create telegram bot: %w", err)
	}

	provider := &TelegramNotificator{
		logger: logger,
		bot:    b,
		chatID: chatID,
	}
	provider.send = func(ctx context.Context, params *bot.SendMessageParams) error {
		_, err := provider.bot.SendMessage(ctx, params)
		return err
	}
	return provider, nil
}

// Publish implements models.EventPublisher.
func (t *TelegramNotificator) Publish(ctx context.Context, event models.Event) error {
	params := &bot.SendMessageParams{
		ChatID: t.chatID,
		Text:   formatEvent(event),
	}
	if err := t.send(ctx, params); err != nil {
		t.logger.Errorw("Failed to publish event", "kind", event.Kind, "vault", event.VaultID, "error", err)
		return fmt.Errorf("failed to publish event: %w", err)
	}
	return nil
}

func formatEvent(event models.Event) string {
	text := fmt.Sprintf("[%s] vault %s (owner %s) at %s",
		event.Kind, event.VaultID, event.OwnerID, event.OccurredAt.UTC().Format(time.RFC3339))
	if event.Detail != "" {
		text += "\n" + event.Detail
	}
	return text
}
