package notificator

import (
	"context"

	"github.com/core-coin/successio/internal/models"
	"github.com/core-coin/successio/pkg/logger"
)

// LogPublisher writes events to the application log. Used when no ops chat is configured.
type LogPublisher struct {
	logger *logger.Logger
}

func NewLogPublisher(logger *logger.Logger) *LogPublisher {
	return &LogPublisher{logger: logger}
}

func (p *LogPublisher) Publish(_ context.Context, event models.Event) error {
	p.logger.Infow("Vault event", "kind", event.Kind, "vault", event.VaultID, "owner", event.OwnerID, "at", event.OccurredAt, "detail", event.Detail)
	return nil
}
