package notificator

import (
	"context"
	"fmt"
	"runtime/debug"

	"github.com/core-coin/successio/internal/models"
	"github.com/core-coin/successio/pkg/logger"
)

// Notificator renders messages and hands them to the mail channel.
type Notificator struct {
	logger  *logger.Logger
	mailer  Mailer
	baseURL string
}

func NewNotificator(logger *logger.Logger, mailer Mailer, baseURL string) *Notificator {
	return &Notificator{logger: logger, mailer: mailer, baseURL: baseURL}
}

// safeCall runs a function with panic recovery and turns the panic into an error
func (n *Notificator) safeCall(fn func() error, context string) (err error) {
	defer func() {
		if r := recover(); r != nil {
			n.logger.Errorw("Function panicked",
				"context", context,
				"panic", r,
				"stack", string(debug.Stack()))
			err = fmt.Errorf("%s panicked: %v", context, r)
		}
	}()
	return fn()
}

// Send implements models.NotificationService.
func (n *Notificator) Send(ctx context.Context, msg *models.Message) models.Delivery {
	if err := ctx.Err(); err != nil {
		return models.Delivery{Err: err}
	}
	if msg.Recipient == "" {
		return models.Delivery{Err: fmt.Errorf("notification %s has no recipient", msg.Kind)}
	}

	subject, body, err := render(msg, n.baseURL)
	if err != nil {
		n.logger.Errorw("Failed to render notification", "kind", msg.Kind, "vault", msg.VaultID, "error", err)
		return models.Delivery{Err: err}
	}

	err = n.safeCall(func() error { return n.mailer.SendMail(msg.Recipient, subject, body) }, "emailNotification")
	if err != nil {
		n.logger.Errorw("Failed to send notification", "kind", msg.Kind, "vault", msg.VaultID, "recipient", msg.Recipient, "error", err)
		return models.Delivery{Err: err}
	}
	return models.Delivery{Delivered: true}
}
