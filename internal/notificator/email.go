package notificator

import (
	"fmt"
	"net/smtp"
	"strconv"

	"github.com/core-coin/successio/pkg/logger"
)

// Mailer sends one rendered email.
type Mailer interface {
	SendMail(to, subject, body string) error
}

type EmailNotificator struct {
	logger *logger.Logger

	SMTPHost   string
	SMTPPort   int
	SMTPSender string

	SMTPAuth smtp.Auth

	sendMail func(addr string, a smtp.Auth, from string, to []string, msg []byte) error
}

func NewEmailNotificator(logger *logger.Logger, SMTPHost string, SMTPPort int, SMTPUser string, SMTPPassword string, SMTPSender string) *EmailNotificator {
	auth := smtp.PlainAuth(
		"",
		SMTPUser,
		SMTPPassword,
		SMTPHost,
	)

	return &EmailNotificator{
		logger:     logger,
		SMTPAuth:   auth,
		SMTPHost:   SMTPHost,
		SMTPPort:   SMTPPort,
		SMTPSender: SMTPSender,
		sendMail:   smtp.SendMail,
	}
}

func (e *EmailNotificator) SendMail(to, subject, body string) error {
	addr := fmt.Sprintf("%s:%s", e.SMTPHost, strconv.Itoa(e.SMTPPort))
	msg := fmt.Sprintf(
		"From: %s\r\nTo: %s\r\nSubject: %s\r\nContent-Type: text/plain; charset=UTF-8\r\n\r\n%s",
		e.SMTPSender,
		to,
		subject,
		body,
	)
	if err := e.sendMail(addr, e.SMTPAuth, e.SMTPSender, []string{to}, []byte(msg)); err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}
	e.logger.Debugw("Email sent", "to", to, "subject", subject)
	return nil
}
