package notify

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"
	"gopkg.in/gomail.v2"

	"github.com/segyhp/lending-engine/internal/config"
)

// MailSender is satisfied by *gomail.Dialer.
type MailSender interface {
	DialAndSend(m ...*gomail.Message) error
}

type EmailNotifier struct {
	sender MailSender
	from   string
	logger logrus.FieldLogger
}

func NewEmailNotifier(cfg config.EmailConfig, logger logrus.FieldLogger) *EmailNotifier {
	dialer := gomail.NewDialer(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUser, cfg.SMTPPass)
	return NewEmailNotifierWithSender(dialer, cfg.SenderEmail, logger)
}

func NewEmailNotifierWithSender(sender MailSender, from string, logger logrus.FieldLogger) *EmailNotifier {
	return &EmailNotifier{
		sender: sender,
		from:   from,
		logger: logger.WithField("component", "email_notifier"),
	}
}

func (n *EmailNotifier) Notify(ctx context.Context, recipient, subject, body string) error {
	// Skip if email is empty
	if recipient == "" {
		n.logger.WithField("subject", subject).Debug("No recipient address, skipping email")
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	m := gomail.NewMessage()
	m.SetHeader("From", n.from)
	m.SetHeader("To", recipient)
	m.SetHeader("Subject", subject)
	m.SetBody("text/plain", body)

	if err := n.sender.DialAndSend(m); err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}

	n.logger.WithFields(logrus.Fields{"to": recipient, "subject": subject}).Info("Email sent")
	return nil
}
