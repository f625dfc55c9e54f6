// Package mail delivers transactional email over SMTP.
package mail

import (
	"context"
	"fmt"

	"go.uber.org/zap"
	gomail "gopkg.in/gomail.v2"

	"github.com/harborlight-foundation/member-portal/internal/core/port"
	"github.com/harborlight-foundation/member-portal/internal/infra/config"
	"github.com/harborlight-foundation/member-portal/internal/infra/logger"
)

// SMTPMailer sends mail through a configured SMTP relay.
type SMTPMailer struct {
	cfg    config.SMTPSettings
	dialer *gomail.Dialer
	logger *zap.Logger
}

// NewSMTPMailer constructs a mailer from SMTP settings.
func NewSMTPMailer(cfg config.SMTPSettings, log *zap.Logger) (*SMTPMailer, error) {
	if cfg.Host == "" {
		return nil, fmt.Errorf("smtp host is required")
	}
	if cfg.From == "" {
		return nil, fmt.Errorf("smtp from address is required")
	}

	dialer := gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password)

	return &SMTPMailer{cfg: cfg, dialer: dialer, logger: log}, nil
}

// Send delivers a single message. The context deadline is honored before
// dialing; gomail itself does not take a context.
func (m *SMTPMailer) Send(ctx context.Context, email port.Email) error {
	if email.To == "" {
		return fmt.Errorf("no recipient specified")
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	msg := gomail.NewMessage()
	msg.SetHeader("From", m.cfg.From)
	msg.SetHeader("To", email.To)
	msg.SetHeader("Subject", email.Subject)

	replyTo := email.ReplyTo
	if replyTo == "" {
		replyTo = m.cfg.ReplyTo
	}
	if replyTo != "" {
		msg.SetHeader("Reply-To", replyTo)
	}

	if email.HTML != "" {
		msg.SetBody("text/html", email.HTML)
		if email.Text != "" {
			msg.AddAlternative("text/plain", email.Text)
		}
	} else {
		msg.SetBody("text/plain", email.Text)
	}

	if err := m.dialer.DialAndSend(msg); err != nil {
		return fmt.Errorf("send mail: %w", err)
	}

	m.logger.Debug("mail sent",
		zap.String("to", logger.MaskEmail(email.To)),
		zap.String("subject", email.Subject),
	)

	return nil
}

var _ port.Mailer = (*SMTPMailer)(nil)

// LogMailer writes messages to the log instead of delivering them. Used in
// development when no SMTP relay is configured.
type LogMailer struct {
	logger *zap.Logger
}

func NewLogMailer(log *zap.Logger) *LogMailer {
	return &LogMailer{logger: log}
}

func (m *LogMailer) Send(_ context.Context, email port.Email) error {
	m.logger.Info("mail delivery skipped, logging instead",
		zap.String("to", logger.MaskEmail(email.To)),
		zap.String("subject", email.Subject),
		zap.String("text", email.Text),
	)
	return nil
}

var _ port.Mailer = (*LogMailer)(nil)
