// Package mail delivers the notification mails the API sends, such as the
// notice that a point of interest was deleted. LocalSender only writes the
// mail to the log; SMTPSender delivers it.
package mail

import (
	"context"
	"crypto/tls"
	"fmt"

	gomail "github.com/go-mail/mail"
	"go.uber.org/zap"

	"github.com/iliyamo/cityinfo-api/internal/config"
	"github.com/iliyamo/cityinfo-api/internal/logger"
)

// Sender sends a plain text notification to the configured recipient.
type Sender interface {
	Send(ctx context.Context, subject, message string) error
}

// New picks the sender for cfg.Mode. Unknown modes fall back to local.
func New(cfg config.MailConfig) Sender {
	if cfg.Mode == "smtp" && cfg.SMTPHost != "" {
		return NewSMTPSender(cfg)
	}
	return NewLocalSender(cfg.To, cfg.From)
}

// LocalSender logs mails instead of sending them.
type LocalSender struct {
	to, from string
}

func NewLocalSender(to, from string) *LocalSender { return &LocalSender{to: to, from: from} }

func (s *LocalSender) Send(ctx context.Context, subject, message string) error {
	logger.From(ctx).Info("mail",
		logger.Component("LocalSender"),
		zap.String("from", s.from),
		zap.String("to", s.to),
		zap.String("subject", subject),
		zap.String("message", message),
	)
	return nil
}

// SMTPSender delivers mails through an SMTP relay.
type SMTPSender struct {
	cfg    config.MailConfig
	dialer *gomail.Dialer
}

func NewSMTPSender(cfg config.MailConfig) *SMTPSender {
	d := gomail.NewDialer(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUser, cfg.SMTPPass)
	d.TLSConfig = &tls.Config{ServerName: cfg.SMTPHost, MinVersion: tls.VersionTLS12}
	switch cfg.SMTPTLSMode {
	case "ssl":
		d.SSL = true
	case "none":
		d.StartTLSPolicy = gomail.NoStartTLS
	case "starttls":
		d.StartTLSPolicy = gomail.MandatoryStartTLS
	default:
		// "auto": STARTTLS when the server offers it
	}
	return &SMTPSender{cfg: cfg, dialer: d}
}

func (s *SMTPSender) Send(ctx context.Context, subject, message string) error {
	log := logger.From(ctx).With(
		logger.Component("SMTPSender"),
		zap.String("host", s.cfg.SMTPHost),
		zap.String("to", s.cfg.To),
	)

	m := gomail.NewMessage()
	m.SetHeader("From", s.cfg.From)
	m.SetHeader("To", s.cfg.To)
	m.SetHeader("Subject", subject)
	m.SetBody("text/plain", message)

	if err := s.dialer.DialAndSend(m); err != nil {
		log.Error("smtp send failed", logger.Err(err))
		return fmt.Errorf("smtp send: %w", err)
	}
	log.Info("mail sent", zap.String("subject", subject))
	return nil
}
