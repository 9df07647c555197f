package auth

import (
	"context"

	"github.com/goliatone/go-errors"
	"gopkg.in/gomail.v2"
)

// SMTPConfig holds the mail transport options.
type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

// SMTPMailer delivers mail over SMTP using gomail.
type SMTPMailer struct {
	config SMTPConfig
	dialer *gomail.Dialer
	logger Logger
}

// NewSMTPMailer creates a mailer for the given SMTP transport.
func NewSMTPMailer(config SMTPConfig) (*SMTPMailer, error) {
	if config.Host == "" || config.Port == 0 {
		return nil, errors.New("smtp mailer requires host and port", errors.CategoryBadInput)
	}

	if config.From == "" {
		config.From = config.Username
	}

	return &SMTPMailer{
		config: config,
		dialer: gomail.NewDialer(config.Host, config.Port, config.Username, config.Password),
		logger: defLogger{},
	}, nil
}

// WithLogger overrides the default logger
func (m *SMTPMailer) WithLogger(logger Logger) *SMTPMailer {
	if logger != nil {
		m.logger = logger
	}
	return m
}

// Send delivers the message, honoring context cancellation before dialing.
func (m *SMTPMailer) Send(ctx context.Context, msg MailMessage) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	mail := gomail.NewMessage()
	mail.SetHeader("From", m.config.From)
	mail.SetHeader("To", msg.To)
	mail.SetHeader("Subject", msg.Subject)
	mail.SetBody("text/html", msg.HTML)

	if err := m.dialer.DialAndSend(mail); err != nil {
		return errors.Wrap(err, errors.CategoryOperation, "failed to deliver email").
			WithMetadata(map[string]any{"to": msg.To})
	}

	m.logger.Debug("delivered %q to %s", msg.Subject, msg.To)

	return nil
}

var _ Mailer = (*SMTPMailer)(nil)

// LogMailer writes messages to the logger instead of delivering them.
// Development only.
type LogMailer struct {
	logger Logger
}

// NewLogMailer creates a log-only mailer.
func NewLogMailer(logger Logger) *LogMailer {
	if logger == nil {
		logger = defLogger{}
	}
	return &LogMailer{logger: logger}
}

// Send logs the message instead of sending it.
func (m *LogMailer) Send(_ context.Context, msg MailMessage) error {
	m.logger.Info("mail to=%s subject=%q body=%s", msg.To, msg.Subject, msg.HTML)
	return nil
}

var _ Mailer = (*LogMailer)(nil)
