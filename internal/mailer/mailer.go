// Package mailer delivers transactional email. The service layer only
// sees the Mailer interface; production wiring uses the SMTP
// implementation below.
package mailer

import (
	"context"
	"fmt"
	"net/smtp"
	"strings"
)

// Mailer sends a single message to a single recipient.
type Mailer interface {
	Send(ctx context.Context, to, subject, body string) error
}

// Config holds SMTP connection settings.
type Config struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
	FromName string
}

// SMTPMailer sends mail over authenticated SMTP.
type SMTPMailer struct {
	config *Config
}

// NewSMTPMailer creates an SMTPMailer from config.
func NewSMTPMailer(cfg *Config) *SMTPMailer {
	return &SMTPMailer{config: cfg}
}

// Send delivers the message. The context's deadline is not applied to
// the underlying dial; SMTP timeouts are left to the transport.
func (m *SMTPMailer) Send(ctx context.Context, to, subject, body string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	from := m.config.From
	if m.config.FromName != "" {
		from = fmt.Sprintf("%s <%s>", m.config.FromName, m.config.From)
	}

	var msg strings.Builder
	msg.WriteString("From: " + from + "\r\n")
	msg.WriteString("To: " + to + "\r\n")
	msg.WriteString("Subject: " + subject + "\r\n")
	msg.WriteString("MIME-Version: 1.0\r\n")
	msg.WriteString("Content-Type: text/html; charset=\"UTF-8\"\r\n")
	msg.WriteString("\r\n")
	msg.WriteString(body)

	addr := fmt.Sprintf("%s:%d", m.config.Host, m.config.Port)
	auth := smtp.PlainAuth("", m.config.Username, m.config.Password, m.config.Host)

	if err := smtp.SendMail(addr, auth, m.config.From, []string{to}, []byte(msg.String())); err != nil {
		return fmt.Errorf("smtp send to %s: %w", to, err)
	}
	return nil
}
