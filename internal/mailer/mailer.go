package mailer

import (
	"errors"
	"fmt"
	"net/smtp"

	"github.com/spec-kit/video-service/internal/config"
)

// Mailer delivers plain-text notification emails.
type Mailer interface {
	Send(to, subject, body string) error
}

// SMTP sends mail through a configured relay.
type SMTP struct {
	cfg config.MailConfig
}

// NewSMTP constructs the mailer.
func NewSMTP(cfg config.MailConfig) *SMTP {
	return &SMTP{cfg: cfg}
}

// Send delivers a single message. Fails when no relay host is configured.
func (m *SMTP) Send(to, subject, body string) error {
	if m.cfg.Host == "" {
		return errors.New("mail relay not configured")
	}

	addr := fmt.Sprintf("%s:%d", m.cfg.Host, m.cfg.Port)
	msg := []byte(
		"From: " + m.cfg.From + "\r\n" +
			"To: " + to + "\r\n" +
			"Subject: " + subject + "\r\n" +
			"\r\n" +
			body + "\r\n")

	var auth smtp.Auth
	if m.cfg.Username != "" {
		auth = smtp.PlainAuth("", m.cfg.Username, m.cfg.Password, m.cfg.Host)
	}
	return smtp.SendMail(addr, auth, m.cfg.From, []string{to}, msg)
}
