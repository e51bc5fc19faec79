package mailer

import (
	"fmt"
	"net/smtp"
	"strconv"
	"strings"
	"time"

	"xp-cashout/pkg/config"
)

// Mailer sends plain-text e-mail.
type Mailer interface {
	Send(to, subject, body string) error
}

type SMTPMailer struct {
	addr string
	from string
	auth smtp.Auth
	send func(addr string, a smtp.Auth, from string, to []string, msg []byte) error
}

// NewSMTPMailer returns nil when no SMTP host is configured.
func NewSMTPMailer(cfg *config.Config) *SMTPMailer {
	if cfg.SMTPHost == "" {
		return nil
	}

	var auth smtp.Auth
	if cfg.SMTPUser != "" {
		auth = smtp.PlainAuth("", cfg.SMTPUser, cfg.SMTPPassword, cfg.SMTPHost)
	}

	from := cfg.SMTPFrom
	if from == "" {
		from = cfg.SMTPUser
	}

	return &SMTPMailer{
		addr: cfg.SMTPHost + ":" + strconv.Itoa(cfg.SMTPPort),
		from: from,
		auth: auth,
		send: smtp.SendMail,
	}
}

func (m *SMTPMailer) Send(to, subject, body string) error {
	if strings.ContainsAny(to, "\r\n") || strings.ContainsAny(subject, "\r\n") {
		return fmt.Errorf("invalid header value")
	}

	msg := buildMessage(m.from, to, subject, body, time.Now())
	if err := m.send(m.addr, m.auth, m.from, []string{to}, msg); err != nil {
		return fmt.Errorf("failed to send email to %s: %w", to, err)
	}
	return nil
}

func buildMessage(from, to, subject, body string, now time.Time) []byte {
	var b strings.Builder
	b.WriteString("From: " + from + "\r\n")
	b.WriteString("To: " + to + "\r\n")
	b.WriteString("Subject: " + subject + "\r\n")
	b.WriteString("Date: " + now.UTC().Format(time.RFC1123Z) + "\r\n")
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/plain; charset=\"utf-8\"\r\n")
	b.WriteString("\r\n")
	b.WriteString(strings.ReplaceAll(body, "\n", "\r\n"))
	return []byte(b.String())
}
