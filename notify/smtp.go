package notify

import (
	"context"
	"fmt"
	"net/smtp"
)

type SMTPMailer struct {
	Host     string
	Port     string
	Username string
	Password string
	From     string
}

// Send ignores ctx; net/smtp has no cancellation hook.
func (m *SMTPMailer) Send(ctx context.Context, msg Message) error {
	if m.Host == "" || m.Port == "" || m.From == "" {
		return &DeliveryError{Provider: "smtp", To: msg.To, Err: fmt.Errorf("SMTP not configured")}
	}

	var auth smtp.Auth
	if m.Username != "" && m.Password != "" {
		auth = smtp.PlainAuth("", m.Username, m.Password, m.Host)
	}

	addr := m.Host + ":" + m.Port
	if err := smtp.SendMail(addr, auth, m.From, []string{msg.To}, buildMIME(m.From, msg)); err != nil {
		return &DeliveryError{Provider: "smtp", To: msg.To, Err: err}
	}
	return nil
}

func buildMIME(from string, msg Message) []byte {
	headers := fmt.Sprintf("From: %s\r\nTo: %s\r\nSubject: %s\r\nMIME-Version: 1.0\r\nContent-Type: text/html; charset=UTF-8\r\n\r\n",
		from, msg.To, msg.Subject)
	return []byte(headers + msg.HTML)
}
