// Package notify sends transactional email through SMTP or Resend.
package notify

import (
	"context"
	"fmt"
	"log"
	"time"
)

type Message struct {
	To      string
	Subject string
	HTML    string
}

type Mailer interface {
	Send(ctx context.Context, msg Message) error
}

// DeliveryError reports a message the provider refused or could not accept.
type DeliveryError struct {
	Provider string
	To       string
	Err      error
}

func (e *DeliveryError) Error() string {
	return fmt.Sprintf("%s: failed to deliver email to %s: %v", e.Provider, e.To, e.Err)
}

func (e *DeliveryError) Unwrap() error { return e.Err }

// Config selects and configures a provider.
type Config struct {
	Provider     string // smtp or resend
	From         string
	ResendAPIKey string
	SMTPHost     string
	SMTPPort     string
	SMTPUsername string
	SMTPPassword string
}

func NewMailer(cfg Config) Mailer {
	if cfg.Provider == "resend" {
		return NewResendMailer(cfg.ResendAPIKey, cfg.From)
	}
	return &SMTPMailer{
		Host:     cfg.SMTPHost,
		Port:     cfg.SMTPPort,
		Username: cfg.SMTPUsername,
		Password: cfg.SMTPPassword,
		From:     cfg.From,
	}
}

// SendTemplate renders t with data and sends it synchronously.
func SendTemplate(ctx context.Context, m Mailer, to string, t Template, data interface{}) error {
	subject, body, err := Render(t, data)
	if err != nil {
		return err
	}
	return m.Send(ctx, Message{To: to, Subject: subject, HTML: body})
}

// SendTemplateAsync is the fire-and-forget variant used after a committed
// state change. Delivery failures are only logged.
func SendTemplateAsync(m Mailer, to string, t Template, data interface{}) {
	if m == nil || to == "" {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := SendTemplate(ctx, m, to, t, data); err != nil {
			log.Printf("Failed to send %s email to %s: %v", t, to, err)
		}
	}()
}
