package notify

import (
	"context"
	"fmt"

	"github.com/resend/resend-go/v2"
)

type ResendMailer struct {
	client *resend.Client
	from   string
}

func NewResendMailer(apiKey, from string) *ResendMailer {
	return &ResendMailer{client: resend.NewClient(apiKey), from: from}
}

func (m *ResendMailer) Send(ctx context.Context, msg Message) error {
	if m.from == "" {
		return &DeliveryError{Provider: "resend", To: msg.To, Err: fmt.Errorf("EMAIL_FROM not configured")}
	}

	params := &resend.SendEmailRequest{
		From:    m.from,
		To:      []string{msg.To},
		Subject: msg.Subject,
		Html:    msg.HTML,
	}
	if _, err := m.client.Emails.SendWithContext(ctx, params); err != nil {
		return &DeliveryError{Provider: "resend", To: msg.To, Err: err}
	}
	return nil
}
