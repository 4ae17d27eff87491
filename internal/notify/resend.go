package notify

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/resend/resend-go/v2"
)

// resendEmails is the part of the Resend SDK used here.
type resendEmails interface {
	SendWithContext(ctx context.Context, params *resend.SendEmailRequest) (*resend.SendEmailResponse, error)
}

// ResendMailer sends mail through the Resend HTTP API.
type ResendMailer struct {
	emails resendEmails
}

// NewResendMailer creates a ResendMailer authenticated with apiKey.
func NewResendMailer(apiKey string, timeout time.Duration) *ResendMailer {
	client := resend.NewCustomClient(&http.Client{Timeout: timeout}, apiKey)
	return &ResendMailer{emails: client.Emails}
}

// Send implements Mailer.
func (m *ResendMailer) Send(ctx context.Context, msg Email) error {
	_, err := m.emails.SendWithContext(ctx, &resend.SendEmailRequest{
		From:    msg.From,
		To:      []string{msg.To},
		ReplyTo: msg.ReplyTo,
		Subject: msg.Subject,
		Html:    msg.HTML,
		Text:    msg.Text,
	})
	if err != nil {
		return fmt.Errorf("resend: %w", err)
	}
	return nil
}
