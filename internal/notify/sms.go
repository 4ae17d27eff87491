package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"barakahit/internal/config"
	"barakahit/internal/domain"
	"barakahit/internal/metrics"
	apperrors "barakahit/pkg/errors"
)

const (
	twilioBaseURL  = "https://api.twilio.com"
	smsBodyMaxLen  = 320
	smsHTTPTimeout = 10 * time.Second
)

// SMSNotifier sends a short inquiry alert to the operator's phone via Twilio.
type SMSNotifier struct {
	cfg     *config.SMSConfig
	baseURL string
	client  *http.Client
}

// NewSMSNotifier creates an SMSNotifier. An empty baseURL targets the Twilio API.
func NewSMSNotifier(cfg *config.SMSConfig, baseURL string) (*SMSNotifier, error) {
	if cfg.TwilioSID == "" || cfg.TwilioAuth == "" || cfg.TwilioFrom == "" || cfg.NotifyPhone == "" {
		return nil, fmt.Errorf("Twilio not properly configured")
	}
	if baseURL == "" {
		baseURL = twilioBaseURL
	}
	return &SMSNotifier{
		cfg:     cfg,
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: smsHTTPTimeout},
	}, nil
}

// Send implements Notifier.
func (n *SMSNotifier) Send(ctx context.Context, sub *domain.ContactSubmission) error {
	if err := n.send(ctx, smsText(sub)); err != nil {
		metrics.RecordNotification("sms", "failed")
		return apperrors.Notification("failed to send SMS alert", err)
	}
	metrics.RecordNotification("sms", "sent")
	return nil
}

func smsText(sub *domain.ContactSubmission) string {
	text := fmt.Sprintf("New inquiry from %s <%s>: %s", oneLine(sub.Name), sub.Email, oneLine(sub.Message))
	if r := []rune(text); len(r) > smsBodyMaxLen {
		text = string(r[:smsBodyMaxLen-1]) + "…"
	}
	return text
}

func (n *SMSNotifier) send(ctx context.Context, body string) error {
	endpoint := fmt.Sprintf("%s/2010-04-01/Accounts/%s/Messages.json", n.baseURL, url.PathEscape(n.cfg.TwilioSID))

	form := url.Values{}
	form.Set("From", n.cfg.TwilioFrom)
	form.Set("To", normalizePhone(n.cfg.NotifyPhone))
	form.Set("Body", body)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.SetBasicAuth(n.cfg.TwilioSID, n.cfg.TwilioAuth)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send SMS request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated && resp.StatusCode != http.StatusOK {
		var errorResp map[string]any
		_ = json.NewDecoder(resp.Body).Decode(&errorResp)
		return fmt.Errorf("Twilio API error (status %d): %v", resp.StatusCode, errorResp)
	}
	return nil
}

// normalizePhone ensures a leading '+', assuming a US number without country code.
func normalizePhone(phone string) string {
	phone = strings.TrimSpace(phone)
	if strings.HasPrefix(phone, "+") {
		return phone
	}
	if strings.HasPrefix(phone, "1") {
		return "+" + phone
	}
	return "+1" + phone
}
