// Package notify tells a human operator that a new inquiry arrived.
// Every Notifier is best-effort: callers log its error and move on.
package notify

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"barakahit/internal/config"
	"barakahit/internal/domain"
	"barakahit/internal/metrics"
	apperrors "barakahit/pkg/errors"
)

// Notifier sends one notification about a persisted submission.
type Notifier interface {
	Send(ctx context.Context, sub *domain.ContactSubmission) error
}

// New builds the notifier set for cfg. Channels without credentials are left
// out; when none remain a NoopNotifier is returned.
func New(cfg *config.Config, log *zap.SugaredLogger) Notifier {
	log = log.Named("notify")
	var channels MultiNotifier

	if mailer := newMailer(&cfg.Email); mailer != nil {
		channels = append(channels, NewEmailNotifier(mailer, &cfg.Email))
		log.Infow("email notifications enabled", "provider", cfg.Email.Provider, "to", cfg.Email.NotifyEmail)
	} else {
		log.Infow("email notifications disabled: no credential configured", "provider", cfg.Email.Provider)
	}

	if cfg.SMS.Enabled {
		if sms, err := NewSMSNotifier(&cfg.SMS, ""); err != nil {
			log.Warnw("SMS notifications disabled", "error", err)
		} else {
			channels = append(channels, sms)
			log.Infow("SMS notifications enabled")
		}
	}

	switch len(channels) {
	case 0:
		return NewNoopNotifier(log)
	case 1:
		return channels[0]
	default:
		return channels
	}
}

func newMailer(cfg *config.EmailConfig) Mailer {
	switch cfg.Provider {
	case config.EmailProviderResend:
		if cfg.ResendAPIKey != "" {
			return NewResendMailer(cfg.ResendAPIKey, cfg.Timeout)
		}
	case config.EmailProviderSMTP:
		if cfg.SMTPHost != "" && cfg.Username != "" && cfg.Password != "" {
			return NewSMTPMailer(cfg)
		}
	}
	return nil
}

// NoopNotifier stands in when no channel is configured.
type NoopNotifier struct {
	log *zap.SugaredLogger
}

// NewNoopNotifier creates a NoopNotifier.
func NewNoopNotifier(log *zap.SugaredLogger) *NoopNotifier {
	return &NoopNotifier{log: log}
}

// Send logs the submission and reports success.
func (n *NoopNotifier) Send(_ context.Context, sub *domain.ContactSubmission) error {
	metrics.RecordNotification("none", "skipped")
	n.log.Infow("notification skipped: no channel configured", "inquiry_id", sub.ID)
	return nil
}

// MultiNotifier attempts every channel and joins their errors.
type MultiNotifier []Notifier

// Send implements Notifier.
func (m MultiNotifier) Send(ctx context.Context, sub *domain.ContactSubmission) error {
	var errs []error
	for _, n := range m {
		if err := n.Send(ctx, sub); err != nil {
			errs = append(errs, err)
		}
	}
	if len(errs) == 0 {
		return nil
	}
	return apperrors.Notification("one or more notification channels failed", errors.Join(errs...))
}
