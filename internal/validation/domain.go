package validation

import (
	"context"
	"errors"
	"fmt"
	"net"
	"time"

	"go.uber.org/zap"

	"barakahit/internal/logger"
	"barakahit/internal/metrics"
	apperrors "barakahit/pkg/errors"
)

// DomainVerifier decides whether an email domain can plausibly receive mail.
// Implementations return a domain_unreachable validation error only when the
// answer is definitive and nil when the check is inconclusive.
type DomainVerifier interface {
	Verify(ctx context.Context, domain string) error
}

// MXResolver is the subset of *net.Resolver used for MX lookups.
type MXResolver interface {
	LookupMX(ctx context.Context, name string) ([]*net.MX, error)
}

// MXVerifier accepts domains that publish at least one MX record.
type MXVerifier struct {
	resolver MXResolver
	timeout  time.Duration
	log      *zap.SugaredLogger
}

// NewMXVerifier creates an MXVerifier. A nil resolver uses net.DefaultResolver.
func NewMXVerifier(resolver MXResolver, timeout time.Duration, log *zap.SugaredLogger) *MXVerifier {
	if resolver == nil {
		resolver = net.DefaultResolver
	}
	return &MXVerifier{resolver: resolver, timeout: timeout, log: log.Named("mx")}
}

// Verify looks up MX records for domain. Not-found and empty answers reject the
// domain; every other resolver failure is logged and let through.
func (m *MXVerifier) Verify(ctx context.Context, domain string) error {
	ctx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()

	records, err := m.resolver.LookupMX(ctx, domain)
	switch {
	case err == nil && len(records) > 0:
		metrics.RecordEmailDomainCheck("ok")
		return nil
	case err == nil || isNotFound(err):
		metrics.RecordEmailDomainCheck("unreachable")
		return apperrors.Validation(apperrors.KindDomainUnreachable, "email",
			fmt.Sprintf("Email domain %q cannot receive mail", domain))
	default:
		metrics.RecordEmailDomainCheck("inconclusive")
		logger.WithRequest(ctx, m.log).Warnw("MX lookup inconclusive, accepting submission",
			"domain", domain, "error", err)
		return nil
	}
}

func isNotFound(err error) bool {
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return dnsErr.IsNotFound
	}
	return false
}

// ChainVerifier runs verifiers in order and stops at the first rejection.
// It lets a deeper verification service sit behind the MX check.
type ChainVerifier []DomainVerifier

// Verify implements DomainVerifier.
func (c ChainVerifier) Verify(ctx context.Context, domain string) error {
	for _, v := range c {
		if err := v.Verify(ctx, domain); err != nil {
			return err
		}
	}
	return nil
}
