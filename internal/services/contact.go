package services

import (
	"context"
	"time"

	"go.uber.org/zap"

	"barakahit/internal/domain"
	"barakahit/internal/logger"
	"barakahit/internal/metrics"
	"barakahit/internal/notify"
	"barakahit/internal/store"
	apperrors "barakahit/pkg/errors"
)

// FormValidator turns a raw contact form into a normalized submission.
type FormValidator interface {
	Validate(ctx context.Context, form domain.ContactForm) (*domain.ContactSubmission, error)
}

// ContactService implements the contact intake flow
type ContactService struct {
	validator     FormValidator
	store         store.SubmissionStore
	notifier      notify.Notifier
	notifyTimeout time.Duration
	log           *zap.SugaredLogger
}

// NewContactService creates a new contact service
func NewContactService(
	validator FormValidator,
	store store.SubmissionStore,
	notifier notify.Notifier,
	notifyTimeout time.Duration,
	log *zap.SugaredLogger,
) *ContactService {
	return &ContactService{
		validator:     validator,
		store:         store,
		notifier:      notifier,
		notifyTimeout: notifyTimeout,
		log:           log.Named("contact"),
	}
}

// Submit validates form, persists it and notifies the operator. The returned
// submission has been stored; notification failures never reach the caller.
func (s *ContactService) Submit(ctx context.Context, form domain.ContactForm) (*domain.ContactSubmission, error) {
	log := logger.WithRequest(ctx, s.log)

	sub, err := s.validator.Validate(ctx, form)
	if err != nil {
		metrics.RecordContactSubmission("rejected")
		log.Infow("submission rejected", "kind", apperrors.KindOf(err), "error", err)
		return nil, err
	}

	if err := s.store.Save(ctx, sub); err != nil {
		metrics.RecordContactSubmission("failed")
		s.logStoreError(log, err)
		return nil, err
	}

	log.Infow("inquiry stored", "inquiry_id", sub.ID)
	metrics.RecordContactSubmission("accepted")

	s.notify(ctx, log, sub)
	return sub, nil
}

// notify runs after the insert has returned. The client going away must not
// cut the notification short, so only notifyTimeout bounds it.
func (s *ContactService) notify(ctx context.Context, log *zap.SugaredLogger, sub *domain.ContactSubmission) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.notifyTimeout)
	defer cancel()

	if err := s.notifier.Send(ctx, sub); err != nil {
		log.Warnw("notification failed; inquiry is stored", "inquiry_id", sub.ID, "error", err)
		return
	}
	log.Debugw("notification sent", "inquiry_id", sub.ID)
}

func (s *ContactService) logStoreError(log *zap.SugaredLogger, err error) {
	switch {
	case apperrors.IsConfiguration(err):
		log.Errorw("deployment defect: database is not configured", "error", err)
	case apperrors.IsConnection(err):
		log.Errorw("database unavailable", "error", err)
	case apperrors.IsPersistence(err):
		log.Errorw("failed to store inquiry", "error", err)
	default:
		log.Errorw("unexpected error while storing inquiry", "error", err)
	}
}
