package store

import (
	"context"
	"time"

	"gorm.io/gorm"

	"barakahit/internal/domain"
	"barakahit/internal/metrics"
	apperrors "barakahit/pkg/errors"
)

// Connector hands out the shared database handle.
type Connector interface {
	Connect(ctx context.Context) (*gorm.DB, error)
}

// SubmissionStore persists accepted contact submissions.
type SubmissionStore interface {
	Save(ctx context.Context, sub *domain.ContactSubmission) error
}

// GormSubmissionStore implements SubmissionStore on top of the shared gorm handle.
type GormSubmissionStore struct {
	conn         Connector
	writeTimeout time.Duration
}

var _ SubmissionStore = (*GormSubmissionStore)(nil)

// NewGormSubmissionStore creates a store; each insert is bounded by writeTimeout.
func NewGormSubmissionStore(conn Connector, writeTimeout time.Duration) *GormSubmissionStore {
	return &GormSubmissionStore{conn: conn, writeTimeout: writeTimeout}
}

// Save inserts sub as a new pending inquiry and fills in its ID and CreatedAt.
// Connector errors are returned unchanged; insert errors become persistence errors.
func (s *GormSubmissionStore) Save(ctx context.Context, sub *domain.ContactSubmission) error {
	db, err := s.conn.Connect(ctx)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, s.writeTimeout)
	defer cancel()

	start := time.Now()
	err = db.WithContext(ctx).Create(sub).Error
	metrics.RecordDBQuery("insert_inquiry", time.Since(start), err)
	if err != nil {
		return apperrors.Persistence("failed to save contact inquiry", err)
	}
	return nil
}
