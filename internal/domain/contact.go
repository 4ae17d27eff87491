package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// SubmissionStatus is the review state of a contact submission.
type SubmissionStatus string

const (
	StatusPending  SubmissionStatus = "pending"
	StatusReviewed SubmissionStatus = "reviewed"
	StatusResolved SubmissionStatus = "resolved"
)

// Valid reports whether s is one of the known statuses.
func (s SubmissionStatus) Valid() bool {
	switch s {
	case StatusPending, StatusReviewed, StatusResolved:
		return true
	}
	return false
}

// ContactForm is the raw payload of POST /api/contact.
type ContactForm struct {
	Name    *string `json:"name"`
	Email   *string `json:"email"`
	Phone   *string `json:"phone"`
	Message *string `json:"message"`
}

// ContactSubmission represents a contact form submission.
// Rows are append-only from the intake path; status changes belong to review tooling.
type ContactSubmission struct {
	ID        string           `gorm:"primaryKey;type:varchar(36)" json:"id"`
	Name      string           `gorm:"not null" json:"name"`
	Email     string           `gorm:"not null;index" json:"email"`
	Phone     string           `gorm:"not null;default:''" json:"phone"`
	Message   string           `gorm:"type:text;not null" json:"message"`
	Status    SubmissionStatus `gorm:"type:varchar(16);not null;default:'pending';index;index:idx_inquiries_status_created,priority:1" json:"status"`
	CreatedAt time.Time        `gorm:"<-:create;not null;index:,sort:desc;index:idx_inquiries_status_created,priority:2" json:"createdAt"`
}

// TableName specifies the table name for ContactSubmission
func (ContactSubmission) TableName() string {
	return "inquiries"
}

// BeforeCreate hook
func (c *ContactSubmission) BeforeCreate(tx *gorm.DB) error {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	c.Status = StatusPending
	c.CreatedAt = tx.NowFunc()
	return nil
}
