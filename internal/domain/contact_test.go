package domain

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func TestBeforeCreateForcesPendingAndAssignsID(t *testing.T) {
	fixed := time.Date(2026, 2, 7, 14, 30, 0, 0, time.UTC)
	tx := &gorm.DB{Config: &gorm.Config{NowFunc: func() time.Time { return fixed }}}

	sub := &ContactSubmission{Name: "Jane Doe", Status: StatusResolved}
	require.NoError(t, sub.BeforeCreate(tx))

	_, err := uuid.Parse(sub.ID)
	assert.NoError(t, err)
	assert.Equal(t, StatusPending, sub.Status)
	assert.Equal(t, fixed, sub.CreatedAt)
}

func TestBeforeCreateKeepsPresetID(t *testing.T) {
	tx := &gorm.DB{Config: &gorm.Config{NowFunc: time.Now}}
	sub := &ContactSubmission{ID: "preset"}
	require.NoError(t, sub.BeforeCreate(tx))
	assert.Equal(t, "preset", sub.ID)
}

func TestSubmissionStatusValid(t *testing.T) {
	assert.True(t, StatusPending.Valid())
	assert.True(t, StatusReviewed.Valid())
	assert.True(t, StatusResolved.Valid())
	assert.False(t, SubmissionStatus("new").Valid())
}
