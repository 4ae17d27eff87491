package services

import (
	"context"
	"database/sql"
	"time"
)

// Database status values reported by the health check.
const (
	DBStatusUp           = "up"
	DBStatusDown         = "down"
	DBStatusNotConnected = "not_connected"
)

// DatabaseChecker reports on the shared connection without establishing one.
type DatabaseChecker interface {
	Connected() bool
	HealthCheck(ctx context.Context) error
	Stats() (*sql.DBStats, bool)
}

// HealthResult is the health endpoint payload.
type HealthResult struct {
	Status    string `json:"status"`
	Service   string `json:"service"`
	Timestamp string `json:"timestamp"`
	Database  string `json:"database"`
}

// HealthService implements the health service
type HealthService struct {
	service string
	db      DatabaseChecker
	now     func() time.Time
}

// NewHealthService creates a new health service
func NewHealthService(service string, db DatabaseChecker) *HealthService {
	return &HealthService{service: service, db: db, now: time.Now}
}

// Check implements the health check method. The process is live whenever it
// answers, so Status is always "ok"; Database carries the store's state.
func (s *HealthService) Check(ctx context.Context) *HealthResult {
	return &HealthResult{
		Status:    "ok",
		Service:   s.service,
		Timestamp: s.now().UTC().Format(time.RFC3339),
		Database:  s.databaseStatus(ctx),
	}
}

func (s *HealthService) databaseStatus(ctx context.Context) string {
	if s.db == nil || !s.db.Connected() {
		return DBStatusNotConnected
	}
	if err := s.db.HealthCheck(ctx); err != nil {
		return DBStatusDown
	}
	// Refreshes the pool gauges.
	s.db.Stats()
	return DBStatusUp
}
