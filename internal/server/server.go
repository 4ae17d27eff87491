// Package server exposes the contact intake API over HTTP.
package server

import (
	"context"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	goahttp "goa.design/goa/v3/http"
	"goa.design/goa/v3/http/middleware"

	"barakahit/internal/config"
	"barakahit/internal/domain"
	"barakahit/internal/metrics"
	"barakahit/internal/services"
)

const (
	contactPath      = "/api/contact"
	healthPath       = "/api/health"
	legacyHealthPath = "/health"
	metricsPath      = "/metrics"

	// maxBodyBytes caps a contact form body.
	maxBodyBytes = 64 << 10
)

// Submitter runs the intake flow for one form.
type Submitter interface {
	Submit(ctx context.Context, form domain.ContactForm) (*domain.ContactSubmission, error)
}

// HealthChecker reports liveness and database state.
type HealthChecker interface {
	Check(ctx context.Context) *services.HealthResult
}

// Server holds the HTTP handlers and their dependencies.
type Server struct {
	cfg     *config.Config
	contact Submitter
	health  HealthChecker
	log     *zap.SugaredLogger
}

// New creates a Server.
func New(cfg *config.Config, contact Submitter, health HealthChecker, log *zap.SugaredLogger) *Server {
	return &Server{
		cfg:     cfg,
		contact: contact,
		health:  health,
		log:     log.Named("http"),
	}
}

// Handler mounts every route and wraps them in the middleware chain:
// RequestID -> request context -> logging -> Prometheus -> security headers -> CORS -> recovery ->
// contact method guard -> mux.
func (s *Server) Handler() http.Handler {
	mux := goahttp.NewMuxer()

	mux.Handle(http.MethodPost, contactPath, s.handleContact)
	mux.Handle(http.MethodGet, healthPath, s.handleHealth)
	mux.Handle(http.MethodGet, legacyHealthPath, s.handleHealth)
	mux.Handle(http.MethodGet, metricsPath, promhttp.Handler().ServeHTTP)

	var handler http.Handler = mux
	handler = s.contactMethods(handler)
	handler = s.recoverPanics(handler)
	handler = s.cors(handler)
	handler = s.securityHeaders(handler)
	handler = metrics.PrometheusMiddleware(handler, contactPath, healthPath, legacyHealthPath, metricsPath)
	handler = s.requestLogging(handler)
	handler = middleware.PopulateRequestContext()(handler)
	handler = middleware.RequestID(middleware.UseXRequestIDHeaderOption(true))(handler)

	return handler
}
