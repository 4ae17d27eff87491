package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"barakahit/internal/config"
	"barakahit/internal/database"
	"barakahit/internal/logger"
	"barakahit/internal/notify"
	"barakahit/internal/server"
	"barakahit/internal/services"
	"barakahit/internal/store"
	"barakahit/internal/validation"
)

const (
	shutdownTimeout = 30 * time.Second
	readTimeout     = 15 * time.Second
	writeTimeout    = 30 * time.Second
	idleTimeout     = 60 * time.Second
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Initialize structured logging
	zlog, err := logger.New("api", cfg.App.Env, cfg.App.LogLevel)
	if err != nil {
		log.Fatalf("Failed to init logger: %v", err)
	}

	err = run(cfg, zlog)
	if err != nil {
		zlog.Errorw("server failed", "error", err)
	}
	logger.Sync(zlog)
	if err != nil {
		os.Exit(1)
	}
}

func run(cfg *config.Config, zlog *zap.SugaredLogger) error {
	zlog.Infow("starting", "name", cfg.App.Name, "version", cfg.App.Version, "env", cfg.App.Env)
	reportConfig(zlog, cfg)

	conn := database.NewConnector(cfg.Database, zlog)
	defer func() {
		if err := conn.Close(); err != nil {
			zlog.Errorw("error closing database", "error", err)
		}
	}()

	// Warm the connection; requests retry on their own if this fails.
	go func() {
		if _, err := conn.Connect(context.Background()); err != nil {
			zlog.Warnw("database warm-up failed; will retry on first request", "error", err)
		}
	}()

	var verifier validation.DomainVerifier
	if cfg.Validation.VerifyEmailDomain {
		verifier = validation.NewMXVerifier(nil, cfg.Validation.DNSTimeout, zlog)
	}

	// Create service instances
	contactSvc := services.NewContactService(
		validation.New(verifier),
		store.NewGormSubmissionStore(conn, cfg.Database.WriteTimeout),
		notify.New(cfg, zlog),
		cfg.Email.Timeout,
		zlog,
	)
	healthSvc := services.NewHealthService(cfg.App.Name, conn)

	srv := server.New(cfg, contactSvc, healthSvc, zlog)

	addr := fmt.Sprintf("%s:%s", cfg.App.Host, cfg.App.Port)
	httpServer := &http.Server{
		Addr:         addr,
		Handler:      srv.Handler(),
		ReadTimeout:  readTimeout,
		WriteTimeout: writeTimeout,
		IdleTimeout:  idleTimeout,
		ErrorLog:     zap.NewStdLog(zlog.Desugar().Named("http")),
	}

	// Start server in goroutine
	serverErrors := make(chan error, 1)
	go func() {
		zlog.Infow("server listening", "addr", addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErrors <- fmt.Errorf("server error: %w", err)
		}
	}()

	// Wait for interrupt signal or server error
	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		return err
	case sig := <-shutdown:
		zlog.Infow("starting graceful shutdown", "signal", sig.String())
	}

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := httpServer.Shutdown(ctx); err != nil {
		zlog.Errorw("error during graceful shutdown", "error", err)
		if errors.Is(err, context.DeadlineExceeded) {
			zlog.Warn("shutdown timeout exceeded, forcing close")
			_ = httpServer.Close()
		}
	}

	zlog.Info("server shutdown complete")
	return nil
}

// reportConfig logs which integrations are configured, never their secrets.
func reportConfig(zlog *zap.SugaredLogger, cfg *config.Config) {
	zlog.Infow("configuration",
		"database_configured", cfg.Database.URL != "",
		"database_postgres", cfg.Database.IsPostgres(),
		"email_provider", cfg.Email.Provider,
		"resend_configured", cfg.Email.ResendAPIKey != "",
		"smtp_configured", cfg.Email.Username != "" && cfg.Email.Password != "",
		"notify_email", cfg.Email.NotifyEmail,
		"sms_enabled", cfg.SMS.Enabled,
		"verify_email_domain", cfg.Validation.VerifyEmailDomain,
		"allowed_origins", cfg.CORS.AllowedOrigins,
	)
	if cfg.Database.URL == "" {
		zlog.Errorw("DATABASE_URL is not set; every submission will fail")
	}
}
