package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"barakahit/internal/config"
	"barakahit/internal/database"
	"barakahit/internal/domain"
	"barakahit/internal/logger"
)

func main() {
	timeout := flag.Duration("timeout", 30*time.Second, "overall time limit for connecting and migrating")
	flag.Parse()

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	zlog, err := logger.New("migrate", cfg.App.Env, cfg.App.LogLevel)
	if err != nil {
		log.Fatalf("Failed to init logger: %v", err)
	}
	defer logger.Sync(zlog)

	// Schema creation can take longer than a request-time connect.
	if cfg.Database.ConnectTimeout < *timeout {
		cfg.Database.ConnectTimeout = *timeout
	}

	conn := database.NewConnector(cfg.Database, zlog)
	defer conn.Close()

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	// Connect migrates every registered model.
	db, err := conn.Connect(ctx)
	if err != nil {
		zlog.Errorw("migration failed", "error", err)
		logger.Sync(zlog)
		os.Exit(1)
	}

	var counts []struct {
		Status domain.SubmissionStatus
		Total  int64
	}
	err = db.WithContext(ctx).Model(&domain.ContactSubmission{}).
		Select("status, count(*) as total").
		Group("status").
		Scan(&counts).Error
	if err != nil {
		zlog.Warnw("schema migrated but inquiry counts are unavailable", "error", err)
		return
	}

	fmt.Println("Schema is up to date.")
	for _, c := range counts {
		fmt.Printf("  %-10s %d\n", c.Status, c.Total)
	}
}
