package database

import (
	"context"
	"database/sql"
	"fmt"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
	_ "modernc.org/sqlite" // Pure Go SQLite driver

	"barakahit/internal/config"
	"barakahit/internal/domain"
	"barakahit/internal/metrics"
	apperrors "barakahit/pkg/errors"
)

const (
	maxOpenConns    = 10
	maxIdleConns    = 2
	connMaxLifetime = 5 * time.Minute
	connMaxIdleTime = 10 * time.Minute

	connectKey = "db"
)

// Models is the schema owned by this service. It is migrated once per
// established connection.
var Models = []any{
	&domain.ContactSubmission{},
}

// OpenFunc opens a gorm handle for cfg. It must not block beyond ctx.
type OpenFunc func(ctx context.Context, cfg config.DatabaseConfig) (*gorm.DB, error)

// Connector lazily establishes one shared database handle per process.
// Concurrent first callers share a single in-flight attempt; failed attempts
// are not remembered, so the next caller retries from scratch.
type Connector struct {
	cfg  config.DatabaseConfig
	log  *zap.SugaredLogger
	open OpenFunc

	db    atomic.Pointer[gorm.DB]
	group singleflight.Group
}

// Option configures a Connector.
type Option func(*Connector)

// WithOpenFunc replaces the dialer used to open the database.
func WithOpenFunc(open OpenFunc) Option {
	return func(c *Connector) {
		c.open = open
	}
}

// NewConnector creates a Connector. No connection is made until Connect is called.
func NewConnector(cfg config.DatabaseConfig, log *zap.SugaredLogger, opts ...Option) *Connector {
	c := &Connector{
		cfg:  cfg,
		log:  log.Named("db"),
		open: Open,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Connect returns the shared handle, establishing it on first use.
func (c *Connector) Connect(ctx context.Context) (*gorm.DB, error) {
	if db := c.db.Load(); db != nil {
		return db, nil
	}

	// The attempt outlives any single caller; it is bounded by ConnectTimeout instead.
	attemptCtx := context.WithoutCancel(ctx)
	ch := c.group.DoChan(connectKey, func() (any, error) {
		if db := c.db.Load(); db != nil {
			return db, nil
		}
		db, err := c.establish(attemptCtx)
		if err != nil {
			return nil, err
		}
		c.db.Store(db)
		return db, nil
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*gorm.DB), nil
	case <-ctx.Done():
		return nil, apperrors.Connection("database connection aborted", ctx.Err())
	}
}

func (c *Connector) establish(ctx context.Context) (*gorm.DB, error) {
	if c.cfg.URL == "" {
		c.log.Errorw("DATABASE_URL is not set; this is a deployment defect")
		return nil, apperrors.Configuration("DATABASE_URL is not set in environment variables")
	}

	ctx, cancel := context.WithTimeout(ctx, c.cfg.ConnectTimeout)
	defer cancel()

	start := time.Now()
	c.log.Infow("connecting to database", "postgres", c.cfg.IsPostgres())

	db, err := c.open(ctx, c.cfg)
	if err == nil {
		err = ping(ctx, db)
		if err == nil {
			err = migrate(ctx, db)
		}
		if err != nil {
			closeDB(db)
		}
	}
	metrics.RecordDBConnect(time.Since(start), err)
	if err != nil {
		c.log.Errorw("database connection failed", "error", err, "elapsed", time.Since(start))
		return nil, apperrors.Connection("database connection failed", err)
	}

	c.log.Infow("database connected and migrated", "elapsed", time.Since(start))
	return db, nil
}

// Open is the default OpenFunc: PostgreSQL for postgres URLs, SQLite otherwise.
func Open(ctx context.Context, cfg config.DatabaseConfig) (*gorm.DB, error) {
	var dialector gorm.Dialector

	if cfg.IsPostgres() {
		dialector = postgres.Open(cfg.GetPostgresDSN())
	} else {
		dbPath := cfg.GetSQLitePath()
		sqlDB, err := sql.Open("sqlite", dbPath)
		if err != nil {
			return nil, fmt.Errorf("failed to open SQLite database: %w", err)
		}
		// One connection keeps in-memory databases shared and serialises writers.
		sqlDB.SetMaxOpenConns(1)
		dialector = sqlite.Dialector{
			DriverName: "sqlite",
			DSN:        dbPath,
			Conn:       sqlDB,
		}
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		// Never log SQL: queries carry submitter data.
		Logger: logger.Default.LogMode(logger.Silent),
		NowFunc: func() time.Time {
			return time.Now().UTC()
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if cfg.IsPostgres() {
		sqlDB, err := db.DB()
		if err != nil {
			return nil, fmt.Errorf("failed to get underlying sql.DB: %w", err)
		}
		sqlDB.SetMaxOpenConns(maxOpenConns)
		sqlDB.SetMaxIdleConns(maxIdleConns)
		sqlDB.SetConnMaxLifetime(connMaxLifetime)
		sqlDB.SetConnMaxIdleTime(connMaxIdleTime)
	}

	return db, nil
}

func ping(ctx context.Context, db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		return fmt.Errorf("ping failed: %w", err)
	}
	return nil
}

func migrate(ctx context.Context, db *gorm.DB) error {
	if err := db.WithContext(ctx).AutoMigrate(Models...); err != nil {
		return fmt.Errorf("failed to migrate database: %w", err)
	}
	return nil
}

func closeDB(db *gorm.DB) {
	if sqlDB, err := db.DB(); err == nil {
		_ = sqlDB.Close()
	}
}

// Connected reports whether a handle has been established.
func (c *Connector) Connected() bool {
	return c.db.Load() != nil
}

// HealthCheck pings the established handle. It never opens a new connection.
func (c *Connector) HealthCheck(ctx context.Context) error {
	db := c.db.Load()
	if db == nil {
		return apperrors.Connection("database not connected", nil)
	}
	ctx, cancel := context.WithTimeout(ctx, c.cfg.ConnectTimeout)
	defer cancel()
	return ping(ctx, db)
}

// Stats returns connection pool statistics of the established handle.
func (c *Connector) Stats() (*sql.DBStats, bool) {
	db := c.db.Load()
	if db == nil {
		return nil, false
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, false
	}
	stats := sqlDB.Stats()
	metrics.UpdateDBConnections(stats.InUse, stats.Idle)
	return &stats, true
}

// Close releases the established handle, if any.
func (c *Connector) Close() error {
	db := c.db.Swap(nil)
	if db == nil {
		return nil
	}
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	c.log.Infow("closing database connections")
	return sqlDB.Close()
}
