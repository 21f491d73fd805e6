package persistence

import (
	"context"
	"fmt"
	"time"

	"github.com/erp/commercesync/internal/infrastructure/config"
	"github.com/erp/commercesync/internal/infrastructure/logger"
	"github.com/erp/commercesync/internal/infrastructure/persistence/orgscope"
	"github.com/erp/commercesync/internal/infrastructure/telemetry"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// Database holds the database connection and provides methods for database operations
type Database struct {
	DB *gorm.DB
}

type dbOptions struct {
	logger        *zap.Logger
	logLevel      gormlogger.LogLevel
	slowThreshold time.Duration
	tracing       telemetry.DBTracingConfig
	metrics       telemetry.DBMetricsConfig
}

// Option configures NewDatabase
type Option func(*dbOptions)

// WithLogger routes SQL logs to zap at the given gorm level
func WithLogger(l *zap.Logger, level gormlogger.LogLevel) Option {
	return func(o *dbOptions) {
		o.logger = l
		o.logLevel = level
	}
}

// WithSlowThreshold sets the duration above which statements are logged as slow
func WithSlowThreshold(d time.Duration) Option {
	return func(o *dbOptions) {
		o.slowThreshold = d
	}
}

// WithTracing installs otelgorm spans on the connection
func WithTracing(cfg telemetry.DBTracingConfig) Option {
	return func(o *dbOptions) {
		o.tracing = cfg
	}
}

// WithMetrics records statement and pool metrics on the connection
func WithMetrics(cfg telemetry.DBMetricsConfig) Option {
	return func(o *dbOptions) {
		o.metrics = cfg
	}
}

// NewDatabase connects to PostgreSQL and applies pool settings
func NewDatabase(cfg *config.DatabaseConfig, opts ...Option) (*Database, error) {
	d, err := Open(postgres.Open(cfg.DSN()), opts...)
	if err != nil {
		return nil, err
	}

	sqlDB, err := d.DB.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}
	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(time.Duration(cfg.ConnMaxLifetime) * time.Minute)
	sqlDB.SetConnMaxIdleTime(time.Duration(cfg.ConnMaxIdleTime) * time.Minute)

	if err := sqlDB.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	return d, nil
}

// Open opens a database on any gorm dialector. The sync log append-only guard
// is always installed.
func Open(dialector gorm.Dialector, opts ...Option) (*Database, error) {
	o := dbOptions{
		logger:        zap.NewNop(),
		logLevel:      gormlogger.Silent,
		slowThreshold: 200 * time.Millisecond,
	}
	for _, opt := range opts {
		opt(&o)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger:                 logger.NewGormLogger(o.logger, o.logLevel, o.slowThreshold),
		SkipDefaultTransaction: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := orgscope.RegisterAppendOnly(db, AppendOnlyTables()...); err != nil {
		return nil, fmt.Errorf("failed to register append-only guard: %w", err)
	}
	if err := telemetry.RegisterDBTracing(db, o.tracing, o.logger); err != nil {
		return nil, fmt.Errorf("failed to register database tracing: %w", err)
	}
	if err := telemetry.RegisterDBMetrics(db, o.metrics); err != nil {
		return nil, fmt.Errorf("failed to register database metrics: %w", err)
	}

	return &Database{DB: db}, nil
}

// Close closes the database connection
func (d *Database) Close() error {
	sqlDB, err := d.DB.DB()
	if err != nil {
		return fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}
	return sqlDB.Close()
}

// Ping checks if the database connection is alive
func (d *Database) Ping(ctx context.Context) error {
	sqlDB, err := d.DB.DB()
	if err != nil {
		return fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}
	return sqlDB.PingContext(ctx)
}

// Stats returns database connection pool statistics
func (d *Database) Stats() (ConnectionStats, error) {
	sqlDB, err := d.DB.DB()
	if err != nil {
		return ConnectionStats{}, fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}
	stats := sqlDB.Stats()
	return ConnectionStats{
		MaxOpenConnections: stats.MaxOpenConnections,
		OpenConnections:    stats.OpenConnections,
		InUse:              stats.InUse,
		Idle:               stats.Idle,
		WaitCount:          stats.WaitCount,
		WaitDuration:       stats.WaitDuration,
	}, nil
}

// ConnectionStats holds database connection pool statistics
type ConnectionStats struct {
	MaxOpenConnections int
	OpenConnections    int
	InUse              int
	Idle               int
	WaitCount          int64
	WaitDuration       time.Duration
}

// Transaction executes a function within a database transaction
func (d *Database) Transaction(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return d.DB.WithContext(ctx).Transaction(fn)
}
