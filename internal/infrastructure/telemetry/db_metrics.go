package telemetry

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"gorm.io/gorm"
)

// DBMetricsConfig configures RegisterDBMetrics
type DBMetricsConfig struct {
	// Meter enables the metrics when set
	Meter metric.Meter
	// SlowQueryThreshold counts slower statements in db_slow_query_total; zero means 200ms
	SlowQueryThreshold time.Duration
}

type metricsStartKey struct{}

type dbMetrics struct {
	queries   metric.Int64Counter
	duration  metric.Float64Histogram
	slow      metric.Int64Counter
	threshold time.Duration
}

// RegisterDBMetrics records per-statement counters and latency on db and
// exports the connection pool state as observable gauges
func RegisterDBMetrics(db *gorm.DB, cfg DBMetricsConfig) error {
	if cfg.Meter == nil {
		return nil
	}
	if cfg.SlowQueryThreshold <= 0 {
		cfg.SlowQueryThreshold = 200 * time.Millisecond
	}

	m := &dbMetrics{threshold: cfg.SlowQueryThreshold}
	var err error
	if m.queries, err = cfg.Meter.Int64Counter("db_query_total",
		metric.WithDescription("Total number of database statements by operation"),
		metric.WithUnit("{query}")); err != nil {
		return err
	}
	if m.duration, err = cfg.Meter.Float64Histogram("db_query_duration_seconds",
		metric.WithDescription("Database statement latency"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5)); err != nil {
		return err
	}
	if m.slow, err = cfg.Meter.Int64Counter("db_slow_query_total",
		metric.WithDescription("Database statements slower than the slow query threshold"),
		metric.WithUnit("{query}")); err != nil {
		return err
	}
	if err := registerPoolGauges(db, cfg.Meter); err != nil {
		return err
	}

	before := func(tx *gorm.DB) {
		if tx.Statement.Context != nil {
			tx.Statement.Context = context.WithValue(tx.Statement.Context, metricsStartKey{}, time.Now())
		}
	}
	after := func(operation string) func(*gorm.DB) {
		return func(tx *gorm.DB) { m.record(tx, operation) }
	}

	cb := db.Callback()
	registrations := []func() error{
		func() error { return cb.Create().Before("gorm:create").Register("db_metrics:before_create", before) },
		func() error { return cb.Query().Before("gorm:query").Register("db_metrics:before_query", before) },
		func() error { return cb.Update().Before("gorm:update").Register("db_metrics:before_update", before) },
		func() error { return cb.Delete().Before("gorm:delete").Register("db_metrics:before_delete", before) },
		func() error { return cb.Raw().Before("gorm:raw").Register("db_metrics:before_raw", before) },
		func() error { return cb.Create().After("gorm:create").Register("db_metrics:after_create", after("INSERT")) },
		func() error { return cb.Query().After("gorm:query").Register("db_metrics:after_query", after("SELECT")) },
		func() error { return cb.Update().After("gorm:update").Register("db_metrics:after_update", after("UPDATE")) },
		func() error { return cb.Delete().After("gorm:delete").Register("db_metrics:after_delete", after("DELETE")) },
		func() error { return cb.Raw().After("gorm:raw").Register("db_metrics:after_raw", after("")) },
	}
	for _, register := range registrations {
		if err := register(); err != nil {
			return err
		}
	}
	return nil
}

func (m *dbMetrics) record(tx *gorm.DB, operation string) {
	ctx := tx.Statement.Context
	if ctx == nil {
		return
	}
	start, ok := ctx.Value(metricsStartKey{}).(time.Time)
	if !ok {
		return
	}
	if operation == "" {
		operation = detectOperation(tx.Statement.SQL.String())
	}
	elapsed := time.Since(start)

	status := "ok"
	if tx.Error != nil && !errors.Is(tx.Error, gorm.ErrRecordNotFound) {
		status = "error"
	}
	attrs := metric.WithAttributes(
		attribute.String("db.operation", operation),
		attribute.String("db.table", tx.Statement.Table),
		attribute.String("status", status),
	)
	m.queries.Add(ctx, 1, attrs)
	m.duration.Record(ctx, elapsed.Seconds(), attrs)
	if elapsed >= m.threshold {
		m.slow.Add(ctx, 1, attrs)
	}
}

func registerPoolGauges(db *gorm.DB, meter metric.Meter) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	connections, err := meter.Int64ObservableGauge("db_pool_connections",
		metric.WithDescription("Connections in the pool by state"),
		metric.WithUnit("{connection}"))
	if err != nil {
		return err
	}
	maxOpen, err := meter.Int64ObservableGauge("db_pool_connections_max",
		metric.WithDescription("Maximum number of open connections"),
		metric.WithUnit("{connection}"))
	if err != nil {
		return err
	}
	waits, err := meter.Int64ObservableCounter("db_pool_wait_total",
		metric.WithDescription("Connections waited for"),
		metric.WithUnit("{wait}"))
	if err != nil {
		return err
	}

	_, err = meter.RegisterCallback(func(_ context.Context, o metric.Observer) error {
		stats := sqlDB.Stats()
		o.ObserveInt64(connections, int64(stats.InUse), metric.WithAttributes(attribute.String("state", "in_use")))
		o.ObserveInt64(connections, int64(stats.Idle), metric.WithAttributes(attribute.String("state", "idle")))
		o.ObserveInt64(maxOpen, int64(stats.MaxOpenConnections))
		o.ObserveInt64(waits, stats.WaitCount)
		return nil
	}, connections, maxOpen, waits)
	return err
}

func detectOperation(sql string) string {
	sql = strings.ToUpper(strings.TrimSpace(sql))
	for _, op := range []string{"SELECT", "INSERT", "UPDATE", "DELETE"} {
		if strings.HasPrefix(sql, op) {
			return op
		}
	}
	return "OTHER"
}
