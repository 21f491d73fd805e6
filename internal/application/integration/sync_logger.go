package integration

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/erp/commercesync/internal/domain/integration"
	"github.com/erp/commercesync/internal/infrastructure/logger"
	"go.uber.org/zap"
)

// Sync logger defaults
const (
	DefaultLogRetryAttempts  = 1
	DefaultLogRetryInterval  = 100 * time.Millisecond
	DefaultLogAttemptTimeout = 3 * time.Second
)

// SyncLogger appends sync log entries to the sink. Failed appends are retried;
// when every attempt fails the entry is written to the fallback channel (the
// application log) if enabled, and ErrLogSinkUnavailable is returned if not.
// Record never panics and is safe for concurrent use.
type SyncLogger struct {
	repo            integration.SyncLogRepository
	retryAttempts   int
	retryInterval   time.Duration
	attemptTimeout  time.Duration
	fallbackEnabled bool
	metrics         IngestMetrics
	logger          *zap.Logger
}

// SyncLoggerConfig contains configuration for SyncLogger
type SyncLoggerConfig struct {
	Repo integration.SyncLogRepository
	// RetryAttempts is the number of retries after the first failed append
	RetryAttempts   int
	RetryInterval   time.Duration
	AttemptTimeout  time.Duration
	FallbackEnabled bool
	Metrics         IngestMetrics
	Logger          *zap.Logger
}

// NewSyncLogger creates a new SyncLogger
func NewSyncLogger(cfg SyncLoggerConfig) *SyncLogger {
	l := &SyncLogger{
		repo:            cfg.Repo,
		retryAttempts:   cfg.RetryAttempts,
		retryInterval:   cfg.RetryInterval,
		attemptTimeout:  cfg.AttemptTimeout,
		fallbackEnabled: cfg.FallbackEnabled,
		metrics:         cfg.Metrics,
		logger:          cfg.Logger,
	}
	if l.retryAttempts < 1 {
		l.retryAttempts = DefaultLogRetryAttempts
	}
	if l.retryInterval <= 0 {
		l.retryInterval = DefaultLogRetryInterval
	}
	if l.attemptTimeout <= 0 {
		l.attemptTimeout = DefaultLogAttemptTimeout
	}
	if l.metrics == nil {
		l.metrics = noopMetrics{}
	}
	if l.logger == nil {
		l.logger = zap.NewNop()
	}
	return l
}

// Record builds an entry from params and appends it.
// Request cancellation does not abort the write.
func (l *SyncLogger) Record(ctx context.Context, params integration.SyncLogParams) error {
	entry, err := integration.NewSyncLogEntry(params)
	if err != nil {
		l.fallback(ctx, params, 0, err)
		return nil
	}

	writeCtx := context.WithoutCancel(ctx)
	attempts := 0
	op := func() error {
		attempts++
		err := l.append(writeCtx, entry)
		if err != nil {
			logger.WithLogger(ctx, l.logger).Warn("Sync log append failed",
				zap.Int("attempt", attempts),
				zap.String("entry_id", entry.ID.String()),
				zap.Error(err),
			)
		}
		return err
	}

	policy := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewConstantBackOff(l.retryInterval), uint64(l.retryAttempts)),
		writeCtx,
	)
	if err := backoff.Retry(op, policy); err != nil {
		if l.fallbackEnabled {
			l.fallback(ctx, params, attempts, err)
			return nil
		}
		logger.WithLogger(ctx, l.logger).Error("Sync log sink unavailable, no fallback channel",
			zap.Int("attempts", attempts),
			zap.String("platform", params.Platform.String()),
			zap.String("action", params.Action),
			zap.Error(err),
		)
		return fmt.Errorf("%w: %v", integration.ErrLogSinkUnavailable, err)
	}
	return nil
}

// append runs one bounded attempt and converts a sink panic into an error
func (l *SyncLogger) append(ctx context.Context, entry *integration.SyncLogEntry) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("sync log sink panic: %v", r)
		}
	}()

	attemptCtx, cancel := context.WithTimeout(ctx, l.attemptTimeout)
	defer cancel()

	if err := l.repo.Append(attemptCtx, entry); err != nil {
		if errors.Is(err, integration.ErrSyncLogInvalidEntry) {
			return backoff.Permanent(err)
		}
		return err
	}
	return nil
}

// fallback writes the full entry to the application log
func (l *SyncLogger) fallback(ctx context.Context, p integration.SyncLogParams, attempts int, cause error) {
	l.metrics.RecordLogFallback(ctx, p.Platform)

	entityID := ""
	if p.EntityID != nil {
		entityID = *p.EntityID
	}
	logger.WithLogger(ctx, l.logger).Error("Sync log degraded to fallback channel",
		zap.Int("attempts", attempts),
		zap.String("organization_id", p.OrganizationID.String()),
		zap.String("platform", p.Platform.String()),
		zap.String("action", p.Action),
		zap.String("entity_type", p.EntityType.String()),
		zap.String("entity_id", entityID),
		zap.String("external_event_id", p.ExternalEventID),
		zap.String("status", p.Status.String()),
		zap.String("message", p.Message),
		zap.ByteString("request_data", p.RequestData),
		zap.ByteString("error_details", p.ErrorDetails),
		zap.Error(cause),
	)
}
