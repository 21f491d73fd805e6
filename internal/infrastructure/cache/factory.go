package cache

import (
	"context"
	"fmt"

	"github.com/erp/commercesync/internal/domain/integration"
	"github.com/erp/commercesync/internal/infrastructure/config"
	"go.uber.org/zap"
)

// Factory creates the applied event cache selected by configuration
type Factory struct {
	cfg    config.RedisConfig
	logger *zap.Logger
}

// FactoryOption is a functional option for configuring the factory
type FactoryOption func(*Factory)

// WithLogger sets the logger for the factory
func WithLogger(logger *zap.Logger) FactoryOption {
	return func(f *Factory) {
		if logger != nil {
			f.logger = logger
		}
	}
}

// NewFactory creates a new factory
func NewFactory(cfg config.RedisConfig, opts ...FactoryOption) *Factory {
	f := &Factory{
		cfg:    cfg,
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Create returns a Redis cache when Redis is enabled and reachable.
// When Redis is disabled an in-memory cache is returned. When Redis is
// enabled but unreachable, an in-memory cache is returned if fallback is
// allowed, otherwise an error.
func (f *Factory) Create(ctx context.Context) (integration.AppliedEventCache, error) {
	if !f.cfg.Enabled {
		f.logger.Info("Redis disabled, using in-memory applied event cache")
		return NewInMemoryAppliedCache(0), nil
	}

	store, err := NewRedisAppliedCache(ctx, RedisOptions{
		Addr:        f.cfg.Addr(),
		Password:    f.cfg.Password,
		DB:          f.cfg.DB,
		KeyPrefix:   f.cfg.KeyPrefix,
		DialTimeout: f.cfg.DialTimeout,
	})
	if err == nil {
		f.logger.Info("Using Redis applied event cache", zap.String("addr", f.cfg.Addr()))
		return store, nil
	}

	if !f.cfg.AllowFallback {
		return nil, fmt.Errorf("redis required for applied event cache but unavailable: %w", err)
	}

	f.logger.Warn("Redis unavailable, falling back to in-memory applied event cache",
		zap.String("addr", f.cfg.Addr()),
		zap.Error(err),
	)
	return NewInMemoryAppliedCache(0), nil
}
