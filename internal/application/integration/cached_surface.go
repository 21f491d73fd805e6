package integration

import (
	"context"
	"time"

	"github.com/erp/commercesync/internal/domain/integration"
	"go.uber.org/zap"
)

// CachedReconciliationSurface short-circuits replays of events the inner
// surface already accepted. The cache is consulted first; on a miss or a
// cache failure the call goes to the inner surface, which stays the source
// of truth. Keys are only recorded after Applied or AlreadyApplied.
type CachedReconciliationSurface struct {
	inner  integration.ReconciliationSurface
	cache  integration.AppliedEventCache
	ttl    time.Duration
	logger *zap.Logger
}

// NewCachedReconciliationSurface wraps inner with cache. A zero ttl uses
// integration.DefaultAppliedEventTTL.
func NewCachedReconciliationSurface(
	inner integration.ReconciliationSurface,
	cache integration.AppliedEventCache,
	ttl time.Duration,
	logger *zap.Logger,
) *CachedReconciliationSurface {
	if ttl <= 0 {
		ttl = integration.DefaultAppliedEventTTL
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CachedReconciliationSurface{
		inner:  inner,
		cache:  cache,
		ttl:    ttl,
		logger: logger,
	}
}

// ApplyOrderEvent implements ReconciliationSurface
func (s *CachedReconciliationSurface) ApplyOrderEvent(ctx context.Context, cmd integration.OrderEventCommand) (integration.ApplyResult, error) {
	key := integration.AppliedEventKey(cmd.OrganizationID, cmd.Platform, cmd.ExternalEventID)
	return s.apply(ctx, key, func() (integration.ApplyResult, error) {
		return s.inner.ApplyOrderEvent(ctx, cmd)
	})
}

// ApplyInventoryDelta implements ReconciliationSurface
func (s *CachedReconciliationSurface) ApplyInventoryDelta(ctx context.Context, cmd integration.InventoryDeltaCommand) (integration.ApplyResult, error) {
	key := integration.AppliedEventKey(cmd.OrganizationID, cmd.Platform, cmd.ExternalEventID)
	return s.apply(ctx, key, func() (integration.ApplyResult, error) {
		return s.inner.ApplyInventoryDelta(ctx, cmd)
	})
}

func (s *CachedReconciliationSurface) apply(
	ctx context.Context,
	key string,
	call func() (integration.ApplyResult, error),
) (integration.ApplyResult, error) {
	hit, err := s.cache.IsApplied(ctx, key)
	if err != nil {
		s.logger.Warn("Applied event cache lookup failed", zap.String("key", key), zap.Error(err))
	} else if hit {
		return integration.AlreadyApplied(), nil
	}

	result, err := call()
	if err != nil {
		return result, err
	}

	switch result.Outcome {
	case integration.ApplyOutcomeApplied, integration.ApplyOutcomeAlreadyApplied:
		if _, markErr := s.cache.MarkApplied(ctx, key, s.ttl); markErr != nil {
			s.logger.Warn("Applied event cache update failed", zap.String("key", key), zap.Error(markErr))
		}
	}
	return result, nil
}

var _ integration.ReconciliationSurface = (*CachedReconciliationSurface)(nil)
