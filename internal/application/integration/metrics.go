package integration

import (
	"context"
	"time"

	"github.com/erp/commercesync/internal/domain/integration"
	"github.com/erp/commercesync/internal/infrastructure/telemetry"
)

// IngestMetrics records webhook pipeline counters
type IngestMetrics interface {
	RecordDelivery(ctx context.Context, platform integration.Platform, kind integration.EventKind, status integration.SyncLogStatus)
	RecordSignatureRejected(ctx context.Context, platform integration.Platform)
	RecordUnresolvedTenant(ctx context.Context, platform integration.Platform)
	RecordLogFallback(ctx context.Context, platform integration.Platform)
	RecordHandlerDuration(ctx context.Context, family integration.HandlerFamily, status integration.SyncLogStatus, d time.Duration)
}

type noopMetrics struct{}

func (noopMetrics) RecordDelivery(context.Context, integration.Platform, integration.EventKind, integration.SyncLogStatus) {
}
func (noopMetrics) RecordSignatureRejected(context.Context, integration.Platform) {}
func (noopMetrics) RecordUnresolvedTenant(context.Context, integration.Platform) {}
func (noopMetrics) RecordLogFallback(context.Context, integration.Platform) {}
func (noopMetrics) RecordHandlerDuration(context.Context, integration.HandlerFamily, integration.SyncLogStatus, time.Duration) {
}

var _ IngestMetrics = (*telemetry.WebhookMetrics)(nil)
