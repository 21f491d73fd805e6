package telemetry

import (
	"context"
	"time"

	"github.com/erp/commercesync/internal/domain/integration"
	"go.opentelemetry.io/otel/metric"
)

// WebhookMetrics counts webhook deliveries through the ingest pipeline
type WebhookMetrics struct {
	deliveries        *Counter
	signatureRejected *Counter
	unresolvedTenant  *Counter
	logFallback       *Counter
	handlerDuration   *Histogram
}

// NewWebhookMetrics creates the webhook metric set on meter
func NewWebhookMetrics(meter metric.Meter) (*WebhookMetrics, error) {
	if meter == nil {
		return nil, ErrMeterNil
	}

	var (
		m   WebhookMetrics
		err error
	)
	if m.deliveries, err = NewCounter(meter, "commercesync_webhook_deliveries_total",
		"Webhook deliveries by platform, event kind and log status", "{deliveries}"); err != nil {
		return nil, err
	}
	if m.signatureRejected, err = NewCounter(meter, "commercesync_webhook_signature_rejected_total",
		"Webhook deliveries rejected for an invalid signature", "{deliveries}"); err != nil {
		return nil, err
	}
	if m.unresolvedTenant, err = NewCounter(meter, "commercesync_webhook_unresolved_tenant_total",
		"Webhook deliveries whose shop maps to no organization", "{deliveries}"); err != nil {
		return nil, err
	}
	if m.logFallback, err = NewCounter(meter, "commercesync_sync_log_fallback_total",
		"Sync log entries written to the fallback channel", "{entries}"); err != nil {
		return nil, err
	}
	if m.handlerDuration, err = NewHistogram(meter, "commercesync_handler_duration_seconds",
		"Duration of event handler calls", "s", DurationBuckets...); err != nil {
		return nil, err
	}
	return &m, nil
}

// RecordDelivery counts one processed delivery
func (m *WebhookMetrics) RecordDelivery(ctx context.Context, platform integration.Platform, kind integration.EventKind, status integration.SyncLogStatus) {
	m.deliveries.Inc(ctx,
		AttrPlatform.String(platform.String()),
		AttrEventKind.String(kind.String()),
		AttrStatus.String(status.String()),
	)
}

// RecordSignatureRejected counts one rejected signature
func (m *WebhookMetrics) RecordSignatureRejected(ctx context.Context, platform integration.Platform) {
	m.signatureRejected.Inc(ctx, AttrPlatform.String(platform.String()))
}

// RecordUnresolvedTenant counts one delivery without an organization
func (m *WebhookMetrics) RecordUnresolvedTenant(ctx context.Context, platform integration.Platform) {
	m.unresolvedTenant.Inc(ctx, AttrPlatform.String(platform.String()))
}

// RecordLogFallback counts one entry degraded to the fallback channel
func (m *WebhookMetrics) RecordLogFallback(ctx context.Context, platform integration.Platform) {
	m.logFallback.Inc(ctx, AttrPlatform.String(platform.String()))
}

// RecordHandlerDuration observes one handler call
func (m *WebhookMetrics) RecordHandlerDuration(ctx context.Context, family integration.HandlerFamily, status integration.SyncLogStatus, d time.Duration) {
	m.handlerDuration.RecordDuration(ctx, d,
		AttrHandlerFamily.String(family.String()),
		AttrStatus.String(status.String()),
	)
}
