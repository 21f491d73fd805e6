package integration

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/erp/commercesync/internal/domain/integration"
	"github.com/erp/commercesync/internal/infrastructure/ecommerce"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

const shoplineSecret = "shopline-secret"

type serviceFixture struct {
	service *WebhookService
	log     *memorySyncLog
	surface *memorySurface
	metrics *countingMetrics
	orgID   uuid.UUID
	logs    *observer.ObservedLogs
}

type fixtureOption func(*WebhookServiceConfig, *SyncLoggerConfig)

func withUnattributed(id uuid.UUID) fixtureOption {
	return func(c *WebhookServiceConfig, _ *SyncLoggerConfig) { c.UnattributedOrganizationID = id }
}

func withRepo(repo integration.SyncLogRepository, fallback bool) fixtureOption {
	return func(_ *WebhookServiceConfig, l *SyncLoggerConfig) {
		l.Repo = repo
		l.FallbackEnabled = fallback
	}
}

func withArchive(a integration.PayloadArchive) fixtureOption {
	return func(c *WebhookServiceConfig, _ *SyncLoggerConfig) { c.Archive = a }
}

func newServiceFixture(t *testing.T, opts ...fixtureOption) *serviceFixture {
	t.Helper()

	f := &serviceFixture{
		log:     &memorySyncLog{},
		surface: newMemorySurface(),
		metrics: newCountingMetrics(),
		orgID:   uuid.New(),
	}
	core, logs := observer.New(zapcore.InfoLevel)
	f.logs = logs
	zl := zap.New(core)

	tenants, err := NewStaticTenantResolver([]TenantBinding{
		{Platform: integration.PlatformShopline, ShopID: "S1", OrganizationID: f.orgID},
		{Platform: integration.PlatformShopee, ShopID: "123", OrganizationID: f.orgID},
		{Platform: integration.PlatformMomo, ShopID: "M1", OrganizationID: f.orgID},
	})
	require.NoError(t, err)

	loggerCfg := SyncLoggerConfig{
		Repo:            f.log,
		RetryInterval:   time.Millisecond,
		FallbackEnabled: true,
		Metrics:         f.metrics,
		Logger:          zl,
	}
	serviceCfg := WebhookServiceConfig{
		Verifier: ecommerce.NewSignatureVerifier(map[integration.Platform]string{
			integration.PlatformShopline: shoplineSecret,
		}, zl),
		Normalizer: ecommerce.NewPayloadNormalizer(),
		Tenants:    tenants,
		Dispatcher: NewEventDispatcher(EventDispatcherConfig{Handlers: NewDefaultHandlers(f.surface), Logger: zl}),
		Metrics:    f.metrics,
		Logger:     zl,
	}
	for _, opt := range opts {
		opt(&serviceCfg, &loggerCfg)
	}
	serviceCfg.SyncLogger = NewSyncLogger(loggerCfg)
	f.service = NewWebhookService(serviceCfg)
	return f
}

func signedShopline(t *testing.T, body string) integration.WebhookRequest {
	t.Helper()
	sig, err := ecommerce.ShoplineScheme{}.Sign([]byte(body), shoplineSecret)
	require.NoError(t, err)
	h := http.Header{}
	h.Set(ecommerce.ShoplineSignatureHeader, sig)
	return integration.WebhookRequest{
		Platform:   integration.PlatformShopline,
		Body:       []byte(body),
		Headers:    h,
		ReceivedAt: time.Now(),
	}
}

func unsigned(platform integration.Platform, body string) integration.WebhookRequest {
	return integration.WebhookRequest{Platform: platform, Body: []byte(body), Headers: http.Header{}}
}

const shoplineOrderPaid = `{"id":"evt-1","topic":"orders/paid","store_id":"S1","data":{"id":"O1","order_number":"1001","status":"paid"}}`

func TestWebhookService_ShoplineOrderPaid(t *testing.T) {
	f := newServiceFixture(t)

	result, err := f.service.Ingest(context.Background(), signedShopline(t, shoplineOrderPaid))
	require.NoError(t, err)
	assert.Equal(t, integration.VerifyOutcomeVerified, result.Verification)
	assert.Equal(t, f.orgID, result.OrganizationID)
	assert.Equal(t, integration.SyncLogStatusSuccess, result.Status)
	assert.Equal(t, "orders/paid", result.SourceCode())
	assert.True(t, result.Logged)

	entries := f.log.all()
	require.Len(t, entries, 1)
	e := entries[0]
	assert.Equal(t, f.orgID, e.OrganizationID)
	assert.Equal(t, integration.PlatformShopline, e.Platform)
	assert.Equal(t, "webhook_order_update", e.Action)
	assert.Equal(t, integration.EntityTypeOrder, e.EntityType)
	require.NotNil(t, e.EntityID)
	assert.Equal(t, "O1", *e.EntityID)
	assert.Equal(t, "evt-1", e.ExternalEventID)
	assert.Equal(t, integration.SyncLogStatusSuccess, e.Status)
	assert.JSONEq(t, shoplineOrderPaid, string(e.RequestData))
	assert.Equal(t, "verified", e.Metadata["verification"])
	assert.Equal(t, "orders/paid", e.Metadata["source_code"])

	assert.Equal(t, "paid", f.surface.orders["O1"])
	assert.Equal(t, 1, f.metrics.deliveries[integration.SyncLogStatusSuccess])
}

func TestWebhookService_DuplicateDeliveryAppliesOnce(t *testing.T) {
	f := newServiceFixture(t)

	for i := 0; i < 2; i++ {
		_, err := f.service.Ingest(context.Background(), signedShopline(t, shoplineOrderPaid))
		require.NoError(t, err)
	}

	entries := f.log.all()
	require.Len(t, entries, 2)
	assert.Equal(t, 1, f.surface.orderCalls)
	assert.NotContains(t, entries[0].Message, "already applied")
	assert.Contains(t, entries[1].Message, "already applied")

	var data map[string]any
	require.NoError(t, json.Unmarshal(entries[1].ResponseData, &data))
	assert.Equal(t, "already_applied", data["outcome"])
}

func TestWebhookService_BadSignature(t *testing.T) {
	f := newServiceFixture(t)

	req := signedShopline(t, shoplineOrderPaid)
	req.Body = []byte(`{"id":"evt-1","topic":"orders/paid","store_id":"S1","data":{"id":"O2"}}`)

	result, err := f.service.Ingest(context.Background(), req)
	assert.ErrorIs(t, err, integration.ErrSignatureInvalid)
	assert.Nil(t, result)
	assert.Empty(t, f.log.all())
	assert.Zero(t, f.surface.orderCalls)
	assert.Equal(t, 1, f.metrics.rejected)
}

func TestWebhookService_SkippedVerificationIsRecorded(t *testing.T) {
	f := newServiceFixture(t)

	result, err := f.service.Ingest(context.Background(), unsigned(integration.PlatformShopee,
		`{"shop_id":123,"code":3,"timestamp":1700000000,"data":{"ordersn":"2405ABC","status":"READY_TO_SHIP"}}`))
	require.NoError(t, err)
	assert.Equal(t, integration.VerifyOutcomeSkipped, result.Verification)

	entries := f.log.all()
	require.Len(t, entries, 1)
	assert.Equal(t, "skipped", entries[0].Metadata["verification"])
	assert.Equal(t, "123:3:2405ABC:1700000000", entries[0].ExternalEventID)
	assert.Equal(t, 1, f.logs.FilterMessage("Webhook signature verification skipped, no secret configured").Len())
}

func TestWebhookService_MalformedPayload(t *testing.T) {
	t.Run("logged under unattributed organization", func(t *testing.T) {
		unattributed := uuid.New()
		f := newServiceFixture(t, withUnattributed(unattributed))

		result, err := f.service.Ingest(context.Background(), unsigned(integration.PlatformMomo, `{not json`))
		require.NoError(t, err)
		assert.Equal(t, integration.SyncLogStatusError, result.Status)
		assert.Nil(t, result.Event)

		entries := f.log.all()
		require.Len(t, entries, 1)
		e := entries[0]
		assert.Equal(t, unattributed, e.OrganizationID)
		assert.Equal(t, integration.ActionWebhookError, e.Action)
		assert.Equal(t, integration.EntityTypeWebhook, e.EntityType)
		assert.Equal(t, integration.SyncLogStatusError, e.Status)
		assert.Nil(t, e.EntityID)
		assert.JSONEq(t, `{"raw":"{not json"}`, string(e.RequestData))
	})

	t.Run("missing discriminant with known shop is attributed", func(t *testing.T) {
		f := newServiceFixture(t)

		result, err := f.service.Ingest(context.Background(), signedShopline(t, `{"store_id":"S1","data":{}}`))
		require.NoError(t, err)
		assert.Equal(t, f.orgID, result.OrganizationID)

		entries := f.log.all()
		require.Len(t, entries, 1)
		assert.Equal(t, f.orgID, entries[0].OrganizationID)

		var details map[string]any
		require.NoError(t, json.Unmarshal(entries[0].ErrorDetails, &details))
		assert.Equal(t, "missing_discriminant", details["kind"])
	})

	t.Run("default configuration keeps an audit entry", func(t *testing.T) {
		f := newServiceFixture(t)

		result, err := f.service.Ingest(context.Background(), unsigned(integration.PlatformShopee, `{not json`))
		require.NoError(t, err)
		assert.True(t, result.Logged)
		assert.Equal(t, integration.DefaultUnattributedOrganizationID, result.OrganizationID)

		entries := f.log.all()
		require.Len(t, entries, 1)
		assert.Equal(t, integration.DefaultUnattributedOrganizationID, entries[0].OrganizationID)
		assert.Equal(t, integration.SyncLogStatusError, entries[0].Status)
		assert.Equal(t, 1, f.metrics.unresolved)
		assert.Equal(t, 1, f.logs.FilterMessage("Unattributable webhook payload").Len())
	})

	t.Run("non object body", func(t *testing.T) {
		f := newServiceFixture(t)

		result, err := f.service.Ingest(context.Background(), unsigned(integration.PlatformMomo, `null`))
		require.NoError(t, err)
		assert.True(t, result.Logged)

		entries := f.log.all()
		require.Len(t, entries, 1)
		var details map[string]any
		require.NoError(t, json.Unmarshal(entries[0].ErrorDetails, &details))
		assert.Equal(t, "malformed", details["kind"])
	})
}

func TestWebhookService_WrongShapeFromKnownShop(t *testing.T) {
	tests := []struct {
		name       string
		req        func(t *testing.T) integration.WebhookRequest
		wantShopID string
	}{
		{
			name: "shopee string code",
			req: func(*testing.T) integration.WebhookRequest {
				return unsigned(integration.PlatformShopee, `{"shop_id":123,"code":"3","timestamp":1700000000,"data":{"ordersn":"O1"}}`)
			},
			wantShopID: "123",
		},
		{
			name: "shopee data not an object",
			req: func(*testing.T) integration.WebhookRequest {
				return unsigned(integration.PlatformShopee, `{"shop_id":123,"code":3,"data":"oops"}`)
			},
			wantShopID: "123",
		},
		{
			name: "momo numeric event type",
			req: func(*testing.T) integration.WebhookRequest {
				return unsigned(integration.PlatformMomo, `{"event_type":7,"merchant_id":"M1"}`)
			},
			wantShopID: "M1",
		},
		{
			name: "shopline body store id",
			req: func(t *testing.T) integration.WebhookRequest {
				return signedShopline(t, `{"topic":["orders/paid"],"store_id":"S1"}`)
			},
			wantShopID: "S1",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newServiceFixture(t)

			result, err := f.service.Ingest(context.Background(), tt.req(t))
			require.NoError(t, err)
			assert.True(t, result.Logged)
			assert.Equal(t, f.orgID, result.OrganizationID)
			assert.Zero(t, f.metrics.unresolved)

			entries := f.log.all()
			require.Len(t, entries, 1)
			e := entries[0]
			assert.Equal(t, f.orgID, e.OrganizationID)
			assert.Equal(t, integration.ActionWebhookError, e.Action)
			assert.Equal(t, integration.SyncLogStatusError, e.Status)

			var details map[string]any
			require.NoError(t, json.Unmarshal(e.ErrorDetails, &details))
			assert.Equal(t, "malformed", details["kind"])
			assert.Equal(t, tt.wantShopID, details["shop_id"])
		})
	}
}

func TestWebhookService_UnknownEventIsSkipped(t *testing.T) {
	f := newServiceFixture(t)

	result, err := f.service.Ingest(context.Background(), unsigned(integration.PlatformShopee,
		`{"shop_id":"123","code":42,"timestamp":1700000000,"data":{}}`))
	require.NoError(t, err)
	assert.Equal(t, integration.SyncLogStatusSkipped, result.Status)

	entries := f.log.all()
	require.Len(t, entries, 1)
	assert.Equal(t, integration.SyncLogStatusSkipped, entries[0].Status)
	assert.Equal(t, "Event not handled: 42", entries[0].Message)
	assert.Zero(t, f.surface.orderCalls)
	assert.Empty(t, f.surface.stock)
}

func TestWebhookService_MomoInventory(t *testing.T) {
	f := newServiceFixture(t)

	_, err := f.service.Ingest(context.Background(), unsigned(integration.PlatformMomo,
		`{"event_type":"INVENTORY_UPDATE","merchant_id":"M1","timestamp":1700000000,"data":{"sku":"SKU-9","quantity":4}}`))
	require.NoError(t, err)

	assert.Equal(t, "4", f.surface.stock["SKU-9"])
	entries := f.log.all()
	require.Len(t, entries, 1)
	assert.Equal(t, integration.EntityTypeInventory, entries[0].EntityType)
	assert.Equal(t, "Stock updated: SKU-9 = 4", entries[0].Message)
}

func TestWebhookService_InventoryWithoutIdentifiers(t *testing.T) {
	f := newServiceFixture(t)

	result, err := f.service.Ingest(context.Background(), unsigned(integration.PlatformMomo,
		`{"event_type":"INVENTORY_UPDATE","merchant_id":"M1","timestamp":1700000000,"data":{"quantity":4}}`))
	require.NoError(t, err)
	assert.Equal(t, integration.SyncLogStatusError, result.Status)

	entries := f.log.all()
	require.Len(t, entries, 1)
	assert.Nil(t, entries[0].EntityID)
	assert.Equal(t, integration.SyncLogStatusError, entries[0].Status)
	assert.Empty(t, f.surface.stock)

	var details map[string]any
	require.NoError(t, json.Unmarshal(entries[0].ErrorDetails, &details))
	assert.Equal(t, "inventory", details["family"])
}

func TestWebhookService_UnresolvedTenant(t *testing.T) {
	body := `{"id":"evt-7","topic":"orders/create","store_id":"UNKNOWN","data":{"id":"O7"}}`

	t.Run("recorded under the default unattributed organization", func(t *testing.T) {
		f := newServiceFixture(t)

		result, err := f.service.Ingest(context.Background(), signedShopline(t, body))
		require.NoError(t, err)
		assert.Equal(t, integration.DefaultUnattributedOrganizationID, result.OrganizationID)
		assert.True(t, result.Logged)
		assert.Zero(t, f.surface.orderCalls)
		assert.Equal(t, 1, f.metrics.unresolved)

		entries := f.log.all()
		require.Len(t, entries, 1)
		assert.Equal(t, integration.DefaultUnattributedOrganizationID, entries[0].OrganizationID)
		assert.Equal(t, 1, f.logs.FilterMessage("Webhook event not attributed to an organization").Len())
	})

	t.Run("recorded under unattributed organization", func(t *testing.T) {
		unattributed := uuid.New()
		f := newServiceFixture(t, withUnattributed(unattributed))

		result, err := f.service.Ingest(context.Background(), signedShopline(t, body))
		require.NoError(t, err)
		assert.True(t, result.Logged)
		assert.Zero(t, f.surface.orderCalls)

		entries := f.log.all()
		require.Len(t, entries, 1)
		assert.Equal(t, unattributed, entries[0].OrganizationID)
		assert.Equal(t, integration.SyncLogStatusError, entries[0].Status)
		assert.Equal(t, "evt-7", entries[0].ExternalEventID)
	})
}

func TestWebhookService_LogSinkUnavailable(t *testing.T) {
	repo := new(MockSyncLogRepository)
	repo.On("Append", mock.Anything, mock.Anything).Return(errors.New("database is down"))

	t.Run("without fallback", func(t *testing.T) {
		f := newServiceFixture(t, withRepo(repo, false))

		result, err := f.service.Ingest(context.Background(), signedShopline(t, shoplineOrderPaid))
		assert.ErrorIs(t, err, integration.ErrLogSinkUnavailable)
		assert.Nil(t, result)
	})

	t.Run("with fallback", func(t *testing.T) {
		f := newServiceFixture(t, withRepo(repo, true))

		result, err := f.service.Ingest(context.Background(), signedShopline(t, shoplineOrderPaid))
		require.NoError(t, err)
		assert.True(t, result.Logged)
		assert.Equal(t, 1, f.metrics.fallbacks)
		assert.Equal(t, 1, f.logs.FilterMessage("Sync log degraded to fallback channel").Len())
	})
}

func TestWebhookService_UnsupportedPlatform(t *testing.T) {
	f := newServiceFixture(t)

	_, err := f.service.Ingest(context.Background(), unsigned(integration.PlatformRuten, `{}`))
	assert.ErrorIs(t, err, integration.ErrPlatformNotSupported)
}

// recordingArchive keeps archived payloads and optionally fails
type recordingArchive struct {
	payloads []integration.ArchivedPayload
	err      error
}

func (a *recordingArchive) Archive(_ context.Context, p integration.ArchivedPayload) error {
	if a.err != nil {
		return a.err
	}
	a.payloads = append(a.payloads, p)
	return nil
}

func TestWebhookService_ArchivesAuthenticatedPayloads(t *testing.T) {
	archive := &recordingArchive{}
	f := newServiceFixture(t, withArchive(archive))

	_, err := f.service.Ingest(context.Background(), signedShopline(t, shoplineOrderPaid))
	require.NoError(t, err)

	bad := signedShopline(t, shoplineOrderPaid)
	bad.Headers.Set(ecommerce.ShoplineSignatureHeader, "forged")
	_, err = f.service.Ingest(context.Background(), bad)
	require.ErrorIs(t, err, integration.ErrSignatureInvalid)

	require.Len(t, archive.payloads, 1)
	p := archive.payloads[0]
	assert.Equal(t, integration.PlatformShopline, p.Platform)
	assert.Equal(t, integration.VerifyOutcomeVerified, p.Verification)
	assert.JSONEq(t, shoplineOrderPaid, string(p.Body))
}

func TestWebhookService_ArchiveFailureDoesNotFailDelivery(t *testing.T) {
	f := newServiceFixture(t, withArchive(&recordingArchive{err: errors.New("bucket gone")}))

	result, err := f.service.Ingest(context.Background(), signedShopline(t, shoplineOrderPaid))
	require.NoError(t, err)
	assert.Equal(t, integration.SyncLogStatusSuccess, result.Status)
	assert.Len(t, f.log.all(), 1)
	assert.Equal(t, 1, f.logs.FilterMessage("Webhook payload archive failed").Len())
}
