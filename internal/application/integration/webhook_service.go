package integration

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/erp/commercesync/internal/domain/integration"
	"github.com/erp/commercesync/internal/infrastructure/logger"
	"github.com/erp/commercesync/internal/infrastructure/telemetry"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// WebhookService runs the ingestion pipeline for one delivery:
// verify, normalize, resolve tenant, dispatch, record.
type WebhookService struct {
	verifier   integration.WebhookVerifier
	normalizer integration.EventNormalizer
	tenants    integration.TenantResolver
	dispatcher *EventDispatcher
	syncLogger *SyncLogger
	// archive is optional; nil disables raw payload archiving
	archive integration.PayloadArchive
	// unattributedOrgID receives log entries whose shop is unknown
	unattributedOrgID uuid.UUID
	resolveTimeout    time.Duration
	metrics           IngestMetrics
	logger            *zap.Logger
}

// WebhookServiceConfig contains configuration for WebhookService
type WebhookServiceConfig struct {
	Verifier                   integration.WebhookVerifier
	Normalizer                 integration.EventNormalizer
	Tenants                    integration.TenantResolver
	Dispatcher                 *EventDispatcher
	SyncLogger                 *SyncLogger
	Archive                    integration.PayloadArchive
	UnattributedOrganizationID uuid.UUID
	ResolveTimeout             time.Duration
	Metrics                    IngestMetrics
	Logger                     *zap.Logger
}

// NewWebhookService creates a new WebhookService
func NewWebhookService(cfg WebhookServiceConfig) *WebhookService {
	s := &WebhookService{
		verifier:          cfg.Verifier,
		normalizer:        cfg.Normalizer,
		tenants:           cfg.Tenants,
		dispatcher:        cfg.Dispatcher,
		syncLogger:        cfg.SyncLogger,
		archive:           cfg.Archive,
		unattributedOrgID: cfg.UnattributedOrganizationID,
		resolveTimeout:    cfg.ResolveTimeout,
		metrics:           cfg.Metrics,
		logger:            cfg.Logger,
	}
	if s.resolveTimeout <= 0 {
		s.resolveTimeout = DefaultDownstreamTimeout
	}
	if s.unattributedOrgID == uuid.Nil {
		s.unattributedOrgID = integration.DefaultUnattributedOrganizationID
	}
	if s.metrics == nil {
		s.metrics = noopMetrics{}
	}
	if s.logger == nil {
		s.logger = zap.NewNop()
	}
	return s
}

// IngestResult describes how a delivery was handled
type IngestResult struct {
	Platform     integration.Platform
	Verification integration.VerifyOutcome
	// Event is nil when normalization failed
	Event *integration.SyncEvent
	// OrganizationID is the unattributed organization when no tenant was resolved
	OrganizationID uuid.UUID
	Status         integration.SyncLogStatus
	Message        string
	// Logged reports whether a sync log entry was written or degraded to the fallback channel
	Logged bool
}

// SourceCode returns the platform event code or topic, if known
func (r *IngestResult) SourceCode() string {
	if r.Event == nil {
		return ""
	}
	return r.Event.SourceCode
}

// Ingest processes one delivery. It returns ErrSignatureInvalid for a
// rejected signature, ErrPlatformNotSupported for an unknown platform and
// ErrLogSinkUnavailable when the log could not be written anywhere. Every
// other failure is recorded and reported through the result.
func (s *WebhookService) Ingest(ctx context.Context, req integration.WebhookRequest) (*IngestResult, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "webhook", "ingest",
		telemetry.WithAttribute(telemetry.SpanAttrPlatform, req.Platform.String()),
	)
	defer span.End()

	result := &IngestResult{Platform: req.Platform}
	log := logger.WithLogger(ctx, s.logger).With(zap.String("platform", req.Platform.String()))

	verification, err := s.verifier.VerifyRequest(req)
	if err != nil {
		if errors.Is(err, integration.ErrSignatureInvalid) {
			s.metrics.RecordSignatureRejected(ctx, req.Platform)
		}
		telemetry.RecordError(span, err)
		return nil, err
	}
	result.Verification = verification
	s.archivePayload(ctx, req, verification)

	event, err := s.normalizer.Normalize(req)
	if err != nil {
		ne, ok := integration.AsNormalizationError(err)
		if !ok {
			telemetry.RecordError(span, err)
			return nil, err
		}
		return s.recordNormalizationFailure(ctx, req, ne, result)
	}
	result.Event = event
	telemetry.SetAttributes(span,
		telemetry.SpanAttrEventKind, event.Kind.String(),
		telemetry.SpanAttrExternalEventID, event.ExternalEventID,
	)

	orgID, err := s.resolve(ctx, event.Platform, event.ShopID)
	if err != nil {
		return s.recordUnresolvedTenant(ctx, event, err, result)
	}
	result.OrganizationID = orgID
	ctx, _ = logger.WithOrganizationID(ctx, s.logger, orgID.String())

	outcome := s.dispatcher.Dispatch(ctx, orgID, event)
	result.Status = outcome.Status
	result.Message = outcome.Message

	params := integration.SyncLogParams{
		OrganizationID:  orgID,
		Platform:        event.Platform,
		Action:          event.Action,
		EntityType:      event.EntityType,
		EntityID:        event.EntityIDPtr(),
		ExternalEventID: event.ExternalEventID,
		Status:          outcome.Status,
		Message:         outcome.Message,
		RequestData:     event.RawPayload,
		Metadata:        s.metadata(ctx, result, event.SourceCode),
	}
	if outcome.Effect != nil && len(outcome.Effect.ResponseData) > 0 {
		params.ResponseData = mustJSON(outcome.Effect.ResponseData)
	}
	if outcome.Err != nil {
		params.ErrorDetails = handlerErrorDetails(outcome.Err)
	}

	if err := s.record(ctx, params, result); err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	log.Info("Webhook event processed",
		zap.String("organization_id", orgID.String()),
		zap.String("event_kind", event.Kind.String()),
		zap.String("external_event_id", event.ExternalEventID),
		zap.String("status", outcome.Status.String()),
	)
	telemetry.SetOK(span)
	return result, nil
}

// archivePayload stores the authenticated delivery. Failures are logged only.
func (s *WebhookService) archivePayload(ctx context.Context, req integration.WebhookRequest, verification integration.VerifyOutcome) {
	if s.archive == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.resolveTimeout)
	defer cancel()

	payload := integration.NewArchivedPayload(req, verification, logger.GetRequestID(ctx))
	if err := s.archive.Archive(ctx, payload); err != nil {
		logger.WithLogger(ctx, s.logger).Warn("Webhook payload archive failed",
			zap.String("platform", req.Platform.String()),
			zap.String("key", payload.ObjectKey()),
			zap.Error(err),
		)
	}
}

// resolve maps the shop to an organization under the downstream timeout
func (s *WebhookService) resolve(ctx context.Context, platform integration.Platform, shopID string) (uuid.UUID, error) {
	if shopID == "" {
		return uuid.Nil, integration.ErrTenantNotResolved
	}
	ctx, cancel := context.WithTimeout(ctx, s.resolveTimeout)
	defer cancel()
	return s.tenants.ResolveOrganization(ctx, platform, shopID)
}

// recordNormalizationFailure logs a delivery that never became a SyncEvent
func (s *WebhookService) recordNormalizationFailure(ctx context.Context, req integration.WebhookRequest, ne *integration.NormalizationError, result *IngestResult) (*IngestResult, error) {
	result.Status = integration.SyncLogStatusError
	result.Message = ne.Error()

	orgID, err := s.resolve(ctx, req.Platform, ne.ShopID)
	if err != nil {
		orgID = s.unattributedOrgID
		s.metrics.RecordUnresolvedTenant(ctx, req.Platform)
		logger.WithLogger(ctx, s.logger).Warn("Unattributable webhook payload",
			zap.String("platform", req.Platform.String()),
			zap.String("kind", string(ne.Kind)),
			zap.String("shop_id", ne.ShopID),
			zap.Error(ne),
		)
	}
	result.OrganizationID = orgID

	details := map[string]any{"kind": string(ne.Kind), "error": ne.Error()}
	if ne.Field != "" {
		details["field"] = ne.Field
	}
	if ne.ShopID != "" {
		details["shop_id"] = ne.ShopID
	}
	params := integration.SyncLogParams{
		OrganizationID: orgID,
		Platform:       req.Platform,
		Action:         integration.ActionWebhookError,
		EntityType:     integration.EntityTypeWebhook,
		Status:         integration.SyncLogStatusError,
		Message:        ne.Error(),
		RequestData:    requestData(req.Body),
		ErrorDetails:   mustJSON(details),
		Metadata:       s.metadata(ctx, result, ""),
	}
	if err := s.record(ctx, params, result); err != nil {
		return nil, err
	}
	return result, nil
}

// recordUnresolvedTenant handles an event whose shop maps to no organization.
// No effect is applied without a tenant.
func (s *WebhookService) recordUnresolvedTenant(ctx context.Context, event *integration.SyncEvent, cause error, result *IngestResult) (*IngestResult, error) {
	result.Status = integration.SyncLogStatusError
	result.Message = fmt.Sprintf("Organization not resolved for %s shop %q", event.Platform, event.ShopID)
	s.metrics.RecordUnresolvedTenant(ctx, event.Platform)
	logger.WithLogger(ctx, s.logger).Warn("Webhook event not attributed to an organization",
		zap.String("platform", event.Platform.String()),
		zap.String("shop_id", event.ShopID),
		zap.String("external_event_id", event.ExternalEventID),
		zap.Error(cause),
	)

	result.OrganizationID = s.unattributedOrgID
	params := integration.SyncLogParams{
		OrganizationID:  s.unattributedOrgID,
		Platform:        event.Platform,
		Action:          event.Action,
		EntityType:      event.EntityType,
		EntityID:        event.EntityIDPtr(),
		ExternalEventID: event.ExternalEventID,
		Status:          integration.SyncLogStatusError,
		Message:         result.Message,
		RequestData:     event.RawPayload,
		ErrorDetails:    mustJSON(map[string]any{"error": cause.Error(), "shop_id": event.ShopID}),
		Metadata:        s.metadata(ctx, result, event.SourceCode),
	}
	if err := s.record(ctx, params, result); err != nil {
		return nil, err
	}
	return result, nil
}

// record writes the entry and counts the delivery
func (s *WebhookService) record(ctx context.Context, params integration.SyncLogParams, result *IngestResult) error {
	kind := integration.EventKindUnknown
	if result.Event != nil {
		kind = result.Event.Kind
	}
	s.metrics.RecordDelivery(ctx, params.Platform, kind, params.Status)

	if err := s.syncLogger.Record(ctx, params); err != nil {
		return err
	}
	result.Logged = true
	return nil
}

func (s *WebhookService) metadata(ctx context.Context, result *IngestResult, sourceCode string) map[string]string {
	md := map[string]string{"verification": result.Verification.String()}
	if sourceCode != "" {
		md["source_code"] = sourceCode
	}
	if requestID := logger.GetRequestID(ctx); requestID != "" {
		md["request_id"] = requestID
	}
	return md
}

// requestData keeps a body that is valid JSON as is and quotes anything else
func requestData(body []byte) json.RawMessage {
	if json.Valid(body) {
		return json.RawMessage(body)
	}
	return mustJSON(map[string]string{"raw": string(body)})
}

func handlerErrorDetails(err error) json.RawMessage {
	details := map[string]any{"error": err.Error()}
	var he *HandlerError
	if errors.As(err, &he) {
		details["family"] = he.Family.String()
		details["transient"] = he.Transient
	}
	return mustJSON(details)
}

// mustJSON marshals values built from strings and scalars only
func mustJSON(v any) json.RawMessage {
	b, err := json.Marshal(v)
	if err != nil {
		return nil
	}
	return b
}
