package integration

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/erp/commercesync/internal/domain/integration"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// DefaultDownstreamTimeout bounds each call to the reconciliation store
const DefaultDownstreamTimeout = 3 * time.Second

// Handler errors
var (
	ErrMissingEntityID = errors.New("integration: event has no entity identifier")
	ErrMissingQuantity = errors.New("integration: inventory event has no quantity")
)

// HandlerEffect summarizes what a handler did with an event
type HandlerEffect struct {
	Status  integration.SyncLogStatus
	Message string
	// Outcome is set when the reconciliation surface was called
	Outcome integration.ApplyOutcome
	// ResponseData is recorded as the log entry response data
	ResponseData map[string]any
}

// HandlerError is a failure of one handler on one event
type HandlerError struct {
	Family integration.HandlerFamily
	// Transient is true for timeouts and unreachable stores
	Transient bool
	Err       error
}

// Error implements the error interface
func (e *HandlerError) Error() string {
	return fmt.Sprintf("integration: %s handler: %v", e.Family, e.Err)
}

// Unwrap returns the underlying error
func (e *HandlerError) Unwrap() error {
	return e.Err
}

// Handler processes the events of one handler family
type Handler interface {
	Family() integration.HandlerFamily
	Handle(ctx context.Context, orgID uuid.UUID, event *integration.SyncEvent) (*HandlerEffect, error)
}

// DispatchOutcome is the result of routing one event
type DispatchOutcome struct {
	Family  integration.HandlerFamily
	Status  integration.SyncLogStatus
	Message string
	Effect  *HandlerEffect
	// Err is set when the handler failed
	Err error
}

// EventDispatcher routes SyncEvents to handlers by event kind.
// Each event is independent; one failing event never affects another.
type EventDispatcher struct {
	handlers map[integration.HandlerFamily]Handler
	timeout  time.Duration
	metrics  IngestMetrics
	logger   *zap.Logger
}

// EventDispatcherConfig contains configuration for EventDispatcher
type EventDispatcherConfig struct {
	Handlers []Handler
	// Timeout bounds each handler call
	Timeout time.Duration
	Metrics IngestMetrics
	Logger  *zap.Logger
}

// NewEventDispatcher creates a new EventDispatcher
func NewEventDispatcher(cfg EventDispatcherConfig) *EventDispatcher {
	d := &EventDispatcher{
		handlers: make(map[integration.HandlerFamily]Handler, len(cfg.Handlers)),
		timeout:  cfg.Timeout,
		metrics:  cfg.Metrics,
		logger:   cfg.Logger,
	}
	if d.timeout <= 0 {
		d.timeout = DefaultDownstreamTimeout
	}
	if d.metrics == nil {
		d.metrics = noopMetrics{}
	}
	if d.logger == nil {
		d.logger = zap.NewNop()
	}
	for _, h := range cfg.Handlers {
		d.handlers[h.Family()] = h
	}
	return d
}

// NewDefaultHandlers returns one handler per family backed by surface
func NewDefaultHandlers(surface integration.ReconciliationSurface) []Handler {
	return []Handler{
		NewOrderLifecycleHandler(surface),
		NewInventoryHandler(surface),
		ProductHandler{},
		ShopAuthHandler{},
	}
}

// Dispatch routes the event to its handler and never returns an error;
// failures are reported in the outcome.
func (d *EventDispatcher) Dispatch(ctx context.Context, orgID uuid.UUID, event *integration.SyncEvent) DispatchOutcome {
	family := event.Kind.Family()
	if event.IsUnknown() {
		return DispatchOutcome{
			Family:  family,
			Status:  integration.SyncLogStatusSkipped,
			Message: fmt.Sprintf("Event not handled: %s", event.SourceCode),
		}
	}

	h, ok := d.handlers[family]
	if !ok {
		return DispatchOutcome{
			Family:  family,
			Status:  integration.SyncLogStatusSkipped,
			Message: fmt.Sprintf("No handler registered for %s", family),
		}
	}

	start := time.Now()
	effect, err := d.run(ctx, h, orgID, event)
	if err != nil {
		d.metrics.RecordHandlerDuration(ctx, family, integration.SyncLogStatusError, time.Since(start))
		d.logger.Warn("Webhook event handler failed",
			zap.String("family", family.String()),
			zap.String("platform", event.Platform.String()),
			zap.String("external_event_id", event.ExternalEventID),
			zap.Error(err),
		)
		return DispatchOutcome{
			Family:  family,
			Status:  integration.SyncLogStatusError,
			Message: err.Error(),
			Err:     err,
		}
	}

	d.metrics.RecordHandlerDuration(ctx, family, effect.Status, time.Since(start))
	return DispatchOutcome{
		Family:  family,
		Status:  effect.Status,
		Message: effect.Message,
		Effect:  effect,
	}
}

// run calls the handler under the downstream timeout and recovers panics
func (d *EventDispatcher) run(ctx context.Context, h Handler, orgID uuid.UUID, event *integration.SyncEvent) (effect *HandlerEffect, err error) {
	ctx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	defer func() {
		if r := recover(); r != nil {
			effect = nil
			err = &HandlerError{Family: h.Family(), Err: fmt.Errorf("panic: %v", r)}
		}
	}()

	effect, err = h.Handle(ctx, orgID, event)
	if err != nil {
		var he *HandlerError
		if !errors.As(err, &he) {
			he = &HandlerError{Family: h.Family(), Err: err}
		}
		if errors.Is(err, context.DeadlineExceeded) || ctx.Err() != nil {
			he.Transient = true
		}
		return nil, he
	}
	if effect == nil {
		effect = &HandlerEffect{Status: integration.SyncLogStatusSuccess}
	}
	return effect, nil
}
