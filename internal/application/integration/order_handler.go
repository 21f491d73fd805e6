package integration

import (
	"context"
	"fmt"

	"github.com/erp/commercesync/internal/domain/integration"
	"github.com/google/uuid"
)

// OrderLifecycleHandler applies order created, paid and status events
type OrderLifecycleHandler struct {
	surface integration.ReconciliationSurface
}

// NewOrderLifecycleHandler creates a new OrderLifecycleHandler
func NewOrderLifecycleHandler(surface integration.ReconciliationSurface) *OrderLifecycleHandler {
	return &OrderLifecycleHandler{surface: surface}
}

// Family returns HandlerFamilyOrderLifecycle
func (h *OrderLifecycleHandler) Family() integration.HandlerFamily {
	return integration.HandlerFamilyOrderLifecycle
}

// Handle hands the order event to the reconciliation surface
func (h *OrderLifecycleHandler) Handle(ctx context.Context, orgID uuid.UUID, event *integration.SyncEvent) (*HandlerEffect, error) {
	if event.EntityID == "" {
		return nil, &HandlerError{Family: h.Family(), Err: ErrMissingEntityID}
	}

	cmd := integration.OrderEventCommand{
		OrganizationID:  orgID,
		Platform:        event.Platform,
		ExternalEventID: event.ExternalEventID,
		Kind:            event.Kind,
		EntityID:        event.EntityID,
		Payload:         event.RawPayload,
	}
	if event.Order != nil {
		cmd.OrderNumber = event.Order.OrderNumber
		cmd.Status = event.Order.Status
	}

	result, err := h.surface.ApplyOrderEvent(ctx, cmd)
	if err != nil {
		return nil, &HandlerError{Family: h.Family(), Transient: true, Err: err}
	}

	return effectFromResult(result, orderMessage(event, cmd.Status), map[string]any{
		"order_id": event.EntityID,
		"status":   cmd.Status,
	}), nil
}

func orderMessage(event *integration.SyncEvent, status string) string {
	switch event.Kind {
	case integration.EventKindOrderCreated:
		return fmt.Sprintf("Order created: %s", event.EntityID)
	case integration.EventKindOrderPaid:
		return fmt.Sprintf("Order paid: %s", event.EntityID)
	default:
		if status == "" {
			return fmt.Sprintf("Order updated: %s", event.EntityID)
		}
		return fmt.Sprintf("Order %s status updated: %s", event.EntityID, status)
	}
}

// effectFromResult maps a reconciliation result to a log status
func effectFromResult(result integration.ApplyResult, appliedMessage string, data map[string]any) *HandlerEffect {
	if data == nil {
		data = map[string]any{}
	}
	data["outcome"] = result.Outcome.String()

	switch result.Outcome {
	case integration.ApplyOutcomeApplied:
		return &HandlerEffect{Status: integration.SyncLogStatusSuccess, Message: appliedMessage, Outcome: result.Outcome, ResponseData: data}
	case integration.ApplyOutcomeAlreadyApplied:
		return &HandlerEffect{
			Status:       integration.SyncLogStatusSuccess,
			Message:      appliedMessage + " (already applied)",
			Outcome:      result.Outcome,
			ResponseData: data,
		}
	default:
		data["reason"] = result.Reason
		return &HandlerEffect{
			Status:       integration.SyncLogStatusError,
			Message:      fmt.Sprintf("Rejected: %s", result.Reason),
			Outcome:      integration.ApplyOutcomeRejected,
			ResponseData: data,
		}
	}
}
