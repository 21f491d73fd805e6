package integration

import (
	"context"
	"fmt"

	"github.com/erp/commercesync/internal/domain/integration"
	"github.com/google/uuid"
)

// InventoryHandler applies stock level updates
type InventoryHandler struct {
	surface integration.ReconciliationSurface
}

// NewInventoryHandler creates a new InventoryHandler
func NewInventoryHandler(surface integration.ReconciliationSurface) *InventoryHandler {
	return &InventoryHandler{surface: surface}
}

// Family returns HandlerFamilyInventory
func (h *InventoryHandler) Family() integration.HandlerFamily {
	return integration.HandlerFamilyInventory
}

// Handle sets the stock level of the most specific identifier in the event
func (h *InventoryHandler) Handle(ctx context.Context, orgID uuid.UUID, event *integration.SyncEvent) (*HandlerEffect, error) {
	sku := event.Inventory.StockKey()
	if sku == "" {
		return nil, &HandlerError{Family: h.Family(), Err: ErrMissingEntityID}
	}
	if event.Inventory.Quantity == nil {
		return nil, &HandlerError{Family: h.Family(), Err: ErrMissingQuantity}
	}

	qty := *event.Inventory.Quantity
	result, err := h.surface.ApplyInventoryDelta(ctx, integration.InventoryDeltaCommand{
		OrganizationID:  orgID,
		Platform:        event.Platform,
		ExternalEventID: event.ExternalEventID,
		SKU:             sku,
		NewQuantity:     qty,
	})
	if err != nil {
		return nil, &HandlerError{Family: h.Family(), Transient: true, Err: err}
	}

	return effectFromResult(result, fmt.Sprintf("Stock updated: %s = %s", sku, qty.String()), map[string]any{
		"sku":      sku,
		"quantity": qty.String(),
	}), nil
}
