package integration

import (
	"context"
	"fmt"

	"github.com/erp/commercesync/internal/domain/integration"
	"github.com/google/uuid"
)

// ProductHandler records catalog events. Catalog state is owned by the
// platform, so nothing is reconciled.
type ProductHandler struct{}

// Family returns HandlerFamilyProduct
func (ProductHandler) Family() integration.HandlerFamily {
	return integration.HandlerFamilyProduct
}

// Handle records the product operation
func (ProductHandler) Handle(_ context.Context, _ uuid.UUID, event *integration.SyncEvent) (*HandlerEffect, error) {
	op := "update"
	if event.Product != nil && event.Product.Operation != "" {
		op = event.Product.Operation
	}
	return &HandlerEffect{
		Status:       integration.SyncLogStatusSuccess,
		Message:      fmt.Sprintf("Product %s: %s", op, event.EntityID),
		ResponseData: map[string]any{"operation": op},
	}, nil
}

// ShopAuthHandler records connection lifecycle events without acting on them
type ShopAuthHandler struct{}

// Family returns HandlerFamilyShopAuth
func (ShopAuthHandler) Family() integration.HandlerFamily {
	return integration.HandlerFamilyShopAuth
}

// Handle marks the event as skipped
func (ShopAuthHandler) Handle(_ context.Context, _ uuid.UUID, event *integration.SyncEvent) (*HandlerEffect, error) {
	return &HandlerEffect{
		Status:  integration.SyncLogStatusSkipped,
		Message: fmt.Sprintf("Shop event %s recorded, not actioned", event.SourceCode),
	}, nil
}
