package integration

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
)

// Sync log actions shared by every platform
const (
	// ActionWebhookError is the action recorded when a delivery cannot be normalized
	ActionWebhookError = "webhook_error"
	// ActionUnknownEvent is the action recorded for codes outside a platform lookup table
	ActionUnknownEvent = "webhook_unknown_event"
)

// SyncEvent is the canonical representation of one webhook delivery.
// It is built per request and never persisted; only the SyncLogEntry derived
// from it is stored.
type SyncEvent struct {
	// Platform is the origin marketplace
	Platform Platform
	// ShopID is the platform shop/store/merchant identifier used to resolve the tenant
	ShopID string
	// ExternalEventID uniquely identifies the source event within the platform
	ExternalEventID string
	// Kind is the canonical event kind
	Kind EventKind
	// SourceCode is the platform event code or topic as delivered
	SourceCode string
	// Action is the log verb for this source event
	Action string
	// EntityType is the type of the affected entity
	EntityType EntityType
	// EntityID is the platform identifier of the affected entity; empty when absent
	EntityID string
	// OccurredAt is the platform event time, or receipt time if absent
	OccurredAt time.Time
	// RawPayload is the original body kept for audit only
	RawPayload json.RawMessage

	// Order is set for order lifecycle events
	Order *OrderDetail
	// Inventory is set for inventory events
	Inventory *InventoryDetail
	// Product is set for product events
	Product *ProductDetail
}

// OrderDetail holds the normalized order fields of an order event
type OrderDetail struct {
	OrderID        string
	OrderNumber    string
	Status         string
	TrackingNumber string
}

// InventoryDetail holds the normalized stock fields of an inventory event
type InventoryDetail struct {
	SKU       string
	ProductID string
	VariantID string
	// Quantity is the new absolute stock level; nil when the platform omitted it
	Quantity *decimal.Decimal
}

// StockKey returns the most specific stock-keeping identifier present
func (d *InventoryDetail) StockKey() string {
	if d == nil {
		return ""
	}
	switch {
	case d.VariantID != "":
		return d.VariantID
	case d.SKU != "":
		return d.SKU
	default:
		return d.ProductID
	}
}

// ProductDetail holds the normalized fields of a catalog event
type ProductDetail struct {
	ProductID string
	// Operation is create, update or delete
	Operation string
}

// EntityIDPtr returns the entity ID or nil when it is empty
func (e *SyncEvent) EntityIDPtr() *string {
	if e.EntityID == "" {
		return nil
	}
	id := e.EntityID
	return &id
}

// IsUnknown returns true if no handler accepts the event
func (e *SyncEvent) IsUnknown() bool {
	return e.Kind.Family() == HandlerFamilyNone
}
