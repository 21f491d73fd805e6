package ecommerce

import (
	"encoding/json"
	"strings"

	"github.com/erp/commercesync/internal/domain/integration"
	"github.com/shopspring/decimal"
)

// ---------------------------------------------------------------------------
// momo webhook types
// ---------------------------------------------------------------------------

// momo event types
const (
	MomoEventOrderCreated    = "ORDER_CREATED"
	MomoEventOrderPaid       = "ORDER_PAID"
	MomoEventOrderCancelled  = "ORDER_CANCELLED"
	MomoEventOrderShipped    = "ORDER_SHIPPED"
	MomoEventOrderDelivered  = "ORDER_DELIVERED"
	MomoEventInventoryUpdate = "INVENTORY_UPDATE"
	MomoEventProductReview   = "PRODUCT_REVIEW"
)

// MomoPayload is the envelope of a momo webhook
type MomoPayload struct {
	EventType  string     `json:"event_type"`
	MerchantID FlexibleID `json:"merchant_id"`
	Timestamp  FlexibleID `json:"timestamp"`
	Data       MomoData   `json:"data"`
	Signature  string     `json:"signature"`
}

// MomoData is the data block of a momo webhook
type MomoData struct {
	OrderID     FlexibleID       `json:"order_id"`
	OrderStatus string           `json:"order_status"`
	ProductID   FlexibleID       `json:"product_id"`
	SKU         string           `json:"sku"`
	Quantity    *decimal.Decimal `json:"quantity"`
}

// momoEvent extends eventMapping with the order status implied by the event type
type momoEvent struct {
	eventMapping
	impliedStatus string
}

var momoEventTable = map[string]momoEvent{
	MomoEventOrderCreated:    {eventMapping{Kind: integration.EventKindOrderCreated, Action: "webhook_order_created"}, "created"},
	MomoEventOrderPaid:       {eventMapping{Kind: integration.EventKindOrderPaid, Action: "webhook_order_paid"}, "paid"},
	MomoEventOrderCancelled:  {eventMapping{Kind: integration.EventKindOrderStatusChanged, Action: "webhook_order_status"}, "cancelled"},
	MomoEventOrderShipped:    {eventMapping{Kind: integration.EventKindOrderStatusChanged, Action: "webhook_order_status"}, "shipped"},
	MomoEventOrderDelivered:  {eventMapping{Kind: integration.EventKindOrderStatusChanged, Action: "webhook_order_status"}, "delivered"},
	MomoEventInventoryUpdate: {eventMapping{Kind: integration.EventKindInventoryUpdated, Action: "webhook_inventory_update"}, ""},
	// Reviews are recorded but not actioned
	MomoEventProductReview: {eventMapping{Kind: integration.EventKindUnknown, Action: "webhook_product_review"}, ""},
}

// MomoNormalizer converts momo webhooks into SyncEvents
type MomoNormalizer struct{}

// Platform returns PlatformMomo
func (MomoNormalizer) Platform() integration.Platform {
	return integration.PlatformMomo
}

// Normalize parses a momo webhook
func (MomoNormalizer) Normalize(req integration.WebhookRequest) (*integration.SyncEvent, error) {
	var p MomoPayload
	if ne := decodeEnvelope(integration.PlatformMomo, req.Body, &p, "merchant_id"); ne != nil {
		return nil, ne
	}
	eventType := strings.TrimSpace(p.EventType)
	if eventType == "" {
		return nil, integration.NewMissingDiscriminantError(integration.PlatformMomo, "event_type", p.MerchantID.String())
	}

	mapping, ok := momoEventTable[eventType]
	if !ok {
		mapping = momoEvent{eventMapping: unknownMapping}
	}

	event := &integration.SyncEvent{
		Platform:   integration.PlatformMomo,
		ShopID:     p.MerchantID.String(),
		Kind:       mapping.Kind,
		SourceCode: eventType,
		Action:     mapping.Action,
		EntityType: mapping.Kind.EntityType(),
		OccurredAt: parseTimestamp(p.Timestamp.String(), receivedAt(req)),
		RawPayload: json.RawMessage(req.Body),
	}

	switch mapping.Kind.Family() {
	case integration.HandlerFamilyOrderLifecycle:
		event.Order = &integration.OrderDetail{
			OrderID:     p.Data.OrderID.String(),
			OrderNumber: p.Data.OrderID.String(),
			Status:      firstNonEmpty(p.Data.OrderStatus, mapping.impliedStatus),
		}
		event.EntityID = p.Data.OrderID.String()
	case integration.HandlerFamilyInventory:
		event.Inventory = &integration.InventoryDetail{
			SKU:       p.Data.SKU,
			ProductID: p.Data.ProductID.String(),
			Quantity:  p.Data.Quantity,
		}
		event.EntityID = event.Inventory.StockKey()
	default:
		event.EntityID = firstNonEmpty(p.Data.OrderID.String(), p.Data.ProductID.String(), p.Data.SKU)
	}

	event.ExternalEventID = derivedEventID(event.ShopID, eventType, event.EntityID, p.Timestamp.String(), req.Body)
	return event, nil
}
