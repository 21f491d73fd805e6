package ecommerce

import (
	"encoding/json"
	"strings"

	"github.com/erp/commercesync/internal/domain/integration"
	"github.com/shopspring/decimal"
)

// ---------------------------------------------------------------------------
// Shopline webhook types
// ---------------------------------------------------------------------------

// Shopline topics
const (
	ShoplineTopicOrderCreate     = "orders/create"
	ShoplineTopicOrderUpdate     = "orders/update"
	ShoplineTopicOrderPaid       = "orders/paid"
	ShoplineTopicOrderFulfilled  = "orders/fulfilled"
	ShoplineTopicOrderCancelled  = "orders/cancelled"
	ShoplineTopicProductCreate   = "products/create"
	ShoplineTopicProductUpdate   = "products/update"
	ShoplineTopicProductDelete   = "products/delete"
	ShoplineTopicInventoryUpdate = "inventory_levels/update"
	ShoplineTopicAppUninstalled  = "app/uninstalled"
)

// ShoplinePayload is the envelope of a Shopline webhook
type ShoplinePayload struct {
	ID        FlexibleID   `json:"id"`
	Topic     string       `json:"topic"`
	StoreID   FlexibleID   `json:"store_id"`
	CreatedAt string       `json:"created_at"`
	Data      ShoplineData `json:"data"`
}

// ShoplineData is the data block of a Shopline webhook
type ShoplineData struct {
	ID                FlexibleID       `json:"id"`
	OrderNumber       FlexibleID       `json:"order_number"`
	Status            string           `json:"status"`
	ProductID         FlexibleID       `json:"product_id"`
	VariantID         FlexibleID       `json:"variant_id"`
	SKU               string           `json:"sku"`
	InventoryQuantity *decimal.Decimal `json:"inventory_quantity"`
}

var shoplineEventTable = map[string]eventMapping{
	ShoplineTopicOrderCreate:     {Kind: integration.EventKindOrderCreated, Action: "webhook_order_create"},
	ShoplineTopicOrderPaid:       {Kind: integration.EventKindOrderPaid, Action: "webhook_order_update"},
	ShoplineTopicOrderUpdate:     {Kind: integration.EventKindOrderStatusChanged, Action: "webhook_order_update"},
	ShoplineTopicOrderFulfilled:  {Kind: integration.EventKindOrderStatusChanged, Action: "webhook_order_update"},
	ShoplineTopicOrderCancelled:  {Kind: integration.EventKindOrderStatusChanged, Action: "webhook_order_update"},
	ShoplineTopicProductCreate:   {Kind: integration.EventKindProductUpdated, Action: "webhook_product_create", Operation: "create"},
	ShoplineTopicProductUpdate:   {Kind: integration.EventKindProductUpdated, Action: "webhook_product_update", Operation: "update"},
	ShoplineTopicProductDelete:   {Kind: integration.EventKindProductUpdated, Action: "webhook_product_delete", Operation: "delete"},
	ShoplineTopicInventoryUpdate: {Kind: integration.EventKindInventoryUpdated, Action: "webhook_inventory_update"},
	ShoplineTopicAppUninstalled:  {Kind: integration.EventKindShopAuthorization, Action: "webhook_app_uninstalled"},
}

// ShoplineNormalizer converts Shopline webhooks into SyncEvents.
// Topic and store ID headers take precedence over the body fields.
type ShoplineNormalizer struct{}

// Platform returns PlatformShopline
func (ShoplineNormalizer) Platform() integration.Platform {
	return integration.PlatformShopline
}

// Normalize parses a Shopline webhook
func (ShoplineNormalizer) Normalize(req integration.WebhookRequest) (*integration.SyncEvent, error) {
	var p ShoplinePayload
	if ne := decodeEnvelope(integration.PlatformShopline, req.Body, &p, "store_id"); ne != nil {
		ne.ShopID = firstNonEmpty(strings.TrimSpace(req.Header(ShoplineStoreIDHeader)), ne.ShopID)
		return nil, ne
	}

	topic := firstNonEmpty(strings.TrimSpace(req.Header(ShoplineTopicHeader)), strings.TrimSpace(p.Topic))
	storeID := firstNonEmpty(strings.TrimSpace(req.Header(ShoplineStoreIDHeader)), p.StoreID.String())
	if topic == "" {
		return nil, integration.NewMissingDiscriminantError(integration.PlatformShopline, "topic", storeID)
	}

	mapping, ok := shoplineEventTable[topic]
	if !ok {
		mapping = unknownMapping
	}

	event := &integration.SyncEvent{
		Platform:   integration.PlatformShopline,
		ShopID:     storeID,
		Kind:       mapping.Kind,
		SourceCode: topic,
		Action:     mapping.Action,
		EntityType: mapping.Kind.EntityType(),
		OccurredAt: parseTimestamp(p.CreatedAt, receivedAt(req)),
		RawPayload: json.RawMessage(req.Body),
	}

	switch mapping.Kind.Family() {
	case integration.HandlerFamilyOrderLifecycle:
		event.Order = &integration.OrderDetail{
			OrderID:     p.Data.ID.String(),
			OrderNumber: p.Data.OrderNumber.String(),
			Status:      p.Data.Status,
		}
		event.EntityID = p.Data.ID.String()
	case integration.HandlerFamilyInventory:
		event.Inventory = &integration.InventoryDetail{
			SKU:       p.Data.SKU,
			ProductID: p.Data.ProductID.String(),
			VariantID: p.Data.VariantID.String(),
			Quantity:  p.Data.InventoryQuantity,
		}
		event.EntityID = event.Inventory.StockKey()
	case integration.HandlerFamilyProduct:
		productID := firstNonEmpty(p.Data.ProductID.String(), p.Data.ID.String())
		event.Product = &integration.ProductDetail{ProductID: productID, Operation: mapping.Operation}
		event.EntityID = productID
	case integration.HandlerFamilyShopAuth:
		event.EntityID = storeID
	default:
		event.EntityID = p.Data.ID.String()
	}

	if p.ID != "" {
		event.ExternalEventID = p.ID.String()
	} else {
		event.ExternalEventID = derivedEventID(storeID, topic, event.EntityID, p.CreatedAt, req.Body)
	}
	return event, nil
}
