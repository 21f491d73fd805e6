package ecommerce

import (
	"encoding/json"
	"strconv"

	"github.com/erp/commercesync/internal/domain/integration"
	"github.com/shopspring/decimal"
)

// ---------------------------------------------------------------------------
// Shopee webhook push types
// ---------------------------------------------------------------------------

// Shopee push codes
const (
	ShopeeCodeShopAuthorization = 1
	ShopeeCodeOrderStatusUpdate = 3
	ShopeeCodeTrackingNoUpdate  = 4
	ShopeeCodeProductUpdate     = 5
	ShopeeCodeStockUpdate       = 7
)

// ShopeePayload is the envelope of a Shopee push
type ShopeePayload struct {
	ShopID    FlexibleID `json:"shop_id"`
	Code      *int       `json:"code"`
	Timestamp FlexibleID `json:"timestamp"`
	Data      ShopeeData `json:"data"`
}

// ShopeeData is the data block of a Shopee push
type ShopeeData struct {
	OrderSN    string           `json:"ordersn"`
	Status     string           `json:"status"`
	TrackingNo string           `json:"tracking_no"`
	ItemID     FlexibleID       `json:"item_id"`
	ModelID    FlexibleID       `json:"model_id"`
	Stock      *decimal.Decimal `json:"stock"`
}

var shopeeEventTable = map[int]eventMapping{
	ShopeeCodeShopAuthorization: {Kind: integration.EventKindShopAuthorization, Action: "webhook_shop_authorization"},
	ShopeeCodeOrderStatusUpdate: {Kind: integration.EventKindOrderStatusChanged, Action: "webhook_order_status"},
	ShopeeCodeTrackingNoUpdate:  {Kind: integration.EventKindOrderStatusChanged, Action: "webhook_tracking_update"},
	ShopeeCodeProductUpdate:     {Kind: integration.EventKindProductUpdated, Action: "webhook_product_update", Operation: "update"},
	ShopeeCodeStockUpdate:       {Kind: integration.EventKindInventoryUpdated, Action: "webhook_stock_update"},
}

// ShopeeNormalizer converts Shopee pushes into SyncEvents
type ShopeeNormalizer struct{}

// Platform returns PlatformShopee
func (ShopeeNormalizer) Platform() integration.Platform {
	return integration.PlatformShopee
}

// Normalize parses a Shopee push
func (ShopeeNormalizer) Normalize(req integration.WebhookRequest) (*integration.SyncEvent, error) {
	var p ShopeePayload
	if ne := decodeEnvelope(integration.PlatformShopee, req.Body, &p, "shop_id"); ne != nil {
		return nil, ne
	}
	if p.Code == nil {
		return nil, integration.NewMissingDiscriminantError(integration.PlatformShopee, "code", p.ShopID.String())
	}

	code := *p.Code
	mapping, ok := shopeeEventTable[code]
	if !ok {
		mapping = unknownMapping
	}

	event := &integration.SyncEvent{
		Platform:   integration.PlatformShopee,
		ShopID:     p.ShopID.String(),
		Kind:       mapping.Kind,
		SourceCode: strconv.Itoa(code),
		Action:     mapping.Action,
		EntityType: mapping.Kind.EntityType(),
		OccurredAt: parseTimestamp(p.Timestamp.String(), receivedAt(req)),
		RawPayload: json.RawMessage(req.Body),
	}

	switch mapping.Kind.Family() {
	case integration.HandlerFamilyOrderLifecycle:
		event.Order = &integration.OrderDetail{
			OrderID:        p.Data.OrderSN,
			OrderNumber:    p.Data.OrderSN,
			Status:         p.Data.Status,
			TrackingNumber: p.Data.TrackingNo,
		}
		event.EntityID = p.Data.OrderSN
	case integration.HandlerFamilyInventory:
		event.Inventory = &integration.InventoryDetail{
			ProductID: p.Data.ItemID.String(),
			VariantID: p.Data.ModelID.String(),
			Quantity:  p.Data.Stock,
		}
		event.EntityID = event.Inventory.StockKey()
	case integration.HandlerFamilyProduct:
		event.Product = &integration.ProductDetail{
			ProductID: p.Data.ItemID.String(),
			Operation: mapping.Operation,
		}
		event.EntityID = p.Data.ItemID.String()
	case integration.HandlerFamilyShopAuth:
		event.EntityID = p.ShopID.String()
	default:
		event.EntityID = firstNonEmpty(p.Data.OrderSN, p.Data.ItemID.String())
	}

	event.ExternalEventID = derivedEventID(event.ShopID, event.SourceCode, event.EntityID, p.Timestamp.String(), req.Body)
	return event, nil
}
