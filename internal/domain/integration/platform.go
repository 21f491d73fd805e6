package integration

import (
	"errors"
	"strings"
)

// ---------------------------------------------------------------------------
// Integration Errors
// ---------------------------------------------------------------------------

var (
	// Platform errors
	ErrPlatformNotSupported = errors.New("integration: platform not supported")
	ErrSignatureInvalid     = errors.New("integration: invalid platform signature")

	// Tenant errors
	ErrTenantNotResolved       = errors.New("integration: organization not resolved for shop")
	ErrConnectionNotFound      = errors.New("integration: platform connection not found")
	ErrConnectionAlreadyExists = errors.New("integration: platform connection already exists")
	ErrConnectionInvalidShopID = errors.New("integration: invalid platform shop ID")
	ErrInvalidOrganizationID   = errors.New("integration: invalid organization ID")

	// Sync log errors
	ErrLogSinkUnavailable   = errors.New("integration: sync log sink unavailable")
	ErrSyncLogInvalidEntry  = errors.New("integration: invalid sync log entry")
	ErrSyncLogInvalidFilter = errors.New("integration: invalid sync log filter")

	// Reconciliation errors
	ErrReconciliationInvalidCommand = errors.New("integration: invalid reconciliation command")
	ErrChannelStateNotFound         = errors.New("integration: channel state not found")
)

// ---------------------------------------------------------------------------
// Platform represents an origin marketplace
// ---------------------------------------------------------------------------

// Platform represents an origin marketplace
type Platform string

const (
	// PlatformShopee represents the Shopee marketplace
	PlatformShopee Platform = "shopee"
	// PlatformMomo represents the momo shopping marketplace
	PlatformMomo Platform = "momo"
	// PlatformShopline represents the Shopline storefront platform
	PlatformShopline Platform = "shopline"
	// PlatformRuten represents the Ruten marketplace
	PlatformRuten Platform = "ruten"
	// PlatformPChome represents the PChome marketplace
	PlatformPChome Platform = "pchome"
	// PlatformYahoo represents the Yahoo shopping marketplace
	PlatformYahoo Platform = "yahoo"
)

// AllPlatforms returns every known platform
func AllPlatforms() []Platform {
	return []Platform{
		PlatformShopee, PlatformMomo, PlatformShopline,
		PlatformRuten, PlatformPChome, PlatformYahoo,
	}
}

// ParsePlatform converts a case-insensitive string into a Platform
func ParsePlatform(s string) (Platform, error) {
	p := Platform(strings.ToLower(strings.TrimSpace(s)))
	if !p.IsValid() {
		return "", ErrPlatformNotSupported
	}
	return p, nil
}

// IsValid returns true if the platform is known
func (p Platform) IsValid() bool {
	switch p {
	case PlatformShopee, PlatformMomo, PlatformShopline,
		PlatformRuten, PlatformPChome, PlatformYahoo:
		return true
	default:
		return false
	}
}

// SupportsWebhooks returns true if the platform pushes webhook deliveries
func (p Platform) SupportsWebhooks() bool {
	switch p {
	case PlatformShopee, PlatformMomo, PlatformShopline:
		return true
	default:
		return false
	}
}

// String returns the string representation of Platform
func (p Platform) String() string {
	return string(p)
}

// DisplayName returns a human-readable name for the platform
func (p Platform) DisplayName() string {
	switch p {
	case PlatformShopee:
		return "Shopee"
	case PlatformMomo:
		return "momo購物網"
	case PlatformShopline:
		return "SHOPLINE"
	case PlatformRuten:
		return "露天拍賣"
	case PlatformPChome:
		return "PChome"
	case PlatformYahoo:
		return "Yahoo購物中心"
	default:
		return string(p)
	}
}

// ---------------------------------------------------------------------------
// EventKind represents the canonical kind of a marketplace event
// ---------------------------------------------------------------------------

// EventKind represents the canonical kind of a marketplace event
type EventKind string

const (
	EventKindOrderCreated       EventKind = "order_created"
	EventKindOrderPaid          EventKind = "order_paid"
	EventKindOrderStatusChanged EventKind = "order_status_changed"
	EventKindInventoryUpdated   EventKind = "inventory_updated"
	EventKindProductUpdated     EventKind = "product_updated"
	EventKindShopAuthorization  EventKind = "shop_authorization"
	EventKindUnknown            EventKind = "unknown"
)

// IsValid returns true if the event kind is valid
func (k EventKind) IsValid() bool {
	switch k {
	case EventKindOrderCreated, EventKindOrderPaid, EventKindOrderStatusChanged,
		EventKindInventoryUpdated, EventKindProductUpdated,
		EventKindShopAuthorization, EventKindUnknown:
		return true
	default:
		return false
	}
}

// String returns the string representation of EventKind
func (k EventKind) String() string {
	return string(k)
}

// Family returns the handler family responsible for the event kind
func (k EventKind) Family() HandlerFamily {
	switch k {
	case EventKindOrderCreated, EventKindOrderPaid, EventKindOrderStatusChanged:
		return HandlerFamilyOrderLifecycle
	case EventKindInventoryUpdated:
		return HandlerFamilyInventory
	case EventKindProductUpdated:
		return HandlerFamilyProduct
	case EventKindShopAuthorization:
		return HandlerFamilyShopAuth
	default:
		return HandlerFamilyNone
	}
}

// EntityType returns the entity type affected by events of this kind
func (k EventKind) EntityType() EntityType {
	switch k.Family() {
	case HandlerFamilyOrderLifecycle:
		return EntityTypeOrder
	case HandlerFamilyInventory:
		return EntityTypeInventory
	case HandlerFamilyProduct:
		return EntityTypeProduct
	case HandlerFamilyShopAuth:
		return EntityTypeShop
	default:
		return EntityTypeWebhook
	}
}

// ---------------------------------------------------------------------------
// HandlerFamily groups event kinds handled by the same capability
// ---------------------------------------------------------------------------

// HandlerFamily groups event kinds handled by the same capability
type HandlerFamily string

const (
	HandlerFamilyOrderLifecycle HandlerFamily = "order_lifecycle"
	HandlerFamilyInventory      HandlerFamily = "inventory"
	HandlerFamilyProduct        HandlerFamily = "product"
	HandlerFamilyShopAuth       HandlerFamily = "shop_auth"
	// HandlerFamilyNone is used for events no handler accepts
	HandlerFamilyNone HandlerFamily = "none"
)

// String returns the string representation of HandlerFamily
func (f HandlerFamily) String() string {
	return string(f)
}

// ---------------------------------------------------------------------------
// EntityType represents the kind of entity an event affects
// ---------------------------------------------------------------------------

// EntityType represents the kind of entity an event affects
type EntityType string

const (
	EntityTypeOrder     EntityType = "order"
	EntityTypeProduct   EntityType = "product"
	EntityTypeInventory EntityType = "inventory"
	EntityTypeShop      EntityType = "shop"
	// EntityTypeWebhook is used for deliveries that never became a SyncEvent
	EntityTypeWebhook EntityType = "webhook"
)

// IsValid returns true if the entity type is valid
func (t EntityType) IsValid() bool {
	switch t {
	case EntityTypeOrder, EntityTypeProduct, EntityTypeInventory,
		EntityTypeShop, EntityTypeWebhook:
		return true
	default:
		return false
	}
}

// String returns the string representation of EntityType
func (t EntityType) String() string {
	return string(t)
}
