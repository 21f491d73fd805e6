package models

import (
	"time"

	"github.com/erp/commercesync/internal/domain/integration"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// AppliedSyncEventModel marks an external event whose effect was written.
// The unique index is the idempotency key of the reconciliation store.
type AppliedSyncEventModel struct {
	ID              uuid.UUID              `gorm:"type:uuid;primaryKey"`
	OrganizationID  uuid.UUID              `gorm:"type:uuid;not null;uniqueIndex:idx_applied_sync_event_key,priority:1"`
	Platform        integration.Platform   `gorm:"type:varchar(20);not null;uniqueIndex:idx_applied_sync_event_key,priority:2"`
	ExternalEventID string                 `gorm:"type:varchar(255);not null;uniqueIndex:idx_applied_sync_event_key,priority:3"`
	EntityType      integration.EntityType `gorm:"type:varchar(20);not null"`
	EntityID        string                 `gorm:"type:varchar(128);not null"`
	AppliedAt       time.Time              `gorm:"not null"`
}

// TableName returns the table name for GORM
func (AppliedSyncEventModel) TableName() string {
	return "applied_sync_events"
}

// ChannelOrderModel holds the last known state of a marketplace order
type ChannelOrderModel struct {
	ID             uuid.UUID             `gorm:"type:uuid;primaryKey"`
	OrganizationID uuid.UUID             `gorm:"type:uuid;not null;uniqueIndex:idx_channel_order_key,priority:1"`
	Platform       integration.Platform  `gorm:"type:varchar(20);not null;uniqueIndex:idx_channel_order_key,priority:2"`
	OrderID        string                `gorm:"type:varchar(128);not null;uniqueIndex:idx_channel_order_key,priority:3"`
	OrderNumber    string                `gorm:"type:varchar(128)"`
	Status         string                `gorm:"type:varchar(64)"`
	LastEventKind  integration.EventKind `gorm:"type:varchar(32);not null"`
	LastEventID    string                `gorm:"type:varchar(255);not null"`
	Payload        []byte                `gorm:"type:jsonb"`
	CreatedAt      time.Time             `gorm:"not null"`
	UpdatedAt      time.Time             `gorm:"not null"`
}

// TableName returns the table name for GORM
func (ChannelOrderModel) TableName() string {
	return "channel_orders"
}

// ChannelInventoryModel holds the platform-reported stock level of a SKU
type ChannelInventoryModel struct {
	ID             uuid.UUID            `gorm:"type:uuid;primaryKey"`
	OrganizationID uuid.UUID            `gorm:"type:uuid;not null;uniqueIndex:idx_channel_inventory_key,priority:1"`
	Platform       integration.Platform `gorm:"type:varchar(20);not null;uniqueIndex:idx_channel_inventory_key,priority:2"`
	SKU            string               `gorm:"column:sku;type:varchar(128);not null;uniqueIndex:idx_channel_inventory_key,priority:3"`
	Quantity       decimal.Decimal      `gorm:"type:decimal(18,4);not null"`
	LastEventID    string               `gorm:"type:varchar(255);not null"`
	CreatedAt      time.Time            `gorm:"not null"`
	UpdatedAt      time.Time            `gorm:"not null"`
}

// TableName returns the table name for GORM
func (ChannelInventoryModel) TableName() string {
	return "channel_inventory"
}

// ToDomain converts the model to a domain ChannelOrder
func (m *ChannelOrderModel) ToDomain() *integration.ChannelOrder {
	return &integration.ChannelOrder{
		OrganizationID: m.OrganizationID,
		Platform:       m.Platform,
		OrderID:        m.OrderID,
		OrderNumber:    m.OrderNumber,
		Status:         m.Status,
		LastEventKind:  m.LastEventKind,
		LastEventID:    m.LastEventID,
		Payload:        rawJSON(m.Payload),
		UpdatedAt:      m.UpdatedAt,
	}
}

// ToDomain converts the model to a domain ChannelInventory
func (m *ChannelInventoryModel) ToDomain() *integration.ChannelInventory {
	return &integration.ChannelInventory{
		OrganizationID: m.OrganizationID,
		Platform:       m.Platform,
		SKU:            m.SKU,
		Quantity:       m.Quantity,
		LastEventID:    m.LastEventID,
		UpdatedAt:      m.UpdatedAt,
	}
}

// All returns every model managed by the service, in migration order
func All() []any {
	return []any{
		&SyncLogModel{},
		&PlatformConnectionModel{},
		&AppliedSyncEventModel{},
		&ChannelOrderModel{},
		&ChannelInventoryModel{},
	}
}
