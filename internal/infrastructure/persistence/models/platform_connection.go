package models

import (
	"time"

	"github.com/erp/commercesync/internal/domain/integration"
	"github.com/google/uuid"
)

// PlatformConnectionModel is the persistence model for PlatformConnection
type PlatformConnectionModel struct {
	ID             uuid.UUID            `gorm:"type:uuid;primaryKey"`
	OrganizationID uuid.UUID            `gorm:"type:uuid;not null;index"`
	Platform       integration.Platform `gorm:"type:varchar(20);not null;uniqueIndex:idx_platform_connection_shop,priority:1"`
	ShopID         string               `gorm:"type:varchar(128);not null;uniqueIndex:idx_platform_connection_shop,priority:2"`
	ShopName       string               `gorm:"type:varchar(255)"`
	IsConnected    bool                 `gorm:"not null;default:true"`
	ConnectedAt    *time.Time
	CreatedAt      time.Time `gorm:"not null"`
	UpdatedAt      time.Time `gorm:"not null"`
}

// TableName returns the table name for GORM
func (PlatformConnectionModel) TableName() string {
	return "platform_connections"
}

// ToDomain converts the persistence model to a domain PlatformConnection
func (m *PlatformConnectionModel) ToDomain() *integration.PlatformConnection {
	return &integration.PlatformConnection{
		ID:             m.ID,
		OrganizationID: m.OrganizationID,
		Platform:       m.Platform,
		ShopID:         m.ShopID,
		ShopName:       m.ShopName,
		IsConnected:    m.IsConnected,
		ConnectedAt:    m.ConnectedAt,
		CreatedAt:      m.CreatedAt,
		UpdatedAt:      m.UpdatedAt,
	}
}

// PlatformConnectionModelFromDomain converts a domain PlatformConnection to its model
func PlatformConnectionModelFromDomain(c *integration.PlatformConnection) *PlatformConnectionModel {
	return &PlatformConnectionModel{
		ID:             c.ID,
		OrganizationID: c.OrganizationID,
		Platform:       c.Platform,
		ShopID:         c.ShopID,
		ShopName:       c.ShopName,
		IsConnected:    c.IsConnected,
		ConnectedAt:    c.ConnectedAt,
		CreatedAt:      c.CreatedAt,
		UpdatedAt:      c.UpdatedAt,
	}
}
