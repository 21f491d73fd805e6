package integration

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
)

// DefaultUnattributedOrganizationID scopes sync log entries of deliveries
// that map to no organization. No downstream effect is applied under it.
var DefaultUnattributedOrganizationID = uuid.MustParse("00000000-0000-0000-0000-00000000fffe")

// TenantResolver maps a platform shop identifier to the owning organization
type TenantResolver interface {
	// ResolveOrganization returns ErrTenantNotResolved when no organization owns the shop
	ResolveOrganization(ctx context.Context, platform Platform, shopID string) (uuid.UUID, error)
}

// PlatformConnection binds a platform shop to an organization
type PlatformConnection struct {
	ID             uuid.UUID
	OrganizationID uuid.UUID
	Platform       Platform
	ShopID         string
	ShopName       string
	IsConnected    bool
	ConnectedAt    *time.Time
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// NewPlatformConnection creates a connected PlatformConnection
func NewPlatformConnection(orgID uuid.UUID, platform Platform, shopID, shopName string) (*PlatformConnection, error) {
	if orgID == uuid.Nil {
		return nil, ErrInvalidOrganizationID
	}
	if !platform.IsValid() {
		return nil, ErrPlatformNotSupported
	}
	shopID = strings.TrimSpace(shopID)
	if shopID == "" {
		return nil, ErrConnectionInvalidShopID
	}
	now := time.Now()
	return &PlatformConnection{
		ID:             uuid.New(),
		OrganizationID: orgID,
		Platform:       platform,
		ShopID:         shopID,
		ShopName:       strings.TrimSpace(shopName),
		IsConnected:    true,
		ConnectedAt:    &now,
		CreatedAt:      now,
		UpdatedAt:      now,
	}, nil
}

// Disconnect marks the connection as no longer receiving events
func (c *PlatformConnection) Disconnect() {
	c.IsConnected = false
	c.UpdatedAt = time.Now()
}

// PlatformConnectionRepository persists platform connections
type PlatformConnectionRepository interface {
	// Save creates or updates a connection
	Save(ctx context.Context, conn *PlatformConnection) error

	// FindByShop returns the connection of a platform shop
	FindByShop(ctx context.Context, platform Platform, shopID string) (*PlatformConnection, error)

	// FindByOrganization returns all connections of an organization
	FindByOrganization(ctx context.Context, orgID uuid.UUID) ([]PlatformConnection, error)
}
