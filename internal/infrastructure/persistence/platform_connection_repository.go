package persistence

import (
	"context"
	"errors"
	"fmt"

	"github.com/erp/commercesync/internal/domain/integration"
	"github.com/erp/commercesync/internal/infrastructure/persistence/models"
	"github.com/erp/commercesync/internal/infrastructure/persistence/orgscope"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormPlatformConnectionRepository implements PlatformConnectionRepository and
// TenantResolver using GORM
type GormPlatformConnectionRepository struct {
	db *gorm.DB
}

// NewGormPlatformConnectionRepository creates a new GormPlatformConnectionRepository
func NewGormPlatformConnectionRepository(db *gorm.DB) *GormPlatformConnectionRepository {
	return &GormPlatformConnectionRepository{db: db}
}

// Save creates or updates a connection. A shop already bound to another
// organization yields ErrConnectionAlreadyExists.
func (r *GormPlatformConnectionRepository) Save(ctx context.Context, conn *integration.PlatformConnection) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing models.PlatformConnectionModel
		err := tx.Where("platform = ? AND shop_id = ?", conn.Platform, conn.ShopID).First(&existing).Error
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
		case err != nil:
			return fmt.Errorf("failed to look up platform connection: %w", err)
		case existing.OrganizationID != conn.OrganizationID:
			return integration.ErrConnectionAlreadyExists
		default:
			conn.ID = existing.ID
			conn.CreatedAt = existing.CreatedAt
		}

		if err := tx.Save(models.PlatformConnectionModelFromDomain(conn)).Error; err != nil {
			return fmt.Errorf("failed to save platform connection: %w", err)
		}
		return nil
	})
}

// FindByShop returns the connection of a platform shop
func (r *GormPlatformConnectionRepository) FindByShop(ctx context.Context, platform integration.Platform, shopID string) (*integration.PlatformConnection, error) {
	var model models.PlatformConnectionModel
	err := r.db.WithContext(ctx).
		Where("platform = ? AND shop_id = ?", platform, shopID).
		First(&model).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, integration.ErrConnectionNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindByOrganization returns all connections of an organization
func (r *GormPlatformConnectionRepository) FindByOrganization(ctx context.Context, orgID uuid.UUID) ([]integration.PlatformConnection, error) {
	var rows []models.PlatformConnectionModel
	if err := r.db.WithContext(ctx).
		Scopes(orgscope.Organization(orgID)).
		Order("platform ASC").Order("shop_id ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}

	conns := make([]integration.PlatformConnection, len(rows))
	for i := range rows {
		conns[i] = *rows[i].ToDomain()
	}
	return conns, nil
}

// ResolveOrganization implements TenantResolver. Disconnected shops do not resolve.
func (r *GormPlatformConnectionRepository) ResolveOrganization(ctx context.Context, platform integration.Platform, shopID string) (uuid.UUID, error) {
	conn, err := r.FindByShop(ctx, platform, shopID)
	if err != nil {
		if errors.Is(err, integration.ErrConnectionNotFound) {
			return uuid.Nil, integration.ErrTenantNotResolved
		}
		return uuid.Nil, fmt.Errorf("failed to resolve organization: %w", err)
	}
	if !conn.IsConnected {
		return uuid.Nil, integration.ErrTenantNotResolved
	}
	return conn.OrganizationID, nil
}

var (
	_ integration.PlatformConnectionRepository = (*GormPlatformConnectionRepository)(nil)
	_ integration.TenantResolver               = (*GormPlatformConnectionRepository)(nil)
)
