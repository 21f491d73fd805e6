package persistence

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/erp/commercesync/internal/domain/integration"
	"github.com/erp/commercesync/internal/infrastructure/persistence/models"
	"github.com/erp/commercesync/internal/infrastructure/persistence/orgscope"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// closedOrderStatuses accept no further status changes
var closedOrderStatuses = map[string]struct{}{
	"cancelled": {},
	"canceled":  {},
	"closed":    {},
}

// rejection aborts the transaction and is reported as a Rejected result
type rejection struct {
	reason string
}

func (r *rejection) Error() string { return r.reason }

// GormReconciliationStore implements ReconciliationSurface on top of the
// channel_orders and channel_inventory tables. Each call runs in one
// transaction that first claims the (organization, platform, external event)
// key in applied_sync_events; losing the claim means AlreadyApplied.
type GormReconciliationStore struct {
	db  *gorm.DB
	now func() time.Time
}

// NewGormReconciliationStore creates a new GormReconciliationStore
func NewGormReconciliationStore(db *gorm.DB) *GormReconciliationStore {
	return &GormReconciliationStore{db: db, now: time.Now}
}

// ApplyOrderEvent upserts the order status
func (s *GormReconciliationStore) ApplyOrderEvent(ctx context.Context, cmd integration.OrderEventCommand) (integration.ApplyResult, error) {
	if err := cmd.Validate(); err != nil {
		return integration.Rejected("invalid order command"), nil
	}
	if strings.TrimSpace(cmd.EntityID) == "" {
		return integration.Rejected("missing order id"), nil
	}

	return s.apply(ctx, cmd.OrganizationID, cmd.Platform, cmd.ExternalEventID, integration.EntityTypeOrder, cmd.EntityID,
		func(tx *gorm.DB, now time.Time) error {
			var existing models.ChannelOrderModel
			err := tx.Scopes(orgscope.Organization(cmd.OrganizationID)).
				Where("platform = ? AND order_id = ?", cmd.Platform, cmd.EntityID).
				First(&existing).Error
			if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
				return err
			}
			found := err == nil

			status := cmd.Status
			if found {
				if _, closed := closedOrderStatuses[strings.ToLower(existing.Status)]; closed &&
					status != "" && !strings.EqualFold(status, existing.Status) {
					return &rejection{reason: "order is closed"}
				}
				if status == "" {
					status = existing.Status
				}
			}

			row := models.ChannelOrderModel{
				ID:             uuid.New(),
				OrganizationID: cmd.OrganizationID,
				Platform:       cmd.Platform,
				OrderID:        cmd.EntityID,
				OrderNumber:    cmd.OrderNumber,
				Status:         status,
				LastEventKind:  cmd.Kind,
				LastEventID:    cmd.ExternalEventID,
				Payload:        []byte(cmd.Payload),
				CreatedAt:      now,
				UpdatedAt:      now,
			}
			if found {
				row.ID = existing.ID
				row.CreatedAt = existing.CreatedAt
				if row.OrderNumber == "" {
					row.OrderNumber = existing.OrderNumber
				}
			}

			return tx.Clauses(clause.OnConflict{
				Columns: []clause.Column{{Name: "organization_id"}, {Name: "platform"}, {Name: "order_id"}},
				DoUpdates: clause.AssignmentColumns([]string{
					"order_number", "status", "last_event_kind", "last_event_id", "payload", "updated_at",
				}),
			}).Create(&row).Error
		})
}

// ApplyInventoryDelta sets the absolute stock level of a SKU
func (s *GormReconciliationStore) ApplyInventoryDelta(ctx context.Context, cmd integration.InventoryDeltaCommand) (integration.ApplyResult, error) {
	if err := cmd.Validate(); err != nil {
		return integration.Rejected("invalid inventory command"), nil
	}
	if strings.TrimSpace(cmd.SKU) == "" {
		return integration.Rejected("missing sku"), nil
	}
	if cmd.NewQuantity.IsNegative() {
		return integration.Rejected(fmt.Sprintf("negative quantity %s", cmd.NewQuantity.String())), nil
	}

	return s.apply(ctx, cmd.OrganizationID, cmd.Platform, cmd.ExternalEventID, integration.EntityTypeInventory, cmd.SKU,
		func(tx *gorm.DB, now time.Time) error {
			row := models.ChannelInventoryModel{
				ID:             uuid.New(),
				OrganizationID: cmd.OrganizationID,
				Platform:       cmd.Platform,
				SKU:            cmd.SKU,
				Quantity:       cmd.NewQuantity,
				LastEventID:    cmd.ExternalEventID,
				CreatedAt:      now,
				UpdatedAt:      now,
			}
			return tx.Clauses(clause.OnConflict{
				Columns:   []clause.Column{{Name: "organization_id"}, {Name: "platform"}, {Name: "sku"}},
				DoUpdates: clause.AssignmentColumns([]string{"quantity", "last_event_id", "updated_at"}),
			}).Create(&row).Error
		})
}

// apply claims the event key and runs write in the same transaction
func (s *GormReconciliationStore) apply(
	ctx context.Context,
	orgID uuid.UUID,
	platform integration.Platform,
	externalEventID string,
	entityType integration.EntityType,
	entityID string,
	write func(tx *gorm.DB, now time.Time) error,
) (integration.ApplyResult, error) {
	result := integration.Applied()
	now := s.now().UTC()

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		claim := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&models.AppliedSyncEventModel{
			ID:              uuid.New(),
			OrganizationID:  orgID,
			Platform:        platform,
			ExternalEventID: externalEventID,
			EntityType:      entityType,
			EntityID:        entityID,
			AppliedAt:       now,
		})
		if claim.Error != nil {
			return claim.Error
		}
		if claim.RowsAffected == 0 {
			result = integration.AlreadyApplied()
			return nil
		}
		return write(tx, now)
	})

	var rej *rejection
	if errors.As(err, &rej) {
		return integration.Rejected(rej.reason), nil
	}
	if err != nil {
		return integration.ApplyResult{}, fmt.Errorf("failed to apply %s event: %w", entityType, err)
	}
	return result, nil
}

// FindOrder returns the stored state of a channel order
func (s *GormReconciliationStore) FindOrder(ctx context.Context, orgID uuid.UUID, platform integration.Platform, orderID string) (*integration.ChannelOrder, error) {
	var row models.ChannelOrderModel
	err := s.db.WithContext(ctx).
		Scopes(orgscope.Organization(orgID)).
		Where("platform = ? AND order_id = ?", platform, orderID).
		First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, integration.ErrChannelStateNotFound
		}
		return nil, err
	}
	return row.ToDomain(), nil
}

// FindInventory returns the stored stock level of a SKU
func (s *GormReconciliationStore) FindInventory(ctx context.Context, orgID uuid.UUID, platform integration.Platform, sku string) (*integration.ChannelInventory, error) {
	var row models.ChannelInventoryModel
	err := s.db.WithContext(ctx).
		Scopes(orgscope.Organization(orgID)).
		Where("platform = ? AND sku = ?", platform, sku).
		First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, integration.ErrChannelStateNotFound
		}
		return nil, err
	}
	return row.ToDomain(), nil
}

var (
	_ integration.ReconciliationSurface = (*GormReconciliationStore)(nil)
	_ integration.ChannelStateReader    = (*GormReconciliationStore)(nil)
)
