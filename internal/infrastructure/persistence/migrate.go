package persistence

import (
	"context"
	"fmt"

	"github.com/erp/commercesync/internal/infrastructure/persistence/models"
)

// AppendOnlyTables lists tables whose rows are never updated or deleted
func AppendOnlyTables() []string {
	return []string{models.SyncLogModel{}.TableName()}
}

// AutoMigrate creates or updates the service tables
func (d *Database) AutoMigrate(ctx context.Context) error {
	if err := d.DB.WithContext(ctx).AutoMigrate(models.All()...); err != nil {
		return fmt.Errorf("failed to migrate schema: %w", err)
	}
	return nil
}
