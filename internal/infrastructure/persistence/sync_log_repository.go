package persistence

import (
	"context"
	"fmt"
	"time"

	"github.com/erp/commercesync/internal/domain/integration"
	"github.com/erp/commercesync/internal/infrastructure/persistence/models"
	"github.com/erp/commercesync/internal/infrastructure/persistence/orgscope"
	"gorm.io/gorm"
)

// GormSyncLogRepository implements SyncLogRepository using GORM
type GormSyncLogRepository struct {
	db  *gorm.DB
	now func() time.Time
}

// NewGormSyncLogRepository creates a new GormSyncLogRepository
func NewGormSyncLogRepository(db *gorm.DB) *GormSyncLogRepository {
	return &GormSyncLogRepository{db: db, now: time.Now}
}

// Append inserts the entry and copies the assigned CreatedAt and Sequence back
func (r *GormSyncLogRepository) Append(ctx context.Context, entry *integration.SyncLogEntry) error {
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = r.now().UTC()
	}
	model, err := models.SyncLogModelFromDomain(entry)
	if err != nil {
		return fmt.Errorf("failed to encode sync log entry: %w", err)
	}
	if err := r.db.WithContext(ctx).Create(model).Error; err != nil {
		return fmt.Errorf("failed to append sync log entry: %w", err)
	}
	entry.Sequence = model.Sequence
	return nil
}

// List returns entries of one organization, newest append first. sequence is
// assigned by the database, so the order does not depend on node clocks.
func (r *GormSyncLogRepository) List(ctx context.Context, filter integration.SyncLogFilter) ([]integration.SyncLogEntry, error) {
	if err := filter.Normalize(); err != nil {
		return nil, err
	}

	// the organization predicate is applied first so it leads the WHERE clause
	q := orgscope.Organization(filter.OrganizationID)(r.db.WithContext(ctx).Model(&models.SyncLogModel{}))
	if filter.Platform != "" {
		q = q.Where("platform = ?", filter.Platform)
	}
	if filter.Status != "" {
		q = q.Where("status = ?", filter.Status)
	}
	if filter.From != nil {
		q = q.Where("created_at >= ?", filter.From.UTC())
	}
	if filter.To != nil {
		q = q.Where("created_at <= ?", filter.To.UTC())
	}

	var rows []models.SyncLogModel
	if err := q.Order("sequence DESC").Limit(filter.Limit).Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to list sync log entries: %w", err)
	}

	entries := make([]integration.SyncLogEntry, len(rows))
	for i := range rows {
		entries[i] = rows[i].ToDomain()
	}
	return entries, nil
}

var _ integration.SyncLogRepository = (*GormSyncLogRepository)(nil)
