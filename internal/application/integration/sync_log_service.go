package integration

import (
	"context"

	"github.com/erp/commercesync/internal/domain/integration"
)

// SyncLogService exposes the sync log for operational queries
type SyncLogService struct {
	repo integration.SyncLogRepository
}

// NewSyncLogService creates a new SyncLogService
func NewSyncLogService(repo integration.SyncLogRepository) *SyncLogService {
	return &SyncLogService{repo: repo}
}

// List returns entries of one organization, newest first
func (s *SyncLogService) List(ctx context.Context, query SyncLogQuery) ([]SyncLogResponse, error) {
	filter, err := query.ToFilter()
	if err != nil {
		return nil, err
	}

	entries, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, err
	}

	out := make([]SyncLogResponse, 0, len(entries))
	for i := range entries {
		out = append(out, ToSyncLogResponse(&entries[i]))
	}
	return out, nil
}
