package integration

import (
	"context"
	"sync"
	"time"

	"github.com/erp/commercesync/internal/domain/integration"
	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
)

// MockSyncLogRepository is a mock implementation of SyncLogRepository
type MockSyncLogRepository struct {
	mock.Mock
}

func (m *MockSyncLogRepository) Append(ctx context.Context, entry *integration.SyncLogEntry) error {
	args := m.Called(ctx, entry)
	return args.Error(0)
}

func (m *MockSyncLogRepository) List(ctx context.Context, filter integration.SyncLogFilter) ([]integration.SyncLogEntry, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]integration.SyncLogEntry), args.Error(1)
}

// MockReconciliationSurface is a mock implementation of ReconciliationSurface
type MockReconciliationSurface struct {
	mock.Mock
}

func (m *MockReconciliationSurface) ApplyOrderEvent(ctx context.Context, cmd integration.OrderEventCommand) (integration.ApplyResult, error) {
	args := m.Called(ctx, cmd)
	return args.Get(0).(integration.ApplyResult), args.Error(1)
}

func (m *MockReconciliationSurface) ApplyInventoryDelta(ctx context.Context, cmd integration.InventoryDeltaCommand) (integration.ApplyResult, error) {
	args := m.Called(ctx, cmd)
	return args.Get(0).(integration.ApplyResult), args.Error(1)
}

// MockTenantResolver is a mock implementation of TenantResolver
type MockTenantResolver struct {
	mock.Mock
}

func (m *MockTenantResolver) ResolveOrganization(ctx context.Context, platform integration.Platform, shopID string) (uuid.UUID, error) {
	args := m.Called(ctx, platform, shopID)
	return args.Get(0).(uuid.UUID), args.Error(1)
}

// memorySyncLog is an append-only in-memory sink
type memorySyncLog struct {
	mu      sync.Mutex
	entries []integration.SyncLogEntry
}

func (s *memorySyncLog) Append(_ context.Context, entry *integration.SyncLogEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry.Sequence = int64(len(s.entries) + 1)
	entry.CreatedAt = time.Now()
	s.entries = append(s.entries, *entry)
	return nil
}

func (s *memorySyncLog) List(_ context.Context, filter integration.SyncLogFilter) ([]integration.SyncLogEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []integration.SyncLogEntry
	for i := len(s.entries) - 1; i >= 0; i-- {
		if s.entries[i].OrganizationID == filter.OrganizationID {
			out = append(out, s.entries[i])
		}
	}
	return out, nil
}

func (s *memorySyncLog) all() []integration.SyncLogEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]integration.SyncLogEntry(nil), s.entries...)
}

// memorySurface applies each external event once
type memorySurface struct {
	mu         sync.Mutex
	applied    map[string]bool
	orders     map[string]string
	stock      map[string]string
	orderCalls int
}

func newMemorySurface() *memorySurface {
	return &memorySurface{
		applied: map[string]bool{},
		orders:  map[string]string{},
		stock:   map[string]string{},
	}
}

func (s *memorySurface) ApplyOrderEvent(_ context.Context, cmd integration.OrderEventCommand) (integration.ApplyResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := integration.AppliedEventKey(cmd.OrganizationID, cmd.Platform, cmd.ExternalEventID)
	if s.applied[key] {
		return integration.AlreadyApplied(), nil
	}
	s.applied[key] = true
	s.orderCalls++
	s.orders[cmd.EntityID] = cmd.Status
	return integration.Applied(), nil
}

func (s *memorySurface) ApplyInventoryDelta(_ context.Context, cmd integration.InventoryDeltaCommand) (integration.ApplyResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := integration.AppliedEventKey(cmd.OrganizationID, cmd.Platform, cmd.ExternalEventID)
	if s.applied[key] {
		return integration.AlreadyApplied(), nil
	}
	s.applied[key] = true
	s.stock[cmd.SKU] = cmd.NewQuantity.String()
	return integration.Applied(), nil
}

// countingMetrics records pipeline counters for assertions
type countingMetrics struct {
	mu         sync.Mutex
	deliveries map[integration.SyncLogStatus]int
	rejected   int
	unresolved int
	fallbacks  int
	handled    map[integration.HandlerFamily]int
}

func newCountingMetrics() *countingMetrics {
	return &countingMetrics{
		deliveries: map[integration.SyncLogStatus]int{},
		handled:    map[integration.HandlerFamily]int{},
	}
}

func (m *countingMetrics) RecordDelivery(_ context.Context, _ integration.Platform, _ integration.EventKind, status integration.SyncLogStatus) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.deliveries[status]++
}

func (m *countingMetrics) RecordSignatureRejected(context.Context, integration.Platform) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rejected++
}

func (m *countingMetrics) RecordUnresolvedTenant(context.Context, integration.Platform) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.unresolved++
}

func (m *countingMetrics) RecordHandlerDuration(_ context.Context, family integration.HandlerFamily, _ integration.SyncLogStatus, _ time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.handled[family]++
}

func (m *countingMetrics) RecordLogFallback(context.Context, integration.Platform) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.fallbacks++
}
