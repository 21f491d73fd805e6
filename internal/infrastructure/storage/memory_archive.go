package storage

import (
	"context"
	"errors"
	"sync"

	"github.com/erp/commercesync/internal/domain/integration"
)

// ErrArchiveFull is returned when the memory archive reached its capacity
var ErrArchiveFull = errors.New("storage: memory archive full")

// MemoryPayloadArchive keeps payloads in process, bounded by capacity.
// Used in development and tests.
type MemoryPayloadArchive struct {
	mu       sync.Mutex
	capacity int
	objects  map[string]integration.ArchivedPayload
	order    []string
}

// NewMemoryPayloadArchive creates an archive holding at most capacity payloads
// (unbounded when capacity <= 0)
func NewMemoryPayloadArchive(capacity int) *MemoryPayloadArchive {
	return &MemoryPayloadArchive{
		capacity: capacity,
		objects:  make(map[string]integration.ArchivedPayload),
	}
}

// Archive stores the payload under its object key
func (a *MemoryPayloadArchive) Archive(_ context.Context, payload integration.ArchivedPayload) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	key := payload.ObjectKey()
	if _, exists := a.objects[key]; !exists {
		if a.capacity > 0 && len(a.order) >= a.capacity {
			return ErrArchiveFull
		}
		a.order = append(a.order, key)
	}
	a.objects[key] = payload
	return nil
}

// Get returns the payload stored under key
func (a *MemoryPayloadArchive) Get(key string) (integration.ArchivedPayload, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	p, ok := a.objects[key]
	return p, ok
}

// Keys returns object keys in archive order
func (a *MemoryPayloadArchive) Keys() []string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]string(nil), a.order...)
}

var _ integration.PayloadArchive = (*MemoryPayloadArchive)(nil)
