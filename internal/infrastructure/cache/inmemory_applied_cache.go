package cache

import (
	"context"
	"sync"
	"time"

	"github.com/erp/commercesync/internal/domain/integration"
)

const defaultSweepInterval = 5 * time.Minute

type appliedEntry struct {
	expiresAt time.Time
}

// InMemoryAppliedCache implements AppliedEventCache with a mutex-guarded map.
// State is local to the process, so it only guards replays that land on the
// same instance.
type InMemoryAppliedCache struct {
	mu        sync.RWMutex
	entries   map[string]appliedEntry
	now       func() time.Time
	stopChan  chan struct{}
	wg        sync.WaitGroup
	closeOnce sync.Once
}

// NewInMemoryAppliedCache creates the cache and starts a goroutine that sweeps
// expired keys every sweepInterval (5 minutes when zero)
func NewInMemoryAppliedCache(sweepInterval time.Duration) *InMemoryAppliedCache {
	if sweepInterval <= 0 {
		sweepInterval = defaultSweepInterval
	}
	c := &InMemoryAppliedCache{
		entries:  make(map[string]appliedEntry),
		now:      time.Now,
		stopChan: make(chan struct{}),
	}

	c.wg.Add(1)
	go c.sweepLoop(sweepInterval)

	return c
}

// MarkApplied records the key unless a live entry already exists
func (c *InMemoryAppliedCache) MarkApplied(_ context.Context, key string, ttl time.Duration) (bool, error) {
	if ttl <= 0 {
		ttl = integration.DefaultAppliedEventTTL
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	if e, ok := c.entries[key]; ok && now.Before(e.expiresAt) {
		return false, nil
	}
	c.entries[key] = appliedEntry{expiresAt: now.Add(ttl)}
	return true, nil
}

// IsApplied reports whether a live entry exists for the key
func (c *InMemoryAppliedCache) IsApplied(_ context.Context, key string) (bool, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	e, ok := c.entries[key]
	if !ok {
		return false, nil
	}
	return c.now().Before(e.expiresAt), nil
}

// Close stops the sweeper. Safe to call multiple times.
func (c *InMemoryAppliedCache) Close() error {
	c.closeOnce.Do(func() {
		close(c.stopChan)
		c.wg.Wait()
	})
	return nil
}

// Len returns the number of stored keys, expired ones included until swept
func (c *InMemoryAppliedCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

func (c *InMemoryAppliedCache) sweepLoop(interval time.Duration) {
	defer c.wg.Done()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-c.stopChan:
			return
		case <-ticker.C:
			c.sweep()
		}
	}
}

func (c *InMemoryAppliedCache) sweep() {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	for key, e := range c.entries {
		if !now.Before(e.expiresAt) {
			delete(c.entries, key)
		}
	}
}

var _ integration.AppliedEventCache = (*InMemoryAppliedCache)(nil)
