package integration

import (
	"context"
	"time"
)

// DefaultAppliedEventTTL is how long an applied event key is remembered by a cache
const DefaultAppliedEventTTL = 24 * time.Hour

// AppliedEventCache remembers idempotency keys of events the reconciliation
// store has already accepted. It is a fast replay guard, not the source of
// truth: a miss must always fall through to the store.
type AppliedEventCache interface {
	// MarkApplied records the key with a TTL.
	// Returns true if the key was newly recorded, false if it was already present.
	MarkApplied(ctx context.Context, key string, ttl time.Duration) (bool, error)

	// IsApplied reports whether the key is present
	IsApplied(ctx context.Context, key string) (bool, error)

	// Close releases resources held by the cache
	Close() error
}
