// interfaces.go
// Core interfaces for ante: CacheClient (store adapters) and TenantScopedCache.
// These are public and intended for use by services and driver developers.

package ante

import (
	"context"
	"time"
)

// CacheClient defines the interface for cache drivers.
//
// Get returns common.ErrNotFound on a miss. DeleteByPattern accepts Redis-style
// glob patterns ("*" and "?") and reports how many keys were removed.
// Implementations return errors freely; TenantCache turns them into misses.
type CacheClient interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, expiration time.Duration) error
	Delete(ctx context.Context, key string) error
	DeleteByPattern(ctx context.Context, pattern string) (int, error)

	Health(ctx context.Context) Health
	GetCacheStats(ctx context.Context) CacheStats

	Close() error
}

// TenantScopedCache is a cache in which every operation names its tenant.
// Keys are always scoped to that tenant, so a call site cannot read or
// clear another tenant's entries by building the wrong key.
type TenantScopedCache interface {
	Get(ctx context.Context, tenant TenantID, key KeyConfig, dest any, opts CacheOptions) (bool, error)
	Set(ctx context.Context, tenant TenantID, key KeyConfig, value any, opts CacheOptions) error
	Delete(ctx context.Context, tenant TenantID, key KeyConfig) error
	Invalidate(ctx context.Context, tenant TenantID, params map[string]string, patterns ...Pattern) (int, error)
	Health(ctx context.Context) Health
}

// Health describes the backing store as seen by the adapter.
type Health struct {
	IsConnected bool          `json:"isConnected"`
	Latency     time.Duration `json:"latency"`
	Memory      string        `json:"memory,omitempty"` // human readable, e.g. "1.02M"
	Keyspace    Keyspace      `json:"keyspace"`
	Error       string        `json:"error,omitempty"`
}

// Keyspace summarizes the number of keys held by the store.
type Keyspace struct {
	Keys    int64 `json:"keys"`
	Expires int64 `json:"expires"`
}

// CacheStats holds cache operation counters for monitoring.
type CacheStats struct {
	Counters map[string]int // Operation name to count
}
