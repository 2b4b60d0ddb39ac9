// Package memory provides an in-process ante.CacheClient for single-instance
// deployments and tests.
package memory

import (
	"context"
	"strconv"
	"sync"
	"time"

	"github.com/jellydator/ttlcache/v3"
	"github.com/tidwall/match"

	"github.com/burugo/ante"
	"github.com/burugo/ante/common"
)

// Options holds configuration for the memory client.
type Options struct {
	// Capacity bounds the number of entries; 0 means unbounded.
	Capacity uint64
}

// Client implements ante.CacheClient on a ttlcache.Cache.
// Expiry is absolute: reads do not extend an entry's TTL.
type Client struct {
	cache *ttlcache.Cache[string, []byte]

	mu       sync.Mutex
	counters map[string]int
	closed   bool
}

var _ ante.CacheClient = (*Client)(nil)

// NewClient creates a memory client and starts its expiry loop.
func NewClient(opts *Options) *Client {
	if opts == nil {
		opts = &Options{}
	}
	cacheOpts := []ttlcache.Option[string, []byte]{
		ttlcache.WithDisableTouchOnHit[string, []byte](),
	}
	if opts.Capacity > 0 {
		cacheOpts = append(cacheOpts, ttlcache.WithCapacity[string, []byte](opts.Capacity))
	}
	c := &Client{
		cache:    ttlcache.New(cacheOpts...),
		counters: make(map[string]int),
	}
	go c.cache.Start()
	return c
}

func (c *Client) incrementCounter(name string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.counters[name]++
}

func (c *Client) isClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

// Get returns a copy of the stored value or common.ErrNotFound.
func (c *Client) Get(ctx context.Context, key string) ([]byte, error) {
	c.incrementCounter("Get")
	if c.isClosed() {
		return nil, common.ErrStoreClosed
	}
	item := c.cache.Get(key)
	if item == nil || item.IsExpired() {
		c.incrementCounter("GetMiss")
		return nil, common.ErrNotFound
	}
	c.incrementCounter("GetHit")
	v := item.Value()
	out := make([]byte, len(v))
	copy(out, v)
	return out, nil
}

// Set stores a copy of value. A zero expiration keeps the entry until deleted.
func (c *Client) Set(ctx context.Context, key string, value []byte, expiration time.Duration) error {
	c.incrementCounter("Set")
	if c.isClosed() {
		return common.ErrStoreClosed
	}
	ttl := expiration
	if ttl <= 0 {
		ttl = ttlcache.NoTTL
	}
	stored := make([]byte, len(value))
	copy(stored, value)
	c.cache.Set(key, stored, ttl)
	return nil
}

// Delete removes key; a missing key is not an error.
func (c *Client) Delete(ctx context.Context, key string) error {
	c.incrementCounter("Delete")
	if c.isClosed() {
		return common.ErrStoreClosed
	}
	c.cache.Delete(key)
	return nil
}

// DeleteByPattern removes every live key matching the Redis-style glob pattern.
func (c *Client) DeleteByPattern(ctx context.Context, pattern string) (int, error) {
	c.incrementCounter("DeleteByPattern")
	if c.isClosed() {
		return 0, common.ErrStoreClosed
	}
	var matched []string
	c.cache.Range(func(item *ttlcache.Item[string, []byte]) bool {
		if !item.IsExpired() && match.Match(item.Key(), pattern) {
			matched = append(matched, item.Key())
		}
		return true
	})
	// Range holds the cache lock, so deletes happen afterwards.
	for _, k := range matched {
		c.cache.Delete(k)
	}
	return len(matched), nil
}

// Health reports the entry count and approximate payload size.
func (c *Client) Health(ctx context.Context) ante.Health {
	c.incrementCounter("Health")
	if c.isClosed() {
		return ante.Health{Error: common.ErrStoreClosed.Error()}
	}
	start := time.Now()
	var keys, expires, bytes int64
	c.cache.Range(func(item *ttlcache.Item[string, []byte]) bool {
		if item.IsExpired() {
			return true
		}
		keys++
		bytes += int64(len(item.Key()) + len(item.Value()))
		if item.TTL() > 0 {
			expires++
		}
		return true
	})
	return ante.Health{
		IsConnected: true,
		Latency:     time.Since(start),
		Memory:      humanBytes(bytes),
		Keyspace:    ante.Keyspace{Keys: keys, Expires: expires},
	}
}

// GetCacheStats returns a copy of the operation counters.
func (c *Client) GetCacheStats(ctx context.Context) ante.CacheStats {
	c.mu.Lock()
	defer c.mu.Unlock()
	stats := make(map[string]int, len(c.counters))
	for k, v := range c.counters {
		stats[k] = v
	}
	return ante.CacheStats{Counters: stats}
}

// Close stops the expiry loop. Further calls fail with common.ErrStoreClosed.
func (c *Client) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	c.mu.Unlock()
	c.cache.Stop()
	c.cache.DeleteAll()
	return nil
}

func humanBytes(n int64) string {
	const unit = 1024
	if n < unit {
		return strconv.FormatInt(n, 10) + "B"
	}
	div, exp := int64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return strconv.FormatFloat(float64(n)/float64(div), 'f', 2, 64) + string("KMGTPE"[exp])
}
