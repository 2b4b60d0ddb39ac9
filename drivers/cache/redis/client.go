package redis

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/burugo/ante"
	"github.com/burugo/ante/common"
)

const (
	scanCount   = 100 // How many keys to fetch per SCAN iteration
	deleteBatch = 500 // Max keys per DEL call
)

// client implements ante.CacheClient using Redis.
// The counters field tracks operation statistics for monitoring (thread-safe).
type client struct {
	redisClient       *redis.Client  // Underlying Redis client
	namespace         string         // Prepended to every key and pattern
	mu                sync.Mutex     // Protects counters map
	counters          map[string]int // Operation counters for stats (e.g., "Get", "GetMiss")
	createdInternally bool           // Indicates whether redisClient was created by this struct
}

// Ensure client implements ante.CacheClient and io.Closer.
var (
	_ ante.CacheClient = (*client)(nil)
	_ io.Closer        = (*client)(nil)
)

// Options holds configuration for the Redis client.
type Options struct {
	Addr     string
	Password string
	DB       int
	PoolSize int
	// Namespace is prepended to every key, e.g. "ante:". It must not contain
	// glob metacharacters since it is also prepended to patterns.
	Namespace   string
	DialTimeout time.Duration
	// SkipPing disables the connectivity check in NewClient, letting the
	// process start while Redis is down (the cache fails open).
	SkipPing bool
}

// incrementCounter safely increments a named operation counter.
func (c *client) incrementCounter(name string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.counters == nil {
		c.counters = make(map[string]int)
	}
	c.counters[name]++
}

// Close implements io.Closer. Only closes redisClient if client.createdInternally is true.
func (c *client) Close() error {
	if c.createdInternally && c.redisClient != nil {
		return c.redisClient.Close()
	}
	return nil
}

// NewClient creates a new Redis cache client wrapper.
// If redisCli is not nil, it will be used directly. Otherwise, opts will be used to create a new client.
func NewClient(redisCli *redis.Client, opts *Options) (ante.CacheClient, error) {
	if opts == nil {
		opts = &Options{}
	}
	if strings.ContainsAny(opts.Namespace, "*?[]\\") {
		return nil, fmt.Errorf("redis namespace %q must not contain glob characters", opts.Namespace)
	}

	var rdb *redis.Client
	var createdInternally bool

	if redisCli != nil {
		rdb = redisCli
	} else {
		dialTimeout := opts.DialTimeout
		if dialTimeout <= 0 {
			dialTimeout = 5 * time.Second
		}
		rdb = redis.NewClient(&redis.Options{
			Addr:        opts.Addr,
			Password:    opts.Password,
			DB:          opts.DB,
			PoolSize:    opts.PoolSize,
			DialTimeout: dialTimeout,
		})
		createdInternally = true

		if !opts.SkipPing {
			// Ping Redis to check connection
			ctx, cancel := context.WithTimeout(context.Background(), dialTimeout)
			defer cancel()
			if err := rdb.Ping(ctx).Err(); err != nil {
				_ = rdb.Close()
				return nil, fmt.Errorf("failed to ping redis: %w", err)
			}
		}
	}

	slog.Info("Redis cache client initialized", slog.String("addr", rdb.Options().Addr), slog.String("namespace", opts.Namespace))
	return &client{
		redisClient:       rdb,
		namespace:         opts.Namespace,
		counters:          make(map[string]int),
		createdInternally: createdInternally,
	}, nil
}

func (c *client) key(k string) string {
	return c.namespace + k
}

// Get retrieves a raw value from Redis.
func (c *client) Get(ctx context.Context, key string) ([]byte, error) {
	c.incrementCounter("Get") // total calls
	val, err := c.redisClient.Get(ctx, c.key(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		c.incrementCounter("GetMiss")
		return nil, common.ErrNotFound
	} else if err != nil {
		c.incrementCounter("GetError")
		return nil, fmt.Errorf("redis Get error for key '%s': %w", key, err)
	}
	c.incrementCounter("GetHit")
	return val, nil
}

// Set stores a raw value in Redis. A zero expiration keeps the key until deleted.
func (c *client) Set(ctx context.Context, key string, value []byte, expiration time.Duration) error {
	c.incrementCounter("Set")
	if err := c.redisClient.Set(ctx, c.key(key), value, expiration).Err(); err != nil {
		c.incrementCounter("SetError")
		return fmt.Errorf("redis Set error for key '%s': %w", key, err)
	}
	return nil
}

// Delete removes a key from Redis.
func (c *client) Delete(ctx context.Context, key string) error {
	c.incrementCounter("Delete")
	err := c.redisClient.Del(ctx, c.key(key)).Err()
	if err != nil && !errors.Is(err, redis.Nil) { // Don't error if key didn't exist
		c.incrementCounter("DeleteError")
		return fmt.Errorf("redis Del error for key '%s': %w", key, err)
	}
	return nil
}

// DeleteByPattern removes all keys matching the glob pattern.
// Each SCAN page is deleted before the next one is fetched, so memory stays
// bounded by the page size whatever the size of the keyspace.
func (c *client) DeleteByPattern(ctx context.Context, pattern string) (int, error) {
	c.incrementCounter("DeleteByPattern")
	matchPattern := c.key(pattern)

	var cursor uint64
	deleted := 0
	for {
		keys, next, err := c.redisClient.Scan(ctx, cursor, matchPattern, scanCount).Result()
		if err != nil {
			c.incrementCounter("DeleteByPatternError")
			return deleted, fmt.Errorf("redis SCAN error for pattern '%s': %w", pattern, err)
		}
		// SCAN may return a key more than once; DEL only counts keys that still exist.
		keys = dedupe(keys)
		for start := 0; start < len(keys); start += deleteBatch {
			end := min(start+deleteBatch, len(keys))
			n, err := c.redisClient.Del(ctx, keys[start:end]...).Result()
			if err != nil && !errors.Is(err, redis.Nil) {
				c.incrementCounter("DeleteByPatternError")
				return deleted, fmt.Errorf("redis DEL error for pattern '%s': %w", pattern, err)
			}
			deleted += int(n)
		}
		cursor = next
		if cursor == 0 {
			break
		}
	}
	slog.Debug("redis cache pattern delete", slog.String("pattern", matchPattern), slog.Int("deleted", deleted))
	return deleted, nil
}

// Health pings Redis and collects memory and keyspace information.
// INFO failures are tolerated; only a failed PING marks the store disconnected.
func (c *client) Health(ctx context.Context) ante.Health {
	c.incrementCounter("Health")
	var h ante.Health

	start := time.Now()
	if err := c.redisClient.Ping(ctx).Err(); err != nil {
		h.Error = err.Error()
		return h
	}
	h.IsConnected = true
	h.Latency = time.Since(start)

	if info, err := c.redisClient.Info(ctx, "memory").Result(); err == nil {
		h.Memory = parseInfo(info)["used_memory_human"]
	}

	db := c.redisClient.Options().DB
	if info, err := c.redisClient.Info(ctx, "keyspace").Result(); err == nil {
		if line, ok := parseInfo(info)["db"+strconv.Itoa(db)]; ok {
			h.Keyspace = parseKeyspace(line)
			return h
		}
	}
	if n, err := c.redisClient.DBSize(ctx).Result(); err == nil {
		h.Keyspace.Keys = n
	}
	return h
}

// GetCacheStats returns a snapshot of cache operation counters for monitoring.
// The returned map is a copy and safe for concurrent use.
// Typical keys: "Get", "GetMiss", "GetHit", "Set", "DeleteByPattern", etc.
func (c *client) GetCacheStats(ctx context.Context) ante.CacheStats {
	c.mu.Lock()
	defer c.mu.Unlock()
	stats := make(map[string]int, len(c.counters))
	for k, v := range c.counters {
		stats[k] = v
	}
	return ante.CacheStats{Counters: stats}
}

// parseInfo splits an INFO reply into field/value pairs.
func parseInfo(info string) map[string]string {
	out := make(map[string]string)
	sc := bufio.NewScanner(strings.NewReader(info))
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if k, v, ok := strings.Cut(line, ":"); ok {
			out[k] = v
		}
	}
	return out
}

// parseKeyspace parses "keys=1,expires=0,avg_ttl=0".
func parseKeyspace(line string) ante.Keyspace {
	var ks ante.Keyspace
	for _, part := range strings.Split(line, ",") {
		k, v, ok := strings.Cut(part, "=")
		if !ok {
			continue
		}
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			continue
		}
		switch k {
		case "keys":
			ks.Keys = n
		case "expires":
			ks.Expires = n
		}
	}
	return ks
}

func dedupe(keys []string) []string {
	if len(keys) < 2 {
		return keys
	}
	seen := make(map[string]struct{}, len(keys))
	out := keys[:0]
	for _, k := range keys {
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, k)
	}
	return out
}
