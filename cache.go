package ante

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/burugo/ante/common"
)

// TenantCache is the TenantScopedCache in front of a CacheClient.
//
// It fails open: store errors, timeouts and undecodable entries are reported
// as misses (or ignored on writes) and recorded as ERROR events. Returned
// errors only describe caller mistakes.
type TenantCache struct {
	client     CacheClient
	codec      Codec
	cfg        Config
	sink       EventSink
	dispatcher *Dispatcher
	loads      singleflight.Group
	now        func() time.Time
}

var _ TenantScopedCache = (*TenantCache)(nil)

// Option customizes a TenantCache.
type Option func(*TenantCache)

// WithEventSink sets the sink receiving cache events.
func WithEventSink(sink EventSink) Option {
	return func(c *TenantCache) {
		if sink != nil {
			c.sink = sink
		}
	}
}

// WithClock overrides the clock used for event timestamps.
func WithClock(now func() time.Time) Option {
	return func(c *TenantCache) {
		if now != nil {
			c.now = now
		}
	}
}

// New creates a TenantCache on client.
func New(client CacheClient, cfg Config, opts ...Option) (*TenantCache, error) {
	if client == nil {
		return nil, ErrCacheNotSet
	}
	cfg = cfg.withDefaults()
	codec, err := CodecByName(cfg.Codec)
	if err != nil {
		return nil, err
	}
	c := &TenantCache{
		client: client,
		codec:  codec,
		cfg:    cfg,
		sink:   NopSink{},
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.dispatcher = NewDispatcher(client, c.sink, cfg.WriteTimeout)
	c.dispatcher.now = c.now
	return c, nil
}

// Config returns the effective configuration.
func (c *TenantCache) Config() Config { return c.cfg }

// Client returns the underlying store adapter.
func (c *TenantCache) Client() CacheClient { return c.client }

// Dispatcher returns the invalidation dispatcher sharing this cache's store and sink.
func (c *TenantCache) Dispatcher() *Dispatcher { return c.dispatcher }

// ScopedKey returns the store key for key under tenant.
func (c *TenantCache) ScopedKey(tenant TenantID, key KeyConfig) (string, error) {
	if tenant == "" {
		return "", ErrTenantRequired
	}
	if key.CompanyID != nil && *key.CompanyID != string(tenant) {
		return "", fmt.Errorf("%w: key company %q, tenant %q", ErrTenantMismatch, *key.CompanyID, tenant)
	}
	return BuildKey(key.Company(string(tenant))), nil
}

// Get reads key for tenant into dest. It reports a hit only when a value was
// read and decoded.
func (c *TenantCache) Get(ctx context.Context, tenant TenantID, key KeyConfig, dest any, opts CacheOptions) (bool, error) {
	storeKey, err := c.ScopedKey(tenant, key)
	if err != nil {
		return false, err
	}
	if opts.Refresh {
		c.record(ctx, EventMiss, storeKey, tenant, map[string]any{"refresh": true})
		return false, nil
	}

	start := c.now()
	data, err := c.client.Get(ctx, storeKey)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			c.record(ctx, EventMiss, storeKey, tenant, nil)
			return false, nil
		}
		c.recordError(ctx, "get", storeKey, tenant, err)
		return false, nil
	}

	if err := c.decode(data, dest, opts); err != nil {
		c.recordError(ctx, "decode", storeKey, tenant, err)
		return false, nil
	}
	c.record(ctx, EventHit, storeKey, tenant, map[string]any{"latency": c.now().Sub(start)})
	return true, nil
}

// Set stores value under key for tenant. The write is detached from ctx's
// cancellation: once issued it completes even if the request goes away.
func (c *TenantCache) Set(ctx context.Context, tenant TenantID, key KeyConfig, value any, opts CacheOptions) error {
	storeKey, err := c.ScopedKey(tenant, key)
	if err != nil {
		return err
	}
	data, err := c.encode(value, opts)
	if err != nil {
		return err
	}
	ttl := opts.TTL
	if ttl <= 0 {
		ttl = c.cfg.TTLFor(key.Prefix)
	}

	wctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.cfg.WriteTimeout)
	defer cancel()
	if err := c.client.Set(wctx, storeKey, data, ttl); err != nil {
		c.recordError(ctx, "set", storeKey, tenant, err)
		return nil
	}
	c.record(ctx, EventSet, storeKey, tenant, map[string]any{"ttl": ttl, "bytes": len(data)})
	return nil
}

// Delete removes a single key for tenant.
func (c *TenantCache) Delete(ctx context.Context, tenant TenantID, key KeyConfig) error {
	storeKey, err := c.ScopedKey(tenant, key)
	if err != nil {
		return err
	}
	wctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.cfg.WriteTimeout)
	defer cancel()
	if err := c.client.Delete(wctx, storeKey); err != nil {
		c.recordError(ctx, "delete", storeKey, tenant, err)
		return nil
	}
	c.record(ctx, EventDelete, storeKey, tenant, nil)
	return nil
}

// Invalidate resolves patterns for tenant and deletes every matching key.
// Only resolution problems (missing tenant or parameter) are returned; store
// failures are recorded as events.
func (c *TenantCache) Invalidate(ctx context.Context, tenant TenantID, params map[string]string, patterns ...Pattern) (int, error) {
	if _, err := c.dispatcher.Resolve(tenant, params, patterns...); err != nil {
		return 0, err
	}
	n, _ := c.dispatcher.Dispatch(ctx, tenant, params, patterns...)
	return n, nil
}

// Health reports the backing store status.
func (c *TenantCache) Health(ctx context.Context) Health {
	return c.client.Health(ctx)
}

// Load returns the cached value for key or computes it with loader and caches
// the result. Concurrent loads of the same key share one loader call.
// Loader errors are returned as is and nothing is cached.
//
// The shared call runs on a context detached from every caller and bounded by
// Config.LoadTimeout. Each caller still stops waiting when its own ctx is done.
func Load[T any](ctx context.Context, c *TenantCache, tenant TenantID, key KeyConfig, opts CacheOptions, loader func(ctx context.Context) (T, error)) (T, error) {
	var zero T
	storeKey, err := c.ScopedKey(tenant, key)
	if err != nil {
		return zero, err
	}

	var cached T
	hit, err := c.Get(ctx, tenant, key, &cached, opts)
	if err != nil {
		return zero, err
	}
	if hit {
		return cached, nil
	}

	ch := c.loads.DoChan(storeKey, func() (any, error) {
		lctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.cfg.LoadTimeout)
		defer cancel()
		value, err := loader(lctx)
		if err != nil {
			return nil, err
		}
		if err := c.Set(lctx, tenant, key, value, opts); err != nil {
			c.recordError(lctx, "set", storeKey, tenant, err)
		}
		return value, nil
	})

	select {
	case <-ctx.Done():
		return zero, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return zero, res.Err
		}
		value, _ := res.Val.(T)
		return value, nil
	}
}

func (c *TenantCache) encode(value any, opts CacheOptions) ([]byte, error) {
	if !opts.Serialize {
		switch v := value.(type) {
		case []byte:
			return v, nil
		case string:
			return []byte(v), nil
		}
	}
	data, err := c.codec.Marshal(value)
	if err != nil {
		return nil, fmt.Errorf("%w: %T: %v", ErrNotSerializable, value, err)
	}
	return data, nil
}

func (c *TenantCache) decode(data []byte, dest any, opts CacheOptions) error {
	if !opts.Serialize {
		switch d := dest.(type) {
		case *[]byte:
			*d = append((*d)[:0], data...)
			return nil
		case *string:
			*d = string(data)
			return nil
		}
	}
	return c.codec.Unmarshal(data, dest)
}

func (c *TenantCache) record(ctx context.Context, typ EventType, key string, tenant TenantID, meta map[string]any) {
	c.sink.Record(ctx, CacheEvent{
		Type:      typ,
		Key:       key,
		Timestamp: c.now(),
		CompanyID: string(tenant),
		Metadata:  meta,
	})
}

func (c *TenantCache) recordError(ctx context.Context, op, key string, tenant TenantID, err error) {
	c.record(ctx, EventError, key, tenant, map[string]any{"op": op, "error": err.Error()})
}
