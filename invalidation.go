package ante

import (
	"context"
	"fmt"
	"time"

	"github.com/hashicorp/go-multierror"
)

// Dispatcher resolves invalidation patterns against a tenant and deletes the
// matching keys from the store.
//
// Dispatch is meant to run after the write it belongs to has committed. If the
// process dies in between, the stale entries live until their TTL expires.
type Dispatcher struct {
	client       CacheClient
	sink         EventSink
	writeTimeout time.Duration
	now          func() time.Time
}

// NewDispatcher creates a Dispatcher. A nil sink discards events.
func NewDispatcher(client CacheClient, sink EventSink, writeTimeout time.Duration) *Dispatcher {
	if sink == nil {
		sink = NopSink{}
	}
	if writeTimeout <= 0 {
		writeTimeout = DefaultWriteTimeout
	}
	return &Dispatcher{client: client, sink: sink, writeTimeout: writeTimeout, now: time.Now}
}

// Resolve turns patterns into Invalidations for tenant without touching the store.
func (d *Dispatcher) Resolve(tenant TenantID, params map[string]string, patterns ...Pattern) ([]Invalidation, error) {
	if tenant == "" {
		return nil, ErrTenantRequired
	}
	out := make([]Invalidation, 0, len(patterns))
	var result *multierror.Error
	for _, p := range patterns {
		resolved, err := p.Resolve(tenant, params)
		if err != nil {
			result = multierror.Append(result, err)
			continue
		}
		out = append(out, Invalidation{Pattern: resolved, Reason: p.Reason(), Timestamp: d.now()})
	}
	return out, result.ErrorOrNil()
}

// Dispatch deletes every key matching each resolved pattern and returns the
// number of keys removed. Patterns that fail to resolve or delete are
// reported in the returned error; the remaining ones are still processed.
//
// The deletes run on a context detached from ctx's cancellation, bounded by
// the write timeout.
func (d *Dispatcher) Dispatch(ctx context.Context, tenant TenantID, params map[string]string, patterns ...Pattern) (int, error) {
	if d.client == nil {
		return 0, ErrCacheNotSet
	}
	invalidations, resolveErr := d.Resolve(tenant, params, patterns...)
	var result *multierror.Error
	if resolveErr != nil {
		result = multierror.Append(result, resolveErr)
		d.sink.Record(ctx, CacheEvent{
			Type:      EventError,
			Timestamp: d.now(),
			CompanyID: string(tenant),
			Metadata:  map[string]any{"op": "resolve", "error": resolveErr.Error()},
		})
	}
	if len(invalidations) == 0 {
		return 0, result.ErrorOrNil()
	}

	wctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), d.writeTimeout)
	defer cancel()

	total := 0
	for _, inv := range invalidations {
		n, err := d.client.DeleteByPattern(wctx, inv.Pattern)
		if err != nil {
			result = multierror.Append(result, fmt.Errorf("invalidate %q: %w", inv.Pattern, err))
			d.sink.Record(ctx, CacheEvent{
				Type:      EventError,
				Key:       inv.Pattern,
				Timestamp: d.now(),
				CompanyID: string(tenant),
				Metadata:  map[string]any{"op": "invalidate", "error": err.Error()},
			})
			continue
		}
		total += n
		meta := map[string]any{"count": n}
		if inv.Reason != "" {
			meta["reason"] = inv.Reason
		}
		d.sink.Record(ctx, CacheEvent{
			Type:      EventInvalidate,
			Key:       inv.Pattern,
			Timestamp: inv.Timestamp,
			CompanyID: string(tenant),
			Metadata:  meta,
		})
	}
	return total, result.ErrorOrNil()
}
