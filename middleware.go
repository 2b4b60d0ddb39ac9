package ante

import (
	"context"
	"time"
)

// Handler is a service operation taking a request and returning a response.
type Handler[Req, Resp any] func(ctx context.Context, req Req) (Resp, error)

// Middleware wraps a Handler.
type Middleware[Req, Resp any] func(next Handler[Req, Resp]) Handler[Req, Resp]

// KeyFunc derives the type and identifier parts of a cache key from a
// request. The prefix and company are filled in by CacheResult.
type KeyFunc[Req any] func(req Req) KeyConfig

// ParamsFunc supplies pattern parameters (other than companyId) from a request.
type ParamsFunc[Req any] func(req Req) map[string]string

// Chain applies mws to h so that the first middleware is the outermost.
func Chain[Req, Resp any](h Handler[Req, Resp], mws ...Middleware[Req, Resp]) Handler[Req, Resp] {
	for i := len(mws) - 1; i >= 0; i-- {
		h = mws[i](h)
	}
	return h
}

// CacheResult caches the handler's result under prefix for the tenant in ctx.
//
// A zero ttl uses the prefix's default TTL. WithRefresh(ctx) skips the read
// but still stores the fresh result. Handler errors are returned and never
// cached. Without a tenant in ctx the handler runs uncached and an ERROR
// event is recorded.
func CacheResult[Req, Resp any](c *TenantCache, prefix string, ttl time.Duration, key KeyFunc[Req]) Middleware[Req, Resp] {
	return func(next Handler[Req, Resp]) Handler[Req, Resp] {
		return func(ctx context.Context, req Req) (Resp, error) {
			tenant, ok := TenantFromContext(ctx)
			if !ok {
				c.record(ctx, EventError, prefix, "", map[string]any{"op": "cache-result", "error": ErrTenantRequired.Error()})
				return next(ctx, req)
			}

			k := NewKey(prefix)
			if key != nil {
				k = key(req)
				k.Prefix = prefix
			}
			opts := CacheOptions{TTL: ttl, Refresh: RefreshFromContext(ctx), Serialize: true}
			return Load(ctx, c, tenant, k, opts, func(ctx context.Context) (Resp, error) {
				return next(ctx, req)
			})
		}
	}
}

// InvalidateCache clears every key matching patterns after the handler
// succeeds. Patterns are resolved against the tenant in ctx at call time,
// with params(req) supplying any other placeholders. Failed handlers
// invalidate nothing; invalidation failures are recorded, not returned.
func InvalidateCache[Req, Resp any](c *TenantCache, params ParamsFunc[Req], patterns ...Pattern) Middleware[Req, Resp] {
	return func(next Handler[Req, Resp]) Handler[Req, Resp] {
		return func(ctx context.Context, req Req) (Resp, error) {
			resp, err := next(ctx, req)
			if err != nil {
				return resp, err
			}
			tenant, ok := TenantFromContext(ctx)
			if !ok {
				c.record(ctx, EventError, "", "", map[string]any{"op": "invalidate", "error": ErrTenantRequired.Error()})
				return resp, nil
			}
			var p map[string]string
			if params != nil {
				p = params(req)
			}
			// Errors are already recorded as events by the dispatcher.
			_, _ = c.dispatcher.Dispatch(ctx, tenant, p, patterns...)
			return resp, nil
		}
	}
}
