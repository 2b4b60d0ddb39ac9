package ante

import "context"

// TenantID is the multi-tenancy partition key (the companyId of a customer
// organization).
type TenantID string

func (t TenantID) String() string { return string(t) }

type ctxKey int

const (
	tenantCtxKey ctxKey = iota
	refreshCtxKey
)

// WithTenant returns a context carrying the tenant for the current request.
func WithTenant(ctx context.Context, tenant TenantID) context.Context {
	return context.WithValue(ctx, tenantCtxKey, tenant)
}

// TenantFromContext returns the tenant stored by WithTenant.
// ok is false when no tenant (or an empty one) is present.
func TenantFromContext(ctx context.Context) (TenantID, bool) {
	t, ok := ctx.Value(tenantCtxKey).(TenantID)
	if !ok || t == "" {
		return "", false
	}
	return t, true
}

// WithRefresh marks the request as bypassing cached reads. Results are still
// written back, so the next request without the flag sees fresh data.
func WithRefresh(ctx context.Context) context.Context {
	return context.WithValue(ctx, refreshCtxKey, true)
}

// RefreshFromContext reports whether WithRefresh was applied.
func RefreshFromContext(ctx context.Context) bool {
	v, _ := ctx.Value(refreshCtxKey).(bool)
	return v
}
