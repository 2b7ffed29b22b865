package contextutil

import "context"

type tenantKey struct{}

// Tenant identifies the organization and user owning a request. Every
// index operation is scoped by it; there is no ambient current tenant.
type Tenant struct {
	OrgID  string
	UserID string
}

// WithTenant returns a context carrying the tenant identity.
func WithTenant(ctx context.Context, tenant Tenant) context.Context {
	return context.WithValue(ctx, tenantKey{}, tenant)
}

// TenantFromContext extracts the tenant identity set by the HTTP middleware.
func TenantFromContext(ctx context.Context) (Tenant, bool) {
	tenant, ok := ctx.Value(tenantKey{}).(Tenant)
	return tenant, ok
}
