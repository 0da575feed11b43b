package request

import "context"

type tenantIDContextKey struct{}

// WithTenantID attaches a tenant identifier sent as X-Tenant-ID.
func WithTenantID(ctx context.Context, tenantID string) context.Context {
	return context.WithValue(ctx, tenantIDContextKey{}, tenantID)
}

// TenantIDFromContext returns the tenant attached with WithTenantID.
func TenantIDFromContext(ctx context.Context) (string, bool) {
	if ctx == nil {
		return "", false
	}
	tenantID, _ := ctx.Value(tenantIDContextKey{}).(string)
	if tenantID == "" {
		return "", false
	}
	return tenantID, true
}

type quietContextKey struct{}

// Quiet marks ctx so transient failures are returned without raising a
// notice. Callers that report the failure themselves use it.
func Quiet(ctx context.Context) context.Context {
	return context.WithValue(ctx, quietContextKey{}, true)
}

func isQuiet(ctx context.Context) bool {
	quiet, _ := ctx.Value(quietContextKey{}).(bool)
	return quiet
}
