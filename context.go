package goLMS

import (
	"context"

	"github.com/MrEthical07/goLMS/request"
)

// WithTenantID attaches a tenant identifier to ctx. Every API call made with
// ctx carries it as the X-Tenant-ID header.
func WithTenantID(ctx context.Context, tenantID string) context.Context {
	return request.WithTenantID(ctx, tenantID)
}

// WithoutNotices marks ctx so transient failures of calls made with it are
// returned to the caller without raising a global notice.
func WithoutNotices(ctx context.Context) context.Context {
	return request.Quiet(ctx)
}
