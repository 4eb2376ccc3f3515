package middleware

import (
	"context"

	"github.com/Strob0t/TourBridge/internal/logger"
)

// WithTenantID stores the authenticated tenant in ctx. Only Auth and tests
// should call it; the tenant is never taken from a client-supplied header.
func WithTenantID(ctx context.Context, id int64) context.Context {
	return logger.WithTenantID(ctx, id)
}

// TenantIDFromContext returns the authenticated tenant stored in ctx.
func TenantIDFromContext(ctx context.Context) (int64, bool) {
	return logger.TenantID(ctx)
}
