package auth

import (
	"context"

	"migration-assess/backend/pkg/models"
)

type contextKey string

const tenantKeyContextKey contextKey = "tenant_key"

// WithTenantKey returns a context carrying the caller's tenant key.
func WithTenantKey(ctx context.Context, key models.TenantKey) context.Context {
	return context.WithValue(ctx, tenantKeyContextKey, key)
}

// KeyFromContext extracts the caller's tenant key. The second return is
// false when no authenticated tenant scope is attached.
func KeyFromContext(ctx context.Context) (models.TenantKey, bool) {
	key, ok := ctx.Value(tenantKeyContextKey).(models.TenantKey)
	return key, ok
}
