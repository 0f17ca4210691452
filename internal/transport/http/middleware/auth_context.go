package middleware

import (
	"context"

	"github.com/tenantcare/auth-service/internal/application/reset"
	"github.com/tenantcare/auth-service/internal/domain"
)

type ctxKey string

const (
	ctxClaims   ctxKey = "claims"
	ctxTenant   ctxKey = "tenant"
	ctxClientIP ctxKey = "client_ip"
)

func WithClaims(ctx context.Context, c reset.TokenClaims) context.Context {
	return context.WithValue(ctx, ctxClaims, c)
}

func ClaimsFromContext(ctx context.Context) (reset.TokenClaims, bool) {
	c, ok := ctx.Value(ctxClaims).(reset.TokenClaims)
	return c, ok && c.UserID != ""
}

func UserIDFromContext(ctx context.Context) (string, bool) {
	c, ok := ClaimsFromContext(ctx)
	return c.UserID, ok
}

func WithTenant(ctx context.Context, t domain.Tenant) context.Context {
	return context.WithValue(ctx, ctxTenant, t)
}

// TenantFromContext returns the tenant resolved for this request, or nil.
func TenantFromContext(ctx context.Context) *domain.Tenant {
	t, ok := ctx.Value(ctxTenant).(domain.Tenant)
	if !ok || t.ID == "" {
		return nil
	}
	return &t
}
