package context

import "context"

type contextKey string

const (
	requestIDKey    contextKey = "request_id"
	tenantSchemaKey contextKey = "tenant_schema"
)

// WithRequestID injects ID
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey, id)
}

// GetRequestID extracts ID
func GetRequestID(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if id, ok := ctx.Value(requestIDKey).(string); ok {
		return id
	}
	return ""
}

// WithTenantSchema tags the context for log enrichment only. Flows receive
// the tenant explicitly and never read it from here.
func WithTenantSchema(ctx context.Context, schema string) context.Context {
	return context.WithValue(ctx, tenantSchemaKey, schema)
}

func GetTenantSchema(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if s, ok := ctx.Value(tenantSchemaKey).(string); ok {
		return s
	}
	return ""
}
