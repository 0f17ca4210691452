package middleware

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/tenantcare/auth-service/internal/domain"
	appCtx "github.com/tenantcare/auth-service/internal/pkg/context"
)

const HeaderXTenantID = "X-Tenant-ID"

// maxPeekBody bounds how much of a request body TenantFromResetToken reads.
const maxPeekBody = 64 << 10

type TenantLookup interface {
	GetByID(ctx context.Context, id string) (domain.Tenant, error)
	GetBySchema(ctx context.Context, schema string) (domain.Tenant, error)
	GetByEmailDomain(ctx context.Context, emailDomain string) (domain.Tenant, error)
}

type TokenTenantLookup interface {
	TenantIDOf(ctx context.Context, token string) (string, error)
}

/*
ResolveTenant attaches a tenant to the request context:
  - X-Tenant-ID header (tenant id or schema name); an unknown value is rejected
  - otherwise the Host header (port stripped) matched against the domain table

A request without a resolvable tenant continues without one.
*/
func ResolveTenant(tenants TenantLookup, writeErr WriteErrFunc) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			if ref := strings.TrimSpace(r.Header.Get(HeaderXTenantID)); ref != "" {
				t, err := lookupTenantRef(ctx, tenants, ref)
				if err != nil {
					if isTenantMiss(err) {
						err = domain.ErrUnknownTenant(ref)
					}
					writeErr(w, r, err)
					return
				}
				next.ServeHTTP(w, r.WithContext(attachTenant(ctx, t)))
				return
			}

			if host := hostOnly(r.Host); host != "" {
				t, err := tenants.GetByEmailDomain(ctx, host)
				switch {
				case err == nil:
					ctx = attachTenant(ctx, t)
				case !isTenantMiss(err):
					writeErr(w, r, err)
					return
				}
			}

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// TenantFromResetToken resolves the tenant from the reset token carried in the
// "token" query parameter or JSON body field. It overrides any tenant resolved
// earlier. Unknown tokens leave the context unchanged.
func TenantFromResetToken(tokens TokenTenantLookup, tenants TenantLookup, writeErr WriteErrFunc) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := strings.TrimSpace(r.URL.Query().Get("token"))
			if token == "" && r.Body != nil && r.Body != http.NoBody {
				var err error
				token, err = peekBodyToken(r)
				if err != nil {
					var tooLarge *http.MaxBytesError
					if errors.As(err, &tooLarge) {
						writeErr(w, r, domain.ErrPayloadTooLarge(tooLarge.Limit))
						return
					}
					writeErr(w, r, domain.ErrInvalidJSON(err))
					return
				}
			}
			if token == "" {
				next.ServeHTTP(w, r)
				return
			}

			ctx := r.Context()
			tenantID, err := tokens.TenantIDOf(ctx, token)
			if err != nil {
				if domain.IsUnexpected(err) {
					writeErr(w, r, err)
					return
				}
				next.ServeHTTP(w, r)
				return
			}

			t, err := tenants.GetByID(ctx, tenantID)
			if err != nil {
				if isTenantMiss(err) {
					next.ServeHTTP(w, r)
					return
				}
				writeErr(w, r, err)
				return
			}

			next.ServeHTTP(w, r.WithContext(attachTenant(ctx, t)))
		})
	}
}

// peekBodyToken reads up to maxPeekBody bytes for the token field and puts
// them back in front of the unread remainder, so the handler sees the whole
// body and any body limit still applies.
func peekBodyToken(r *http.Request) (string, error) {
	b, err := io.ReadAll(io.LimitReader(r.Body, maxPeekBody+1))
	if err != nil {
		return "", err
	}
	r.Body = readCloser{Reader: io.MultiReader(bytes.NewReader(b), r.Body), Closer: r.Body}
	if len(b) > maxPeekBody || len(bytes.TrimSpace(b)) == 0 {
		return "", nil
	}

	var body struct {
		Token string `json:"token"`
	}
	// Malformed bodies are left to the handler's decoder.
	if err := json.Unmarshal(b, &body); err != nil {
		return "", nil
	}
	return strings.TrimSpace(body.Token), nil
}

type readCloser struct {
	io.Reader
	io.Closer
}

func lookupTenantRef(ctx context.Context, tenants TenantLookup, ref string) (domain.Tenant, error) {
	if _, err := uuid.Parse(ref); err == nil {
		return tenants.GetByID(ctx, ref)
	}
	return tenants.GetBySchema(ctx, ref)
}

func attachTenant(ctx context.Context, t domain.Tenant) context.Context {
	ctx = WithTenant(ctx, t)
	return appCtx.WithTenantSchema(ctx, t.Schema)
}

func isTenantMiss(err error) bool {
	return domain.Is(err, "tenant_not_found")
}

func hostOnly(host string) string {
	host = strings.TrimSpace(host)
	if h, _, err := net.SplitHostPort(host); err == nil {
		host = h
	}
	return strings.ToLower(strings.TrimSuffix(host, "."))
}
