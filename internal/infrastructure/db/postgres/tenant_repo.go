package postgres

import (
	"context"
	"strings"

	"github.com/georgysavva/scany/v2/sqlscan"

	"github.com/tenantcare/auth-service/internal/domain"
)

type TenantRepo struct {
	db dbtx
}

func NewTenantRepo(db dbtx) *TenantRepo {
	return &TenantRepo{db: db}
}

const tenantColumns = `t.id, t.schema_name, t.name, t.logo, t.primary_color, t.secondary_color`

func (r *TenantRepo) get(ctx context.Context, notFound string, q string, args ...any) (domain.Tenant, error) {
	var row tenantRow
	if err := sqlscan.Get(ctx, r.db, &row, q, args...); err != nil {
		if sqlscan.NotFound(err) {
			return domain.Tenant{}, domain.ErrTenantNotFound(notFound)
		}
		return domain.Tenant{}, domain.ErrDBUnavailable(err)
	}
	return row.toDomain(), nil
}

func (r *TenantRepo) GetByEmailDomain(ctx context.Context, emailDomain string) (domain.Tenant, error) {
	emailDomain = strings.ToLower(strings.TrimSpace(emailDomain))
	if emailDomain == "" {
		return domain.Tenant{}, domain.ErrMissingField("domain")
	}
	q := `
SELECT ` + tenantColumns + `
FROM domains d
JOIN tenants t ON t.id = d.tenant_id
WHERE d.domain = $1
LIMIT 1;
`
	return r.get(ctx, emailDomain, q, emailDomain)
}

func (r *TenantRepo) GetByID(ctx context.Context, id string) (domain.Tenant, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return domain.Tenant{}, domain.ErrMissingField("tenant_id")
	}
	q := `
SELECT ` + tenantColumns + `
FROM tenants t
WHERE t.id = $1
LIMIT 1;
`
	return r.get(ctx, id, q, id)
}

func (r *TenantRepo) GetBySchema(ctx context.Context, schema string) (domain.Tenant, error) {
	schema = strings.TrimSpace(schema)
	if schema == "" {
		return domain.Tenant{}, domain.ErrMissingField("schema")
	}
	q := `
SELECT ` + tenantColumns + `
FROM tenants t
WHERE t.schema_name = $1
LIMIT 1;
`
	return r.get(ctx, schema, q, schema)
}

// Upsert creates or updates a tenant and attaches the given email domains.
// The first domain is marked primary.
func (r *TenantRepo) Upsert(ctx context.Context, t domain.Tenant, domains []string) error {
	if t.ID == "" || t.Schema == "" {
		return domain.ErrMissingField("tenant")
	}
	const q = `
INSERT INTO tenants (id, schema_name, name, logo, primary_color, secondary_color)
VALUES ($1,$2,$3,$4,$5,$6)
ON CONFLICT (id) DO UPDATE
SET schema_name = EXCLUDED.schema_name,
    name = EXCLUDED.name,
    logo = EXCLUDED.logo,
    primary_color = EXCLUDED.primary_color,
    secondary_color = EXCLUDED.secondary_color;
`
	if _, err := r.db.ExecContext(ctx, q, t.ID, t.Schema, t.Name, t.Logo, t.PrimaryColor, t.SecondaryColor); err != nil {
		return domain.ErrDBUnavailable(err)
	}

	const qd = `
INSERT INTO domains (domain, tenant_id, is_primary)
VALUES ($1,$2,$3)
ON CONFLICT (domain) DO NOTHING;
`
	for i, d := range domains {
		d = strings.ToLower(strings.TrimSpace(d))
		if d == "" {
			continue
		}
		if _, err := r.db.ExecContext(ctx, qd, d, t.ID, i == 0); err != nil {
			return domain.ErrDBUnavailable(err)
		}
	}
	return nil
}
