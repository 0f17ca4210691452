package postgres

import (
	"context"
	"strings"

	"github.com/georgysavva/scany/v2/sqlscan"

	"github.com/tenantcare/auth-service/internal/domain"
)

type TokenRepo struct {
	db dbtx
}

func NewTokenRepo(db dbtx) *TokenRepo {
	return &TokenRepo{db: db}
}

func (r *TokenRepo) Create(ctx context.Context, t domain.PasswordResetToken) error {
	if t.Token == "" {
		return domain.ErrMissingField("token")
	}
	const q = `
INSERT INTO password_reset_tokens (token, user_id, tenant_id, created_at, expires_at, used)
VALUES ($1,$2,$3,$4,$5,$6);
`
	if _, err := r.db.ExecContext(ctx, q, t.Token, t.UserID, t.TenantID, t.CreatedAt, t.ExpiresAt, t.Used); err != nil {
		return domain.ErrDBUnavailable(err)
	}
	return nil
}

func (r *TokenRepo) Get(ctx context.Context, tenantID, token string) (domain.PasswordResetToken, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return domain.PasswordResetToken{}, domain.ErrResetTokenInvalid()
	}
	const q = `
SELECT token, user_id, tenant_id, created_at, expires_at, used
FROM password_reset_tokens
WHERE tenant_id = $1 AND token = $2
LIMIT 1;
`
	var row tokenRow
	if err := sqlscan.Get(ctx, r.db, &row, q, tenantID, token); err != nil {
		if sqlscan.NotFound(err) {
			return domain.PasswordResetToken{}, domain.ErrResetTokenInvalid()
		}
		return domain.PasswordResetToken{}, domain.ErrDBUnavailable(err)
	}
	return row.toDomain(), nil
}

// MarkUsed flips used to true only if it is still false. Zero affected rows
// means another request consumed the token first.
func (r *TokenRepo) MarkUsed(ctx context.Context, tenantID, token string) error {
	const q = `
UPDATE password_reset_tokens
SET used = TRUE
WHERE tenant_id = $1 AND token = $2 AND used = FALSE;
`
	res, err := r.db.ExecContext(ctx, q, tenantID, token)
	if err != nil {
		return domain.ErrDBUnavailable(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return domain.ErrDBUnavailable(err)
	}
	if n == 0 {
		return domain.ErrResetTokenUsed()
	}
	return nil
}

func (r *TokenRepo) TenantIDOf(ctx context.Context, token string) (string, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return "", domain.ErrResetTokenInvalid()
	}
	const q = `SELECT tenant_id FROM password_reset_tokens WHERE token = $1 LIMIT 1;`
	var tenantID string
	if err := sqlscan.Get(ctx, r.db, &tenantID, q, token); err != nil {
		if sqlscan.NotFound(err) {
			return "", domain.ErrResetTokenInvalid()
		}
		return "", domain.ErrDBUnavailable(err)
	}
	return tenantID, nil
}
