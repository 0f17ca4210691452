package postgres

import (
	"context"
	"strings"

	"github.com/tenantcare/auth-service/internal/domain"
)

type BlockedIPRepo struct {
	db dbtx
}

func NewBlockedIPRepo(db dbtx) *BlockedIPRepo {
	return &BlockedIPRepo{db: db}
}

func (r *BlockedIPRepo) IsBlocked(ctx context.Context, tenantID, ip string) (bool, error) {
	ip = strings.TrimSpace(ip)
	if ip == "" {
		return false, nil
	}
	const q = `
SELECT EXISTS (
    SELECT 1 FROM blocked_ips
    WHERE tenant_id = $1 AND ip_address = $2 AND is_active
);
`
	var blocked bool
	if err := r.db.QueryRowContext(ctx, q, tenantID, ip).Scan(&blocked); err != nil {
		return false, domain.ErrDBUnavailable(err)
	}
	return blocked, nil
}

// Block adds or reactivates a blocklist entry.
func (r *BlockedIPRepo) Block(ctx context.Context, tenantID, ip string) error {
	ip = strings.TrimSpace(ip)
	if ip == "" {
		return domain.ErrMissingField("ip_address")
	}
	const q = `
INSERT INTO blocked_ips (tenant_id, ip_address, is_active)
VALUES ($1,$2,TRUE)
ON CONFLICT (tenant_id, ip_address) DO UPDATE SET is_active = TRUE;
`
	if _, err := r.db.ExecContext(ctx, q, tenantID, ip); err != nil {
		return domain.ErrDBUnavailable(err)
	}
	return nil
}
