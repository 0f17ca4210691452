package postgres

import (
	"context"
	"encoding/json"

	"github.com/georgysavva/scany/v2/sqlscan"

	"github.com/tenantcare/auth-service/internal/domain"
)

type ActivityRepo struct {
	db dbtx
}

func NewActivityRepo(db dbtx) *ActivityRepo {
	return &ActivityRepo{db: db}
}

func (r *ActivityRepo) Create(ctx context.Context, a domain.UserActivity) error {
	details := a.Details
	if details == nil {
		details = map[string]string{}
	}
	raw, err := json.Marshal(details)
	if err != nil {
		return domain.ErrInternal(err)
	}

	const q = `
INSERT INTO user_activities (user_id, tenant_id, action, performed_by, details, ip_address, user_agent, success, created_at)
VALUES ($1,$2,$3,$4,$5::jsonb,$6,$7,$8,$9);
`
	_, err = r.db.ExecContext(ctx, q,
		nullIfEmpty(a.UserID), nullIfEmpty(a.TenantID), a.Action, nullIfEmpty(a.PerformedBy),
		string(raw), a.IPAddress, a.UserAgent, a.Success, a.CreatedAt,
	)
	if err != nil {
		return domain.ErrDBUnavailable(err)
	}
	return nil
}

// ListRecent returns the newest activities of a tenant, newest first.
func (r *ActivityRepo) ListRecent(ctx context.Context, tenantID string, limit int) ([]domain.UserActivity, error) {
	if limit <= 0 {
		limit = 50
	}
	const q = `
SELECT id, user_id, tenant_id, action, performed_by, details, ip_address, user_agent, success, created_at
FROM user_activities
WHERE tenant_id = $1
ORDER BY created_at DESC, id DESC
LIMIT $2;
`
	var rows []activityRow
	if err := sqlscan.Select(ctx, r.db, &rows, q, tenantID, limit); err != nil {
		return nil, domain.ErrDBUnavailable(err)
	}

	out := make([]domain.UserActivity, 0, len(rows))
	for _, row := range rows {
		a := domain.UserActivity{
			ID:          row.ID,
			UserID:      row.UserID.String,
			TenantID:    row.TenantID.String,
			Action:      row.Action,
			PerformedBy: row.PerformedBy.String,
			IPAddress:   row.IPAddress,
			UserAgent:   row.UserAgent,
			Success:     row.Success,
			CreatedAt:   row.CreatedAt,
		}
		if len(row.Details) > 0 {
			_ = json.Unmarshal(row.Details, &a.Details)
		}
		out = append(out, a)
	}
	return out, nil
}
