package postgres

import (
	"context"
	"strings"
	"time"

	"github.com/georgysavva/scany/v2/sqlscan"

	"github.com/tenantcare/auth-service/internal/domain"
)

type UserRepo struct {
	db dbtx
}

func NewUserRepo(db dbtx) *UserRepo {
	return &UserRepo{db: db}
}

// ---------- helpers ----------

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

const userColumns = `id, tenant_id, email, username, first_name, last_name, password_hash, role,
       is_superuser, is_active, is_locked, status, last_password_reset`

func (r *UserRepo) get(ctx context.Context, q string, args ...any) (domain.User, error) {
	var ur userRow
	if err := sqlscan.Get(ctx, r.db, &ur, q, args...); err != nil {
		if sqlscan.NotFound(err) {
			return domain.User{}, domain.ErrUserNotFound()
		}
		return domain.User{}, domain.ErrDBUnavailable(err)
	}
	return ur.toDomain(), nil
}

// ---------- reset.UserRepo ----------

func (r *UserRepo) GetByEmail(ctx context.Context, tenantID, email string) (domain.User, error) {
	email = normalizeEmail(email)
	if email == "" {
		return domain.User{}, domain.ErrMissingField("email")
	}
	q := `
SELECT ` + userColumns + `
FROM users
WHERE tenant_id = $1 AND lower(email) = $2
LIMIT 1;
`
	return r.get(ctx, q, tenantID, email)
}

func (r *UserRepo) GetByUsername(ctx context.Context, tenantID, username string) (domain.User, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return domain.User{}, domain.ErrMissingField("username")
	}
	q := `
SELECT ` + userColumns + `
FROM users
WHERE tenant_id = $1 AND username = $2
LIMIT 1;
`
	return r.get(ctx, q, tenantID, username)
}

func (r *UserRepo) GetByID(ctx context.Context, tenantID, id string) (domain.User, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return domain.User{}, domain.ErrMissingField("id")
	}
	q := `
SELECT ` + userColumns + `
FROM users
WHERE tenant_id = $1 AND id = $2
LIMIT 1;
`
	return r.get(ctx, q, tenantID, id)
}

func (r *UserRepo) UpdatePassword(ctx context.Context, tenantID, userID, hash string, resetAt time.Time) error {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return domain.ErrMissingField("user_id")
	}
	if hash == "" {
		return domain.ErrMissingField("password_hash")
	}

	const q = `
UPDATE users
SET password_hash = $3, last_password_reset = $4
WHERE tenant_id = $1 AND id = $2;
`
	res, err := r.db.ExecContext(ctx, q, tenantID, userID, hash, resetAt)
	if err != nil {
		return domain.ErrDBUnavailable(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return domain.ErrDBUnavailable(err)
	}
	if n == 0 {
		return domain.ErrUserNotFound()
	}
	return nil
}

// Create inserts a user. Used by seeding and the ops CLI.
func (r *UserRepo) Create(ctx context.Context, u domain.User) error {
	u.Email = normalizeEmail(u.Email)
	if u.ID == "" {
		return domain.ErrMissingField("id")
	}
	if u.TenantID == "" {
		return domain.ErrMissingField("tenant_id")
	}
	if u.Email == "" {
		return domain.ErrMissingField("email")
	}
	if u.PasswordHash == "" {
		return domain.ErrMissingField("password_hash")
	}
	if u.Role == "" {
		u.Role = string(domain.RoleUser)
	}
	if u.Status == "" {
		u.Status = domain.StatusActive
	}
	if u.Username == "" {
		u.Username = u.Email
	}

	const q = `
INSERT INTO users (id, tenant_id, email, username, first_name, last_name, password_hash, role,
                   is_superuser, is_active, is_locked, status)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12);
`
	_, err := r.db.ExecContext(ctx, q,
		u.ID, u.TenantID, u.Email, u.Username, u.FirstName, u.LastName, u.PasswordHash, u.Role,
		u.IsSuperuser, u.IsActive, u.IsLocked, string(u.Status),
	)
	if err != nil {
		if strings.Contains(strings.ToLower(err.Error()), "duplicate") {
			return domain.New(domain.KindConflict, "user_exists", "user already exists")
		}
		return domain.ErrDBUnavailable(err)
	}
	return nil
}
