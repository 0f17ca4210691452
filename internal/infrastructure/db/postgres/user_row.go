package postgres

import (
	"database/sql"
	"time"

	"github.com/tenantcare/auth-service/internal/domain"
)

type tenantRow struct {
	ID             string `db:"id"`
	Schema         string `db:"schema_name"`
	Name           string `db:"name"`
	Logo           string `db:"logo"`
	PrimaryColor   string `db:"primary_color"`
	SecondaryColor string `db:"secondary_color"`
}

func (r tenantRow) toDomain() domain.Tenant {
	return domain.Tenant{
		ID:             r.ID,
		Schema:         r.Schema,
		Name:           r.Name,
		Logo:           r.Logo,
		PrimaryColor:   r.PrimaryColor,
		SecondaryColor: r.SecondaryColor,
	}
}

type userRow struct {
	ID                string       `db:"id"`
	TenantID          string       `db:"tenant_id"`
	Email             string       `db:"email"`
	Username          string       `db:"username"`
	FirstName         string       `db:"first_name"`
	LastName          string       `db:"last_name"`
	PasswordHash      string       `db:"password_hash"`
	Role              string       `db:"role"`
	IsSuperuser       bool         `db:"is_superuser"`
	IsActive          bool         `db:"is_active"`
	IsLocked          bool         `db:"is_locked"`
	Status            string       `db:"status"`
	LastPasswordReset sql.NullTime `db:"last_password_reset"`
}

func (r userRow) toDomain() domain.User {
	u := domain.User{
		ID:           r.ID,
		TenantID:     r.TenantID,
		Email:        r.Email,
		Username:     r.Username,
		FirstName:    r.FirstName,
		LastName:     r.LastName,
		PasswordHash: r.PasswordHash,
		Role:         r.Role,
		IsSuperuser:  r.IsSuperuser,
		IsActive:     r.IsActive,
		IsLocked:     r.IsLocked,
		Status:       domain.UserStatus(r.Status),
	}
	if r.LastPasswordReset.Valid {
		t := r.LastPasswordReset.Time
		u.LastPasswordReset = &t
	}
	return u
}

type tokenRow struct {
	Token     string    `db:"token"`
	UserID    string    `db:"user_id"`
	TenantID  string    `db:"tenant_id"`
	CreatedAt time.Time `db:"created_at"`
	ExpiresAt time.Time `db:"expires_at"`
	Used      bool      `db:"used"`
}

func (r tokenRow) toDomain() domain.PasswordResetToken {
	return domain.PasswordResetToken{
		Token:     r.Token,
		UserID:    r.UserID,
		TenantID:  r.TenantID,
		CreatedAt: r.CreatedAt,
		ExpiresAt: r.ExpiresAt,
		Used:      r.Used,
	}
}

type activityRow struct {
	ID          int64          `db:"id"`
	UserID      sql.NullString `db:"user_id"`
	TenantID    sql.NullString `db:"tenant_id"`
	Action      string         `db:"action"`
	PerformedBy sql.NullString `db:"performed_by"`
	Details     []byte         `db:"details"`
	IPAddress   string         `db:"ip_address"`
	UserAgent   string         `db:"user_agent"`
	Success     bool           `db:"success"`
	CreatedAt   time.Time      `db:"created_at"`
}

// nullIfEmpty stores empty ids as NULL.
func nullIfEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}
