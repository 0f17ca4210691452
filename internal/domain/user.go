package domain

import (
	"strings"
	"time"
)

type UserStatus string

const (
	StatusActive    UserStatus = "active"
	StatusSuspended UserStatus = "suspended"
)

type User struct {
	ID                string
	TenantID          string
	Email             string
	Username          string
	FirstName         string
	LastName          string
	PasswordHash      string
	Role              string
	IsSuperuser       bool
	IsActive          bool
	IsLocked          bool
	Status            UserStatus
	LastPasswordReset *time.Time
}

// FullName is the display name sent to the notification service.
func (u User) FullName() string {
	return strings.TrimSpace(u.FirstName + " " + u.LastName)
}

// Blocked reports whether the account may not take part in a password reset.
func (u User) Blocked() bool {
	return u.IsLocked || u.Status == StatusSuspended || !u.IsActive
}

// CanAdminister reports whether the user may trigger resets for other users.
func (u User) CanAdminister() bool {
	return u.IsSuperuser || u.Role == string(RoleAdmin)
}

// BlockedIP is a per-tenant denylist entry.
type BlockedIP struct {
	TenantID  string
	IPAddress string
	Active    bool
}
