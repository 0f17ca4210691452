package domain

type Role string

const (
	// Regular tenant member.
	RoleUser Role = "user"
	// Tenant staff with user management duties.
	RoleManager Role = "manager"
	// Admin users can trigger password resets for other members of their tenant.
	RoleAdmin Role = "admin"
)

func IsValidRole(r string) bool {
	return r == string(RoleUser) || r == string(RoleManager) || r == string(RoleAdmin)
}
