package domain

import "strings"

// Tenant is an isolated customer namespace.
type Tenant struct {
	ID             string // unique id exposed to other services
	Schema         string
	Name           string
	Logo           string
	PrimaryColor   string
	SecondaryColor string
}

// Domain maps an email domain to exactly one tenant.
type Domain struct {
	Domain    string
	TenantID  string
	IsPrimary bool
}

// EmailDomain returns the part of an email address after the last '@'.
// ok is false for addresses without a local part or a domain.
func EmailDomain(email string) (string, bool) {
	email = strings.TrimSpace(email)
	at := strings.LastIndex(email, "@")
	if at <= 0 || at == len(email)-1 {
		return "", false
	}
	return strings.ToLower(email[at+1:]), true
}
