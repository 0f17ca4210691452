package postgres

import (
	"context"

	"github.com/google/uuid"

	"github.com/tenantcare/auth-service/internal/domain"
	"github.com/tenantcare/auth-service/internal/logger"
)

type SeederHasher interface {
	Hash(password string) (string, error)
}

// Seeder is implemented by the postgres and in-memory stores.
type Seeder interface {
	UpsertTenant(ctx context.Context, t domain.Tenant, domains []string) error
	CreateUser(ctx context.Context, u domain.User) error
}

// DemoTenant is the tenant created by SeedDemo.
var DemoTenant = domain.Tenant{
	ID:             "6f1f7c2e-3a55-4d1e-9a7c-0d2b5e1a9c01",
	Schema:         "demo",
	Name:           "Demo Clinic",
	Logo:           "https://static.example.com/demo/logo.png",
	PrimaryColor:   "#0f766e",
	SecondaryColor: "#f0fdfa",
}

// SeedDemo creates a demo tenant with the example.com email domain and three users.
// It is restart safe: duplicates are skipped.
func SeedDemo(ctx context.Context, s Seeder, hasher SeederHasher) error {
	if err := s.UpsertTenant(ctx, DemoTenant, []string{"example.com"}); err != nil {
		return err
	}

	type seedUser struct {
		Email     string
		Username  string
		Role      string
		Superuser bool
		Pass      string
	}

	seeds := []seedUser{
		{Email: "admin@example.com", Username: "admin", Role: "admin", Pass: "AdminPassword123"},
		{Email: "manager@example.com", Username: "manager", Role: "manager", Pass: "ManagerPassword123"},
		{Email: "user@example.com", Username: "user", Role: "user", Pass: "UserPassword123"},
	}

	for _, sd := range seeds {
		hash, err := hasher.Hash(sd.Pass)
		if err != nil {
			logger.Logger.Warn().Err(err).Str("email", sd.Email).Msg("seed: hash failed")
			continue
		}

		u := domain.User{
			ID:           uuid.NewString(),
			TenantID:     DemoTenant.ID,
			Email:        sd.Email,
			Username:     sd.Username,
			PasswordHash: hash,
			Role:         sd.Role,
			IsSuperuser:  sd.Superuser,
			IsActive:     true,
			Status:       domain.StatusActive,
		}

		if err := s.CreateUser(ctx, u); err != nil {
			// ignore duplicates (restart safe)
			continue
		}
	}

	logger.Logger.Info().Str("tenant", DemoTenant.Schema).Msg("seed: demo tenant seeded")
	return nil
}
