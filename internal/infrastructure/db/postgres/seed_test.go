package postgres

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/tenantcare/auth-service/internal/domain"
)

type fakeSeederHasher struct {
	mu    sync.Mutex
	err   error
	calls int
}

func (h *fakeSeederHasher) Hash(pw string) (string, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.calls++
	if h.err != nil {
		return "", h.err
	}
	return "HASH(" + pw + ")", nil
}

type fakeSeeder struct {
	mu        sync.Mutex
	tenants   []domain.Tenant
	domains   []string
	created   []domain.User
	tenantErr error
	errOnce   error
	errCnt    int
}

func (s *fakeSeeder) UpsertTenant(ctx context.Context, t domain.Tenant, domains []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.tenantErr != nil {
		return s.tenantErr
	}
	s.tenants = append(s.tenants, t)
	s.domains = append(s.domains, domains...)
	return nil
}

func (s *fakeSeeder) CreateUser(ctx context.Context, u domain.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.errOnce != nil && s.errCnt == 0 {
		s.errCnt++
		return s.errOnce // simulate duplicate/any failure once
	}
	s.created = append(s.created, u)
	return nil
}

func TestSeedDemo_CreatesTenantAndActiveUsers(t *testing.T) {
	t.Parallel()

	s := &fakeSeeder{}
	hasher := &fakeSeederHasher{}

	if err := SeedDemo(context.Background(), s, hasher); err != nil {
		t.Fatalf("expected nil, got %v", err)
	}

	if len(s.tenants) != 1 || s.tenants[0].Schema != "demo" {
		t.Fatalf("expected demo tenant, got %+v", s.tenants)
	}
	if len(s.domains) != 1 || s.domains[0] != "example.com" {
		t.Fatalf("expected example.com domain, got %v", s.domains)
	}
	if hasher.calls != 3 {
		t.Fatalf("expected hasher called 3 times, got %d", hasher.calls)
	}
	if len(s.created) != 3 {
		t.Fatalf("expected 3 users created, got %d", len(s.created))
	}

	for _, u := range s.created {
		if u.ID == "" || u.Email == "" || u.Username == "" {
			t.Fatalf("expected identifiers set, got %+v", u)
		}
		if u.TenantID != DemoTenant.ID {
			t.Fatalf("expected demo tenant id, got %q", u.TenantID)
		}
		if u.Blocked() {
			t.Fatalf("expected seeded users to be usable, got %+v", u)
		}
	}
}

func TestSeedDemo_IgnoresCreateErrors_RestStillSeeded(t *testing.T) {
	t.Parallel()

	s := &fakeSeeder{errOnce: errors.New("duplicate")}

	if err := SeedDemo(context.Background(), s, &fakeSeederHasher{}); err != nil {
		t.Fatalf("expected nil, got %v", err)
	}
	if len(s.created) != 2 {
		t.Fatalf("expected 2 successful creates after one error, got %d", len(s.created))
	}
}

func TestSeedDemo_HashFail_SkipsThatUser(t *testing.T) {
	t.Parallel()

	s := &fakeSeeder{}
	hasher := &fakeSeederHasher{err: errors.New("hash fail")}

	if err := SeedDemo(context.Background(), s, hasher); err != nil {
		t.Fatalf("expected nil, got %v", err)
	}
	if len(s.created) != 0 {
		t.Fatalf("expected 0 created when hash always fails, got %d", len(s.created))
	}
}

func TestSeedDemo_TenantError_Returned(t *testing.T) {
	t.Parallel()

	s := &fakeSeeder{tenantErr: errors.New("db down")}

	if err := SeedDemo(context.Background(), s, &fakeSeederHasher{}); err == nil {
		t.Fatalf("expected error")
	}
	if len(s.created) != 0 {
		t.Fatalf("expected no users without a tenant")
	}
}
