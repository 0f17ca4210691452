package postgres

import (
	"context"
	"database/sql"

	"github.com/tenantcare/auth-service/internal/application/reset"
	"github.com/tenantcare/auth-service/internal/domain"
)

// Store owns the connection pool and hands out repositories bound either to
// the pool or to a transaction.
type Store struct {
	db *sql.DB

	Tenants    *TenantRepo
	Users      *UserRepo
	Tokens     *TokenRepo
	BlockedIPs *BlockedIPRepo
	Activities *ActivityRepo
}

func NewStore(db *sql.DB) *Store {
	return &Store{
		db:         db,
		Tenants:    NewTenantRepo(db),
		Users:      NewUserRepo(db),
		Tokens:     NewTokenRepo(db),
		BlockedIPs: NewBlockedIPRepo(db),
		Activities: NewActivityRepo(db),
	}
}

func reposFor(db dbtx) reset.Repos {
	return reset.Repos{
		Tenants:    NewTenantRepo(db),
		Users:      NewUserRepo(db),
		Tokens:     NewTokenRepo(db),
		BlockedIPs: NewBlockedIPRepo(db),
		Activities: NewActivityRepo(db),
	}
}

// Repos returns repositories bound to the pool.
func (s *Store) Repos() reset.Repos {
	return reset.Repos{
		Tenants:    s.Tenants,
		Users:      s.Users,
		Tokens:     s.Tokens,
		BlockedIPs: s.BlockedIPs,
		Activities: s.Activities,
	}
}

// WithinTx runs fn in a transaction. The transaction commits only if fn
// returns nil; errors and panics roll it back.
func (s *Store) WithinTx(ctx context.Context, fn func(ctx context.Context, r reset.Repos) error) (err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return domain.ErrDBUnavailable(err)
	}
	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
	}()

	if err := fn(ctx, reposFor(tx)); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return domain.ErrDBUnavailable(err)
	}
	return nil
}

func (s *Store) Ping(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return domain.ErrDBUnavailable(err)
	}
	return nil
}

// UpsertTenant and CreateUser make Store a Seeder.
func (s *Store) UpsertTenant(ctx context.Context, t domain.Tenant, domains []string) error {
	return s.Tenants.Upsert(ctx, t, domains)
}

func (s *Store) CreateUser(ctx context.Context, u domain.User) error {
	return s.Users.Create(ctx, u)
}

func (s *Store) BlockIP(ctx context.Context, tenantID, ip string) error {
	return s.BlockedIPs.Block(ctx, tenantID, ip)
}
