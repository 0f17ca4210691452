package memory

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/tenantcare/auth-service/internal/application/reset"
	"github.com/tenantcare/auth-service/internal/domain"
)

// Store is an in-memory implementation of every reset repository, used for
// local development and tests. Transactions are serialized and undone on error.
type Store struct {
	mu   sync.RWMutex
	txMu sync.Mutex

	tenants    map[string]domain.Tenant // id -> tenant
	domains    map[string]string        // email domain -> tenant id
	users      map[string]domain.User   // id -> user
	tokens     map[string]domain.PasswordResetToken
	blocked    map[string]bool // tenant id + "|" + ip
	activities []domain.UserActivity
	nextID     int64
}

func NewStore() *Store {
	return &Store{
		tenants: make(map[string]domain.Tenant),
		domains: make(map[string]string),
		users:   make(map[string]domain.User),
		tokens:  make(map[string]domain.PasswordResetToken),
		blocked: make(map[string]bool),
	}
}

// view is a repository handle. Inside a transaction undo collects the
// inverse of every write.
type view struct {
	s    *Store
	undo *[]func()
}

func (v view) onRollback(fn func()) {
	if v.undo != nil {
		*v.undo = append(*v.undo, fn)
	}
}

func (s *Store) reposFor(v view) reset.Repos {
	return reset.Repos{
		Tenants:    tenantRepo{v},
		Users:      userRepo{v},
		Tokens:     tokenRepo{v},
		BlockedIPs: blockedIPRepo{v},
		Activities: activityRepo{v},
	}
}

func (s *Store) Repos() reset.Repos {
	return s.reposFor(view{s: s})
}

func (s *Store) WithinTx(ctx context.Context, fn func(ctx context.Context, r reset.Repos) error) (err error) {
	s.txMu.Lock()
	defer s.txMu.Unlock()

	var undo []func()
	rollback := func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		for i := len(undo) - 1; i >= 0; i-- {
			undo[i]()
		}
	}
	defer func() {
		if p := recover(); p != nil {
			rollback()
			panic(p)
		}
	}()

	if err := fn(ctx, s.reposFor(view{s: s, undo: &undo})); err != nil {
		rollback()
		return err
	}
	return nil
}

func (s *Store) Ping(ctx context.Context) error { return nil }

// ---------- seeding / ops ----------

func (s *Store) UpsertTenant(ctx context.Context, t domain.Tenant, domains []string) error {
	if t.ID == "" || t.Schema == "" {
		return domain.ErrMissingField("tenant")
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	s.tenants[t.ID] = t
	for _, d := range domains {
		d = strings.ToLower(strings.TrimSpace(d))
		if d == "" {
			continue
		}
		if _, taken := s.domains[d]; !taken {
			s.domains[d] = t.ID
		}
	}
	return nil
}

func (s *Store) CreateUser(ctx context.Context, u domain.User) error {
	if u.ID == "" || u.TenantID == "" {
		return domain.ErrMissingField("id")
	}
	u.Email = strings.ToLower(strings.TrimSpace(u.Email))
	if u.Username == "" {
		u.Username = u.Email
	}
	if u.Status == "" {
		u.Status = domain.StatusActive
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.users {
		if existing.TenantID == u.TenantID && (existing.Email == u.Email || existing.Username == u.Username) {
			return domain.New(domain.KindConflict, "user_exists", "user already exists")
		}
	}
	s.users[u.ID] = u
	return nil
}

func (s *Store) BlockIP(ctx context.Context, tenantID, ip string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.blocked[tenantID+"|"+ip] = true
	return nil
}

// Activities returns a copy of every recorded activity, oldest first.
func (s *Store) Activities() []domain.UserActivity {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]domain.UserActivity(nil), s.activities...)
}

// Token returns the stored token, for tests and diagnostics.
func (s *Store) Token(token string) (domain.PasswordResetToken, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.tokens[token]
	return t, ok
}

// User returns the stored user, for tests and diagnostics.
func (s *Store) User(id string) (domain.User, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[id]
	return u, ok
}

// ---------- reset.TenantRepo ----------

type tenantRepo struct{ view }

func (r tenantRepo) GetByEmailDomain(ctx context.Context, emailDomain string) (domain.Tenant, error) {
	emailDomain = strings.ToLower(strings.TrimSpace(emailDomain))
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	id, ok := r.s.domains[emailDomain]
	if !ok {
		return domain.Tenant{}, domain.ErrTenantNotFound(emailDomain)
	}
	return r.s.tenants[id], nil
}

func (r tenantRepo) GetByID(ctx context.Context, id string) (domain.Tenant, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	t, ok := r.s.tenants[id]
	if !ok {
		return domain.Tenant{}, domain.ErrTenantNotFound(id)
	}
	return t, nil
}

func (r tenantRepo) GetBySchema(ctx context.Context, schema string) (domain.Tenant, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	for _, t := range r.s.tenants {
		if t.Schema == schema {
			return t, nil
		}
	}
	return domain.Tenant{}, domain.ErrTenantNotFound(schema)
}

// ---------- reset.UserRepo ----------

type userRepo struct{ view }

func (r userRepo) find(match func(domain.User) bool) (domain.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	for _, u := range r.s.users {
		if match(u) {
			return u, nil
		}
	}
	return domain.User{}, domain.ErrUserNotFound()
}

func (r userRepo) GetByEmail(ctx context.Context, tenantID, email string) (domain.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	return r.find(func(u domain.User) bool { return u.TenantID == tenantID && u.Email == email })
}

func (r userRepo) GetByUsername(ctx context.Context, tenantID, username string) (domain.User, error) {
	return r.find(func(u domain.User) bool { return u.TenantID == tenantID && u.Username == username })
}

func (r userRepo) GetByID(ctx context.Context, tenantID, id string) (domain.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	u, ok := r.s.users[id]
	if !ok || u.TenantID != tenantID {
		return domain.User{}, domain.ErrUserNotFound()
	}
	return u, nil
}

func (r userRepo) UpdatePassword(ctx context.Context, tenantID, userID, hash string, resetAt time.Time) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	prev, ok := r.s.users[userID]
	if !ok || prev.TenantID != tenantID {
		return domain.ErrUserNotFound()
	}
	u := prev
	u.PasswordHash = hash
	u.LastPasswordReset = &resetAt
	r.s.users[userID] = u
	r.onRollback(func() { r.s.users[userID] = prev })
	return nil
}

// ---------- reset.TokenRepo ----------

type tokenRepo struct{ view }

func (r tokenRepo) Create(ctx context.Context, t domain.PasswordResetToken) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, dup := r.s.tokens[t.Token]; dup {
		return domain.New(domain.KindConflict, "token_exists", "token already exists")
	}
	r.s.tokens[t.Token] = t
	r.onRollback(func() { delete(r.s.tokens, t.Token) })
	return nil
}

func (r tokenRepo) Get(ctx context.Context, tenantID, token string) (domain.PasswordResetToken, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	t, ok := r.s.tokens[token]
	if !ok || t.TenantID != tenantID {
		return domain.PasswordResetToken{}, domain.ErrResetTokenInvalid()
	}
	return t, nil
}

func (r tokenRepo) MarkUsed(ctx context.Context, tenantID, token string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	t, ok := r.s.tokens[token]
	if !ok || t.TenantID != tenantID || t.Used {
		return domain.ErrResetTokenUsed()
	}
	t.Used = true
	r.s.tokens[token] = t
	r.onRollback(func() {
		t.Used = false
		r.s.tokens[token] = t
	})
	return nil
}

func (r tokenRepo) TenantIDOf(ctx context.Context, token string) (string, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	t, ok := r.s.tokens[token]
	if !ok {
		return "", domain.ErrResetTokenInvalid()
	}
	return t.TenantID, nil
}

// ---------- reset.BlockedIPRepo ----------

type blockedIPRepo struct{ view }

func (r blockedIPRepo) IsBlocked(ctx context.Context, tenantID, ip string) (bool, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	return r.s.blocked[tenantID+"|"+ip], nil
}

// ---------- reset.ActivityRepo ----------

type activityRepo struct{ view }

func (r activityRepo) Create(ctx context.Context, a domain.UserActivity) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	r.s.nextID++
	a.ID = r.s.nextID
	r.s.activities = append(r.s.activities, a)

	id := a.ID
	r.onRollback(func() {
		for i := range r.s.activities {
			if r.s.activities[i].ID == id {
				r.s.activities = append(r.s.activities[:i], r.s.activities[i+1:]...)
				return
			}
		}
	})
	return nil
}
