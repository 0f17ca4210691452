package reset

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/tenantcare/auth-service/internal/domain"
)

/*
fakeDB backs every repository port with maps. WithinTx snapshots the
mutable tables and restores them when fn fails.
*/

type fakeDB struct {
	mu   sync.Mutex
	txMu sync.Mutex // one transaction at a time

	tenants    map[string]domain.Tenant // id -> tenant
	domains    map[string]string        // email domain -> tenant id
	users      map[string]domain.User   // id -> user
	tokens     map[string]domain.PasswordResetToken
	blocked    map[string]bool // tenant|ip
	activities []domain.UserActivity

	// injected errors
	tenantErr      error
	getUserErr     error
	createTokenErr error
	updatePwdErr   error
	activityErr    error // every activity insert fails
	txActivityErr  error // only activity inserts inside a transaction fail
	blockedErr     error

	inTx   bool
	txRuns int
}

func newFakeDB() *fakeDB {
	return &fakeDB{
		tenants: map[string]domain.Tenant{},
		domains: map[string]string{},
		users:   map[string]domain.User{},
		tokens:  map[string]domain.PasswordResetToken{},
		blocked: map[string]bool{},
	}
}

func (db *fakeDB) repos() Repos {
	return Repos{
		Tenants:    fakeTenants{db},
		Users:      fakeUsers{db},
		Tokens:     fakeTokens{db},
		BlockedIPs: fakeBlockedIPs{db},
		Activities: fakeActivities{db},
	}
}

func (db *fakeDB) WithinTx(ctx context.Context, fn func(ctx context.Context, r Repos) error) error {
	db.txMu.Lock()
	defer db.txMu.Unlock()

	db.mu.Lock()
	db.txRuns++
	users := make(map[string]domain.User, len(db.users))
	for k, v := range db.users {
		users[k] = v
	}
	tokens := make(map[string]domain.PasswordResetToken, len(db.tokens))
	for k, v := range db.tokens {
		tokens[k] = v
	}
	acts := append([]domain.UserActivity(nil), db.activities...)
	db.inTx = true
	db.mu.Unlock()

	err := fn(ctx, db.repos())

	db.mu.Lock()
	defer db.mu.Unlock()
	db.inTx = false
	if err != nil {
		db.users = users
		db.tokens = tokens
		db.activities = acts
	}
	return err
}

func (db *fakeDB) addTenant(t domain.Tenant, emailDomains ...string) {
	db.tenants[t.ID] = t
	for _, d := range emailDomains {
		db.domains[d] = t.ID
	}
}

func (db *fakeDB) addUser(u domain.User) {
	db.users[u.ID] = u
}

func (db *fakeDB) activitiesFor(action string) []domain.UserActivity {
	db.mu.Lock()
	defer db.mu.Unlock()
	var out []domain.UserActivity
	for _, a := range db.activities {
		if a.Action == action {
			out = append(out, a)
		}
	}
	return out
}

func (db *fakeDB) lastActivity(t *testing.T) domain.UserActivity {
	t.Helper()
	db.mu.Lock()
	defer db.mu.Unlock()
	if len(db.activities) == 0 {
		t.Fatalf("expected an activity record, got none")
	}
	return db.activities[len(db.activities)-1]
}

type fakeTenants struct{ db *fakeDB }

func (f fakeTenants) GetByEmailDomain(ctx context.Context, emailDomain string) (domain.Tenant, error) {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	if f.db.tenantErr != nil {
		return domain.Tenant{}, f.db.tenantErr
	}
	id, ok := f.db.domains[emailDomain]
	if !ok {
		return domain.Tenant{}, domain.ErrTenantNotFound(emailDomain)
	}
	return f.db.tenants[id], nil
}

func (f fakeTenants) GetByID(ctx context.Context, id string) (domain.Tenant, error) {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	if f.db.tenantErr != nil {
		return domain.Tenant{}, f.db.tenantErr
	}
	t, ok := f.db.tenants[id]
	if !ok {
		return domain.Tenant{}, domain.ErrTenantNotFound(id)
	}
	return t, nil
}

func (f fakeTenants) GetBySchema(ctx context.Context, schema string) (domain.Tenant, error) {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	for _, t := range f.db.tenants {
		if t.Schema == schema {
			return t, nil
		}
	}
	return domain.Tenant{}, domain.ErrTenantNotFound(schema)
}

type fakeUsers struct{ db *fakeDB }

func (f fakeUsers) find(match func(domain.User) bool) (domain.User, error) {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	if f.db.getUserErr != nil {
		return domain.User{}, f.db.getUserErr
	}
	for _, u := range f.db.users {
		if match(u) {
			return u, nil
		}
	}
	return domain.User{}, domain.ErrUserNotFound()
}

func (f fakeUsers) GetByEmail(ctx context.Context, tenantID, email string) (domain.User, error) {
	return f.find(func(u domain.User) bool { return u.TenantID == tenantID && u.Email == email })
}

func (f fakeUsers) GetByUsername(ctx context.Context, tenantID, username string) (domain.User, error) {
	return f.find(func(u domain.User) bool { return u.TenantID == tenantID && u.Username == username })
}

func (f fakeUsers) GetByID(ctx context.Context, tenantID, id string) (domain.User, error) {
	return f.find(func(u domain.User) bool { return u.TenantID == tenantID && u.ID == id })
}

func (f fakeUsers) UpdatePassword(ctx context.Context, tenantID, userID, hash string, resetAt time.Time) error {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	if f.db.updatePwdErr != nil {
		return f.db.updatePwdErr
	}
	u, ok := f.db.users[userID]
	if !ok || u.TenantID != tenantID {
		return domain.ErrUserNotFound()
	}
	u.PasswordHash = hash
	u.LastPasswordReset = &resetAt
	f.db.users[userID] = u
	return nil
}

type fakeTokens struct{ db *fakeDB }

func (f fakeTokens) Create(ctx context.Context, t domain.PasswordResetToken) error {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	if f.db.createTokenErr != nil {
		return f.db.createTokenErr
	}
	if _, dup := f.db.tokens[t.Token]; dup {
		return errors.New("duplicate token")
	}
	f.db.tokens[t.Token] = t
	return nil
}

func (f fakeTokens) Get(ctx context.Context, tenantID, token string) (domain.PasswordResetToken, error) {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	t, ok := f.db.tokens[token]
	if !ok || t.TenantID != tenantID {
		return domain.PasswordResetToken{}, domain.ErrResetTokenInvalid()
	}
	return t, nil
}

func (f fakeTokens) MarkUsed(ctx context.Context, tenantID, token string) error {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	t, ok := f.db.tokens[token]
	if !ok || t.TenantID != tenantID {
		return domain.ErrResetTokenInvalid()
	}
	if t.Used {
		return domain.ErrResetTokenUsed()
	}
	t.Used = true
	f.db.tokens[token] = t
	return nil
}

func (f fakeTokens) TenantIDOf(ctx context.Context, token string) (string, error) {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	t, ok := f.db.tokens[token]
	if !ok {
		return "", domain.ErrResetTokenInvalid()
	}
	return t.TenantID, nil
}

type fakeBlockedIPs struct{ db *fakeDB }

func (f fakeBlockedIPs) IsBlocked(ctx context.Context, tenantID, ip string) (bool, error) {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	if f.db.blockedErr != nil {
		return false, f.db.blockedErr
	}
	return f.db.blocked[tenantID+"|"+ip], nil
}

type fakeActivities struct{ db *fakeDB }

func (f fakeActivities) Create(ctx context.Context, a domain.UserActivity) error {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	if f.db.activityErr != nil {
		return f.db.activityErr
	}
	if f.db.inTx && f.db.txActivityErr != nil {
		return f.db.txActivityErr
	}
	a.ID = int64(len(f.db.activities) + 1)
	f.db.activities = append(f.db.activities, a)
	return nil
}

type fakeHasher struct {
	hashFn func(pw string) (string, error)
}

func (h *fakeHasher) Hash(password string) (string, error) {
	if h.hashFn != nil {
		return h.hashFn(password)
	}
	return "hash:" + password, nil
}

// fakeDispatcher completes every task immediately with err.
type fakeDispatcher struct {
	mu     sync.Mutex
	events []Envelope
	err    error
}

func (d *fakeDispatcher) Dispatch(evt Envelope) *PublishTask {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.events = append(d.events, evt)
	return CompletedTask(PublishResult{EventID: evt.Metadata.EventID, Topic: DefaultEventTopic, Err: d.err})
}

type fakeAudit struct {
	mu      sync.Mutex
	entries []domain.UserActivity
}

func (a *fakeAudit) Activity(ctx context.Context, act domain.UserActivity) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.entries = append(a.entries, act)
}

/*
Fixtures
*/

var fixedNow = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

var (
	tenantAcme = domain.Tenant{
		ID:             "11111111-1111-1111-1111-111111111111",
		Schema:         "acme",
		Name:           "Acme",
		Logo:           "https://cdn.acme.test/logo.png",
		PrimaryColor:   "#000000",
		SecondaryColor: "#ffffff",
	}
	tenantGlobex = domain.Tenant{
		ID:     "22222222-2222-2222-2222-222222222222",
		Schema: "globex",
		Name:   "Globex",
	}
)

func activeUser(id, tenantID, email, username string) domain.User {
	return domain.User{
		ID:           id,
		TenantID:     tenantID,
		Email:        email,
		Username:     username,
		FirstName:    "Jane",
		LastName:     "Doe",
		PasswordHash: "hash:Oldpassw0rd",
		Role:         string(domain.RoleUser),
		IsActive:     true,
		Status:       domain.StatusActive,
	}
}

type testEnv struct {
	svc    *Service
	db     *fakeDB
	hasher *fakeHasher
	events *fakeDispatcher
	audit  *fakeAudit
	now    *time.Time
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	db := newFakeDB()
	db.addTenant(tenantAcme, "acme.test")
	db.addTenant(tenantGlobex, "globex.test")
	db.addUser(activeUser("u-1", tenantAcme.ID, "jane@acme.test", "jane"))

	now := fixedNow
	env := &testEnv{
		db:     db,
		hasher: &fakeHasher{},
		events: &fakeDispatcher{},
		audit:  &fakeAudit{},
		now:    &now,
	}
	env.svc = NewService(db.repos(), db, env.hasher, env.events, Config{
		ResetBaseURL: "https://app.test/reset?token=",
	}).
		WithAudit(env.audit).
		WithClock(func() time.Time { return *env.now })
	return env
}

func (e *testEnv) seedToken(t *testing.T, token, userID, tenantID string, createdAt time.Time, used bool) {
	t.Helper()
	tok := domain.NewPasswordResetToken(token, userID, tenantID, createdAt, time.Hour)
	tok.Used = used
	e.db.tokens[token] = tok
}

func requireErrCode(t *testing.T, err error, code string) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected error code=%q, got nil", code)
	}
	if !domain.Is(err, code) {
		t.Fatalf("expected code=%q, got err=%v", code, err)
	}
}
