package http_handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/tenantcare/auth-service/internal/application/reset"
	"github.com/tenantcare/auth-service/internal/domain"
	"github.com/tenantcare/auth-service/internal/infrastructure/memory"
	"github.com/tenantcare/auth-service/internal/infrastructure/messaging/dispatch"
	"github.com/tenantcare/auth-service/internal/infrastructure/security"
	"github.com/tenantcare/auth-service/internal/transport/http/middleware"
)

var (
	tenantAcme = domain.Tenant{ID: "11111111-1111-1111-1111-111111111111", Schema: "acme", Name: "Acme"}

	userJane  = domain.User{ID: "u-jane", TenantID: tenantAcme.ID, Email: "jane@acme.test", Username: "jane", Role: "user", IsActive: true}
	userAdmin = domain.User{ID: "u-admin", TenantID: tenantAcme.ID, Email: "boss@acme.test", Username: "boss", Role: "admin", IsActive: true}
	userLock  = domain.User{ID: "u-lock", TenantID: tenantAcme.ID, Email: "lock@acme.test", Username: "lock", Role: "user", IsActive: true, IsLocked: true}
)

type handlerEnv struct {
	store *memory.Store
	pub   *memory.NoopPublisher
	disp  *dispatch.Dispatcher
	svc   *reset.Service
	reset *ResetHandler
	admin *AdminHandler
}

func newHandlerEnv(t *testing.T) *handlerEnv {
	t.Helper()
	ctx := context.Background()

	store := memory.NewStore()
	if err := store.UpsertTenant(ctx, tenantAcme, []string{"acme.test"}); err != nil {
		t.Fatalf("seed tenant: %v", err)
	}
	for _, u := range []domain.User{userJane, userAdmin, userLock} {
		if err := store.CreateUser(ctx, u); err != nil {
			t.Fatalf("seed user %s: %v", u.ID, err)
		}
	}

	pub := memory.NewNoopPublisher()
	disp := dispatch.New(pub, reset.DefaultEventTopic, time.Second)
	t.Cleanup(func() { _ = disp.Close(context.Background()) })

	svc := reset.NewService(store.Repos(), store, security.NewBcryptHasher(bcrypt.MinCost), disp, reset.Config{
		ResetBaseURL: "https://app.test/reset?token=",
	})

	return &handlerEnv{
		store: store,
		pub:   pub,
		disp:  disp,
		svc:   svc,
		reset: NewResetHandler(svc),
		admin: NewAdminHandler(svc),
	}
}

func (e *handlerEnv) seedToken(t *testing.T, token, userID string, createdAt time.Time, used bool) {
	t.Helper()
	tok := domain.NewPasswordResetToken(token, userID, tenantAcme.ID, createdAt, time.Hour)
	tok.Used = used
	if err := e.store.Repos().Tokens.Create(context.Background(), tok); err != nil {
		t.Fatalf("seed token: %v", err)
	}
}

// drain waits for in-flight publishes and returns what was published.
func (e *handlerEnv) drain(t *testing.T) []reset.Envelope {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := e.disp.Close(ctx); err != nil {
		t.Fatalf("drain dispatcher: %v", err)
	}
	return e.pub.Events()
}

// mustJSONBody marshals v to JSON and returns an io.Reader for request body.
func mustJSONBody(t *testing.T, v any) io.Reader {
	t.Helper()

	b, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("json marshal: %v", err)
	}
	return bytes.NewReader(b)
}

func mustReadJSON(t *testing.T, r io.Reader, out any) {
	t.Helper()

	raw, err := io.ReadAll(r)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	if err := json.Unmarshal(raw, out); err != nil {
		t.Fatalf("decode json failed; body=%s err=%v", string(raw), err)
	}
}

func withTenant(req *http.Request, t domain.Tenant) *http.Request {
	return req.WithContext(middleware.WithTenant(req.Context(), t))
}

func withClaims(req *http.Request, c reset.TokenClaims) *http.Request {
	return req.WithContext(middleware.WithClaims(req.Context(), c))
}

type errorBody struct {
	Error struct {
		Code    string            `json:"code"`
		Message string            `json:"message"`
		Meta    map[string]string `json:"meta"`
	} `json:"error"`
}

type detailBody struct {
	Detail string `json:"detail"`
	Code   string `json:"code"`
}
