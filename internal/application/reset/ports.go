package reset

import (
	"context"
	"time"

	"github.com/tenantcare/auth-service/internal/domain"
)

/*
TenantRepo
----------
Tenant and email-domain lookups. Misses return domain.ErrTenantNotFound.
*/
type TenantRepo interface {
	GetByEmailDomain(ctx context.Context, emailDomain string) (domain.Tenant, error)
	GetByID(ctx context.Context, id string) (domain.Tenant, error)
	GetBySchema(ctx context.Context, schema string) (domain.Tenant, error)
}

/*
UserRepo
--------
Every call is scoped to an explicit tenant id. Misses return domain.ErrUserNotFound.
*/
type UserRepo interface {
	GetByEmail(ctx context.Context, tenantID, email string) (domain.User, error)
	GetByUsername(ctx context.Context, tenantID, username string) (domain.User, error)
	GetByID(ctx context.Context, tenantID, id string) (domain.User, error)
	UpdatePassword(ctx context.Context, tenantID, userID, hash string, resetAt time.Time) error
}

/*
TokenRepo
---------
Reset token persistence.
MarkUsed must be conditional on used=false and return domain.ErrResetTokenUsed
when no row was flipped, so concurrent confirms are serialized by storage.
*/
type TokenRepo interface {
	Create(ctx context.Context, t domain.PasswordResetToken) error
	Get(ctx context.Context, tenantID, token string) (domain.PasswordResetToken, error)
	MarkUsed(ctx context.Context, tenantID, token string) error
	// TenantIDOf is used by the tenant middleware before any tenant is known.
	TenantIDOf(ctx context.Context, token string) (string, error)
}

type BlockedIPRepo interface {
	IsBlocked(ctx context.Context, tenantID, ip string) (bool, error)
}

// ActivityRepo is append-only.
type ActivityRepo interface {
	Create(ctx context.Context, a domain.UserActivity) error
}

// Repos groups the repositories a flow needs. Inside WithinTx the same
// shape is handed out bound to the transaction.
type Repos struct {
	Tenants    TenantRepo
	Users      UserRepo
	Tokens     TokenRepo
	BlockedIPs BlockedIPRepo
	Activities ActivityRepo
}

// TxRunner runs fn in a single transaction. A non-nil error from fn rolls back.
type TxRunner interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context, r Repos) error) error
}

// PasswordHasher turns an accepted new password into the stored hash.
type PasswordHasher interface {
	Hash(password string) (string, error)
}

/*
EventDispatcher
---------------
Hands an event to the message queue asynchronously. The returned task
completes with a PublishResult; callers never block on it.
*/
type EventDispatcher interface {
	Dispatch(evt Envelope) *PublishTask
}

/*
EventPublisher
--------------
The message-queue client used by the dispatcher (RabbitMQ, NATS, noop).
*/
type EventPublisher interface {
	Publish(ctx context.Context, topic string, evt Envelope) error
}

// AuditLogger receives every activity record after it has been written.
type AuditLogger interface {
	Activity(ctx context.Context, a domain.UserActivity)
}

// TokenClaims are the access-token claims trusted for admin calls.
type TokenClaims struct {
	UserID    string
	TenantID  string
	Role      string
	Superuser bool
	Exp       time.Time
}
