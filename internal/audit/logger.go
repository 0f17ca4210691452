package audit

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/tenantcare/auth-service/internal/domain"
	appCtx "github.com/tenantcare/auth-service/internal/pkg/context"
)

// Logger provides structured audit logging for password reset events.
// Durable records live in user_activity; these lines feed log pipelines.
type Logger struct {
	log zerolog.Logger
}

// New creates a new audit logger
func New(log zerolog.Logger) *Logger {
	return &Logger{
		log: log.With().Bool("audit", true).Logger(),
	}
}

// Activity logs a user activity record after it has been stored.
func (l *Logger) Activity(ctx context.Context, a domain.UserActivity) {
	ev := l.log.Info()
	if !a.Success {
		ev = l.log.Warn()
	}
	ev.
		Str("action", a.Action).
		Bool("success", a.Success).
		Str("user_id", a.UserID).
		Str("tenant_id", a.TenantID).
		Str("performed_by", a.PerformedBy).
		Str("reason", a.Reason()).
		Str("ip", a.IPAddress).
		Str("request_id", appCtx.GetRequestID(ctx)).
		Msg("User activity recorded")
}
