package reset

import (
	"context"
	"errors"
	"fmt"

	"github.com/tenantcare/auth-service/internal/domain"
	"github.com/tenantcare/auth-service/internal/logger"
)

// activity builds an audit record bound to the request metadata.
func (s *Service) activity(action string, meta RequestMeta, success bool, reason string) domain.UserActivity {
	a := domain.UserActivity{
		Action:    action,
		IPAddress: meta.IP,
		UserAgent: meta.UserAgent,
		Success:   success,
		CreatedAt: s.now(),
	}
	if reason != "" {
		a.Details = map[string]string{"reason": reason}
	}
	return a
}

// record writes a through repo and then hands it to the audit logger.
func (s *Service) record(ctx context.Context, repo ActivityRepo, a domain.UserActivity) error {
	if err := repo.Create(ctx, a); err != nil {
		return err
	}
	s.audit.Activity(ctx, a)
	return nil
}

// recordFailure is best-effort: a write error is logged and swallowed so the
// caller can return its original error.
func (s *Service) recordFailure(ctx context.Context, a domain.UserActivity) {
	if err := s.record(ctx, s.repos.Activities, a); err != nil {
		logger.WithCtx(ctx).Error().
			Err(err).
			Str("action", a.Action).
			Str("reason", a.Reason()).
			Msg("failed to write user activity")
	}
}

// RecordRejected audits a request refused before it reached a flow, e.g. by
// transport-level validation. tenant may be nil.
func (s *Service) RecordRejected(ctx context.Context, action string, tenant *domain.Tenant, meta RequestMeta, err error) {
	a := s.activity(action, meta, false, reasonFor(err))
	if tenant != nil {
		a.TenantID = tenant.ID
	}
	s.recordFailure(ctx, a)
}

// reasonFor maps a flow error to the audit reason stored with the record.
func reasonFor(err error) string {
	var de *domain.Error
	if !errors.As(err, &de) {
		return fmt.Sprintf(domain.ReasonInternalError, err.Error())
	}
	switch de.Code {
	case "tenant_not_found":
		return fmt.Sprintf(domain.ReasonNoTenantForDomain, de.Meta["domain"])
	case "tenant_not_specified":
		return domain.ReasonTenantNotSpecified
	case "user_not_found":
		return domain.ReasonUserNotFound
	case "account_locked":
		return domain.ReasonAccountLocked
	case "ip_blocked":
		return domain.ReasonIPBlocked
	case "token_not_found":
		return domain.ReasonInvalidToken
	case "token_used":
		return domain.ReasonTokenUsed
	case "token_expired":
		return domain.ReasonTokenExpired
	case "weak_password", "missing_field":
		r := de.Message
		if de.Meta != nil && de.Meta["reason"] != "" {
			r = de.Meta["reason"]
		}
		return fmt.Sprintf(domain.ReasonWeakPassword, r)
	case "email_or_username_required":
		return domain.ReasonMissingIdentifier
	case "email_and_username":
		return domain.ReasonBothIdentifiersGiven
	case "invalid_field":
		if de.Meta != nil && de.Meta["reason"] != "" {
			return de.Meta["reason"]
		}
	case "insufficient_role":
		return domain.ReasonNotAdmin
	case "cannot_affect_self":
		return domain.ReasonCannotResetOwn
	}
	if domain.IsUnexpected(err) {
		return fmt.Sprintf(domain.ReasonInternalError, err.Error())
	}
	return de.Message
}

// asDomainError wraps non-domain errors so the HTTP layer never sees a raw cause.
func asDomainError(err error) error {
	var de *domain.Error
	if errors.As(err, &de) {
		return err
	}
	return domain.ErrInternal(err)
}

func codeOf(err error) string {
	var de *domain.Error
	if errors.As(err, &de) {
		return de.Code
	}
	return "non_domain_error"
}
