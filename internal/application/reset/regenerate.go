package reset

import (
	"context"
	"strings"

	"github.com/tenantcare/auth-service/internal/domain"
	"github.com/tenantcare/auth-service/internal/logger"
)

type RegenerateInput struct {
	ActorID       string
	ActorTenantID string
	Email         string
	Meta          RequestMeta
}

// RegeneratePassword lets an admin or superuser issue a reset token for
// another user of their own tenant.
func (s *Service) RegeneratePassword(ctx context.Context, in RegenerateInput) (ResetRequestResult, error) {
	email := strings.ToLower(strings.TrimSpace(in.Email))

	fail := func(err error, userID string) (ResetRequestResult, error) {
		a := s.activity(domain.ActionPasswordResetRegenerate, in.Meta, false, reasonFor(err))
		a.TenantID = in.ActorTenantID
		a.UserID = userID
		a.PerformedBy = in.ActorID
		s.recordFailure(ctx, a)
		if domain.IsUnexpected(err) {
			logger.WithCtx(ctx).Error().Err(err).Str("actor_id", in.ActorID).Msg("password regeneration failed")
			err = asDomainError(err)
		}
		return ResetRequestResult{}, err
	}

	if in.ActorID == "" || in.ActorTenantID == "" {
		return fail(domain.ErrTokenMissing(), "")
	}

	actor, err := s.repos.Users.GetByID(ctx, in.ActorTenantID, in.ActorID)
	if err != nil {
		if domain.Is(err, "user_not_found") {
			return fail(domain.ErrForbidden(), "")
		}
		return fail(err, "")
	}
	if !actor.CanAdminister() {
		return fail(domain.ErrInsufficientRole(string(domain.RoleAdmin)), "")
	}
	if email == "" {
		return fail(domain.ErrMissingField("email"), "")
	}

	target, err := s.repos.Users.GetByEmail(ctx, actor.TenantID, email)
	if err != nil {
		if domain.Is(err, "user_not_found") {
			return fail(domain.ErrInvalidField("email", domain.ReasonTargetUserNotFound), "")
		}
		return fail(err, "")
	}
	if target.ID == actor.ID {
		return fail(domain.ErrCannotAffectSelf(), target.ID)
	}

	tenant, err := s.repos.Tenants.GetByID(ctx, actor.TenantID)
	if err != nil {
		return fail(err, target.ID)
	}

	res, err := s.issue(ctx, tenant, target, in.Meta, domain.ActionPasswordResetRegenerate, actor.ID, domain.ReasonResetRegenerated)
	if err != nil {
		return fail(err, target.ID)
	}
	return res, nil
}
