package reset

import (
	"context"
	"fmt"
	"runtime/debug"

	"github.com/tenantcare/auth-service/internal/domain"
	"github.com/tenantcare/auth-service/internal/logger"
)

type ConfirmInput struct {
	Token       string
	NewPassword string
	// Tenant is resolved by the HTTP layer from the submitted token.
	// nil means the token matched no tenant.
	Tenant *domain.Tenant
	Meta   RequestMeta
}

// ConfirmReset consumes a reset token and sets the new password.
// The password update, token consumption and success activity commit together.
func (s *Service) ConfirmReset(ctx context.Context, in ConfirmInput) (err error) {
	var tenantID, userID string
	if in.Tenant != nil {
		tenantID = in.Tenant.ID
	}

	defer func() {
		if r := recover(); r != nil {
			err = s.confirmFailed(ctx, in.Meta, tenantID, userID, fmt.Errorf("panic: %v", r), debug.Stack())
		}
	}()

	if err := domain.ValidatePasswordPolicy(in.NewPassword); err != nil {
		return s.confirmFailed(ctx, in.Meta, tenantID, "", err, nil)
	}
	if in.Token == "" {
		return s.confirmFailed(ctx, in.Meta, tenantID, "", domain.ErrMissingField("token"), nil)
	}
	if in.Tenant == nil {
		return s.confirmFailed(ctx, in.Meta, "", "", domain.ErrResetTokenInvalid(), nil)
	}

	tok, err := s.consumableToken(ctx, tenantID, in.Token)
	if err != nil {
		return s.confirmFailed(ctx, in.Meta, tenantID, tok.UserID, err, nil)
	}
	userID = tok.UserID

	user, err := s.repos.Users.GetByID(ctx, tenantID, tok.UserID)
	if err != nil {
		return s.confirmFailed(ctx, in.Meta, tenantID, userID, err, nil)
	}
	if user.Blocked() {
		return s.confirmFailed(ctx, in.Meta, tenantID, userID, domain.ErrAccountLocked(), nil)
	}

	hash, err := s.hasher.Hash(in.NewPassword)
	if err != nil {
		return s.confirmFailed(ctx, in.Meta, tenantID, userID, err, nil)
	}

	now := s.now()
	a := s.activity(domain.ActionPasswordResetConfirm, in.Meta, true, domain.ReasonResetConfirmed)
	a.TenantID = tenantID
	a.UserID = userID

	err = s.tx.WithinTx(ctx, func(ctx context.Context, r Repos) error {
		if err := r.Users.UpdatePassword(ctx, tenantID, userID, hash, now); err != nil {
			return err
		}
		if err := r.Tokens.MarkUsed(ctx, tenantID, tok.Token); err != nil {
			return err
		}
		return r.Activities.Create(ctx, a)
	})
	if err != nil {
		return s.confirmFailed(ctx, in.Meta, tenantID, userID, err, nil)
	}
	s.audit.Activity(ctx, a)
	return nil
}

// consumableToken loads a token within the tenant and checks it has not been
// used and has not expired. The token is returned alongside the error when found.
func (s *Service) consumableToken(ctx context.Context, tenantID, raw string) (domain.PasswordResetToken, error) {
	tok, err := s.repos.Tokens.Get(ctx, tenantID, raw)
	if err != nil {
		return domain.PasswordResetToken{}, err
	}
	if err := tok.CheckConsumable(s.now()); err != nil {
		return tok, err
	}
	return tok, nil
}

// confirmFailed records the failure and returns the error for the caller.
// Unexpected errors are logged with a stack and replaced by a generic failure.
func (s *Service) confirmFailed(ctx context.Context, meta RequestMeta, tenantID, userID string, err error, stack []byte) error {
	a := s.activity(domain.ActionPasswordResetConfirm, meta, false, reasonFor(err))
	a.TenantID = tenantID
	a.UserID = userID

	if domain.IsUnexpected(err) {
		if stack == nil {
			stack = debug.Stack()
		}
		logger.WithCtx(ctx).Error().
			Err(err).
			Str("user_id", userID).
			Str("stack", string(stack)).
			Msg("password reset confirm failed")
		s.recordFailure(ctx, a)
		return domain.ErrResetFailed(err)
	}

	logger.WithCtx(ctx).Warn().
		Str("code", codeOf(err)).
		Str("user_id", userID).
		Msg("password reset confirm rejected")
	s.recordFailure(ctx, a)
	return err
}
