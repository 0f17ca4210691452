package reset

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/tenantcare/auth-service/internal/domain"
	"github.com/tenantcare/auth-service/internal/logger"
)

type ResetRequestInput struct {
	Email    string
	Username string
	// Tenant is the tenant resolved by the HTTP layer, if any.
	// It is required for username-based resets and ignored for email-based ones.
	Tenant *domain.Tenant
	Meta   RequestMeta
}

type ResetRequestResult struct {
	Tenant  domain.Tenant
	User    domain.User
	Token   domain.PasswordResetToken
	Publish *PublishTask
}

// RequestReset resolves the tenant and user, checks eligibility and issues a
// reset token. Every outcome is recorded as a password_reset_request activity.
func (s *Service) RequestReset(ctx context.Context, in ResetRequestInput) (ResetRequestResult, error) {
	email := strings.ToLower(strings.TrimSpace(in.Email))
	username := strings.TrimSpace(in.Username)

	fail := func(err error, tenantID, userID string) (ResetRequestResult, error) {
		a := s.activity(domain.ActionPasswordResetRequest, in.Meta, false, reasonFor(err))
		a.TenantID = tenantID
		a.UserID = userID
		s.recordFailure(ctx, a)
		if domain.IsUnexpected(err) {
			logger.WithCtx(ctx).Error().Err(err).Msg("password reset request failed")
			err = asDomainError(err)
		}
		return ResetRequestResult{}, err
	}

	knownTenant := ""
	if in.Tenant != nil {
		knownTenant = in.Tenant.ID
	}

	switch {
	case email == "" && username == "":
		return fail(domain.ErrEmailOrUsernameRequired(), knownTenant, "")
	case email != "" && username != "":
		return fail(domain.ErrEmailAndUsername(), knownTenant, "")
	}

	var (
		tenant domain.Tenant
		user   domain.User
		err    error
	)
	if email != "" {
		emailDomain, ok := domain.EmailDomain(email)
		if !ok {
			a := s.activity(domain.ActionPasswordResetRequest, in.Meta, false,
				fmt.Sprintf(domain.ReasonInvalidEmailFormat, email))
			a.TenantID = knownTenant
			s.recordFailure(ctx, a)
			return ResetRequestResult{}, domain.ErrInvalidEmailFormat()
		}
		tenant, err = s.repos.Tenants.GetByEmailDomain(ctx, emailDomain)
		if err != nil {
			return fail(err, "", "")
		}
		user, err = s.repos.Users.GetByEmail(ctx, tenant.ID, email)
	} else {
		if in.Tenant == nil {
			return fail(domain.ErrTenantNotSpecified(), "", "")
		}
		tenant = *in.Tenant
		user, err = s.repos.Users.GetByUsername(ctx, tenant.ID, username)
	}
	if err != nil {
		return fail(err, tenant.ID, "")
	}

	if user.Blocked() {
		return fail(domain.ErrAccountLocked(), tenant.ID, user.ID)
	}
	if in.Meta.IP != "" {
		blocked, err := s.repos.BlockedIPs.IsBlocked(ctx, tenant.ID, in.Meta.IP)
		if err != nil {
			return fail(err, tenant.ID, user.ID)
		}
		if blocked {
			return fail(domain.ErrIPBlocked(), tenant.ID, user.ID)
		}
	}

	res, err := s.issue(ctx, tenant, user, in.Meta, domain.ActionPasswordResetRequest, "", domain.ReasonResetRequested)
	if err != nil {
		return fail(err, tenant.ID, user.ID)
	}
	return res, nil
}

// issue creates a token for user and records the success activity in one
// transaction, then hands the notification event to the dispatcher.
func (s *Service) issue(
	ctx context.Context,
	tenant domain.Tenant,
	user domain.User,
	meta RequestMeta,
	action, performedBy, reason string,
) (ResetRequestResult, error) {
	raw, err := newOpaqueToken(resetTokenBytes)
	if err != nil {
		return ResetRequestResult{}, domain.ErrRandomFailed(err)
	}
	tok := domain.NewPasswordResetToken(raw, user.ID, tenant.ID, s.now(), s.tokenTTL)

	a := s.activity(action, meta, true, reason)
	a.TenantID = tenant.ID
	a.UserID = user.ID
	a.PerformedBy = performedBy

	err = s.tx.WithinTx(ctx, func(ctx context.Context, r Repos) error {
		if err := r.Tokens.Create(ctx, tok); err != nil {
			return err
		}
		return r.Activities.Create(ctx, a)
	})
	if err != nil {
		return ResetRequestResult{}, err
	}
	s.audit.Activity(ctx, a)

	task := s.events.Dispatch(s.requestedEvent(tenant, user, tok, meta))
	return ResetRequestResult{
		Tenant:  tenant,
		User:    user,
		Token:   tok,
		Publish: task,
	}, nil
}

func (s *Service) requestedEvent(tenant domain.Tenant, user domain.User, tok domain.PasswordResetToken, meta RequestMeta) Envelope {
	now := s.now()
	return Envelope{
		EventType: EventPasswordResetRequested,
		TenantID:  tenant.ID,
		Timestamp: now,
		Payload: PasswordResetRequestedPayload{
			Email:                user.Email,
			UserName:             user.FullName(),
			ResetToken:           tok.Token,
			ResetLink:            s.resetLink(tok.Token),
			IPAddress:            meta.IP,
			UserAgent:            meta.UserAgent,
			UserID:               user.ID,
			ExpiresAt:            tok.ExpiresAt,
			ResetDomain:          meta.ResetDomain(),
			TenantName:           tenant.Name,
			TenantLogo:           tenant.Logo,
			TenantPrimaryColor:   tenant.PrimaryColor,
			TenantSecondaryColor: tenant.SecondaryColor,
			TenantUniqueID:       tenant.ID,
			TenantSchema:         tenant.Schema,
		},
		Metadata: EventMetadata{
			EventID:   uuid.NewString(),
			CreatedAt: now,
			Source:    s.source,
		},
	}
}
