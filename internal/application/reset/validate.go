package reset

import (
	"context"

	"github.com/tenantcare/auth-service/internal/domain"
)

// ValidateToken reports whether token can still be consumed in tenant.
// It never changes the token and writes no activity.
func (s *Service) ValidateToken(ctx context.Context, tenant *domain.Tenant, token string) (domain.PasswordResetToken, error) {
	if token == "" {
		return domain.PasswordResetToken{}, domain.ErrMissingField("token")
	}
	if tenant == nil {
		return domain.PasswordResetToken{}, domain.ErrResetTokenInvalid()
	}
	tok, err := s.consumableToken(ctx, tenant.ID, token)
	if err != nil {
		return domain.PasswordResetToken{}, asDomainError(err)
	}
	return tok, nil
}
