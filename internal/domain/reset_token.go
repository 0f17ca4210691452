package domain

import "time"

// DefaultResetTokenTTL is how long a reset token stays consumable.
const DefaultResetTokenTTL = time.Hour

// PasswordResetToken is a single-use credential scoped to (user, tenant).
// Used only ever moves from false to true.
type PasswordResetToken struct {
	Token     string
	UserID    string
	TenantID  string
	CreatedAt time.Time
	ExpiresAt time.Time
	Used      bool
}

// NewPasswordResetToken builds an unused token that expires ttl after now.
func NewPasswordResetToken(token, userID, tenantID string, now time.Time, ttl time.Duration) PasswordResetToken {
	if ttl <= 0 {
		ttl = DefaultResetTokenTTL
	}
	return PasswordResetToken{
		Token:     token,
		UserID:    userID,
		TenantID:  tenantID,
		CreatedAt: now,
		ExpiresAt: now.Add(ttl),
	}
}

func (t PasswordResetToken) Expired(now time.Time) bool {
	return t.ExpiresAt.Before(now)
}

// CheckConsumable returns nil when the token can still be used at now.
// A used token reports "used" even when it has also expired.
func (t PasswordResetToken) CheckConsumable(now time.Time) error {
	if t.Used {
		return ErrResetTokenUsed()
	}
	if t.Expired(now) {
		return ErrResetTokenExpired()
	}
	return nil
}
