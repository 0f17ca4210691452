package security

import (
	"golang.org/x/crypto/bcrypt"

	"github.com/tenantcare/auth-service/internal/domain"
)

// BcryptHasher hashes new passwords for the reset confirm flow and the demo seed.
type BcryptHasher struct {
	cost int
}

// NewBcryptHasher falls back to bcrypt.DefaultCost when cost is not positive.
// Costs outside bcrypt's range surface as hash_failed on first use.
func NewBcryptHasher(cost int) *BcryptHasher {
	if cost <= 0 {
		cost = bcrypt.DefaultCost
	}
	return &BcryptHasher{cost: cost}
}

// Hash rejects passwords bcrypt would refuse as a validation error rather
// than an internal one; the policy check normally catches them first.
func (h *BcryptHasher) Hash(password string) (string, error) {
	if len(password) > domain.MaxPasswordBytes {
		return "", domain.ErrWeakPassword("max length 72 bytes")
	}
	b, err := bcrypt.GenerateFromPassword([]byte(password), h.cost)
	if err != nil {
		return "", domain.ErrHashFailed(err)
	}
	return string(b), nil
}
