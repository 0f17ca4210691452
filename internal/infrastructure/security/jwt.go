package security

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/tenantcare/auth-service/internal/application/reset"
	"github.com/tenantcare/auth-service/internal/domain"
)

// JWTSigner issues and verifies the HS256 access tokens that carry the
// caller's user and tenant on admin routes.
type JWTSigner struct {
	secret []byte
	issuer string
}

func NewJWTSigner(secret string, issuer string) *JWTSigner {
	return &JWTSigner{
		secret: []byte(secret),
		issuer: issuer,
	}
}

type accessClaims struct {
	UserID    string `json:"uid"`
	TenantID  string `json:"tid"`
	Role      string `json:"role"`
	Superuser bool   `json:"su,omitempty"`
	jwt.RegisteredClaims
}

// SignAccessToken issues an HS256 access token for a user of tenantID.
func (s *JWTSigner) SignAccessToken(userID, tenantID, role string, superuser bool, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := accessClaims{
		UserID:    userID,
		TenantID:  tenantID,
		Role:      role,
		Superuser: superuser,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    s.issuer,
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}

	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := tok.SignedString(s.secret)
	if err != nil {
		return "", domain.ErrTokenSignFailed(err)
	}
	return signed, nil
}

// VerifyAccessToken checks signature, issuer and expiry and requires both the
// uid and tid claims.
func (s *JWTSigner) VerifyAccessToken(token string) (reset.TokenClaims, error) {
	parsed, err := jwt.ParseWithClaims(token, &accessClaims{}, func(*jwt.Token) (any, error) {
		return s.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(s.issuer),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return reset.TokenClaims{}, domain.ErrTokenExpired()
		}
		return reset.TokenClaims{}, domain.ErrTokenInvalid()
	}

	claims, ok := parsed.Claims.(*accessClaims)
	if !ok || !parsed.Valid {
		return reset.TokenClaims{}, domain.ErrTokenInvalid()
	}
	// every admin action is scoped to the caller's tenant
	if claims.UserID == "" || claims.TenantID == "" {
		return reset.TokenClaims{}, domain.ErrTokenInvalid()
	}
	exp := claims.ExpiresAt.Time

	return reset.TokenClaims{
		UserID:    claims.UserID,
		TenantID:  claims.TenantID,
		Role:      claims.Role,
		Superuser: claims.Superuser,
		Exp:       exp,
	}, nil
}
