package security

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tenantcare/auth-service/internal/domain"
)

const (
	testIssuer = "auth-service"
	testTenant = "11111111-1111-1111-1111-111111111111"
)

func TestJWTSigner_RoundTripCarriesTenantClaims(t *testing.T) {
	t.Parallel()

	s := NewJWTSigner("secret", testIssuer)
	tok, err := s.SignAccessToken("u-boss", testTenant, "admin", true, 2*time.Minute)
	require.NoError(t, err)

	claims, err := s.VerifyAccessToken(tok)
	require.NoError(t, err)
	assert.Equal(t, "u-boss", claims.UserID)
	assert.Equal(t, testTenant, claims.TenantID)
	assert.Equal(t, "admin", claims.Role)
	assert.True(t, claims.Superuser)
	assert.WithinDuration(t, time.Now().Add(2*time.Minute), claims.Exp, 5*time.Second)
}

// signRaw signs arbitrary claims so tests can build tokens SignAccessToken never would.
func signRaw(t *testing.T, method jwt.SigningMethod, key any, claims jwt.MapClaims) string {
	t.Helper()
	tok, err := jwt.NewWithClaims(method, claims).SignedString(key)
	require.NoError(t, err)
	return tok
}

func baseClaims() jwt.MapClaims {
	now := time.Now()
	return jwt.MapClaims{
		"uid":  "u-boss",
		"tid":  testTenant,
		"role": "admin",
		"iss":  testIssuer,
		"sub":  "u-boss",
		"iat":  now.Unix(),
		"exp":  now.Add(time.Minute).Unix(),
	}
}

func without(c jwt.MapClaims, key string) jwt.MapClaims {
	delete(c, key)
	return c
}

func with(c jwt.MapClaims, key string, v any) jwt.MapClaims {
	c[key] = v
	return c
}

func TestJWTSigner_VerifyRejections(t *testing.T) {
	t.Parallel()

	s := NewJWTSigner("secret", testIssuer)
	expired, err := s.SignAccessToken("u-boss", testTenant, "admin", false, -time.Second)
	require.NoError(t, err)
	otherSecret, err := NewJWTSigner("other", testIssuer).SignAccessToken("u-boss", testTenant, "admin", false, time.Minute)
	require.NoError(t, err)
	otherIssuer, err := NewJWTSigner("secret", "billing").SignAccessToken("u-boss", testTenant, "admin", false, time.Minute)
	require.NoError(t, err)

	cases := []struct {
		name string
		tok  string
		code string
	}{
		{"expired", expired, "token_expired"},
		{"wrong secret", otherSecret, "token_invalid"},
		{"wrong issuer", otherIssuer, "token_invalid"},
		{"garbage", "not.a.jwt", "token_invalid"},
		{"missing tid", signRaw(t, jwt.SigningMethodHS256, []byte("secret"), without(baseClaims(), "tid")), "token_invalid"},
		{"missing uid", signRaw(t, jwt.SigningMethodHS256, []byte("secret"), without(baseClaims(), "uid")), "token_invalid"},
		{"missing exp", signRaw(t, jwt.SigningMethodHS256, []byte("secret"), without(baseClaims(), "exp")), "token_invalid"},
		{"tid wrong type", signRaw(t, jwt.SigningMethodHS256, []byte("secret"), with(baseClaims(), "tid", 42)), "token_invalid"},
		{"alg none", signRaw(t, jwt.SigningMethodNone, jwt.UnsafeAllowNoneSignatureType, baseClaims()), "token_invalid"},
		{"alg HS512", signRaw(t, jwt.SigningMethodHS512, []byte("secret"), baseClaims()), "token_invalid"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			claims, err := s.VerifyAccessToken(tc.tok)
			require.Error(t, err)
			assert.True(t, domain.Is(err, tc.code), "want %s, got %v", tc.code, err)
			assert.Empty(t, claims.TenantID)
		})
	}
}
