package dto

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tenantcare/auth-service/internal/domain"
)

func TestPasswordResetRequest_Validate(t *testing.T) {
	t.Run("neither identifier", func(t *testing.T) {
		err := Validate(PasswordResetRequest{})
		require.Error(t, err)
		assert.True(t, domain.Is(err, "email_or_username_required"), "got %v", err)
	})

	t.Run("both identifiers", func(t *testing.T) {
		err := Validate(PasswordResetRequest{Email: "a@acme.test", Username: "a"})
		require.Error(t, err)
		assert.True(t, domain.Is(err, "email_and_username"), "got %v", err)
	})

	t.Run("email too long", func(t *testing.T) {
		err := Validate(PasswordResetRequest{Email: strings.Repeat("a", 250) + "@acme.test"})
		require.Error(t, err)
		assert.True(t, domain.Is(err, "invalid_field"), "got %v", err)

		var de *domain.Error
		require.ErrorAs(t, err, &de)
		assert.Equal(t, "email", de.Meta["field"])
		assert.NotEmpty(t, de.Meta["reason"])
	})

	t.Run("email only", func(t *testing.T) {
		assert.NoError(t, Validate(PasswordResetRequest{Email: "a@acme.test"}))
	})

	t.Run("username only", func(t *testing.T) {
		assert.NoError(t, Validate(PasswordResetRequest{Username: "jane"}))
	})
}

func TestPasswordResetRequest_Normalize(t *testing.T) {
	r := PasswordResetRequest{Email: "  Jane@ACME.test ", Username: " jane "}
	r.Normalize()
	assert.Equal(t, "jane@acme.test", r.Email)
	assert.Equal(t, "jane", r.Username)
}

func TestPasswordResetConfirmRequest_Validate(t *testing.T) {
	cases := []struct {
		name string
		req  PasswordResetConfirmRequest
		code string
	}{
		{"missing password", PasswordResetConfirmRequest{Token: "t"}, "missing_field"},
		{"no upper or digit", PasswordResetConfirmRequest{Token: "t", NewPassword: "abcdefgh"}, "weak_password"},
		{"too short", PasswordResetConfirmRequest{Token: "t", NewPassword: "Ab1"}, "weak_password"},
		{"password checked before token", PasswordResetConfirmRequest{NewPassword: "abc"}, "weak_password"},
		{"missing token", PasswordResetConfirmRequest{NewPassword: "Abcdefg1"}, "missing_field"},
		{"password too long", PasswordResetConfirmRequest{Token: "t", NewPassword: "A1" + strings.Repeat("x", 80)}, "weak_password"},
		{"password over 72 bytes", PasswordResetConfirmRequest{Token: "t", NewPassword: strings.Repeat("é", 40) + "A1"}, "weak_password"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := Validate(tc.req)
			require.Error(t, err)
			assert.True(t, domain.Is(err, tc.code), "want %s got %v", tc.code, err)
		})
	}

	t.Run("ok", func(t *testing.T) {
		assert.NoError(t, Validate(PasswordResetConfirmRequest{Token: "t", NewPassword: "Abcdefg1"}))
	})
}

func TestPasswordResetConfirmRequest_WeakPasswordMatchesPolicy(t *testing.T) {
	err := Validate(PasswordResetConfirmRequest{Token: "t", NewPassword: "abcdefgh"})
	want := domain.ValidatePasswordPolicy("abcdefgh")

	var got, exp *domain.Error
	require.ErrorAs(t, err, &got)
	require.ErrorAs(t, want, &exp)
	assert.Equal(t, exp.Code, got.Code)
	assert.Equal(t, exp.Meta, got.Meta)
}

func TestMissingFieldUsesJSONName(t *testing.T) {
	err := Validate(PasswordResetConfirmRequest{Token: "t"})
	var de *domain.Error
	require.ErrorAs(t, err, &de)
	assert.Equal(t, "new_password", de.Meta["field"])
}

func TestPasswordRegenerateRequest_Validate(t *testing.T) {
	err := Validate(PasswordRegenerateRequest{})
	assert.True(t, domain.Is(err, "missing_field"), "got %v", err)

	err = Validate(PasswordRegenerateRequest{Email: "not-an-email"})
	assert.True(t, domain.Is(err, "invalid_email_format"), "got %v", err)

	assert.NoError(t, Validate(PasswordRegenerateRequest{Email: "jane@acme.test"}))
}

func TestPasswordResetValidateQuery_Validate(t *testing.T) {
	err := Validate(PasswordResetValidateQuery{})
	assert.True(t, domain.Is(err, "missing_field"), "got %v", err)
	assert.NoError(t, Validate(PasswordResetValidateQuery{Token: "abc"}))
}

func TestValidate_NonStruct(t *testing.T) {
	err := Validate("nope")
	assert.True(t, domain.Is(err, "internal_error"), "got %v", err)
}
