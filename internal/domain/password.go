package domain

import (
	"unicode"
	"unicode/utf8"
)

const (
	// MinPasswordLength is the minimum accepted length of a new password, in characters.
	MinPasswordLength = 8
	// MaxPasswordBytes is the bcrypt input limit.
	MaxPasswordBytes = 72
)

// ValidatePasswordPolicy checks the reset password rules: at least
// MinPasswordLength characters, at most MaxPasswordBytes bytes, one uppercase
// letter and one digit.
func ValidatePasswordPolicy(pw string) error {
	if pw == "" {
		return ErrMissingField("new_password")
	}
	if utf8.RuneCountInString(pw) < MinPasswordLength {
		return ErrWeakPassword("min length 8")
	}
	if len(pw) > MaxPasswordBytes {
		return ErrWeakPassword("max length 72 bytes")
	}
	if !PasswordStrong(pw) {
		return ErrWeakPassword("Password must contain at least one uppercase letter and one number.")
	}
	return nil
}

// PasswordStrong reports whether pw has an uppercase letter and a digit.
func PasswordStrong(pw string) bool {
	hasUpper := false
	hasDigit := false
	for _, c := range pw {
		if unicode.IsUpper(c) {
			hasUpper = true
		}
		if unicode.IsDigit(c) {
			hasDigit = true
		}
		if hasUpper && hasDigit {
			return true
		}
	}
	return false
}
