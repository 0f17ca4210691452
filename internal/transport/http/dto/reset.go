package dto

import (
	"strings"
	"time"
)

const (
	MsgResetTokenGenerated = "Password reset token generated successfully."
	MsgPasswordReset       = "Password has been reset successfully."
	MsgResetTokenIssued    = "Password reset token issued for user."
)

// -------- Password reset --------

// Step A: request reset by email or username (exactly one).
type PasswordResetRequest struct {
	Email    string `json:"email" validate:"omitempty,max=254"`
	Username string `json:"username" validate:"omitempty,max=150"`
}

func (r *PasswordResetRequest) Normalize() {
	r.Email = strings.ToLower(strings.TrimSpace(r.Email))
	r.Username = strings.TrimSpace(r.Username)
}

// Step B: confirm reset. new_password is checked before token.
type PasswordResetConfirmRequest struct {
	NewPassword string `json:"new_password" validate:"required,password_strength"`
	Token       string `json:"token" validate:"required,max=128"`
}

// GET /password/reset/validate?token=...
type PasswordResetValidateQuery struct {
	Token string `json:"token" validate:"required,max=128"`
}

// -------- Admin --------

type PasswordRegenerateRequest struct {
	Email string `json:"email" validate:"required,email,max=254"`
}

func (r *PasswordRegenerateRequest) Normalize() {
	r.Email = strings.ToLower(strings.TrimSpace(r.Email))
}

// -------- Responses --------

type PasswordResetRequestResponse struct {
	Detail       string `json:"detail"`
	TenantSchema string `json:"tenant_schema"`
	Email        string `json:"email"`
	Username     string `json:"username"`
}

type DetailResponse struct {
	Detail string `json:"detail"`
}

type TokenValidResponse struct {
	Valid     bool      `json:"valid"`
	ExpiresAt time.Time `json:"expires_at"`
}

type PasswordRegenerateResponse struct {
	Detail       string    `json:"detail"`
	UserID       string    `json:"user_id"`
	Email        string    `json:"email"`
	TenantSchema string    `json:"tenant_schema"`
	ExpiresAt    time.Time `json:"expires_at"`
}
