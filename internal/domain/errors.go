package domain

import (
	"errors"
	"fmt"
	"strconv"
)

// ErrKind is used to map domain errors to HTTP status codes consistently.
type ErrKind string

const (
	KindValidation     ErrKind = "validation"     // 400
	KindInvalidToken   ErrKind = "invalid_token"  // 400
	KindAuth           ErrKind = "auth"           // 401
	KindForbidden      ErrKind = "forbidden"      // 403
	KindNotFound       ErrKind = "not_found"      // 404
	KindConflict       ErrKind = "conflict"       // 409
	KindTooLarge       ErrKind = "too_large"      // 413
	KindRateLimited    ErrKind = "rate_limited"   // 429
	KindInfrastructure ErrKind = "infrastructure" // 503
	KindInternal       ErrKind = "internal"       // 500
)

// Error is a structured domain error.
// - Kind: high-level category for HTTP mapping
// - Code: stable machine code (do not change casually)
// - Message: safe summary for clients (avoid leaking sensitive details)
// - Meta: optional details (field, reason, etc.)
// - Cause: wrapped internal error for logging/diagnostics
type Error struct {
	Kind    ErrKind
	Code    string
	Message string
	Meta    map[string]string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s (%s): %s: %v", e.Kind, e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s (%s): %s", e.Kind, e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.Cause }

func New(kind ErrKind, code, msg string) *Error {
	return &Error{Kind: kind, Code: code, Message: msg}
}

func Wrap(kind ErrKind, code, msg string, cause error) *Error {
	return &Error{Kind: kind, Code: code, Message: msg, Cause: cause}
}

func WithMeta(err *Error, meta map[string]string) *Error {
	err.Meta = meta
	return err
}

func Is(err error, code string) bool {
	var de *Error
	if errors.As(err, &de) {
		return de.Code == code
	}
	return false
}

// KindOf returns the kind of a domain error, or KindInternal for anything else.
func KindOf(err error) ErrKind {
	var de *Error
	if errors.As(err, &de) {
		return de.Kind
	}
	return KindInternal
}

// IsUnexpected reports whether err is not a business outcome: a non-domain error,
// or a domain error of the infrastructure/internal kinds.
func IsUnexpected(err error) bool {
	if err == nil {
		return false
	}
	k := KindOf(err)
	return k == KindInternal || k == KindInfrastructure
}

// ----------------------
// Validation errors (400)
// ----------------------

func ErrInvalidJSON(cause error) *Error {
	return Wrap(KindValidation, "invalid_json", "invalid JSON body", cause)
}

func ErrPayloadTooLarge(limit int64) *Error {
	return WithMeta(New(KindTooLarge, "payload_too_large", "request body too large"), map[string]string{
		"limit_bytes": strconv.FormatInt(limit, 10),
	})
}

func ErrMissingField(field string) *Error {
	return WithMeta(New(KindValidation, "missing_field", "missing required field"), map[string]string{
		"field": field,
	})
}

func ErrInvalidField(field, reason string) *Error {
	return WithMeta(New(KindValidation, "invalid_field", "invalid field"), map[string]string{
		"field":  field,
		"reason": reason,
	})
}

func ErrValidation(fields map[string]string) *Error {
	return WithMeta(New(KindValidation, "validation_failed", "request validation failed"), fields)
}

func ErrEmailOrUsernameRequired() *Error {
	return New(KindValidation, "email_or_username_required", "Either 'email' or 'username' must be provided.")
}

func ErrEmailAndUsername() *Error {
	return New(KindValidation, "email_and_username", "Provide only one of 'email' or 'username', not both.")
}

func ErrInvalidEmailFormat() *Error {
	return New(KindValidation, "invalid_email_format", "Invalid email format.")
}

func ErrWeakPassword(reason string) *Error {
	return WithMeta(New(KindValidation, "weak_password", "password does not meet requirements"), map[string]string{
		"reason": reason,
	})
}

func ErrTenantNotSpecified() *Error {
	return New(KindValidation, "tenant_not_specified", "Tenant not specified for username-based reset")
}

// ----------------------
// Reset token errors (400)
// ----------------------

// The three token failures share one client message so callers cannot tell
// which case occurred. The code is for logs and tests only.
const msgInvalidOrExpiredToken = "Invalid or expired token."

func ErrResetTokenInvalid() *Error {
	return New(KindInvalidToken, "token_not_found", msgInvalidOrExpiredToken)
}

func ErrResetTokenUsed() *Error {
	return New(KindInvalidToken, "token_used", msgInvalidOrExpiredToken)
}

func ErrResetTokenExpired() *Error {
	return New(KindInvalidToken, "token_expired", msgInvalidOrExpiredToken)
}

// ----------------------
// Auth errors (401)
// ----------------------

func ErrTokenMissing() *Error {
	return New(KindAuth, "token_missing", "no token provided")
}

func ErrTokenInvalid() *Error {
	return New(KindAuth, "token_invalid", "invalid token")
}

func ErrTokenExpired() *Error {
	return New(KindAuth, "token_expired", "token is expired")
}

// ----------------------
// Forbidden (403)
// ----------------------

func ErrForbidden() *Error {
	return New(KindForbidden, "forbidden", "forbidden")
}

func ErrInsufficientRole(required string) *Error {
	return WithMeta(New(KindForbidden, "insufficient_role", "Only admins or superusers can reset passwords."), map[string]string{
		"required": required,
	})
}

func ErrAccountLocked() *Error {
	return New(KindForbidden, "account_locked", "Account is locked or suspended")
}

func ErrIPBlocked() *Error {
	return New(KindForbidden, "ip_blocked", "This IP address is blocked")
}

func ErrCannotAffectSelf() *Error {
	return New(KindForbidden, "cannot_affect_self", "You cannot reset your own password.")
}

// ----------------------
// Not Found (404)
// ----------------------

func ErrTenantNotFound(emailDomain string) *Error {
	return WithMeta(New(KindNotFound, "tenant_not_found", "No tenant found for email domain: "+emailDomain), map[string]string{
		"domain": emailDomain,
	})
}

func ErrUserNotFound() *Error {
	return New(KindNotFound, "user_not_found", "No user found with the provided email or username")
}

// ----------------------
// Rate limit (429)
// ----------------------

func ErrRateLimited(scope string) *Error {
	return WithMeta(New(KindRateLimited, "rate_limited", "too many requests"), map[string]string{
		"scope": scope,
	})
}

// ----------------------
// Infrastructure / internal (5xx)
// ----------------------

func ErrDBUnavailable(cause error) *Error {
	return Wrap(KindInfrastructure, "db_unavailable", "database unavailable", cause)
}

func ErrRedisUnavailable(cause error) *Error {
	return Wrap(KindInfrastructure, "redis_unavailable", "cache unavailable", cause)
}

func ErrBrokerUnavailable(cause error) *Error {
	return Wrap(KindInfrastructure, "broker_unavailable", "message broker unavailable", cause)
}

func ErrHashFailed(cause error) *Error {
	return Wrap(KindInternal, "hash_failed", "password hashing failed", cause)
}

func ErrTokenSignFailed(cause error) *Error {
	return Wrap(KindInternal, "token_sign_failed", "token signing failed", cause)
}

func ErrRandomFailed(cause error) *Error {
	return Wrap(KindInternal, "random_failed", "random generation failed", cause)
}

func ErrInternal(cause error) *Error {
	return Wrap(KindInternal, "internal_error", "internal error", cause)
}

func ErrResetFailed(cause error) *Error {
	return Wrap(KindInternal, "password_reset_failed", "Password reset failed.", cause)
}

// ErrUnknownTenant is returned when an explicit tenant reference (id or schema) does not resolve.
func ErrUnknownTenant(ref string) *Error {
	return WithMeta(New(KindNotFound, "unknown_tenant", "unknown tenant"), map[string]string{
		"tenant": ref,
	})
}
