package domain

import "time"

// Audit actions written by the reset flows.
const (
	ActionPasswordResetRequest    = "password_reset_request"
	ActionPasswordResetConfirm    = "password_reset_confirm"
	ActionPasswordResetRegenerate = "password_reset_regenerate"
)

// Audit reasons. These are stored verbatim in UserActivity.Details["reason"].
const (
	ReasonNoTenantForDomain    = "No tenant found for email domain: %s"
	ReasonTenantNotSpecified   = "Tenant not specified for username-based reset"
	ReasonInvalidEmailFormat   = "Invalid email format: %s"
	ReasonUserNotFound         = "No user found with the provided email or username"
	ReasonAccountLocked        = "Account is locked or suspended"
	ReasonIPBlocked            = "This IP address is blocked"
	ReasonInvalidToken         = "Invalid token"
	ReasonTokenUsed            = "This token has already been used"
	ReasonTokenExpired         = "This token has expired"
	ReasonWeakPassword         = "Password does not meet requirements: %s"
	ReasonInternalError        = "Internal error: %s"
	ReasonNotAdmin             = "Only admins or superusers can reset passwords."
	ReasonCannotResetOwn       = "You cannot reset your own password."
	ReasonTargetUserNotFound   = "User with this email does not exist."
	ReasonMissingIdentifier    = "Either 'email' or 'username' must be provided."
	ReasonBothIdentifiersGiven = "Provide only one of 'email' or 'username', not both."

	ReasonResetRequested   = "Password reset token issued"
	ReasonResetConfirmed   = "Password reset successful"
	ReasonResetRegenerated = "Password reset token issued by admin"
)

// UserActivity is an append-only audit record. It is never updated after insert.
// UserID, TenantID and PerformedBy are empty when unknown.
type UserActivity struct {
	ID          int64
	UserID      string
	TenantID    string
	Action      string
	PerformedBy string
	Details     map[string]string
	IPAddress   string
	UserAgent   string
	Success     bool
	CreatedAt   time.Time
}

// Reason returns the recorded reason, if any.
func (a UserActivity) Reason() string {
	if a.Details == nil {
		return ""
	}
	return a.Details["reason"]
}
