package model

// FailedLoginReason classifies why a sign-in attempt did not complete.
type FailedLoginReason string

const (
	ReasonUnknown                   FailedLoginReason = "Unknown"
	ReasonUserNameOrPasswordInvalid FailedLoginReason = "UserNameOrPasswordInvalid"
	ReasonLockedOut                 FailedLoginReason = "LockedOut"
	ReasonNotWithinDateRange        FailedLoginReason = "NotWithinDateRange"
	ReasonEmailNotConfirmed         FailedLoginReason = "EmailNotConfirmed"
	ReasonAccountNotConfirmed       FailedLoginReason = "AccountNotConfirmed"
	ReasonFailedMfa                 FailedLoginReason = "FailedMfa"
	ReasonFailedRecoveryCode        FailedLoginReason = "FailedRecoveryCode"
	ReasonFailedSms                 FailedLoginReason = "FailedSms"
	ReasonRecaptchaError            FailedLoginReason = "RecaptchaError"
)

// IsNoAccess reports whether the reason belongs to the "no access" message family.
func (r FailedLoginReason) IsNoAccess() bool {
	switch r {
	case ReasonLockedOut, ReasonNotWithinDateRange, ReasonEmailNotConfirmed, ReasonAccountNotConfirmed:
		return true
	default:
		return false
	}
}

// MessageKey returns the localization key callers resolve into a user-facing message.
func (r FailedLoginReason) MessageKey() string {
	switch {
	case r.IsNoAccess():
		return "errorMessage:no_access:" + string(r)
	case r == ReasonUserNameOrPasswordInvalid, r == ReasonRecaptchaError:
		return "errorMessage:" + string(r)
	default:
		return "errorMessage.no_access.error"
	}
}

// Ptr returns a pointer to a copy of r, for assignment to optional fields.
func (r FailedLoginReason) Ptr() *FailedLoginReason {
	return &r
}
