package model

import (
	"strings"
	"time"
)

// User represents an account in the credential store.
//
// Every mutation of a stored User goes through the repository's compare-and-swap
// update keyed on ConcurrencyStamp.
type User struct {
	ID                      ID                 `bson:"_id,omitempty"`
	UserName                string             `bson:"user_name"`
	NormalizedUserName      string             `bson:"normalized_user_name"`
	Email                   string             `bson:"email"`
	NormalizedEmail         string             `bson:"normalized_email"`
	EmailConfirmed          bool               `bson:"email_confirmed"`
	PhoneNumber             string             `bson:"phone_number,omitempty"`
	PhoneNumberConfirmed    bool               `bson:"phone_number_confirmed"`
	PasswordHash            string             `bson:"password_hash,omitempty"`
	SecurityStamp           string             `bson:"security_stamp"`
	ConcurrencyStamp        string             `bson:"concurrency_stamp"`
	TwoFactorEnabled        bool               `bson:"two_factor_enabled"`
	LockoutEnabled          bool               `bson:"lockout_enabled"`
	LockoutEnd              *time.Time         `bson:"lockout_end,omitempty"`
	AccessFailedCount       int                `bson:"access_failed_count"`
	LastFailedLoginReason   *FailedLoginReason `bson:"last_failed_login_reason,omitempty"`
	FirstName               string             `bson:"first_name,omitempty"`
	LastName                string             `bson:"last_name,omitempty"`
	Language                string             `bson:"language,omitempty"`
	ValidFrom               *time.Time         `bson:"valid_from,omitempty"`
	ValidTo                 *time.Time         `bson:"valid_to,omitempty"`
	LastLogin               *time.Time         `bson:"last_login,omitempty"`
	LoginCount              int                `bson:"login_count"`
	UserMustChangePassword  bool               `bson:"user_must_change_password"`
	LastPasswordChangedDate *time.Time         `bson:"last_password_changed_date,omitempty"`
	CreatedOn               time.Time          `bson:"created_on"`
}

// HasPassword reports whether a local password is set.
func (u *User) HasPassword() bool {
	return u.PasswordHash != ""
}

// IsLockedOut reports whether the account is locked at the given instant.
func (u *User) IsLockedOut(now time.Time) bool {
	if !u.LockoutEnabled || u.LockoutEnd == nil {
		return false
	}

	return u.LockoutEnd.After(now)
}

// IsWithinDateRange reports whether now falls inside the optional validity window.
func (u *User) IsWithinDateRange(now time.Time) bool {
	if u.ValidFrom != nil && now.Before(*u.ValidFrom) {
		return false
	}
	if u.ValidTo != nil && now.After(*u.ValidTo) {
		return false
	}

	return true
}

// Clone returns a deep copy so storage engines never share pointers with callers.
func (u *User) Clone() *User {
	c := *u
	c.LockoutEnd = cloneTime(u.LockoutEnd)
	c.ValidFrom = cloneTime(u.ValidFrom)
	c.ValidTo = cloneTime(u.ValidTo)
	c.LastLogin = cloneTime(u.LastLogin)
	c.LastPasswordChangedDate = cloneTime(u.LastPasswordChangedDate)
	if u.LastFailedLoginReason != nil {
		r := *u.LastFailedLoginReason
		c.LastFailedLoginReason = &r
	}

	return &c
}

// Normalize produces the lookup key stored in NormalizedUserName, NormalizedEmail and Role.NormalizedName.
func Normalize(s string) string {
	return strings.ToUpper(strings.TrimSpace(s))
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	c := *t

	return &c
}
