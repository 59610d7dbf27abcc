package model

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseID(t *testing.T) {
	id := NewID()

	parsed, err := ParseID(id.Hex())
	require.NoError(t, err)
	assert.Equal(t, id, parsed)

	_, err = ParseID("not-an-id")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInvalidID))
}

func TestFailedLoginReason_MessageKey(t *testing.T) {
	tests := []struct {
		reason FailedLoginReason
		want   string
	}{
		{ReasonLockedOut, "errorMessage:no_access:LockedOut"},
		{ReasonNotWithinDateRange, "errorMessage:no_access:NotWithinDateRange"},
		{ReasonEmailNotConfirmed, "errorMessage:no_access:EmailNotConfirmed"},
		{ReasonAccountNotConfirmed, "errorMessage:no_access:AccountNotConfirmed"},
		{ReasonUserNameOrPasswordInvalid, "errorMessage:UserNameOrPasswordInvalid"},
		{ReasonRecaptchaError, "errorMessage:RecaptchaError"},
		{ReasonFailedMfa, "errorMessage.no_access.error"},
		{ReasonFailedRecoveryCode, "errorMessage.no_access.error"},
		{ReasonFailedSms, "errorMessage.no_access.error"},
		{ReasonUnknown, "errorMessage.no_access.error"},
	}

	for _, tt := range tests {
		t.Run(string(tt.reason), func(t *testing.T) {
			assert.Equal(t, tt.want, tt.reason.MessageKey())
		})
	}
}

func TestUser_IsLockedOut(t *testing.T) {
	now := time.Now()
	future := now.Add(time.Minute)
	past := now.Add(-time.Minute)

	assert.False(t, (&User{LockoutEnabled: true}).IsLockedOut(now))
	assert.True(t, (&User{LockoutEnabled: true, LockoutEnd: &future}).IsLockedOut(now))
	assert.False(t, (&User{LockoutEnabled: true, LockoutEnd: &past}).IsLockedOut(now))
	assert.False(t, (&User{LockoutEnabled: false, LockoutEnd: &future}).IsLockedOut(now))
}

func TestUser_IsWithinDateRange(t *testing.T) {
	now := time.Now()
	before := now.Add(-time.Hour)
	after := now.Add(time.Hour)

	assert.True(t, (&User{}).IsWithinDateRange(now))
	assert.True(t, (&User{ValidFrom: &before, ValidTo: &after}).IsWithinDateRange(now))
	assert.False(t, (&User{ValidFrom: &after}).IsWithinDateRange(now))
	assert.False(t, (&User{ValidTo: &before}).IsWithinDateRange(now))
}

func TestUser_CloneIsDeep(t *testing.T) {
	end := time.Now()
	u := &User{UserName: "alice", LockoutEnd: &end, LastFailedLoginReason: ReasonFailedMfa.Ptr()}

	c := u.Clone()
	*c.LockoutEnd = end.Add(time.Hour)
	*c.LastFailedLoginReason = ReasonFailedSms

	assert.Equal(t, end, *u.LockoutEnd)
	assert.Equal(t, ReasonFailedMfa, *u.LastFailedLoginReason)
}

func TestNormalize(t *testing.T) {
	assert.Equal(t, "ADMIN", Normalize("Admin"))
	assert.Equal(t, "ALICE@EXAMPLE.COM", Normalize("  alice@example.com "))
}
