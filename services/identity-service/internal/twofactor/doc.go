// Package twofactor verifies second factors: authenticator (TOTP) codes, one-time
// recovery codes and SMS codes. All state lives in the token vault under
// vault.InternalProvider; nothing is kept in process.
package twofactor

import "strings"

const (
	authenticatorKeyName = "AuthenticatorKey"
	recoveryCodesName    = "RecoveryCodes"
	smsCodeName          = "SmsCode"
)

// maxSwapAttempts bounds the read/compare-and-swap loop when codes are consumed concurrently.
const maxSwapAttempts = 5

// NormalizeCode strips the spaces and hyphens users type when copying codes.
func NormalizeCode(code string) string {
	return strings.NewReplacer(" ", "", "-", "").Replace(code)
}
