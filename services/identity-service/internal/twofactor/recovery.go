package twofactor

import (
	"context"
	"crypto/rand"
	"errors"
	"math/big"
	"slices"
	"strings"

	"github.com/vasapolrittideah/identity-api/services/identity-service/internal/model"
	"github.com/vasapolrittideah/identity-api/services/identity-service/internal/vault"
)

const (
	recoveryCodeSeparator = ";"
	recoveryCodeAlphabet  = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"
	recoveryCodeHalf      = 5
)

// ErrRecoveryContention is returned when a redemption keeps losing the compare-and-swap race.
var ErrRecoveryContention = errors.New("recovery codes changed concurrently, retry")

// RecoveryCodes manages a user's set of one-time recovery codes, stored as a single
// separator-joined vault value.
type RecoveryCodes struct {
	vault *vault.TokenVault
}

// NewRecoveryCodes creates a RecoveryCodes manager.
func NewRecoveryCodes(v *vault.TokenVault) *RecoveryCodes {
	return &RecoveryCodes{vault: v}
}

// Replace overwrites the stored set. Codes are stored in canonical form.
func (r *RecoveryCodes) Replace(ctx context.Context, userID model.ID, codes []string) error {
	canonical := make([]string, 0, len(codes))
	for _, c := range codes {
		if c = canonicalRecoveryCode(c); c != "" {
			canonical = append(canonical, c)
		}
	}

	return r.vault.SetToken(
		ctx, userID, vault.InternalProvider, recoveryCodesName, strings.Join(canonical, recoveryCodeSeparator),
	)
}

// Generate creates n fresh codes, replaces the stored set with them and returns them
// in display form (XXXXX-XXXXX).
func (r *RecoveryCodes) Generate(ctx context.Context, userID model.ID, n int) ([]string, error) {
	codes := make([]string, 0, n)
	for range n {
		code, err := newRecoveryCode()
		if err != nil {
			return nil, err
		}
		codes = append(codes, code)
	}

	if err := r.Replace(ctx, userID, codes); err != nil {
		return nil, err
	}

	return codes, nil
}

// Redeem consumes code if it is in the stored set. The removal is a compare-and-swap
// against the value that was read, so a code is redeemed at most once even when
// requests race.
func (r *RecoveryCodes) Redeem(ctx context.Context, userID model.ID, code string) (bool, error) {
	code = canonicalRecoveryCode(code)
	if code == "" {
		return false, nil
	}

	for range maxSwapAttempts {
		merged, ok, err := r.vault.GetToken(ctx, userID, vault.InternalProvider, recoveryCodesName)
		if err != nil || !ok {
			return false, err
		}

		codes := splitCodes(merged)
		idx := slices.Index(codes, code)
		if idx < 0 {
			return false, nil
		}
		remaining := slices.Delete(codes, idx, idx+1)

		swapped, err := r.vault.CompareAndSwap(
			ctx, userID, vault.InternalProvider, recoveryCodesName, merged, strings.Join(remaining, recoveryCodeSeparator),
		)
		if err != nil {
			return false, err
		}
		if swapped {
			return true, nil
		}
	}

	return false, ErrRecoveryContention
}

// Count returns the number of unused codes.
func (r *RecoveryCodes) Count(ctx context.Context, userID model.ID) (int, error) {
	merged, _, err := r.vault.GetToken(ctx, userID, vault.InternalProvider, recoveryCodesName)
	if err != nil {
		return 0, err
	}

	return len(splitCodes(merged)), nil
}

// Clear removes every stored code.
func (r *RecoveryCodes) Clear(ctx context.Context, userID model.ID) error {
	return r.vault.RemoveToken(ctx, userID, vault.InternalProvider, recoveryCodesName)
}

func splitCodes(merged string) []string {
	if merged == "" {
		return nil
	}

	return strings.Split(merged, recoveryCodeSeparator)
}

func canonicalRecoveryCode(code string) string {
	return strings.ToUpper(NormalizeCode(strings.TrimSpace(code)))
}

func newRecoveryCode() (string, error) {
	var b strings.Builder
	max := big.NewInt(int64(len(recoveryCodeAlphabet)))
	for i := range recoveryCodeHalf * 2 {
		if i == recoveryCodeHalf {
			b.WriteByte('-')
		}
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		b.WriteByte(recoveryCodeAlphabet[n.Int64()])
	}

	return b.String(), nil
}
