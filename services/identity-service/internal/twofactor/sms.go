package twofactor

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"fmt"
	"math/big"
	"strconv"
	"strings"
	"time"

	"github.com/vasapolrittideah/identity-api/services/identity-service/internal/model"
	"github.com/vasapolrittideah/identity-api/services/identity-service/internal/vault"
)

const smsCodeDigits = 6

// SmsCodes issues and verifies short-lived numeric codes delivered by SMS.
// The stored value is "<code>|<unix expiry>".
type SmsCodes struct {
	vault *vault.TokenVault
	ttl   time.Duration
	now   func() time.Time
}

// NewSmsCodes creates an SmsCodes manager whose codes expire after ttl.
func NewSmsCodes(v *vault.TokenVault, ttl time.Duration) *SmsCodes {
	return &SmsCodes{vault: v, ttl: ttl, now: time.Now}
}

// Issue generates a code, stores it, and returns it for delivery.
func (s *SmsCodes) Issue(ctx context.Context, userID model.ID) (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(1_000_000))
	if err != nil {
		return "", err
	}
	code := fmt.Sprintf("%0*d", smsCodeDigits, n.Int64())

	value := code + "|" + strconv.FormatInt(s.now().Add(s.ttl).Unix(), 10)
	if err := s.vault.SetToken(ctx, userID, vault.InternalProvider, smsCodeName, value); err != nil {
		return "", err
	}

	return code, nil
}

// Verify checks code against the stored one and consumes it on success.
func (s *SmsCodes) Verify(ctx context.Context, userID model.ID, code string) (bool, error) {
	code = NormalizeCode(code)

	stored, ok, err := s.vault.GetToken(ctx, userID, vault.InternalProvider, smsCodeName)
	if err != nil || !ok {
		return false, err
	}

	expected, expiresAt, ok := parseSmsCode(stored)
	if !ok {
		return false, nil
	}
	if !s.now().Before(expiresAt) {
		return false, s.Clear(ctx, userID)
	}
	if subtle.ConstantTimeCompare([]byte(expected), []byte(code)) != 1 {
		return false, nil
	}

	return s.vault.CompareAndSwap(ctx, userID, vault.InternalProvider, smsCodeName, stored, "")
}

// Clear removes any outstanding code.
func (s *SmsCodes) Clear(ctx context.Context, userID model.ID) error {
	return s.vault.RemoveToken(ctx, userID, vault.InternalProvider, smsCodeName)
}

func parseSmsCode(stored string) (string, time.Time, bool) {
	code, expiry, found := strings.Cut(stored, "|")
	if !found || code == "" {
		return "", time.Time{}, false
	}

	unix, err := strconv.ParseInt(expiry, 10, 64)
	if err != nil {
		return "", time.Time{}, false
	}

	return code, time.Unix(unix, 0), true
}
