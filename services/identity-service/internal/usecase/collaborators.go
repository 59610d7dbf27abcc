package usecase

import (
	"context"

	"github.com/vasapolrittideah/identity-api/shared/provider"
)

// MessageDispatcher delivers notifications. Delivery failures are logged, never surfaced
// as sign-in failures.
type MessageDispatcher interface {
	SendEmailUsingTemplate(ctx context.Context, address, templateName string, vars map[string]string) error
	SendSms(ctx context.Context, phoneNumber, body string) error
}

// RecaptchaVerifier checks a client-supplied recaptcha token.
type RecaptchaVerifier interface {
	Verify(ctx context.Context, token string) (bool, error)
}

// AttemptLimiter throttles second-factor submissions per user.
type AttemptLimiter interface {
	Check(ctx context.Context, userID string) error
	RecordFailure(ctx context.Context, userID string) error
	Reset(ctx context.Context, userID string) error
}

// IdentityProvider validates tokens issued by an external login provider.
type IdentityProvider interface {
	Name() string
	ValidateIDToken(ctx context.Context, idToken string) (*provider.ExternalIdentity, error)
}
