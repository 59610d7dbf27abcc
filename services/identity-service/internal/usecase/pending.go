package usecase

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/vasapolrittideah/identity-api/services/identity-service/internal/model"
	"github.com/vasapolrittideah/identity-api/shared/auth"
)

const pendingPurpose = "2fa_pending"

// pendingClaims identify a user who passed the password step. They grant nothing else.
type pendingClaims struct {
	Purpose       string `json:"purpose"`
	SecurityStamp string `json:"ss"`
	RememberMe    bool   `json:"rm,omitempty"`
	jwt.RegisteredClaims
}

// PendingContext issues and resolves the short-lived signed token that carries a
// two-factor-pending user between the password step and the second-factor step.
type PendingContext struct {
	jwtAuth auth.JWTAuthenticator
	ttl     time.Duration
	now     func() time.Time
}

func NewPendingContext(jwtAuth auth.JWTAuthenticator, ttl time.Duration) *PendingContext {
	return &PendingContext{jwtAuth: jwtAuth, ttl: ttl, now: time.Now}
}

// Issue returns a token for user. It becomes invalid when the user's security stamp changes.
func (p *PendingContext) Issue(user *model.User, rememberMe bool) (string, error) {
	return p.jwtAuth.GenerateToken(pendingClaims{
		Purpose:          pendingPurpose,
		SecurityStamp:    user.SecurityStamp,
		RememberMe:       rememberMe,
		RegisteredClaims: p.jwtAuth.RegisteredClaims(user.ID.Hex(), p.now(), p.ttl),
	})
}

// PendingIdentity is the content of a valid pending token.
type PendingIdentity struct {
	UserID        model.ID
	SecurityStamp string
	RememberMe    bool
}

// Resolve validates token. Any failure matches ErrInvalidPendingContext.
func (p *PendingContext) Resolve(token string) (*PendingIdentity, error) {
	var claims pendingClaims
	if _, err := p.jwtAuth.ValidateTokenWithClaims(token, &claims); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPendingContext, err)
	}
	if claims.Purpose != pendingPurpose {
		return nil, ErrInvalidPendingContext
	}

	id, err := model.ParseID(claims.Subject)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPendingContext, err)
	}

	return &PendingIdentity{UserID: id, SecurityStamp: claims.SecurityStamp, RememberMe: claims.RememberMe}, nil
}
