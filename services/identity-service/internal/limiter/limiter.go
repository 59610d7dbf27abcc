// Package limiter throttles second-factor attempts per user in Redis, independently of
// the persistent lockout counter on the user record.
package limiter

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	defaultMaxAttempts = 5
	defaultWindow      = 5 * time.Minute
	keyPrefix          = "identity:2fa:att:"
)

var (
	ErrRateLimited = errors.New("too many second factor attempts")
	ErrUnavailable = errors.New("attempt limiter unavailable")
)

type Config struct {
	MaxAttempts int
	Window      time.Duration
}

// AttemptLimiter counts failed attempts in a fixed window that starts at the first failure.
type AttemptLimiter struct {
	redis       redis.UniversalClient
	maxAttempts int64
	window      time.Duration
}

// New creates an AttemptLimiter. Zero-value fields fall back to 5 attempts / 5m.
func New(redisClient redis.UniversalClient, cfg Config) *AttemptLimiter {
	max := cfg.MaxAttempts
	if max <= 0 {
		max = defaultMaxAttempts
	}
	window := cfg.Window
	if window <= 0 {
		window = defaultWindow
	}

	return &AttemptLimiter{redis: redisClient, maxAttempts: int64(max), window: window}
}

func (l *AttemptLimiter) key(userID string) string {
	return keyPrefix + userID
}

// Check returns ErrRateLimited once the user has used up the window.
func (l *AttemptLimiter) Check(ctx context.Context, userID string) error {
	count, err := l.redis.Get(ctx, l.key(userID)).Int64()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil
		}
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if count >= l.maxAttempts {
		return ErrRateLimited
	}

	return nil
}

// RecordFailure counts one failed attempt and reports ErrRateLimited when it was the last allowed.
func (l *AttemptLimiter) RecordFailure(ctx context.Context, userID string) error {
	count, err := l.redis.Incr(ctx, l.key(userID)).Result()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if count == 1 {
		if err := l.redis.Expire(ctx, l.key(userID), l.window).Err(); err != nil {
			return fmt.Errorf("%w: %v", ErrUnavailable, err)
		}
	}
	if count >= l.maxAttempts {
		return ErrRateLimited
	}

	return nil
}

func (l *AttemptLimiter) Reset(ctx context.Context, userID string) error {
	if err := l.redis.Del(ctx, l.key(userID)).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	return nil
}
