package limiter

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newLimiter(t *testing.T, cfg Config) (*AttemptLimiter, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	return New(client, cfg), mr
}

func TestAttemptLimiter_LimitsAfterMaxAttempts(t *testing.T) {
	ctx := context.Background()
	l, _ := newLimiter(t, Config{MaxAttempts: 3, Window: time.Minute})

	require.NoError(t, l.Check(ctx, "u1"))
	require.NoError(t, l.RecordFailure(ctx, "u1"))
	require.NoError(t, l.RecordFailure(ctx, "u1"))
	assert.ErrorIs(t, l.RecordFailure(ctx, "u1"), ErrRateLimited)
	assert.ErrorIs(t, l.Check(ctx, "u1"), ErrRateLimited)

	assert.NoError(t, l.Check(ctx, "u2"), "counters are per user")
}

func TestAttemptLimiter_WindowExpires(t *testing.T) {
	ctx := context.Background()
	l, mr := newLimiter(t, Config{MaxAttempts: 1, Window: time.Minute})

	assert.ErrorIs(t, l.RecordFailure(ctx, "u1"), ErrRateLimited)

	mr.FastForward(2 * time.Minute)
	assert.NoError(t, l.Check(ctx, "u1"))
}

func TestAttemptLimiter_Reset(t *testing.T) {
	ctx := context.Background()
	l, _ := newLimiter(t, Config{MaxAttempts: 1})

	assert.ErrorIs(t, l.RecordFailure(ctx, "u1"), ErrRateLimited)
	require.NoError(t, l.Reset(ctx, "u1"))
	assert.NoError(t, l.Check(ctx, "u1"))
}

func TestAttemptLimiter_Unavailable(t *testing.T) {
	ctx := context.Background()
	l, mr := newLimiter(t, Config{})
	mr.Close()

	assert.ErrorIs(t, l.Check(ctx, "u1"), ErrUnavailable)
	assert.ErrorIs(t, l.RecordFailure(ctx, "u1"), ErrUnavailable)
}
