package lock

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

func newTestLocker(t *testing.T) (*Locker, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	return NewLocker(client, time.Minute), mr
}

func TestAcquireThenContend(t *testing.T) {
	locker, _ := newTestLocker(t)
	ctx := context.Background()

	key := PeriodKey("Jan 2026 - BAC")
	token, err := locker.Acquire(ctx, key)
	require.NoError(t, err)
	require.NotEmpty(t, token)

	_, err = locker.Acquire(ctx, key)
	require.ErrorIs(t, err, ErrHeld)

	require.NoError(t, locker.Release(ctx, key, token))

	_, err = locker.Acquire(ctx, key)
	require.NoError(t, err)
}

func TestReleaseWithWrongTokenKeepsLock(t *testing.T) {
	locker, _ := newTestLocker(t)
	ctx := context.Background()

	key := PeriodKey("Feb 2026 - BAC")
	_, err := locker.Acquire(ctx, key)
	require.NoError(t, err)

	require.NoError(t, locker.Release(ctx, key, "not-the-token"))

	_, err = locker.Acquire(ctx, key)
	require.ErrorIs(t, err, ErrHeld)
}

func TestLockExpires(t *testing.T) {
	locker, mr := newTestLocker(t)
	ctx := context.Background()

	key := PeriodKey("Mar 2026 - BAC")
	_, err := locker.Acquire(ctx, key)
	require.NoError(t, err)

	mr.FastForward(2 * time.Minute)

	_, err = locker.Acquire(ctx, key)
	require.NoError(t, err)
}
