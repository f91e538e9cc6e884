package lock

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupRedisLocker(t *testing.T) (*RedisSlotLocker, *miniredis.Miniredis) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewRedisSlotLocker(client), mr
}

func TestRedisSlotLocker(t *testing.T) {
	locker, mr := setupRedisLocker(t)
	ctx := context.Background()

	ok, err := locker.Acquire(ctx, "c1", "2025-03-10", "09:00", 10*time.Second)
	require.NoError(t, err)
	assert.True(t, ok)

	// Second acquire on the same slot is refused.
	ok, err = locker.Acquire(ctx, "c1", "2025-03-10", "09:00", 10*time.Second)
	require.NoError(t, err)
	assert.False(t, ok)

	// Different slot is independent.
	ok, err = locker.Acquire(ctx, "c1", "2025-03-10", "09:30", 10*time.Second)
	require.NoError(t, err)
	assert.True(t, ok)

	require.NoError(t, locker.Release(ctx, "c1", "2025-03-10", "09:00"))
	ok, err = locker.Acquire(ctx, "c1", "2025-03-10", "09:00", 10*time.Second)
	require.NoError(t, err)
	assert.True(t, ok)

	// TTL expiry frees the lock.
	mr.FastForward(11 * time.Second)
	ok, err = locker.Acquire(ctx, "c1", "2025-03-10", "09:00", 10*time.Second)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestMemorySlotLocker(t *testing.T) {
	locker := NewMemorySlotLocker()
	ctx := context.Background()

	ok, err := locker.Acquire(ctx, "c1", "2025-03-10", "09:00", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = locker.Acquire(ctx, "c1", "2025-03-10", "09:00", time.Minute)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, locker.Release(ctx, "c1", "2025-03-10", "09:00"))
	ok, err = locker.Acquire(ctx, "c1", "2025-03-10", "09:00", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestMemorySlotLockerExpiry(t *testing.T) {
	locker := NewMemorySlotLocker()
	ctx := context.Background()

	ok, err := locker.Acquire(ctx, "c1", "2025-03-10", "09:00", time.Millisecond)
	require.NoError(t, err)
	assert.True(t, ok)

	time.Sleep(5 * time.Millisecond)
	ok, err = locker.Acquire(ctx, "c1", "2025-03-10", "09:00", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)
}

type failingLocker struct{}

func (failingLocker) Acquire(context.Context, string, string, string, time.Duration) (bool, error) {
	return false, errors.New("down")
}

func (failingLocker) Release(context.Context, string, string, string) error {
	return errors.New("down")
}

func TestFailoverSlotLocker(t *testing.T) {
	logger := zerolog.New(io.Discard)
	locker := NewFailoverSlotLocker(failingLocker{}, NewMemorySlotLocker(), &logger)
	ctx := context.Background()

	ok, err := locker.Acquire(ctx, "c1", "2025-03-10", "09:00", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)

	// Fallback still enforces exclusivity.
	ok, err = locker.Acquire(ctx, "c1", "2025-03-10", "09:00", time.Minute)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestFailoverPrefersPrimary(t *testing.T) {
	logger := zerolog.New(io.Discard)
	primary, _ := setupRedisLocker(t)
	locker := NewFailoverSlotLocker(primary, NewMemorySlotLocker(), &logger)
	ctx := context.Background()

	ok, err := locker.Acquire(ctx, "c1", "2025-03-10", "09:00", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = locker.Acquire(ctx, "c1", "2025-03-10", "09:00", time.Minute)
	require.NoError(t, err)
	assert.False(t, ok)
}
