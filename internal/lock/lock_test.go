package lock

import (
	"context"
	"testing"
	"time"

	"github.com/smallbiznis/invoicereminder/internal/clock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryLockerExclusive(t *testing.T) {
	l := NewMemoryLocker(clock.NewFakeClock(time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)))
	ctx := context.Background()

	token, ok, err := l.TryLock(ctx, "dispatch:1", time.Minute)
	require.NoError(t, err)
	require.True(t, ok)
	assert.NotEmpty(t, token)

	_, ok, err = l.TryLock(ctx, "dispatch:1", time.Minute)
	require.NoError(t, err)
	assert.False(t, ok)

	_, ok, err = l.TryLock(ctx, "dispatch:2", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)

	require.NoError(t, l.Release(ctx, "dispatch:1", "someone-else"))
	_, ok, _ = l.TryLock(ctx, "dispatch:1", time.Minute)
	assert.False(t, ok)

	require.NoError(t, l.Release(ctx, "dispatch:1", token))
	_, ok, _ = l.TryLock(ctx, "dispatch:1", time.Minute)
	assert.True(t, ok)
}

func TestMemoryLockerExpires(t *testing.T) {
	fake := clock.NewFakeClock(time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC))
	l := NewMemoryLocker(fake)
	ctx := context.Background()

	_, ok, err := l.TryLock(ctx, "dispatch:1", time.Minute)
	require.NoError(t, err)
	require.True(t, ok)

	fake.Advance(time.Minute)
	_, ok, err = l.TryLock(ctx, "dispatch:1", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestLockValidation(t *testing.T) {
	l := NewMemoryLocker(nil)
	ctx := context.Background()

	_, _, err := l.TryLock(ctx, "", time.Minute)
	assert.ErrorIs(t, err, ErrEmptyKey)
	_, _, err = l.TryLock(ctx, "k", 0)
	assert.ErrorIs(t, err, ErrInvalidTTL)

	canceled, cancel := context.WithCancel(ctx)
	cancel()
	_, _, err = l.TryLock(canceled, "k", time.Minute)
	assert.ErrorIs(t, err, context.Canceled)

	assert.NoError(t, l.Release(ctx, "", ""))
}
