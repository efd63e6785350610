package distributed

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalLock(t *testing.T) {
	lock := NewLocalLock()
	ctx := context.Background()

	release, err := lock.Acquire(ctx, nil)
	require.NoError(t, err)

	_, err = lock.TryAcquire(ctx, nil)
	assert.Equal(t, ErrLockNotAcquired, err)

	held, err := lock.IsHeld(ctx)
	require.NoError(t, err)
	assert.True(t, held)

	waitCtx, cancel := context.WithTimeout(ctx, 20*time.Millisecond)
	defer cancel()
	_, err = lock.Acquire(waitCtx, nil)
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	release()
	release()

	held, err = lock.IsHeld(ctx)
	require.NoError(t, err)
	assert.False(t, held)

	release2, err := lock.TryAcquire(ctx, nil)
	require.NoError(t, err)
	release2()
}

func TestLocalLock_CancelledContext(t *testing.T) {
	lock := NewLocalLock()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := lock.Acquire(ctx, nil)
	assert.ErrorIs(t, err, context.Canceled)

	// a cancelled attempt must not leave the lock taken
	release, err := lock.TryAcquire(context.Background(), nil)
	require.NoError(t, err)
	release()
}
