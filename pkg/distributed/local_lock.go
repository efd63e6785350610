package distributed

import (
	"context"
	"sync"
)

// LocalLock is the single-instance fallback when no Redis is configured.
// A held LocalLock cannot expire, so onLost is never called.
type LocalLock struct {
	ch chan struct{}
}

func NewLocalLock() *LocalLock {
	return &LocalLock{ch: make(chan struct{}, 1)}
}

// Acquire blocks until the lock is held or ctx is done.
func (l *LocalLock) Acquire(ctx context.Context, _ func(error)) (func(), error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	select {
	case l.ch <- struct{}{}:
		return l.releaser(), nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// TryAcquire returns ErrLockNotAcquired instead of waiting.
func (l *LocalLock) TryAcquire(_ context.Context, _ func(error)) (func(), error) {
	select {
	case l.ch <- struct{}{}:
		return l.releaser(), nil
	default:
		return nil, ErrLockNotAcquired
	}
}

// IsHeld reports whether the lock is currently taken.
func (l *LocalLock) IsHeld(context.Context) (bool, error) {
	return len(l.ch) > 0, nil
}

func (l *LocalLock) releaser() func() {
	var once sync.Once
	return func() { once.Do(func() { <-l.ch }) }
}
