package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ktladder/ktladder-backend/pkg/distributed"
)

// RatingLock serializes everything that moves ratings: single game submissions and full
// recalculations. Acquire blocks until the lock is held or ctx is done; TryAcquire
// returns distributed.ErrLockNotAcquired when someone else holds it. onLost is called
// at most once if the lock expires while still held.
type RatingLock interface {
	Acquire(ctx context.Context, onLost func(error)) (release func(), err error)
	TryAcquire(ctx context.Context, onLost func(error)) (release func(), err error)
}

// acquireRatingLock waits at most wait for the lock (no limit when wait is 0).
// Running out of wait while ctx is still live yields ErrRatingsBusy.
//
// The returned context is cancelled with ErrRatingLockLost as its cause when the lock
// is lost before release; work done under the lock must use it.
func acquireRatingLock(ctx context.Context, lock RatingLock, wait time.Duration) (context.Context, func(), error) {
	waitCtx := ctx
	if wait > 0 {
		var cancel context.CancelFunc
		waitCtx, cancel = context.WithTimeout(ctx, wait)
		defer cancel()
	}

	lockCtx, cancelLock := context.WithCancelCause(ctx)
	release, err := lock.Acquire(waitCtx, lostHandler(cancelLock))
	if err != nil {
		cancelLock(nil)
		if wait > 0 && ctx.Err() == nil && errors.Is(err, context.DeadlineExceeded) {
			return nil, nil, ErrRatingsBusy
		}
		return nil, nil, fmt.Errorf("failed to acquire rating lock: %w", err)
	}

	return lockCtx, func() {
		cancelLock(nil)
		release()
	}, nil
}

// tryRatingLock is acquireRatingLock without waiting: a held lock yields ErrRatingsBusy.
func tryRatingLock(ctx context.Context, lock RatingLock) (context.Context, func(), error) {
	lockCtx, cancelLock := context.WithCancelCause(ctx)
	release, err := lock.TryAcquire(ctx, lostHandler(cancelLock))
	if err != nil {
		cancelLock(nil)
		if errors.Is(err, distributed.ErrLockNotAcquired) {
			return nil, nil, ErrRatingsBusy
		}
		return nil, nil, fmt.Errorf("failed to acquire rating lock: %w", err)
	}

	return lockCtx, func() {
		cancelLock(nil)
		release()
	}, nil
}

func lostHandler(cancel context.CancelCauseFunc) func(error) {
	return func(err error) {
		cancel(fmt.Errorf("%w: %v", ErrRatingLockLost, err))
	}
}

// lockCause returns the lost-lock cause of ctx, or err when the lock was not lost.
func lockCause(ctx context.Context, err error) error {
	if cause := context.Cause(ctx); errors.Is(cause, ErrRatingLockLost) && !errors.Is(err, ErrRatingLockLost) {
		return fmt.Errorf("%w (%v)", cause, err)
	}
	return err
}

// Event types pushed to dashboards.
const (
	EventGameRated              = "game_rated"
	EventRecalculationStarted   = "recalculation_started"
	EventRecalculationProgress  = "recalculation_progress"
	EventRecalculationCompleted = "recalculation_completed"
	EventRecalculationFailed    = "recalculation_failed"
)

type EventPublisher interface {
	Publish(eventType string, payload interface{})
}

type noopPublisher struct{}

func (noopPublisher) Publish(string, interface{}) {}

type RecalculationProgress struct {
	GamesProcessed int `json:"gamesProcessed"`
	TotalGames     int `json:"totalGames"`
}

// Publishers fans an event out to several publishers in order.
type Publishers []EventPublisher

func (p Publishers) Publish(eventType string, payload interface{}) {
	for _, pub := range p {
		pub.Publish(eventType, payload)
	}
}
