package distributed

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/ktladder/ktladder-backend/pkg/logger"
)

// RatingLockKey guards every rating write across server and CLI instances.
const RatingLockKey = "ktladder:lock:ratings"

const defaultRetryInterval = 50 * time.Millisecond

var (
	ErrLockNotAcquired = errors.New("lock not acquired")
	ErrLockNotHeld     = errors.New("lock not held")
)

// compare-and-delete: only the owner token may release
var releaseScript = redis.NewScript(`
	if redis.call("GET", KEYS[1]) == ARGV[1] then
		return redis.call("DEL", KEYS[1])
	end
	return 0
`)

// compare-and-pexpire: only the owner token may extend
var extendScript = redis.NewScript(`
	if redis.call("GET", KEYS[1]) == ARGV[1] then
		return redis.call("PEXPIRE", KEYS[1], ARGV[2])
	end
	return 0
`)

// RedisLock Redis 기반 분산 락
//
// Acquire polls SET NX until the key is free or ctx is done. While held, the TTL is
// refreshed every ttl/3 so a long recalculation keeps the lock, and a crashed holder
// loses it once the TTL runs out.
type RedisLock struct {
	client        redis.UniversalClient
	key           string
	ttl           time.Duration
	retryInterval time.Duration
}

// NewRedisLock Redis 락 생성
func NewRedisLock(client redis.UniversalClient, key string, ttl time.Duration) *RedisLock {
	return &RedisLock{
		client:        client,
		key:           key,
		ttl:           ttl,
		retryInterval: defaultRetryInterval,
	}
}

// Acquire blocks until the lock is held or ctx is done. onLost, when not nil, is called
// once from the heartbeat if the key expired or changed owner before release.
func (l *RedisLock) Acquire(ctx context.Context, onLost func(error)) (func(), error) {
	token := uuid.NewString()

	for {
		ok, err := l.client.SetNX(ctx, l.key, token, l.ttl).Result()
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, ctxErr
			}
			return nil, err
		}
		if ok {
			break
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(l.retryInterval):
		}
	}

	return l.hold(token, onLost), nil
}

// TryAcquire makes a single attempt and returns ErrLockNotAcquired when the lock is taken.
func (l *RedisLock) TryAcquire(ctx context.Context, onLost func(error)) (func(), error) {
	token := uuid.NewString()

	ok, err := l.client.SetNX(ctx, l.key, token, l.ttl).Result()
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrLockNotAcquired
	}

	return l.hold(token, onLost), nil
}

// hold starts the heartbeat for an acquired token and returns its release func.
func (l *RedisLock) hold(token string, onLost func(error)) func() {
	stop := make(chan struct{})
	done := make(chan struct{})
	go l.heartbeat(token, onLost, stop, done)

	var once sync.Once
	return func() {
		once.Do(func() {
			close(stop)
			<-done

			// the caller's ctx may already be cancelled
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()

			if err := l.release(ctx, token); err != nil {
				logger.Warn("Failed to release rating lock", "key", l.key, "error", err)
			}
		})
	}
}

// IsHeld reports whether anyone currently holds the lock.
func (l *RedisLock) IsHeld(ctx context.Context) (bool, error) {
	n, err := l.client.Exists(ctx, l.key).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (l *RedisLock) heartbeat(token string, onLost func(error), stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)

	interval := l.ttl / 3
	if interval <= 0 {
		interval = time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			ctx, cancel := context.WithTimeout(context.Background(), interval)
			err := l.extend(ctx, token)
			cancel()
			if err != nil {
				logger.Error("Failed to extend rating lock", "key", l.key, "error", err)
				if errors.Is(err, ErrLockNotHeld) {
					if onLost != nil {
						onLost(err)
					}
					return
				}
			}
		}
	}
}

func (l *RedisLock) extend(ctx context.Context, token string) error {
	result, err := extendScript.Run(ctx, l.client, []string{l.key}, token, l.ttl.Milliseconds()).Int()
	if err != nil {
		return err
	}
	if result == 0 {
		return ErrLockNotHeld
	}
	return nil
}

func (l *RedisLock) release(ctx context.Context, token string) error {
	result, err := releaseScript.Run(ctx, l.client, []string{l.key}, token).Int()
	if err != nil {
		return err
	}
	if result == 0 {
		return ErrLockNotHeld
	}
	return nil
}
