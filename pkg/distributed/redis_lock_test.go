package distributed

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupRedisClient(t *testing.T) *redis.Client {
	client := redis.NewClient(&redis.Options{
		Addr: "localhost:6379",
		DB:   15, // 테스트용 DB
	})

	ctx := context.Background()
	if err := client.Ping(ctx).Err(); err != nil {
		t.Skip("Redis not available:", err)
	}

	// 테스트 전 DB 초기화
	client.FlushDB(ctx)
	t.Cleanup(func() { client.Close() })

	return client
}

func TestRedisLock_AcquireAndRelease(t *testing.T) {
	client := setupRedisClient(t)
	lock := NewRedisLock(client, "test:ratings", 5*time.Second)
	ctx := context.Background()

	release, err := lock.Acquire(ctx, nil)
	require.NoError(t, err)

	// 이미 잡힌 락은 재획득 불가
	_, err = lock.TryAcquire(ctx, nil)
	assert.Equal(t, ErrLockNotAcquired, err)

	held, err := lock.IsHeld(ctx)
	require.NoError(t, err)
	assert.True(t, held)

	release()
	release() // 두 번 호출해도 안전

	held, err = lock.IsHeld(ctx)
	require.NoError(t, err)
	assert.False(t, held)

	release2, err := lock.TryAcquire(ctx, nil)
	require.NoError(t, err)
	release2()
}

func TestRedisLock_AcquireWaitsForRelease(t *testing.T) {
	client := setupRedisClient(t)
	lock := NewRedisLock(client, "test:wait", 5*time.Second)
	ctx := context.Background()

	release, err := lock.Acquire(ctx, nil)
	require.NoError(t, err)

	go func() {
		time.Sleep(300 * time.Millisecond)
		release()
	}()

	start := time.Now()
	release2, err := lock.Acquire(ctx, nil)
	require.NoError(t, err)
	defer release2()

	assert.Greater(t, time.Since(start), 200*time.Millisecond)
}

func TestRedisLock_AcquireTimesOut(t *testing.T) {
	client := setupRedisClient(t)
	lock := NewRedisLock(client, "test:timeout", 5*time.Second)

	release, err := lock.Acquire(context.Background(), nil)
	require.NoError(t, err)
	defer release()

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()

	_, err = lock.Acquire(ctx, nil)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestRedisLock_HeartbeatKeepsLock(t *testing.T) {
	client := setupRedisClient(t)
	lock := NewRedisLock(client, "test:heartbeat", 600*time.Millisecond)
	ctx := context.Background()

	release, err := lock.Acquire(ctx, nil)
	require.NoError(t, err)

	// TTL의 몇 배가 지나도 유지
	time.Sleep(1500 * time.Millisecond)

	held, err := lock.IsHeld(ctx)
	require.NoError(t, err)
	assert.True(t, held)

	release()
}

func TestRedisLock_ConcurrentAcquire(t *testing.T) {
	client := setupRedisClient(t)
	lock := NewRedisLock(client, "test:concurrent", 5*time.Second)

	const numGoroutines = 10
	var (
		wg      sync.WaitGroup
		holders int32
		maxSeen int32
	)

	for i := 0; i < numGoroutines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()

			release, err := lock.Acquire(context.Background(), nil)
			if !assert.NoError(t, err) {
				return
			}

			n := atomic.AddInt32(&holders, 1)
			for {
				m := atomic.LoadInt32(&maxSeen)
				if n <= m || atomic.CompareAndSwapInt32(&maxSeen, m, n) {
					break
				}
			}
			time.Sleep(10 * time.Millisecond)
			atomic.AddInt32(&holders, -1)

			release()
		}()
	}

	wg.Wait()
	assert.Equal(t, int32(1), maxSeen)
}

func TestRedisLock_ReportsLostLock(t *testing.T) {
	client := setupRedisClient(t)
	lock := NewRedisLock(client, "test:lost", 300*time.Millisecond)
	ctx := context.Background()

	lost := make(chan error, 1)
	release, err := lock.Acquire(ctx, func(err error) { lost <- err })
	require.NoError(t, err)
	defer release()

	// 다른 인스턴스가 만료 후 가져간 상황
	require.NoError(t, client.Set(ctx, "test:lost", "someone-else", time.Minute).Err())

	select {
	case err := <-lost:
		assert.ErrorIs(t, err, ErrLockNotHeld)
	case <-time.After(2 * time.Second):
		t.Fatal("lost lock was not reported")
	}

	// release must not delete the new owner's key
	release()
	owner, err := client.Get(ctx, "test:lost").Result()
	require.NoError(t, err)
	assert.Equal(t, "someone-else", owner)
}
