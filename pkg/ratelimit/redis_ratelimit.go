package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Lua 스크립트: 토큰 리필 후 1개 소비 (원자적)
var tokenBucketScript = redis.NewScript(`
	local key = KEYS[1]
	local capacity = tonumber(ARGV[1])
	local refill = tonumber(ARGV[2])
	local now = tonumber(ARGV[3])
	local ttl = tonumber(ARGV[4])

	local state = redis.call('HMGET', key, 'tokens', 'ts')
	local tokens = tonumber(state[1])
	local ts = tonumber(state[2])

	if tokens == nil then
		tokens = capacity
		ts = now
	end

	local elapsed = math.max(0, now - ts) / 1000
	tokens = math.min(capacity, tokens + elapsed * refill)

	local allowed = 0
	if tokens >= 1 then
		tokens = tokens - 1
		allowed = 1
	end

	redis.call('HSET', key, 'tokens', tokens, 'ts', now)
	redis.call('PEXPIRE', key, ttl)

	return allowed
`)

// RedisLimiter Redis 기반 분산 Rate Limiter (Token Bucket)
//
// Buckets are shared by every instance using the same Redis.
type RedisLimiter struct {
	client     redis.UniversalClient
	keyPrefix  string
	capacity   int64
	refillRate int64
}

// NewRedisLimiter Redis Rate Limiter 생성
func NewRedisLimiter(client redis.UniversalClient, keyPrefix string, capacity, refillPerSecond int64) *RedisLimiter {
	if keyPrefix == "" {
		keyPrefix = "ratelimit:"
	}
	return &RedisLimiter{
		client:     client,
		keyPrefix:  keyPrefix,
		capacity:   capacity,
		refillRate: refillPerSecond,
	}
}

// Allow consumes one token for key if available.
func (r *RedisLimiter) Allow(ctx context.Context, key string) (bool, error) {
	// a bucket untouched for twice its full refill time is full anyway
	ttl := 2 * time.Duration(r.capacity) * time.Second / time.Duration(maxInt64(r.refillRate, 1))
	if ttl < time.Second {
		ttl = time.Second
	}

	allowed, err := tokenBucketScript.Run(ctx, r.client, []string{r.keyPrefix + key},
		r.capacity, r.refillRate, time.Now().UnixMilli(), ttl.Milliseconds()).Int()
	if err != nil {
		return false, fmt.Errorf("redis rate limit script failed: %w", err)
	}

	return allowed == 1, nil
}

func maxInt64(a, b int64) int64 {
	if a > b {
		return a
	}
	return b
}
