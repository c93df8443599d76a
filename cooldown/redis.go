package cooldown

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// cooldownScript performs the read-modify-write atomically in Redis.
// KEYS[1] = cooldown key
// ARGV[1] = current unix time (milliseconds)
// ARGV[2] = window (milliseconds)
// Returns {allowed, remaining_ms}.
var cooldownScript = redis.NewScript(`
local key = KEYS[1]
local now = tonumber(ARGV[1])
local window = tonumber(ARGV[2])

local last = redis.call("GET", key)
if last then
    local elapsed = now - tonumber(last)
    if elapsed < window then
        return {0, window - elapsed}
    end
end

redis.call("SET", key, now)
return {1, 0}
`)

// RedisStore implements Store on Redis, durable across process restarts and
// safe under concurrent fire attempts from multiple instances.
type RedisStore struct {
	client *redis.Client
	prefix string
}

func NewRedisStore(addr, password string, db int) *RedisStore {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	return &RedisStore{client: rdb, prefix: "cooldown:"}
}

// NewRedisStoreWithClient wraps an existing client.
func NewRedisStoreWithClient(client *redis.Client) *RedisStore {
	return &RedisStore{client: client, prefix: "cooldown:"}
}

func (s *RedisStore) TryFire(ctx context.Context, key string, window time.Duration) (bool, time.Duration, error) {
	now := time.Now().UnixMilli()
	res, err := cooldownScript.Run(ctx, s.client, []string{s.prefix + key}, now, window.Milliseconds()).Result()
	if err != nil {
		return false, 0, fmt.Errorf("cooldown check failed for %s: %w", key, err)
	}

	vals, ok := res.([]interface{})
	if !ok || len(vals) != 2 {
		return false, 0, fmt.Errorf("unexpected cooldown script result for %s: %v", key, res)
	}

	allowed, _ := vals[0].(int64)
	remainingMs, _ := vals[1].(int64)
	return allowed == 1, time.Duration(remainingMs) * time.Millisecond, nil
}

// Ping verifies connectivity at startup.
func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}
