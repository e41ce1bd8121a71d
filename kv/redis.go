package kv

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

// compareAndDeleteScript deletes the key only when the stored value matches.
// KEYS[1]: the key
// ARGV[1]: the expected value
// Returns 1 if deletion occurred, 0 otherwise.
const compareAndDeleteScript = `
if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("del", KEYS[1])
else
	return 0
end
`

var cadScript = redis.NewScript(compareAndDeleteScript)

// RedisStore implements Store on top of a go-redis client.
type RedisStore struct {
	client redis.Cmdable // Cmdable keeps ClusterClient/SentinelClient compatible.
}

// NewRedisStore wraps a pre-configured redis.Cmdable.
func NewRedisStore(client redis.Cmdable) *RedisStore {
	return &RedisStore{client: client}
}

// Incr implements Store.
func (s *RedisStore) Incr(ctx context.Context, key string) (int64, error) {
	n, err := s.client.Incr(ctx, key).Result()
	if err != nil {
		return 0, fmt.Errorf("kv: incr %s: %w", key, err)
	}
	return n, nil
}

// Expire implements Store.
func (s *RedisStore) Expire(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	ok, err := s.client.PExpire(ctx, key, ttl).Result()
	if err != nil {
		return false, fmt.Errorf("kv: expire %s: %w", key, err)
	}
	return ok, nil
}

// SetNX implements Store.
func (s *RedisStore) SetNX(ctx context.Context, key, value string, ttl time.Duration) (bool, error) {
	ok, err := s.client.SetNX(ctx, key, value, ttl).Result()
	if err != nil {
		return false, fmt.Errorf("kv: setnx %s: %w", key, err)
	}
	return ok, nil
}

// CompareAndDelete implements Store using a single atomic Lua round trip.
func (s *RedisStore) CompareAndDelete(ctx context.Context, key, value string) (bool, error) {
	res, err := cadScript.Run(ctx, s.client, []string{key}, value).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			// Key is gone already; nothing matched, nothing deleted.
			return false, nil
		}
		return false, fmt.Errorf("kv: compare-and-delete %s: %w", key, err)
	}
	n, ok := res.(int64)
	if !ok {
		log.Error().Str("key", key).Interface("result", res).Msg("compare-and-delete script returned unexpected type")
		return false, fmt.Errorf("kv: unexpected script result type %T for key %s", res, key)
	}
	return n == 1, nil
}

// Get implements Store.
func (s *RedisStore) Get(ctx context.Context, key string) (string, bool, error) {
	val, err := s.client.Get(ctx, key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("kv: get %s: %w", key, err)
	}
	return val, true, nil
}

// Ping implements Store.
func (s *RedisStore) Ping(ctx context.Context) error {
	if err := s.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("kv: ping: %w", err)
	}
	return nil
}
