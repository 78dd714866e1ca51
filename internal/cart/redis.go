package cart

import (
	"context"
	"fmt"
	"strconv"
	"time"

	rd "github.com/redis/go-redis/v9"
)

// RedisStore keeps each cart in a Redis hash, field = line key, value =
// quantity. Every write refreshes the TTL so active carts survive and
// abandoned ones expire with the session.
type RedisStore struct {
	rdb *rd.Client
	ttl time.Duration
}

func NewRedisStore(rdb *rd.Client, ttl time.Duration) *RedisStore {
	return &RedisStore{rdb: rdb, ttl: ttl}
}

func cartKey(sessionID string) string {
	return fmt.Sprintf("storefront:cart:%s", sessionID)
}

func (s *RedisStore) Get(ctx context.Context, sessionID string) (map[string]int64, error) {
	m, err := s.rdb.HGetAll(ctx, cartKey(sessionID)).Result()
	if err != nil {
		return nil, err
	}
	out := make(map[string]int64, len(m))
	for k, v := range m {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil || n <= 0 {
			// Corrupted field: drop the line rather than fail the cart.
			continue
		}
		out[k] = n
	}
	return out, nil
}

func (s *RedisStore) Add(ctx context.Context, sessionID, key string, quantity int64) (int64, error) {
	pipe := s.rdb.TxPipeline()
	incr := pipe.HIncrBy(ctx, cartKey(sessionID), key, quantity)
	pipe.Expire(ctx, cartKey(sessionID), s.ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, err
	}
	return incr.Val(), nil
}

func (s *RedisStore) Remove(ctx context.Context, sessionID, key string) error {
	return s.rdb.HDel(ctx, cartKey(sessionID), key).Err()
}

func (s *RedisStore) Clear(ctx context.Context, sessionID string) error {
	return s.rdb.Del(ctx, cartKey(sessionID)).Err()
}
