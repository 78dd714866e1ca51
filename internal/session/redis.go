package session

import (
	"context"
	"fmt"
	"strconv"
	"time"

	rd "github.com/redis/go-redis/v9"
)

// RedisStore keeps the attempt as a Redis hash per session, TTL refreshed on
// every write so the attempt expires with the session.
type RedisStore struct {
	rdb *rd.Client
	ttl time.Duration
}

func NewRedisStore(rdb *rd.Client, ttl time.Duration) *RedisStore {
	return &RedisStore{rdb: rdb, ttl: ttl}
}

func attemptKey(sessionID string) string {
	return fmt.Sprintf("storefront:checkout:attempt:%s", sessionID)
}

func (s *RedisStore) Reset(ctx context.Context, sessionID string) (string, error) {
	token := NewToken()
	key := attemptKey(sessionID)
	pipe := s.rdb.TxPipeline()
	pipe.Del(ctx, key)
	pipe.HSet(ctx, key, "token", token)
	pipe.Expire(ctx, key, s.ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return "", err
	}
	return token, nil
}

func (s *RedisStore) Get(ctx context.Context, sessionID string) (Attempt, bool, error) {
	m, err := s.rdb.HGetAll(ctx, attemptKey(sessionID)).Result()
	if err != nil {
		return Attempt{}, false, err
	}
	if len(m) == 0 {
		return Attempt{}, false, nil
	}
	a := Attempt{Token: m["token"], RedirectURL: m["redirect_url"], Claimed: m["claimed"] != ""}
	if v := m["order_id"]; v != "" {
		n, err := strconv.ParseUint(v, 10, 32)
		if err == nil {
			a.OrderID = uint(n)
		}
	}
	return a, true, nil
}

// Claim is a SETNX on the attempt hash: the first submit to set the field
// wins, every concurrent duplicate loses and waits for the winner's order.
func (s *RedisStore) Claim(ctx context.Context, sessionID string) (bool, error) {
	key := attemptKey(sessionID)
	won, err := s.rdb.HSetNX(ctx, key, "claimed", "1").Result()
	if err != nil {
		return false, err
	}
	if won {
		s.rdb.Expire(ctx, key, s.ttl)
	}
	return won, nil
}

func (s *RedisStore) Release(ctx context.Context, sessionID string) error {
	return s.rdb.HDel(ctx, attemptKey(sessionID), "claimed").Err()
}

func (s *RedisStore) RecordOrder(ctx context.Context, sessionID string, orderID uint, redirectURL string) error {
	key := attemptKey(sessionID)
	pipe := s.rdb.TxPipeline()
	pipe.HSet(ctx, key,
		"order_id", strconv.FormatUint(uint64(orderID), 10),
		"redirect_url", redirectURL,
	)
	pipe.Expire(ctx, key, s.ttl)
	_, err := pipe.Exec(ctx)
	return err
}
