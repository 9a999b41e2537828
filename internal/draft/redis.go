package draft

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// DefaultKey is the slot name used when none is configured.
const DefaultKey = "ldpr-report-draft"

// RedisStore keeps the draft under a single Redis key with no expiry.
type RedisStore struct {
	rdb *redis.Client
	key string
}

// NewRedisStore connects to addr and verifies the connection.
func NewRedisStore(ctx context.Context, addr, key string) (*RedisStore, error) {
	if key == "" {
		key = DefaultKey
	}
	rdb := redis.NewClient(&redis.Options{
		Addr: addr,
		DB:   0,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("ping redis %s: %w", addr, err)
	}
	return &RedisStore{rdb: rdb, key: key}, nil
}

// Client exposes the connection for the submission lock.
func (s *RedisStore) Client() *redis.Client { return s.rdb }

func (s *RedisStore) Load(ctx context.Context) ([]byte, error) {
	val, err := s.rdb.Get(ctx, s.key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNoDraft
	}
	if err != nil {
		return nil, fmt.Errorf("get %s: %w", s.key, err)
	}
	return val, nil
}

func (s *RedisStore) Save(ctx context.Context, payload []byte) error {
	if err := s.rdb.Set(ctx, s.key, payload, 0).Err(); err != nil {
		return fmt.Errorf("set %s: %w", s.key, err)
	}
	return nil
}

func (s *RedisStore) Clear(ctx context.Context) error {
	if err := s.rdb.Del(ctx, s.key).Err(); err != nil {
		return fmt.Errorf("del %s: %w", s.key, err)
	}
	return nil
}

func (s *RedisStore) Ping(ctx context.Context) error {
	return s.rdb.Ping(ctx).Err()
}

func (s *RedisStore) Close() error {
	return s.rdb.Close()
}
