package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/optica/backend/internal/domain/shared"
	"github.com/optica/backend/internal/infrastructure/config"
	"github.com/redis/go-redis/v9"
)

const (
	defaultKeyPrefix   = "optica:idempotency:"
	defaultDialTimeout = 5 * time.Second

	// pendingValue marks a key whose request is still running
	pendingValue = "\x00pending"
)

// DialRedis connects to the configured server and checks that it answers
// PING within timeout.
func DialRedis(ctx context.Context, cfg config.RedisConfig, timeout time.Duration) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr(),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		return nil, errors.Join(fmt.Errorf("ping redis at %s: %w", cfg.Addr(), err), client.Close())
	}
	return client, nil
}

// RedisIdempotencyStore shares idempotency keys between API instances.
// Reservations rely on SET NX, so exactly one instance wins a key.
type RedisIdempotencyStore struct {
	rdb    redis.UniversalClient
	prefix string
}

// NewRedisIdempotencyStore takes ownership of rdb; Close closes it
func NewRedisIdempotencyStore(rdb redis.UniversalClient, prefix string) *RedisIdempotencyStore {
	if prefix == "" {
		prefix = defaultKeyPrefix
	}
	return &RedisIdempotencyStore{rdb: rdb, prefix: prefix}
}

func (s *RedisIdempotencyStore) Reserve(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	won, err := s.rdb.SetNX(ctx, s.prefix+key, pendingValue, ttl).Result()
	return won, keyError("reserve", key, err)
}

func (s *RedisIdempotencyStore) Complete(ctx context.Context, key, result string, ttl time.Duration) error {
	return keyError("complete", key, s.rdb.Set(ctx, s.prefix+key, result, ttl).Err())
}

func (s *RedisIdempotencyStore) Lookup(ctx context.Context, key string) (string, bool, error) {
	val, err := s.rdb.Get(ctx, s.prefix+key).Result()
	switch {
	case errors.Is(err, redis.Nil):
		return "", false, nil
	case err != nil:
		return "", false, keyError("lookup", key, err)
	case val == pendingValue:
		return "", true, nil
	}
	return val, true, nil
}

func (s *RedisIdempotencyStore) Release(ctx context.Context, key string) error {
	return keyError("release", key, s.rdb.Del(ctx, s.prefix+key).Err())
}

func (s *RedisIdempotencyStore) Close() error {
	return s.rdb.Close()
}

func keyError(op, key string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("idempotency %s %q: %w", op, key, err)
}

var _ shared.IdempotencyStore = (*RedisIdempotencyStore)(nil)
