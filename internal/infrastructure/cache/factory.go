package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/optica/backend/internal/domain/shared"
	"github.com/optica/backend/internal/infrastructure/config"
	"go.uber.org/zap"
)

type openOptions struct {
	logger      *zap.Logger
	fallback    bool
	dialTimeout time.Duration
}

// Option tunes OpenIdempotencyStore
type Option func(*openOptions)

func WithLogger(logger *zap.Logger) Option {
	return func(o *openOptions) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// RequireRedis makes an unreachable Redis an error instead of a reason to
// keep keys in process memory. Production runs several instances and needs it.
func RequireRedis() Option {
	return func(o *openOptions) { o.fallback = false }
}

func WithDialTimeout(d time.Duration) Option {
	return func(o *openOptions) {
		if d > 0 {
			o.dialTimeout = d
		}
	}
}

// OpenIdempotencyStore returns the Redis store when Redis is enabled and
// answers, otherwise the in-memory one.
func OpenIdempotencyStore(ctx context.Context, cfg config.RedisConfig, opts ...Option) (shared.IdempotencyStore, error) {
	o := openOptions{logger: zap.NewNop(), fallback: true, dialTimeout: defaultDialTimeout}
	for _, opt := range opts {
		opt(&o)
	}

	if !cfg.Enabled {
		o.logger.Info("Redis disabled, idempotency keys kept in memory")
		return NewInMemoryIdempotencyStore(), nil
	}

	client, err := DialRedis(ctx, cfg, o.dialTimeout)
	switch {
	case err == nil:
		o.logger.Info("Idempotency keys kept in Redis", zap.String("addr", cfg.Addr()), zap.Int("db", cfg.DB))
		return NewRedisIdempotencyStore(client, ""), nil
	case !o.fallback:
		return nil, fmt.Errorf("redis is required for idempotency: %w", err)
	}

	o.logger.Warn("Redis unreachable, idempotency keys kept in memory of this instance only",
		zap.String("addr", cfg.Addr()),
		zap.Error(err),
	)
	return NewInMemoryIdempotencyStore(), nil
}
