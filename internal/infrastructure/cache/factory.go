package cache

import (
	"context"
	"fmt"

	"github.com/erp/lotledger/internal/domain/trade"
	"github.com/erp/lotledger/internal/infrastructure/config"
	"go.uber.org/zap"
)

// ReplayCacheFactory picks the sale replay cache from configuration
type ReplayCacheFactory struct {
	redisConfig           config.RedisConfig
	logger                *zap.Logger
	allowInMemoryFallback bool
}

// ReplayCacheFactoryOption is a functional option for configuring the factory
type ReplayCacheFactoryOption func(*ReplayCacheFactory)

// WithLogger sets the logger for the factory
func WithLogger(logger *zap.Logger) ReplayCacheFactoryOption {
	return func(f *ReplayCacheFactory) {
		f.logger = logger
	}
}

// WithInMemoryFallback controls whether an unreachable Redis degrades to the in-memory cache.
// Default is true.
func WithInMemoryFallback(allow bool) ReplayCacheFactoryOption {
	return func(f *ReplayCacheFactory) {
		f.allowInMemoryFallback = allow
	}
}

// NewReplayCacheFactory creates a new factory
func NewReplayCacheFactory(cfg config.RedisConfig, opts ...ReplayCacheFactoryOption) *ReplayCacheFactory {
	f := &ReplayCacheFactory{
		redisConfig:           cfg,
		logger:                zap.NewNop(),
		allowInMemoryFallback: true,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Create returns the Redis cache when enabled and reachable, else the in-memory one.
// The cache only short-cuts replays, so losing Redis never changes ledger results.
func (f *ReplayCacheFactory) Create(ctx context.Context) (trade.SaleReplayCache, error) {
	if !f.redisConfig.Enabled {
		f.logger.Info("using in-memory sale replay cache")
		return NewInMemorySaleReplayCache(f.redisConfig.TTL), nil
	}

	c, err := NewRedisSaleReplayCache(ctx, RedisOptions{
		Addr:     f.redisConfig.Addr(),
		Password: f.redisConfig.Password,
		DB:       f.redisConfig.DB,
		TTL:      f.redisConfig.TTL,
	})
	if err == nil {
		f.logger.Info("using Redis sale replay cache", zap.String("addr", f.redisConfig.Addr()))
		return c, nil
	}
	if !f.allowInMemoryFallback {
		return nil, fmt.Errorf("redis required for sale replay cache but unavailable: %w", err)
	}

	f.logger.Warn("Redis unavailable, falling back to in-memory sale replay cache",
		zap.String("addr", f.redisConfig.Addr()),
		zap.Error(err))
	return NewInMemorySaleReplayCache(f.redisConfig.TTL), nil
}
