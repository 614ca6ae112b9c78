package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/erp/lotledger/internal/domain/trade"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const defaultKeyPrefix = "lotledger:sale:"

// RedisSaleReplayCache implements trade.SaleReplayCache using Redis.
// Instances behind a load balancer share it, so a replay hitting another
// instance still skips the catalog and lot reads.
type RedisSaleReplayCache struct {
	client    *redis.Client
	keyPrefix string
	ttl       time.Duration
}

// RedisOptions holds Redis connection settings
type RedisOptions struct {
	Addr     string
	Password string
	DB       int
	TTL      time.Duration
}

// NewRedisSaleReplayCache connects and pings Redis
func NewRedisSaleReplayCache(ctx context.Context, opts RedisOptions) (*RedisSaleReplayCache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return NewRedisSaleReplayCacheWithClient(client, "", opts.TTL), nil
}

// NewRedisSaleReplayCacheWithClient wraps an existing client
func NewRedisSaleReplayCacheWithClient(client *redis.Client, keyPrefix string, ttl time.Duration) *RedisSaleReplayCache {
	if keyPrefix == "" {
		keyPrefix = defaultKeyPrefix
	}
	return &RedisSaleReplayCache{
		client:    client,
		keyPrefix: keyPrefix,
		ttl:       ttl,
	}
}

func (c *RedisSaleReplayCache) key(k trade.SaleKey) string {
	return c.keyPrefix + k.String()
}

// Get returns the sale id remembered for key
func (c *RedisSaleReplayCache) Get(ctx context.Context, key trade.SaleKey) (uuid.UUID, bool, error) {
	raw, err := c.client.Get(ctx, c.key(key)).Result()
	if errors.Is(err, redis.Nil) {
		return uuid.Nil, false, nil
	}
	if err != nil {
		return uuid.Nil, false, fmt.Errorf("failed to read sale replay entry: %w", err)
	}

	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, false, fmt.Errorf("corrupt sale replay entry %q: %w", raw, err)
	}
	return id, true, nil
}

// Remember stores key -> saleID with SET NX, so the first writer wins
func (c *RedisSaleReplayCache) Remember(ctx context.Context, key trade.SaleKey, saleID uuid.UUID) error {
	if err := c.client.SetNX(ctx, c.key(key), saleID.String(), c.ttl).Err(); err != nil {
		return fmt.Errorf("failed to write sale replay entry: %w", err)
	}
	return nil
}

// Close closes the Redis client
func (c *RedisSaleReplayCache) Close() error {
	return c.client.Close()
}

var _ trade.SaleReplayCache = (*RedisSaleReplayCache)(nil)
