package cache

import (
	"context"
	"testing"
	"time"

	"github.com/erp/lotledger/internal/infrastructure/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

// unreachable points at a closed local port so the ping fails fast
var unreachable = config.RedisConfig{Enabled: true, Host: "127.0.0.1", Port: 1, TTL: time.Hour}

func TestReplayCacheFactory(t *testing.T) {
	ctx := context.Background()

	t.Run("disabled redis uses memory", func(t *testing.T) {
		c, err := NewReplayCacheFactory(config.RedisConfig{TTL: time.Hour}).Create(ctx)
		require.NoError(t, err)
		defer c.Close()
		assert.IsType(t, &InMemorySaleReplayCache{}, c)
	})

	t.Run("unreachable redis falls back with a warning", func(t *testing.T) {
		core, logs := observer.New(zap.WarnLevel)
		c, err := NewReplayCacheFactory(unreachable, WithLogger(zap.New(core))).Create(ctx)
		require.NoError(t, err)
		defer c.Close()
		assert.IsType(t, &InMemorySaleReplayCache{}, c)
		assert.Equal(t, 1, logs.FilterMessageSnippet("falling back").Len())
	})

	t.Run("fallback can be refused", func(t *testing.T) {
		_, err := NewReplayCacheFactory(unreachable, WithInMemoryFallback(false)).Create(ctx)
		assert.ErrorContains(t, err, "redis required")
	})
}
