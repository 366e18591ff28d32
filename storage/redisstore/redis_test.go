package redisstore

import (
	"context"
	"testing"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

func TestRedisStore(t *testing.T) {
	// Skip test if Redis is not available
	client := redis.NewClient(&redis.Options{
		Addr: "127.0.0.1:6379",
		DB:   3,
	})

	ctx := context.Background()
	if err := client.Ping(ctx).Err(); err != nil {
		t.Skipf("Redis not available: %v", err)
	}
	defer client.Close()
	defer client.FlushDB(ctx)

	s := NewWithClient(client, "test:")

	t.Run("missing key", func(t *testing.T) {
		_, ok, err := s.Get(ctx, "absent")
		require.NoError(t, err)
		require.False(t, ok)
	})

	t.Run("set get delete", func(t *testing.T) {
		require.NoError(t, s.Set(ctx, "auth_token_tab-1", "tok"))

		v, ok, err := s.Get(ctx, "auth_token_tab-1")
		require.NoError(t, err)
		require.True(t, ok)
		require.Equal(t, "tok", v)

		raw, err := client.Get(ctx, "test:auth_token_tab-1").Result()
		require.NoError(t, err)
		require.Equal(t, "tok", raw)

		require.NoError(t, s.Delete(ctx, "auth_token_tab-1"))
		_, ok, err = s.Get(ctx, "auth_token_tab-1")
		require.NoError(t, err)
		require.False(t, ok)
	})

	t.Run("delete missing key", func(t *testing.T) {
		require.NoError(t, s.Delete(ctx, "never-set"))
	})
}
