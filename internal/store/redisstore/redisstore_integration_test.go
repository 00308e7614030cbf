package redisstore

import (
	"context"
	"os"
	"testing"
	"time"

	redis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kirana/backend/internal/xid"
)

func TestRedisStoreRoundTripIntegration(t *testing.T) {
	addr := os.Getenv("KIRANA_TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("KIRANA_TEST_REDIS_ADDR is not set")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client := redis.NewClient(&redis.Options{Addr: addr})
	prefix := xid.New("kirana-test") + ":"
	s := NewWithClient(client, prefix)
	defer s.Close()
	require.NoError(t, s.Ping(ctx))

	_, found, err := s.Get(ctx, "products")
	require.NoError(t, err)
	assert.False(t, found)

	require.NoError(t, s.Set(ctx, "products", []byte(`[{"id":"p1"}]`)))
	defer client.Del(ctx, prefix+"products")

	value, found, err := s.Get(ctx, "products")
	require.NoError(t, err)
	assert.True(t, found)
	assert.JSONEq(t, `[{"id":"p1"}]`, string(value))
}
