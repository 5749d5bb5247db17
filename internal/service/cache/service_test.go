package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type payload struct {
	Name string `json:"name"`
}

func newTestCache(t *testing.T) (*CacheService, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewCacheServiceFromClient(client, zap.NewNop()), mr
}

func TestCacheServiceSetGetRoundTrip(t *testing.T) {
	svc, mr := newTestCache(t)
	ctx := context.Background()

	require.NoError(t, svc.Set(ctx, "k", payload{Name: "doge"}, time.Minute))

	var got payload
	found, err := svc.Get(ctx, "k", &got)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "doge", got.Name)
	assert.Equal(t, time.Minute, mr.TTL("k"))
}

func TestCacheServiceMissingKey(t *testing.T) {
	svc, _ := newTestCache(t)

	var got payload
	found, err := svc.Get(context.Background(), "missing", &got)
	require.NoError(t, err)
	assert.False(t, found)
}

func TestCacheServiceUnmarshalError(t *testing.T) {
	svc, mr := newTestCache(t)
	require.NoError(t, mr.Set("bad", "{not json"))

	var got payload
	found, err := svc.Get(context.Background(), "bad", &got)
	assert.False(t, found)
	require.Error(t, err)
}

func TestCacheServiceDel(t *testing.T) {
	svc, mr := newTestCache(t)
	ctx := context.Background()

	require.NoError(t, svc.Set(ctx, "k", "v", 0))
	assert.True(t, mr.Exists("k"))

	require.NoError(t, svc.Del(ctx, "k"))
	assert.False(t, mr.Exists("k"))
	require.NoError(t, svc.Del(ctx, "k"))
}
