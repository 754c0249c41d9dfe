package storage

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateQueryCacheKey(t *testing.T) {
	a := GenerateQueryCacheKey("properties:search", map[string]string{"location": "nairobi", "page": "1"})
	b := GenerateQueryCacheKey("properties:search", map[string]string{"page": "1", "location": "nairobi"})
	c := GenerateQueryCacheKey("properties:search", map[string]string{"page": "2", "location": "nairobi"})

	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
	assert.True(t, strings.HasPrefix(a, "properties:search:"))
}

func TestCacheHelpersWithoutRedis(t *testing.T) {
	Redis = nil
	ctx := context.Background()

	require.NoError(t, SetCached(ctx, "k", "v", time.Minute))
	var out string
	hit, err := GetCached(ctx, "k", &out)
	require.NoError(t, err)
	assert.False(t, hit)

	locked, err := TryLock(ctx, "k", time.Second)
	require.NoError(t, err)
	assert.True(t, locked)
	Unlock(ctx, "k")

	assert.NoError(t, InvalidatePrefix(ctx, "properties:search"))
}

func useMiniredis(t *testing.T) *miniredis.Miniredis {
	t.Helper()
	mr := miniredis.RunT(t)
	Redis = redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() {
		Redis.Close()
		Redis = nil
	})
	return mr
}

func TestCacheRoundTrip(t *testing.T) {
	mr := useMiniredis(t)
	ctx := context.Background()

	type page struct {
		IDs   []string `json:"ids"`
		Total int      `json:"total"`
	}
	require.NoError(t, SetCached(ctx, "properties:search:abc", page{IDs: []string{"p1", "p2"}, Total: 2}, time.Minute))
	assert.Equal(t, time.Minute, mr.TTL("properties:search:abc"))

	var out page
	hit, err := GetCached(ctx, "properties:search:abc", &out)
	require.NoError(t, err)
	assert.True(t, hit)
	assert.Equal(t, []string{"p1", "p2"}, out.IDs)

	mr.FastForward(2 * time.Minute)
	hit, err = GetCached(ctx, "properties:search:abc", &out)
	require.NoError(t, err)
	assert.False(t, hit)
}

func TestInvalidatePrefix(t *testing.T) {
	mr := useMiniredis(t)
	ctx := context.Background()

	for _, k := range []string{"properties:search:a", "properties:search:b", "mpesa:access_token"} {
		require.NoError(t, mr.Set(k, `"x"`))
	}
	require.NoError(t, InvalidatePrefix(ctx, "properties:search"))
	assert.Equal(t, []string{"mpesa:access_token"}, mr.Keys())
}

func TestTryLock(t *testing.T) {
	mr := useMiniredis(t)
	ctx := context.Background()

	locked, err := TryLock(ctx, "mpesa:callback:ws_CO_1", 30*time.Second)
	require.NoError(t, err)
	assert.True(t, locked)
	assert.Equal(t, 30*time.Second, mr.TTL("lock:mpesa:callback:ws_CO_1"))

	locked, err = TryLock(ctx, "mpesa:callback:ws_CO_1", 30*time.Second)
	require.NoError(t, err)
	assert.False(t, locked, "held lock")

	Unlock(ctx, "mpesa:callback:ws_CO_1")
	locked, err = TryLock(ctx, "mpesa:callback:ws_CO_1", 30*time.Second)
	require.NoError(t, err)
	assert.True(t, locked)

	mr.FastForward(31 * time.Second)
	locked, err = TryLock(ctx, "mpesa:callback:ws_CO_1", 30*time.Second)
	require.NoError(t, err)
	assert.True(t, locked, "expired lock")
}
