package forecast

import (
	"context"
	"errors"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestCache(t *testing.T) (*Cache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewCache(client, time.Minute), mr
}

func TestCacheVersionStartsAtOne(t *testing.T) {
	cache, _ := newTestCache(t)
	ver, err := cache.Version(context.Background())
	require.NoError(t, err)
	assert.EqualValues(t, 1, ver)
}

func TestFetchStoresUnderVersionedKey(t *testing.T) {
	cache, mr := newTestCache(t)
	ctx := context.Background()
	calls := 0
	load := func(context.Context) ([]string, error) {
		calls++
		return []string{"abc-123"}, nil
	}

	got, err := fetch(ctx, cache, "pos", "all", load)
	require.NoError(t, err)
	assert.Equal(t, []string{"abc-123"}, got)
	assert.True(t, mr.Exists("forecast:v1:pos:all"))

	_, err = fetch(ctx, cache, "pos", "all", load)
	require.NoError(t, err)
	assert.Equal(t, 1, calls)

	require.NoError(t, cache.Bump(ctx))
	_, err = fetch(ctx, cache, "pos", "all", load)
	require.NoError(t, err)
	assert.Equal(t, 2, calls)
	assert.True(t, mr.Exists("forecast:v2:pos:all"))
}

func TestFetchDoesNotCacheErrors(t *testing.T) {
	cache, mr := newTestCache(t)
	boom := errors.New("boom")
	_, err := fetch(context.Background(), cache, "history", "abc-123", func(context.Context) ([]PriceRecord, error) {
		return nil, boom
	})
	assert.ErrorIs(t, err, boom)
	assert.False(t, mr.Exists("forecast:v1:history:abc-123"))
}

func TestListenForInvalidationReportsBumps(t *testing.T) {
	cache, _ := newTestCache(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	versions := make(chan int64, 1)
	require.NoError(t, cache.ListenForInvalidation(ctx, func(v int64) { versions <- v }))
	_, err := cache.Version(ctx)
	require.NoError(t, err)
	require.NoError(t, cache.Bump(ctx))

	select {
	case v := <-versions:
		assert.EqualValues(t, 2, v)
	case <-time.After(2 * time.Second):
		t.Fatal("no invalidation received")
	}
}

func TestNilCacheReadsThrough(t *testing.T) {
	var cache *Cache
	got, err := fetch(context.Background(), cache, "model", "abc-123", func(context.Context) (int, error) { return 7, nil })
	require.NoError(t, err)
	assert.Equal(t, 7, got)
	assert.NoError(t, cache.Bump(context.Background()))
}
