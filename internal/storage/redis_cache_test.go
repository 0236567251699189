package storage

import (
	"context"
	"testing"
	"time"

	mr "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/papyrus-app/papyrus/internal/document"
)

func newCache(t *testing.T) (*RedisCache, *Memory, *mr.Miniredis) {
	t.Helper()
	m, err := mr.Run()
	require.NoError(t, err)
	t.Cleanup(m.Close)
	client := redis.NewClient(&redis.Options{Addr: m.Addr()})
	mem := NewMemory()
	return NewRedisCache(mem, client, time.Minute), mem, m
}

func TestRedisCacheReadThrough(t *testing.T) {
	cache, mem, _ := newCache(t)
	ctx := context.Background()

	id, err := cache.Insert(ctx, "posts", document.Document{"title": "hello"})
	require.NoError(t, err)

	// first read populates the cache
	got, err := cache.GetByID(ctx, "posts", id)
	require.NoError(t, err)
	require.Equal(t, "hello", got["title"])

	// remove from the underlying store; the cached copy still serves
	require.NoError(t, mem.Delete(ctx, "posts", id))
	got, err = cache.GetByID(ctx, "posts", id)
	require.NoError(t, err)
	require.Equal(t, "hello", got["title"])
}

func TestRedisCacheInvalidatesOnWrite(t *testing.T) {
	cache, _, _ := newCache(t)
	ctx := context.Background()

	id, err := cache.Insert(ctx, "posts", document.Document{"title": "v1"})
	require.NoError(t, err)
	_, err = cache.GetByID(ctx, "posts", id)
	require.NoError(t, err)

	require.NoError(t, cache.Update(ctx, "posts", id, document.Document{"title": "v2"}))
	got, err := cache.GetByID(ctx, "posts", id)
	require.NoError(t, err)
	require.Equal(t, "v2", got["title"])
}

func TestRedisCacheBatchMixesHitsAndMisses(t *testing.T) {
	cache, _, _ := newCache(t)
	ctx := context.Background()

	a, err := cache.Insert(ctx, "posts", document.Document{"title": "a"})
	require.NoError(t, err)
	b, err := cache.Insert(ctx, "posts", document.Document{"title": "b"})
	require.NoError(t, err)

	// warm only one entry
	_, err = cache.GetByID(ctx, "posts", a)
	require.NoError(t, err)

	got, err := cache.GetBatch(ctx, "posts", []string{a, b, "missing"})
	require.NoError(t, err)
	require.Len(t, got, 2)
	require.Equal(t, "a", got[a]["title"])
	require.Equal(t, "b", got[b]["title"])
}

func TestRedisCacheExpiry(t *testing.T) {
	m, err := mr.Run()
	require.NoError(t, err)
	t.Cleanup(m.Close)
	client := redis.NewClient(&redis.Options{Addr: m.Addr()})
	mem := NewMemory()
	cache := NewRedisCache(mem, client, time.Second)
	ctx := context.Background()

	id, err := cache.Insert(ctx, "posts", document.Document{"title": "v1"})
	require.NoError(t, err)
	_, err = cache.GetByID(ctx, "posts", id)
	require.NoError(t, err)

	// write around the cache, then let the entry expire
	require.NoError(t, mem.Update(ctx, "posts", id, document.Document{"title": "v2"}))
	m.FastForward(2 * time.Second)

	got, err := cache.GetByID(ctx, "posts", id)
	require.NoError(t, err)
	require.Equal(t, "v2", got["title"])
}
