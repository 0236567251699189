package storage

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/papyrus-app/papyrus/internal/document"
)

// RedisCache is a read-through cache wrapped around another Storage.
// Documents are cached as JSON under "doc:<collection>:<id>" with a TTL;
// writes go straight to the underlying store and invalidate the key.
// Cache failures degrade to the underlying store, they never fail a read.
type RedisCache struct {
	next   Storage
	client *redis.Client
	ttl    time.Duration
}

// NewRedisCache wraps next with a Redis read-through cache.
func NewRedisCache(next Storage, client *redis.Client, ttl time.Duration) *RedisCache {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &RedisCache{next: next, client: client, ttl: ttl}
}

func cacheKey(collection, id string) string {
	return "doc:" + collection + ":" + id
}

func (c *RedisCache) GetByID(ctx context.Context, collection, id string) (document.Document, error) {
	if b, err := c.client.Get(ctx, cacheKey(collection, id)).Bytes(); err == nil {
		var doc document.Document
		if err := json.Unmarshal(b, &doc); err == nil {
			return doc, nil
		}
	} else if ctx.Err() != nil {
		return nil, ctx.Err()
	}
	doc, err := c.next.GetByID(ctx, collection, id)
	if err != nil {
		return nil, err
	}
	c.store(ctx, collection, id, doc)
	return doc, nil
}

func (c *RedisCache) GetBatch(ctx context.Context, collection string, ids []string) (map[string]document.Document, error) {
	out := make(map[string]document.Document, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = cacheKey(collection, id)
	}

	var misses []string
	vals, err := c.client.MGet(ctx, keys...).Result()
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		misses = ids
	} else {
		for i, v := range vals {
			s, ok := v.(string)
			if !ok {
				misses = append(misses, ids[i])
				continue
			}
			var doc document.Document
			if err := json.Unmarshal([]byte(s), &doc); err != nil {
				misses = append(misses, ids[i])
				continue
			}
			out[ids[i]] = doc
		}
	}

	if len(misses) > 0 {
		fetched, err := c.next.GetBatch(ctx, collection, misses)
		if err != nil {
			return nil, err
		}
		for id, doc := range fetched {
			out[id] = doc
			c.store(ctx, collection, id, doc)
		}
	}
	return out, nil
}

func (c *RedisCache) Insert(ctx context.Context, collection string, doc document.Document) (string, error) {
	id, err := c.next.Insert(ctx, collection, doc)
	if err != nil {
		return "", err
	}
	c.invalidate(ctx, collection, id)
	return id, nil
}

func (c *RedisCache) Update(ctx context.Context, collection, id string, set document.Document) error {
	if err := c.next.Update(ctx, collection, id, set); err != nil {
		return err
	}
	c.invalidate(ctx, collection, id)
	return nil
}

func (c *RedisCache) Delete(ctx context.Context, collection, id string) error {
	if err := c.next.Delete(ctx, collection, id); err != nil {
		if !errors.Is(err, ErrNotFound) {
			return err
		}
		c.invalidate(ctx, collection, id)
		return err
	}
	c.invalidate(ctx, collection, id)
	return nil
}

func (c *RedisCache) store(ctx context.Context, collection, id string, doc document.Document) {
	b, err := json.Marshal(doc)
	if err != nil {
		return
	}
	_ = c.client.Set(ctx, cacheKey(collection, id), b, c.ttl).Err()
}

func (c *RedisCache) invalidate(ctx context.Context, collection, id string) {
	_ = c.client.Del(ctx, cacheKey(collection, id)).Err()
}
