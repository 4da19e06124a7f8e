package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/redis/go-redis/v9"
)

func NewRedisCache(client *redis.Client, baseTTL time.Duration) *RedisCache {
	if baseTTL <= 0 {
		baseTTL = 30 * time.Second
	}
	return &RedisCache{
		client:  client,
		baseTTL: baseTTL,
	}
}

type RedisCache struct {
	client  *redis.Client
	baseTTL time.Duration
}

func (r RedisCache) Get(ctx context.Context, page, size int) (*Page, error) {
	data, err := r.client.Get(ctx, pageKey(page, size)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrCacheMiss
	}
	if err != nil {
		return nil, fmt.Errorf("redis get failed: %w", err)
	}

	var p Page
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("unmarshal page failed: %w", err)
	}
	return &p, nil
}

// Set stores the page with the base TTL plus up to a fifth of it as jitter so
// pages written together do not expire together.
func (r RedisCache) Set(ctx context.Context, page, size int, p *Page) error {
	data, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("marshal page failed: %w", err)
	}

	ttl := r.baseTTL
	if spread := int64(r.baseTTL / 5); spread > 0 {
		ttl += time.Duration(rand.Int63n(spread))
	}
	if err := r.client.Set(ctx, pageKey(page, size), data, ttl).Err(); err != nil {
		return fmt.Errorf("redis set failed: %w", err)
	}
	return nil
}

const pageKeyPrefix = "catalog:page:"

func pageKey(page, size int) string {
	return fmt.Sprintf("%s%d:%d", pageKeyPrefix, size, page)
}

// Flush drops every cached catalog page. Catalog writers outside the API
// process call it so shoppers do not see stale pages until the TTL runs out.
func (r RedisCache) Flush(ctx context.Context) (int, error) {
	var removed int
	iter := r.client.Scan(ctx, 0, pageKeyPrefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		if err := r.client.Del(ctx, iter.Val()).Err(); err != nil {
			return removed, fmt.Errorf("redis del failed: %w", err)
		}
		removed++
	}
	if err := iter.Err(); err != nil {
		return removed, fmt.Errorf("redis scan failed: %w", err)
	}
	return removed, nil
}
