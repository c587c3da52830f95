package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"storefront-orders/internal/domain"

	goredis "github.com/redis/go-redis/v9"
)

var ErrCacheMiss = errors.New("cache miss")

// OrderCache keeps read-through copies of orders. Every entry carries the
// generation it was read under; Invalidate bumps the generation, so an entry
// stored by a reader that raced a status change is never served.
type OrderCache struct {
	client *goredis.Client
	ttl    time.Duration
}

type cachedOrder struct {
	Generation int64         `json:"generation"`
	Order      *domain.Order `json:"order"`
}

func NewOrderCache(client *goredis.Client, ttl time.Duration) *OrderCache {
	return &OrderCache{client: client, ttl: ttl}
}

func orderKey(id uint64) string {
	return "orders:" + strconv.FormatUint(id, 10)
}

func generationKey(id uint64) string {
	return orderKey(id) + ":gen"
}

// generationTTL outlives any entry so an expired counter cannot revive one.
func (c *OrderCache) generationTTL() time.Duration {
	return c.ttl + time.Hour
}

// Generation returns the current generation of an order. Read it before
// loading the order from the database and pass it to Set.
func (c *OrderCache) Generation(ctx context.Context, id uint64) (int64, error) {
	gen, err := c.client.Get(ctx, generationKey(id)).Int64()
	if errors.Is(err, goredis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("redis get generation failed: %w", err)
	}
	return gen, nil
}

func (c *OrderCache) Get(ctx context.Context, id uint64) (*domain.Order, error) {
	vals, err := c.client.MGet(ctx, orderKey(id), generationKey(id)).Result()
	if err != nil {
		return nil, fmt.Errorf("redis mget failed: %w", err)
	}
	raw, ok := vals[0].(string)
	if !ok {
		return nil, ErrCacheMiss
	}

	var current int64
	if g, ok := vals[1].(string); ok {
		if current, err = strconv.ParseInt(g, 10, 64); err != nil {
			return nil, fmt.Errorf("parse generation failed: %w", err)
		}
	}

	var entry cachedOrder
	if err := json.Unmarshal([]byte(raw), &entry); err != nil {
		return nil, fmt.Errorf("unmarshal order failed: %w", err)
	}
	if entry.Order == nil || entry.Generation != current {
		return nil, ErrCacheMiss
	}
	return entry.Order, nil
}

// Set stores o as read under generation gen.
func (c *OrderCache) Set(ctx context.Context, o *domain.Order, gen int64) error {
	data, err := json.Marshal(cachedOrder{Generation: gen, Order: o})
	if err != nil {
		return fmt.Errorf("marshal order failed: %w", err)
	}
	if err := c.client.Set(ctx, orderKey(o.ID), data, c.ttl).Err(); err != nil {
		return fmt.Errorf("redis set failed: %w", err)
	}
	return nil
}

// Invalidate drops the cached copy and retires every generation read so far.
func (c *OrderCache) Invalidate(ctx context.Context, id uint64) error {
	pipe := c.client.TxPipeline()
	pipe.Incr(ctx, generationKey(id))
	pipe.Expire(ctx, generationKey(id), c.generationTTL())
	pipe.Del(ctx, orderKey(id))
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis invalidate failed: %w", err)
	}
	return nil
}
