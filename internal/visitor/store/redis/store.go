// Package redis keeps visitor storage bags in Redis hashes.
package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"blackhole/internal/visitor/store"
	"blackhole/pkg/platform/sentinel"
)

const keyPrefix = "blackhole:bag:"

// DefaultTTL is the idle lifetime of a bag.
const DefaultTTL = 30 * 24 * time.Hour

// RedisBagStore stores each bag as one hash, refreshed on every write.
type RedisBagStore struct {
	client redis.UniversalClient
	ttl    time.Duration
}

// New creates a Redis-backed bag store. A non-positive ttl uses DefaultTTL.
func New(client redis.UniversalClient, ttl time.Duration) *RedisBagStore {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &RedisBagStore{client: client, ttl: ttl}
}

// Open returns storage scoped to bagID.
func (s *RedisBagStore) Open(bagID string) store.Storage {
	return &Bag{client: s.client, key: keyPrefix + bagID, ttl: s.ttl}
}

// Bag is the Storage view of a single Redis hash.
type Bag struct {
	client redis.UniversalClient
	key    string
	ttl    time.Duration
}

func (b *Bag) Get(ctx context.Context, field string) (string, bool, error) {
	v, err := b.client.HGet(ctx, b.key, field).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("get %s: %w: %w", field, sentinel.ErrUnavailable, err)
	}
	return v, true, nil
}

func (b *Bag) Set(ctx context.Context, field, value string) error {
	pipe := b.client.TxPipeline()
	pipe.HSet(ctx, b.key, field, value)
	pipe.Expire(ctx, b.key, b.ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("set %s: %w: %w", field, sentinel.ErrUnavailable, err)
	}
	return nil
}

func (b *Bag) Clear(ctx context.Context) error {
	if err := b.client.Del(ctx, b.key).Err(); err != nil {
		return fmt.Errorf("clear bag: %w: %w", sentinel.ErrUnavailable, err)
	}
	return nil
}
