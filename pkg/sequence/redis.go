package sequence

import (
	"context"
	"errors"

	"github.com/redis/go-redis/v9"
)

// DefaultRedisKeyPrefix namespaces counter keys in a shared Redis database.
const DefaultRedisKeyPrefix = "seq:"

// RedisAllocator allocates identifiers with INCR on one key per entity.
type RedisAllocator struct {
	client redis.UniversalClient
	prefix string
}

// RedisOption configures a RedisAllocator.
type RedisOption func(*RedisAllocator)

// WithKeyPrefix overrides the key prefix. An empty prefix is allowed.
func WithKeyPrefix(prefix string) RedisOption {
	return func(a *RedisAllocator) {
		a.prefix = prefix
	}
}

// NewRedisAllocator creates an allocator backed by client.
func NewRedisAllocator(client redis.UniversalClient, opts ...RedisOption) *RedisAllocator {
	a := &RedisAllocator{
		client: client,
		prefix: DefaultRedisKeyPrefix,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Next increments the counter key of entity and returns the new value.
func (a *RedisAllocator) Next(ctx context.Context, entity string) (int64, error) {
	if entity == "" {
		return 0, ErrEmptyEntity
	}

	seq, err := a.client.Incr(ctx, a.prefix+entity).Result()
	if err != nil {
		return 0, errors.Join(ErrAllocationFailed, err)
	}
	return seq, nil
}

var _ Allocator = (*RedisAllocator)(nil)
