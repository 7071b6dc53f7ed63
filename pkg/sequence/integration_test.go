package sequence_test

import (
	"context"
	"fmt"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/mongomembership/pkg/mongo"
	"github.com/dmitrymomot/mongomembership/pkg/redis"
	"github.com/dmitrymomot/mongomembership/pkg/sequence"
)

// assertDistinct runs n concurrent allocations and checks that they produce exactly 1..n.
func assertDistinct(t *testing.T, alloc sequence.Allocator, entity string, n int) {
	t.Helper()

	ids := make(chan int64, n)
	var wg sync.WaitGroup
	for range n {
		wg.Add(1)
		go func() {
			defer wg.Done()
			id, err := alloc.Next(context.Background(), entity)
			assert.NoError(t, err)
			ids <- id
		}()
	}
	wg.Wait()
	close(ids)

	seen := make(map[int64]struct{}, n)
	for id := range ids {
		seen[id] = struct{}{}
	}
	assert.Len(t, seen, n)
	for i := int64(1); i <= int64(n); i++ {
		assert.Contains(t, seen, i)
	}
}

func TestMongoAllocator_Integration(t *testing.T) {
	url := os.Getenv("MONGODB_URL")
	if url == "" {
		t.Skip("MONGODB_URL is not set")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	client, err := mongo.New(ctx, mongo.Config{
		ConnectionURL:  url,
		ConnectTimeout: 5 * time.Second,
		MaxPoolSize:    50,
		RetryAttempts:  1,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Disconnect(context.Background()) })

	db := client.Database(fmt.Sprintf("sequence_test_%d", time.Now().UnixNano()))
	t.Cleanup(func() { _ = db.Drop(context.Background()) })

	alloc := sequence.NewMongoAllocator(db.Collection("IDSequence"))
	assertDistinct(t, alloc, "accounts", 100)

	next, err := alloc.Next(ctx, "accounts")
	require.NoError(t, err)
	assert.Equal(t, int64(101), next)
}

func TestRedisAllocator_Integration(t *testing.T) {
	url := os.Getenv("REDIS_URL")
	if url == "" {
		t.Skip("REDIS_URL is not set")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	client, err := redis.Connect(ctx, redis.Config{
		ConnectionURL:  url,
		RetryAttempts:  1,
		ConnectTimeout: 5 * time.Second,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })

	prefix := fmt.Sprintf("seqtest:%d:", time.Now().UnixNano())
	t.Cleanup(func() { _ = client.Del(context.Background(), prefix+"accounts").Err() })

	alloc := sequence.NewRedisAllocator(client, sequence.WithKeyPrefix(prefix))
	assertDistinct(t, alloc, "accounts", 100)

	_, err = alloc.Next(ctx, "")
	assert.ErrorIs(t, err, sequence.ErrEmptyEntity)
}
