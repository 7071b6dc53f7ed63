// Package redis connects to the Redis server that can back the identifier allocator.
//
// Connect parses a redis:// URL, pings the server and retries according to Config. Healthcheck returns a
// probe function for the CLI health command that also rejects read-only replicas. The allocator itself lives in pkg/sequence
// (sequence.NewRedisAllocator) and only needs the returned client.
//
// # Usage
//
//	client, err := redis.Connect(ctx, redis.Config{ConnectionURL: "redis://localhost:6379/0"})
//	if err != nil {
//		log.Fatal(err)
//	}
//	defer client.Close()
//
//	alloc := sequence.NewRedisAllocator(client)
//
// Configuration fields can be populated from REDIS_* environment variables via github.com/caarlos0/env.
package redis
