// Package kv provides the key-value collaborator that persists authorization
// records.
//
// The store is an opaque get/put-by-key byte store. Values are never
// interpreted here; callers own the serialization format.
//
// # Backends
//
//   - memory: process local map, for development and tests
//   - redis: github.com/redis/go-redis/v9
//   - valkey: github.com/valkey-io/valkey-go
//   - sqlite: modernc.org/sqlite (pure Go, no cgo)
//   - postgres: github.com/lib/pq
//
// Every bundled backend also implements Swapper, an optimistic
// compare-and-swap write used to detect concurrent phase advances.
//
// # Example Usage
//
//	store, err := kv.Open(ctx, kv.Config{Type: kv.StorageTypeRedis, Redis: kv.RedisConfig{URL: "redis://localhost:6379/0"}})
//	if err != nil {
//		return err
//	}
//	defer store.Close()
//
//	if err := store.Put(ctx, "T1/U1/auth", data); err != nil {
//		return err
//	}
package kv
