package kv

import (
	"context"
	"errors"
	"fmt"
)

// ErrNotFound is returned by Get when the key does not exist.
var ErrNotFound = errors.New("key not found")

// Store is an opaque byte store addressed by UTF-8 string keys.
type Store interface {
	// Get returns the value stored at key, or ErrNotFound.
	Get(ctx context.Context, key string) ([]byte, error)

	// Put overwrites the value stored at key unconditionally.
	Put(ctx context.Context, key string, value []byte) error

	// Ping checks that the backend is reachable.
	Ping(ctx context.Context) error

	// Close releases the backend's resources.
	Close() error
}

// Swapper is implemented by stores that support conditional writes.
type Swapper interface {
	// CompareAndSwap writes next only if the value currently stored at key
	// equals prev. It reports whether the write happened.
	CompareAndSwap(ctx context.Context, key string, prev, next []byte) (bool, error)
}

// StorageType selects a Store backend.
type StorageType string

const (
	StorageTypeMemory   StorageType = "memory"
	StorageTypeRedis    StorageType = "redis"
	StorageTypeValkey   StorageType = "valkey"
	StorageTypeSQLite   StorageType = "sqlite"
	StorageTypePostgres StorageType = "postgres"
)

// Config holds the storage backend configuration.
type Config struct {
	// Type is the backend type (default: memory)
	Type StorageType

	// KeyPrefix is prepended to every key by the Redis and Valkey backends.
	// It plays the role a bucket name plays for object stores.
	KeyPrefix string

	Redis  RedisConfig
	Valkey ValkeyConfig
	SQL    SQLConfig
}

// RedisConfig holds configuration for the Redis backend.
type RedisConfig struct {
	// URL is a redis:// or rediss:// connection URL
	URL string
}

// ValkeyConfig holds configuration for the Valkey backend.
type ValkeyConfig struct {
	// URL is the Valkey server address (e.g., "valkey.namespace.svc:6379")
	URL string

	// Password is the optional password for Valkey authentication
	Password string

	// TLSEnabled enables TLS for Valkey connections
	TLSEnabled bool

	// DB is the Valkey database number (default: 0)
	DB int
}

// SQLConfig holds configuration for the SQL backends.
type SQLConfig struct {
	// SQLitePath is the database file used by the sqlite backend
	SQLitePath string

	// DatabaseURL is the connection string used by the postgres backend
	DatabaseURL string
}

// Validate checks that the selected backend has its location configured.
func (c Config) Validate() error {
	switch c.Type {
	case "", StorageTypeMemory:
		return nil
	case StorageTypeRedis:
		if c.Redis.URL == "" {
			return fmt.Errorf("redis URL is required for storage type %q", c.Type)
		}
	case StorageTypeValkey:
		if c.Valkey.URL == "" {
			return fmt.Errorf("valkey URL is required for storage type %q", c.Type)
		}
	case StorageTypeSQLite:
		if c.SQL.SQLitePath == "" {
			return fmt.Errorf("sqlite path is required for storage type %q", c.Type)
		}
	case StorageTypePostgres:
		if c.SQL.DatabaseURL == "" {
			return fmt.Errorf("database URL is required for storage type %q", c.Type)
		}
	default:
		return fmt.Errorf("unsupported storage type %q (supported: memory, redis, valkey, sqlite, postgres)", c.Type)
	}
	return nil
}

// Open creates the Store selected by cfg and verifies it is reachable.
func Open(ctx context.Context, cfg Config) (Store, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	switch cfg.Type {
	case "", StorageTypeMemory:
		return NewMemoryStore(), nil
	case StorageTypeRedis:
		return OpenRedis(ctx, cfg.Redis.URL, cfg.KeyPrefix)
	case StorageTypeValkey:
		return OpenValkey(ctx, cfg.Valkey, cfg.KeyPrefix)
	case StorageTypeSQLite:
		return OpenSQLite(ctx, cfg.SQL.SQLitePath)
	case StorageTypePostgres:
		return OpenPostgres(ctx, cfg.SQL.DatabaseURL)
	}
	return nil, fmt.Errorf("unsupported storage type %q", cfg.Type)
}
