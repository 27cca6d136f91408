package kv

import (
	"context"
	"crypto/tls"
	"fmt"

	"github.com/valkey-io/valkey-go"
)

var (
	_ Store   = (*ValkeyStore)(nil)
	_ Swapper = (*ValkeyStore)(nil)
)

// ValkeyStore implements Store on top of a Valkey server.
type ValkeyStore struct {
	client valkey.Client
	prefix string
}

// OpenValkey connects to Valkey using cfg and pings it.
func OpenValkey(ctx context.Context, cfg ValkeyConfig, prefix string) (*ValkeyStore, error) {
	opts := valkey.ClientOption{
		InitAddress:  []string{cfg.URL},
		Password:     cfg.Password,
		SelectDB:     cfg.DB,
		DisableCache: true,
	}
	if cfg.TLSEnabled {
		opts.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
	}

	client, err := valkey.NewClient(opts)
	if err != nil {
		return nil, fmt.Errorf("connect to valkey: %w", err)
	}

	s := &ValkeyStore{client: client, prefix: prefix}
	if err := s.Ping(ctx); err != nil {
		client.Close()
		return nil, fmt.Errorf("ping valkey: %w", err)
	}
	return s, nil
}

func (s *ValkeyStore) key(k string) string {
	return s.prefix + k
}

// Get returns the value stored at key.
func (s *ValkeyStore) Get(ctx context.Context, key string) ([]byte, error) {
	v, err := s.client.Do(ctx, s.client.B().Get().Key(s.key(key)).Build()).AsBytes()
	if valkey.IsValkeyNil(err) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get %s: %w", key, err)
	}
	return v, nil
}

// Put stores value at key without expiry.
func (s *ValkeyStore) Put(ctx context.Context, key string, value []byte) error {
	cmd := s.client.B().Set().Key(s.key(key)).Value(valkey.BinaryString(value)).Build()
	if err := s.client.Do(ctx, cmd).Error(); err != nil {
		return fmt.Errorf("put %s: %w", key, err)
	}
	return nil
}

var valkeySwapScript = valkey.NewLuaScript(`
	if redis.call("get", KEYS[1]) == ARGV[1] then
		redis.call("set", KEYS[1], ARGV[2])
		return 1
	else
		return 0
	end
`)

// CompareAndSwap atomically replaces prev with next at key.
func (s *ValkeyStore) CompareAndSwap(ctx context.Context, key string, prev, next []byte) (bool, error) {
	n, err := valkeySwapScript.Exec(ctx, s.client,
		[]string{s.key(key)},
		[]string{valkey.BinaryString(prev), valkey.BinaryString(next)},
	).AsInt64()
	if err != nil {
		return false, fmt.Errorf("swap %s: %w", key, err)
	}
	return n == 1, nil
}

// Ping checks the connection to Valkey.
func (s *ValkeyStore) Ping(ctx context.Context) error {
	return s.client.Do(ctx, s.client.B().Ping().Build()).Error()
}

// Close closes the underlying client.
func (s *ValkeyStore) Close() error {
	s.client.Close()
	return nil
}
