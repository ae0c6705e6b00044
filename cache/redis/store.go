package redis

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/docforge/docforge/cache"
)

// Store implements cache.Store on top of Redis. Entries are CBOR-encoded;
// when an entry carries an expiry, a matching Redis TTL is set as well so
// the server reclaims entries that no read ever touches again.
type Store struct {
	client *redis.Client
	config *Config
	closed atomic.Bool
}

var _ cache.Store = (*Store)(nil)

// NewStore creates a Redis store and verifies connectivity with a PING.
func NewStore(cfg *Config) (*Store, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if cfg.KeyPrefix == "" {
		cfg.KeyPrefix = cache.DefaultStorageKeyPrefix
	}

	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Address(),
		Password:     cfg.Password,
		DB:           cfg.Database,
		PoolSize:     cfg.PoolSize,
		DialTimeout:  cfg.DialTimeout,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, cache.NewConnectionError("ping", cfg.Address(), err)
	}

	return &Store{client: client, config: cfg}, nil
}

// Get returns the entry for the storage key, or cache.ErrNotFound.
func (s *Store) Get(ctx context.Context, storageKey string) (*cache.Entry, error) {
	if s.closed.Load() {
		return nil, cache.ErrClosed
	}

	data, err := s.client.Get(ctx, storageKey).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, cache.ErrNotFound
		}
		return nil, cache.NewOperationError("get", storageKey, err)
	}

	entry, err := cache.Unmarshal[cache.Entry](data)
	if err != nil {
		return nil, cache.NewOperationError("decode", storageKey, err)
	}
	return &entry, nil
}

// Set writes the entry, mirroring its expiry into a Redis TTL.
func (s *Store) Set(ctx context.Context, storageKey string, entry *cache.Entry) error {
	if s.closed.Load() {
		return cache.ErrClosed
	}

	data, err := cache.Marshal(*entry)
	if err != nil {
		return cache.NewOperationError("encode", storageKey, err)
	}

	var ttl time.Duration
	if entry.ExpiresAt != nil {
		ttl = time.Until(*entry.ExpiresAt)
		if ttl <= 0 {
			// Already expired; storing it would only create a phantom.
			return nil
		}
	}

	if err := s.client.Set(ctx, storageKey, data, ttl).Err(); err != nil {
		return cache.NewOperationError("set", storageKey, err)
	}
	return nil
}

// Delete removes the entry. Idempotent.
func (s *Store) Delete(ctx context.Context, storageKey string) error {
	if s.closed.Load() {
		return cache.ErrClosed
	}

	if err := s.client.Del(ctx, storageKey).Err(); err != nil {
		return cache.NewOperationError("delete", storageKey, err)
	}
	return nil
}

// Keys returns every storage key with the given prefix using SCAN, so
// large keyspaces are walked without blocking the server.
func (s *Store) Keys(ctx context.Context, prefix string) ([]string, error) {
	if s.closed.Load() {
		return nil, cache.ErrClosed
	}

	var keys []string
	iter := s.client.Scan(ctx, 0, prefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return nil, cache.NewOperationError("scan", prefix+"*", err)
	}
	return keys, nil
}

// Len counts entries under this module's prefix. DBSIZE would count the
// whole database, which may be shared.
func (s *Store) Len(ctx context.Context) (int, error) {
	if s.closed.Load() {
		return 0, cache.ErrClosed
	}

	count := 0
	iter := s.client.Scan(ctx, 0, s.config.KeyPrefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		count++
	}
	if err := iter.Err(); err != nil {
		return 0, cache.NewOperationError("scan", s.config.KeyPrefix+"*", err)
	}
	return count, nil
}

// Close closes the Redis connection. The store is unusable afterwards.
func (s *Store) Close() error {
	if s.closed.Swap(true) {
		return nil
	}
	return s.client.Close()
}
