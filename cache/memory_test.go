package cache_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/docforge/docforge/cache"
)

func TestMemoryStoreRoundTrip(t *testing.T) {
	s := cache.NewMemoryStore()
	ctx := context.Background()

	entry := &cache.Entry{
		Key:         "parser:abc",
		Value:       []byte("payload"),
		CreatedAt:   time.Now(),
		ContentHash: cache.HashBytes([]byte("payload")),
	}

	require.NoError(t, s.Set(ctx, "k1", entry))

	got, err := s.Get(ctx, "k1")
	require.NoError(t, err)
	assert.Equal(t, entry.Key, got.Key)
	assert.Equal(t, entry.Value, got.Value)
	assert.Equal(t, entry.ContentHash, got.ContentHash)
}

func TestMemoryStoreGetMissing(t *testing.T) {
	s := cache.NewMemoryStore()

	_, err := s.Get(context.Background(), "nope")
	assert.ErrorIs(t, err, cache.ErrNotFound)
}

func TestMemoryStoreDeleteIdempotent(t *testing.T) {
	s := cache.NewMemoryStore()
	ctx := context.Background()

	require.NoError(t, s.Delete(ctx, "never-existed"))

	require.NoError(t, s.Set(ctx, "k", &cache.Entry{Key: "parser:x"}))
	require.NoError(t, s.Delete(ctx, "k"))
	require.NoError(t, s.Delete(ctx, "k"))

	n, err := s.Len(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestMemoryStoreKeysPrefixFilter(t *testing.T) {
	s := cache.NewMemoryStore()
	ctx := context.Background()

	require.NoError(t, s.Set(ctx, "docforge:1", &cache.Entry{Key: "parser:a"}))
	require.NoError(t, s.Set(ctx, "docforge:2", &cache.Entry{Key: "ai:b"}))
	require.NoError(t, s.Set(ctx, "other:3", &cache.Entry{Key: "session:c"}))

	keys, err := s.Keys(ctx, "docforge:")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"docforge:1", "docforge:2"}, keys)
}

func TestMemoryStoreReturnsCopies(t *testing.T) {
	s := cache.NewMemoryStore()
	ctx := context.Background()

	require.NoError(t, s.Set(ctx, "k", &cache.Entry{Key: "parser:a", ContentHash: "h"}))

	first, err := s.Get(ctx, "k")
	require.NoError(t, err)
	first.ContentHash = "mutated"

	second, err := s.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "h", second.ContentHash)
}

func TestMemoryStoreClosedOperations(t *testing.T) {
	s := cache.NewMemoryStore()
	ctx := context.Background()

	require.NoError(t, s.Close())

	_, err := s.Get(ctx, "k")
	assert.ErrorIs(t, err, cache.ErrClosed)
	assert.ErrorIs(t, s.Set(ctx, "k", &cache.Entry{}), cache.ErrClosed)
	assert.ErrorIs(t, s.Delete(ctx, "k"), cache.ErrClosed)
	_, err = s.Keys(ctx, "")
	assert.ErrorIs(t, err, cache.ErrClosed)
}

func TestMemoryStoreConcurrentAccess(t *testing.T) {
	s := cache.NewMemoryStore()
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			key := string(rune('a' + id))
			for j := 0; j < 100; j++ {
				_ = s.Set(ctx, key, &cache.Entry{Key: "parser:" + key})
				_, _ = s.Get(ctx, key)
				_, _ = s.Keys(ctx, "")
			}
		}(i)
	}
	wg.Wait()

	n, err := s.Len(ctx)
	require.NoError(t, err)
	assert.Equal(t, 8, n)
}
