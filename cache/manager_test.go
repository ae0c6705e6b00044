package cache_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/docforge/docforge/cache"
	"github.com/docforge/docforge/clock"
	"github.com/docforge/docforge/logger"
)

func newTestManager(t *testing.T, clk clock.Clock, cfg cache.ManagerConfig) *cache.Manager {
	t.Helper()

	cfg.SweepInterval = 0 // no background goroutine in tests
	m, err := cache.NewManager(cache.NewMemoryStore(), clk, logger.NewNop(), cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = m.Shutdown(context.Background()) })
	return m
}

func TestManagerSetGetRoundTrip(t *testing.T) {
	clk := clock.NewManual(time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC))
	m := newTestManager(t, clk, cache.DefaultManagerConfig())
	ctx := context.Background()

	require.NoError(t, m.Set(ctx, cache.CategoryParser, "pkg/docs", []byte("parsed")))

	value, found, _, err := m.Get(ctx, cache.CategoryParser, "pkg/docs")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, []byte("parsed"), value)
}

func TestManagerGetMiss(t *testing.T) {
	clk := clock.NewManual(time.Now())
	m := newTestManager(t, clk, cache.DefaultManagerConfig())

	value, found, _, err := m.Get(context.Background(), cache.CategoryParser, "missing")
	require.NoError(t, err)
	assert.False(t, found)
	assert.Nil(t, value)
}

func TestManagerUnknownCategory(t *testing.T) {
	clk := clock.NewManual(time.Now())
	m := newTestManager(t, clk, cache.DefaultManagerConfig())
	ctx := context.Background()

	_, _, _, err := m.Get(ctx, cache.Category("bogus"), "k")
	assert.ErrorIs(t, err, cache.ErrUnknownCategory)

	err = m.Set(ctx, cache.Category("bogus"), "k", []byte("v"))
	assert.ErrorIs(t, err, cache.ErrUnknownCategory)
}

// TTL expiry is lazy: the read that observes the expired entry removes it
// from the store, so a later key scan no longer sees it.
func TestManagerTTLExpiryRemovesEntry(t *testing.T) {
	clk := clock.NewManual(time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC))
	store := cache.NewMemoryStore()
	m, err := cache.NewManager(store, clk, logger.NewNop(), cache.ManagerConfig{})
	require.NoError(t, err)
	defer m.Shutdown(context.Background())
	ctx := context.Background()

	require.NoError(t, m.SetTTL(ctx, cache.CategoryParser, "abc", []byte("v"), time.Second))

	// Still valid just before expiry.
	clk.Advance(999 * time.Millisecond)
	_, found, _, err := m.Get(ctx, cache.CategoryParser, "abc")
	require.NoError(t, err)
	assert.True(t, found)

	// Expired exactly at the boundary.
	clk.Advance(time.Millisecond)
	_, found, _, err = m.Get(ctx, cache.CategoryParser, "abc")
	require.NoError(t, err)
	assert.False(t, found)

	// Physically gone, not just masked.
	n, err := store.Len(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestManagerScenarioParserEntryExpiresAfterTTL(t *testing.T) {
	clk := clock.NewManual(time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC))
	m := newTestManager(t, clk, cache.DefaultManagerConfig())
	ctx := context.Background()

	require.NoError(t, m.SetTTL(ctx, cache.CategoryParser, "abc", []byte(`{"doc":1}`), 500*time.Millisecond))

	clk.Advance(600 * time.Millisecond)

	_, found, _, err := m.Get(ctx, cache.CategoryParser, "abc")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestManagerZeroTTLNeverExpires(t *testing.T) {
	clk := clock.NewManual(time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC))
	m := newTestManager(t, clk, cache.DefaultManagerConfig())
	ctx := context.Background()

	require.NoError(t, m.SetTTL(ctx, cache.CategorySession, "sticky", []byte("v"), 0))

	clk.Advance(1000 * time.Hour)

	_, found, _, err := m.Get(ctx, cache.CategorySession, "sticky")
	require.NoError(t, err)
	assert.True(t, found)
}

func TestManagerNegativeTTLRejected(t *testing.T) {
	clk := clock.NewManual(time.Now())
	m := newTestManager(t, clk, cache.DefaultManagerConfig())

	err := m.SetTTL(context.Background(), cache.CategoryParser, "k", []byte("v"), -time.Second)
	assert.ErrorIs(t, err, cache.ErrInvalidTTL)
}

func TestManagerDefaultCategoryTTLs(t *testing.T) {
	clk := clock.NewManual(time.Now())
	m := newTestManager(t, clk, cache.DefaultManagerConfig())

	assert.Equal(t, time.Hour, m.TTLFor(cache.CategoryParser))
	assert.Equal(t, 2*time.Hour, m.TTLFor(cache.CategoryAI))
	assert.Equal(t, time.Hour, m.TTLFor(cache.CategoryGeneration))
	assert.Equal(t, 30*time.Minute, m.TTLFor(cache.CategorySession))
	assert.Equal(t, 5*time.Minute, m.TTLFor(cache.CategoryRecovery))
}

func TestManagerTTLOverrides(t *testing.T) {
	clk := clock.NewManual(time.Now())
	cfg := cache.DefaultManagerConfig()
	cfg.TTLOverrides = map[cache.Category]time.Duration{cache.CategoryAI: time.Minute}
	m := newTestManager(t, clk, cfg)

	assert.Equal(t, time.Minute, m.TTLFor(cache.CategoryAI))
	assert.Equal(t, time.Hour, m.TTLFor(cache.CategoryParser))
}

func TestManagerRejectsUnknownTTLOverride(t *testing.T) {
	cfg := cache.DefaultManagerConfig()
	cfg.SweepInterval = 0
	cfg.TTLOverrides = map[cache.Category]time.Duration{cache.Category("nope"): time.Minute}

	_, err := cache.NewManager(cache.NewMemoryStore(), clock.NewManual(time.Now()), logger.NewNop(), cfg)
	require.Error(t, err)
}

// Wildcard invalidation removes every key across all categories.
func TestManagerInvalidateAll(t *testing.T) {
	clk := clock.NewManual(time.Now())
	m := newTestManager(t, clk, cache.DefaultManagerConfig())
	ctx := context.Background()

	require.NoError(t, m.Set(ctx, cache.CategoryParser, "a", []byte("1")))
	require.NoError(t, m.Set(ctx, cache.CategoryAI, "b", []byte("2")))
	require.NoError(t, m.Set(ctx, cache.CategoryGeneration, "c", []byte("3")))
	require.NoError(t, m.Set(ctx, cache.CategorySession, "d", []byte("4")))

	removed, err := m.InvalidateByPattern(ctx, "*", "test wipe")
	require.NoError(t, err)
	assert.Equal(t, 4, removed)

	for _, category := range cache.Categories() {
		for _, key := range []string{"a", "b", "c", "d"} {
			_, found, _, err := m.Get(ctx, category, key)
			require.NoError(t, err)
			assert.False(t, found)
		}
	}
}

func TestManagerInvalidateByCategoryPattern(t *testing.T) {
	clk := clock.NewManual(time.Now())
	m := newTestManager(t, clk, cache.DefaultManagerConfig())
	ctx := context.Background()

	require.NoError(t, m.Set(ctx, cache.CategoryParser, "x", []byte("1")))
	require.NoError(t, m.Set(ctx, cache.CategoryAI, "x", []byte("2")))

	removed, err := m.InvalidateByPattern(ctx, "parser:*", "parser refresh")
	require.NoError(t, err)
	assert.Equal(t, 1, removed)

	_, found, _, _ := m.Get(ctx, cache.CategoryParser, "x")
	assert.False(t, found)
	_, found, _, _ = m.Get(ctx, cache.CategoryAI, "x")
	assert.True(t, found)
}

// Only `*` is substituted; other regex metacharacters pass through raw, so
// a dot in the pattern matches any character.
func TestManagerPatternMetacharactersNotEscaped(t *testing.T) {
	clk := clock.NewManual(time.Now())
	m := newTestManager(t, clk, cache.DefaultManagerConfig())
	ctx := context.Background()

	require.NoError(t, m.Set(ctx, cache.CategoryParser, "a.b", []byte("1")))
	require.NoError(t, m.Set(ctx, cache.CategoryParser, "aXb", []byte("2")))

	removed, err := m.InvalidateByPattern(ctx, "parser:a.b", "dot is a regex wildcard")
	require.NoError(t, err)
	assert.Equal(t, 2, removed)
}

func TestManagerInvalidationEventDelivery(t *testing.T) {
	clk := clock.NewManual(time.Now())
	m := newTestManager(t, clk, cache.DefaultManagerConfig())
	ctx := context.Background()

	require.NoError(t, m.Set(ctx, cache.CategoryParser, "watched", []byte("1")))

	var events []cache.InvalidationEvent
	id := m.On(cache.EventPatternInvalidation, func(ev cache.InvalidationEvent) {
		events = append(events, ev)
	})

	_, err := m.InvalidateByPattern(ctx, "parser:*", "because")
	require.NoError(t, err)

	require.Len(t, events, 1)
	assert.Equal(t, cache.EventPatternInvalidation, events[0].Type)
	assert.Equal(t, []string{"parser:watched"}, events[0].Keys)
	assert.Equal(t, "because", events[0].Reason)

	// After Off, no further deliveries.
	m.Off(cache.EventPatternInvalidation, id)
	require.NoError(t, m.Set(ctx, cache.CategoryParser, "watched", []byte("1")))
	_, err = m.InvalidateByPattern(ctx, "parser:*", "again")
	require.NoError(t, err)
	assert.Len(t, events, 1)
}

func TestManagerInvalidateOnSourceChange(t *testing.T) {
	clk := clock.NewManual(time.Now())
	m := newTestManager(t, clk, cache.DefaultManagerConfig())
	ctx := context.Background()

	dir := t.TempDir()
	source := filepath.Join(dir, "handlers.go")
	require.NoError(t, os.WriteFile(source, []byte("package handlers"), 0o600))

	hash := cache.HashFile(source)

	// Entries keyed by the source content hash are invalidated; unrelated
	// entries survive.
	require.NoError(t, m.Set(ctx, cache.CategoryParser, hash, []byte("stale parse")))
	require.NoError(t, m.Set(ctx, cache.CategoryGeneration, "docs-"+hash, []byte("stale render")))
	require.NoError(t, m.Set(ctx, cache.CategoryParser, "unrelated", []byte("fresh")))

	removed, err := m.InvalidateOnSourceChange(ctx, source)
	require.NoError(t, err)
	assert.Equal(t, 2, removed)

	_, found, _, _ := m.Get(ctx, cache.CategoryParser, "unrelated")
	assert.True(t, found)
}

func TestManagerInvalidateOnSourceChangeUnreadableFile(t *testing.T) {
	clk := clock.NewManual(time.Now())
	m := newTestManager(t, clk, cache.DefaultManagerConfig())
	ctx := context.Background()

	path := "/nonexistent/source.go"
	hash := cache.HashString(path)
	require.NoError(t, m.Set(ctx, cache.CategoryParser, hash, []byte("keyed by path hash")))

	removed, err := m.InvalidateOnSourceChange(ctx, path)
	require.NoError(t, err)
	assert.Equal(t, 1, removed)
}

func TestManagerStatsCounters(t *testing.T) {
	clk := clock.NewManual(time.Now())
	m := newTestManager(t, clk, cache.DefaultManagerConfig())
	ctx := context.Background()

	require.NoError(t, m.Set(ctx, cache.CategoryParser, "a", []byte("1")))
	require.NoError(t, m.Set(ctx, cache.CategoryParser, "b", []byte("2")))

	m.Get(ctx, cache.CategoryParser, "a")       // hit
	m.Get(ctx, cache.CategoryParser, "missing") // miss
	m.Get(ctx, cache.CategoryParser, "b")       // hit

	require.NoError(t, m.Delete(ctx, cache.CategoryParser, "b"))
	_, err := m.InvalidateByPattern(ctx, "*", "cleanup")
	require.NoError(t, err)

	stats := m.Stats()
	assert.Equal(t, uint64(3), stats.Gets)
	assert.Equal(t, uint64(2), stats.Sets)
	assert.Equal(t, uint64(1), stats.Deletes)
	assert.Equal(t, uint64(1), stats.Invalidations)
	assert.Equal(t, uint64(2), stats.Hits)
	assert.Equal(t, uint64(1), stats.Misses)
	assert.InDelta(t, 2.0/3.0, stats.HitRate, 1e-9)
}

func TestManagerCleanupSweepsExpired(t *testing.T) {
	clk := clock.NewManual(time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC))
	m := newTestManager(t, clk, cache.DefaultManagerConfig())
	ctx := context.Background()

	require.NoError(t, m.SetTTL(ctx, cache.CategoryParser, "short", []byte("1"), time.Second))
	require.NoError(t, m.SetTTL(ctx, cache.CategoryParser, "long", []byte("2"), time.Hour))

	clk.Advance(2 * time.Second)

	removed, err := m.Cleanup(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, removed)

	_, found, _, _ := m.Get(ctx, cache.CategoryParser, "long")
	assert.True(t, found)
}

func TestManagerHealthStatus(t *testing.T) {
	t.Run("healthy with no traffic", func(t *testing.T) {
		clk := clock.NewManual(time.Now())
		m := newTestManager(t, clk, cache.DefaultManagerConfig())

		health := m.HealthStatus()
		assert.Equal(t, cache.StatusHealthy, health.Status)
		assert.Empty(t, health.Issues)
	})

	t.Run("degraded on low hit rate", func(t *testing.T) {
		clk := clock.NewManual(time.Now())
		m := newTestManager(t, clk, cache.DefaultManagerConfig())
		ctx := context.Background()

		for i := 0; i < 10; i++ {
			m.Get(ctx, cache.CategoryParser, "never-set")
		}

		health := m.HealthStatus()
		assert.Equal(t, cache.StatusDegraded, health.Status)
		require.Len(t, health.Issues, 1)
		assert.Contains(t, health.Issues[0], "hit rate")
	})

	t.Run("unhealthy on two issues", func(t *testing.T) {
		clk := clock.NewManual(time.Now())
		cfg := cache.DefaultManagerConfig()
		cfg.MaxEntries = 2
		m := newTestManager(t, clk, cfg)
		ctx := context.Background()

		// Issue 1: utilization 3/2 > 0.9.
		require.NoError(t, m.Set(ctx, cache.CategoryParser, "a", []byte("1")))
		require.NoError(t, m.Set(ctx, cache.CategoryParser, "b", []byte("2")))
		require.NoError(t, m.Set(ctx, cache.CategoryParser, "c", []byte("3")))

		// Issue 2: hit rate 0 over 10 reads.
		for i := 0; i < 10; i++ {
			m.Get(ctx, cache.CategoryParser, "never-set")
		}

		health := m.HealthStatus()
		assert.Equal(t, cache.StatusUnhealthy, health.Status)
		assert.Len(t, health.Issues, 2)
	})
}

func TestManagerShutdownRejectsOperations(t *testing.T) {
	clk := clock.NewManual(time.Now())
	cfg := cache.DefaultManagerConfig()
	cfg.SweepInterval = 0
	m, err := cache.NewManager(cache.NewMemoryStore(), clk, logger.NewNop(), cfg)
	require.NoError(t, err)

	require.NoError(t, m.Shutdown(context.Background()))
	require.NoError(t, m.Shutdown(context.Background())) // idempotent

	ctx := context.Background()
	_, _, _, err = m.Get(ctx, cache.CategoryParser, "k")
	assert.ErrorIs(t, err, cache.ErrClosed)
	assert.ErrorIs(t, m.Set(ctx, cache.CategoryParser, "k", nil), cache.ErrClosed)
	_, err = m.InvalidateByPattern(ctx, "*", "r")
	assert.ErrorIs(t, err, cache.ErrClosed)
}

func TestManagerCategoryAccessors(t *testing.T) {
	clk := clock.NewManual(time.Now())
	m := newTestManager(t, clk, cache.DefaultManagerConfig())
	ctx := context.Background()

	require.NoError(t, m.SetParserResult(ctx, "p", []byte("parsed")))
	require.NoError(t, m.SetAIResult(ctx, "a", []byte("enhanced")))
	require.NoError(t, m.SetGenerated(ctx, "g", []byte("rendered")))
	require.NoError(t, m.SetSession(ctx, "s", []byte("session")))
	require.NoError(t, m.SetRecovery(ctx, "hash", []byte("decision"), time.Minute))

	value, found, err := m.GetParserResult(ctx, "p")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, []byte("parsed"), value)

	_, found, err = m.GetRecovery(ctx, "hash")
	require.NoError(t, err)
	assert.True(t, found)

	// Recovery entries honor the explicit TTL.
	clk.Advance(2 * time.Minute)
	_, found, err = m.GetRecovery(ctx, "hash")
	require.NoError(t, err)
	assert.False(t, found)
}
