package cache

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/docforge/docforge/cache/internal/tracking"
	"github.com/docforge/docforge/clock"
	"github.com/docforge/docforge/logger"
)

// ManagerConfig configures namespacing, health thresholds, and background
// sweeping for a Manager.
type ManagerConfig struct {
	// MaxEntries bounds the store for utilization health checks.
	// Zero disables the utilization check.
	MaxEntries int

	// SweepInterval is how often the background sweep removes expired
	// entries. Zero disables the sweep goroutine; expiry still happens
	// lazily on read.
	SweepInterval time.Duration

	// KeyPrefix namespaces storage keys inside a shared backend.
	KeyPrefix string

	// Health thresholds. Zero values fall back to package defaults.
	MinHitRate     float64
	MaxUtilization float64
	MaxAvgGet      time.Duration

	// TTLOverrides replaces the default TTL for specific categories.
	TTLOverrides map[Category]time.Duration
}

// DefaultManagerConfig returns the built-in manager settings.
func DefaultManagerConfig() ManagerConfig {
	return ManagerConfig{
		MaxEntries:     DefaultMaxEntries,
		SweepInterval:  DefaultSweepInterval,
		KeyPrefix:      DefaultStorageKeyPrefix,
		MinHitRate:     DefaultMinHitRate,
		MaxUtilization: DefaultMaxUtilization,
		MaxAvgGet:      DefaultMaxAvgGet,
	}
}

// Manager wraps a Store with category namespacing, per-category default
// TTLs, pattern invalidation with listener notification, operation
// statistics, and health reporting. All reads enforce TTL lazily: the Get
// that observes an expired entry deletes it and reports a miss.
type Manager struct {
	store Store
	clk   clock.Clock
	log   logger.Logger

	cfg  ManagerConfig
	ttls map[Category]time.Duration

	mu    sync.Mutex
	stats statsState

	listeners *listenerRegistry

	closed    atomic.Bool
	closeCh   chan struct{}
	closeOnce sync.Once
}

// NewManager creates a cache manager over the given store. When
// cfg.SweepInterval is positive, a background goroutine sweeps expired
// entries until Shutdown.
func NewManager(store Store, clk clock.Clock, log logger.Logger, cfg ManagerConfig) (*Manager, error) {
	if store == nil {
		return nil, NewConfigError("store", "store is required")
	}
	if clk == nil {
		return nil, NewConfigError("clock", "clock is required")
	}
	if log == nil {
		log = logger.NewNop()
	}
	if cfg.MaxEntries < 0 {
		return nil, NewConfigError("max_entries", "cannot be negative")
	}

	if cfg.KeyPrefix == "" {
		cfg.KeyPrefix = DefaultStorageKeyPrefix
	}
	if cfg.MinHitRate <= 0 {
		cfg.MinHitRate = DefaultMinHitRate
	}
	if cfg.MaxUtilization <= 0 {
		cfg.MaxUtilization = DefaultMaxUtilization
	}
	if cfg.MaxAvgGet <= 0 {
		cfg.MaxAvgGet = DefaultMaxAvgGet
	}

	ttls := defaultTTLs()
	for category, ttl := range cfg.TTLOverrides {
		if !category.Valid() {
			return nil, NewConfigError("ttl_overrides", fmt.Sprintf("unknown category %q", category))
		}
		ttls[category] = ttl
	}

	m := &Manager{
		store:     store,
		clk:       clk,
		log:       log,
		cfg:       cfg,
		ttls:      ttls,
		listeners: newListenerRegistry(),
		closeCh:   make(chan struct{}),
	}

	if cfg.SweepInterval > 0 {
		go m.sweepLoop(cfg.SweepInterval)
	}

	return m, nil
}

// TTLFor returns the effective default TTL for a category.
func (m *Manager) TTLFor(category Category) time.Duration {
	return m.ttls[category]
}

// Get looks up a value by category and key. Expired entries are deleted on
// discovery and reported as misses. The elapsed duration is returned so
// callers can attribute latency without re-measuring.
func (m *Manager) Get(ctx context.Context, category Category, key string) (value []byte, found bool, elapsed time.Duration, err error) {
	if m.closed.Load() {
		return nil, false, 0, ErrClosed
	}
	if !category.Valid() {
		return nil, false, 0, ErrUnknownCategory
	}

	logicalKey := CompositeKey(category, key)
	start := m.clk.Now()

	entry, getErr := m.store.Get(ctx, storageKey(m.cfg.KeyPrefix, logicalKey))

	switch {
	case getErr == nil && entry.Expired(m.clk.Now()):
		// Lazy expiry: physically remove the entry on the read that
		// discovered it.
		if delErr := m.store.Delete(ctx, storageKey(m.cfg.KeyPrefix, logicalKey)); delErr != nil {
			m.log.Warn().Err(delErr).Str("key", logicalKey).Msg("failed to delete expired cache entry")
		}
		entry, getErr = nil, ErrNotFound
	case getErr != nil && !isNotFound(getErr):
		elapsed = m.clk.Now().Sub(start)
		m.recordGet(elapsed, false)
		tracking.RecordOperation(ctx, tracking.OpGet, string(category), elapsed, false, getErr)
		return nil, false, elapsed, NewOperationError("get", logicalKey, getErr)
	}

	elapsed = m.clk.Now().Sub(start)
	hit := getErr == nil
	m.recordGet(elapsed, hit)
	tracking.RecordOperation(ctx, tracking.OpGet, string(category), elapsed, hit, nil)

	if !hit {
		return nil, false, elapsed, nil
	}
	return entry.Value, true, elapsed, nil
}

// Set stores a value under the category's default TTL.
func (m *Manager) Set(ctx context.Context, category Category, key string, value []byte) error {
	return m.SetTTL(ctx, category, key, value, m.ttls[category])
}

// SetTTL stores a value with an explicit TTL. A zero TTL stores the entry
// without expiry; negative TTLs are rejected.
func (m *Manager) SetTTL(ctx context.Context, category Category, key string, value []byte, ttl time.Duration) error {
	if m.closed.Load() {
		return ErrClosed
	}
	if !category.Valid() {
		return ErrUnknownCategory
	}
	if ttl < 0 {
		return ErrInvalidTTL
	}

	logicalKey := CompositeKey(category, key)
	now := m.clk.Now()

	entry := &Entry{
		Key:         logicalKey,
		Value:       value,
		CreatedAt:   now,
		ContentHash: HashBytes(value),
	}
	if ttl > 0 {
		expires := now.Add(ttl)
		entry.ExpiresAt = &expires
	}

	start := m.clk.Now()
	err := m.store.Set(ctx, storageKey(m.cfg.KeyPrefix, logicalKey), entry)
	elapsed := m.clk.Now().Sub(start)

	m.recordSet(elapsed)
	tracking.RecordOperation(ctx, tracking.OpSet, string(category), elapsed, false, err)

	if err != nil {
		return NewOperationError("set", logicalKey, err)
	}
	return nil
}

// Delete removes a single entry. Deleting a missing key is not an error.
func (m *Manager) Delete(ctx context.Context, category Category, key string) error {
	if m.closed.Load() {
		return ErrClosed
	}
	if !category.Valid() {
		return ErrUnknownCategory
	}

	logicalKey := CompositeKey(category, key)
	start := m.clk.Now()
	err := m.store.Delete(ctx, storageKey(m.cfg.KeyPrefix, logicalKey))
	elapsed := m.clk.Now().Sub(start)

	m.mu.Lock()
	m.stats.deletes++
	m.mu.Unlock()
	tracking.RecordOperation(ctx, tracking.OpDelete, string(category), elapsed, false, err)

	if err != nil {
		return NewOperationError("delete", logicalKey, err)
	}
	return nil
}

// InvalidateByPattern removes every entry whose logical key matches the
// pattern and notifies invalidation listeners. The pattern is applied as a
// regular expression after substituting `*` with `.*`; other characters
// are passed through unescaped, so regex metacharacters in keys can cause
// broader matches than intended. Returns the number of keys removed.
func (m *Manager) InvalidateByPattern(ctx context.Context, pattern, reason string) (int, error) {
	if m.closed.Load() {
		return 0, ErrClosed
	}

	re, err := regexp.Compile(strings.ReplaceAll(pattern, "*", ".*"))
	if err != nil {
		return 0, fmt.Errorf("invalid invalidation pattern %q: %w", pattern, err)
	}

	start := m.clk.Now()
	removed, err := m.invalidateMatching(ctx, func(logicalKey string) bool {
		return re.MatchString(logicalKey)
	})
	elapsed := m.clk.Now().Sub(start)

	m.recordInvalidation(elapsed)
	tracking.RecordInvalidation(ctx, EventPatternInvalidation, len(removed))

	if err != nil {
		return len(removed), err
	}

	m.emit(InvalidationEvent{
		Type:      EventPatternInvalidation,
		Keys:      removed,
		Reason:    reason,
		Timestamp: m.clk.Now(),
	})

	m.log.Debug().
		Str("pattern", pattern).
		Str("reason", reason).
		Int("removed", len(removed)).
		Msg("cache invalidation by pattern")

	return len(removed), nil
}

// InvalidateOnSourceChange removes entries whose logical key contains the
// content hash of the file at path. Callers that key cached results by
// source content hash get coarse dependency invalidation out of this; it
// is best-effort, not exact dependency tracking. When the file is
// unreadable the hash of the path string is used instead.
func (m *Manager) InvalidateOnSourceChange(ctx context.Context, path string) (int, error) {
	if m.closed.Load() {
		return 0, ErrClosed
	}

	hash := HashFile(path)

	start := m.clk.Now()
	removed, err := m.invalidateMatching(ctx, func(logicalKey string) bool {
		return strings.Contains(logicalKey, hash)
	})
	elapsed := m.clk.Now().Sub(start)

	m.recordInvalidation(elapsed)
	tracking.RecordInvalidation(ctx, EventSourceInvalidation, len(removed))

	if err != nil {
		return len(removed), err
	}

	m.emit(InvalidationEvent{
		Type:      EventSourceInvalidation,
		Keys:      removed,
		Reason:    "source changed: " + path,
		Timestamp: m.clk.Now(),
	})

	return len(removed), nil
}

// invalidateMatching deletes every entry whose logical key satisfies the
// predicate and returns the removed logical keys.
func (m *Manager) invalidateMatching(ctx context.Context, match func(string) bool) ([]string, error) {
	storageKeys, err := m.store.Keys(ctx, m.cfg.KeyPrefix)
	if err != nil {
		return nil, NewOperationError("keys", m.cfg.KeyPrefix+"*", err)
	}

	var removed []string
	for _, sk := range storageKeys {
		entry, err := m.store.Get(ctx, sk)
		if err != nil {
			continue // deleted by a concurrent caller; nothing to invalidate
		}
		if !match(entry.Key) {
			continue
		}
		if err := m.store.Delete(ctx, sk); err != nil {
			return removed, NewOperationError("delete", entry.Key, err)
		}
		removed = append(removed, entry.Key)
	}
	return removed, nil
}

// Cleanup removes every expired entry. The background sweep calls this on
// a timer; it is also safe to invoke directly.
func (m *Manager) Cleanup(ctx context.Context) (int, error) {
	if m.closed.Load() {
		return 0, ErrClosed
	}

	storageKeys, err := m.store.Keys(ctx, m.cfg.KeyPrefix)
	if err != nil {
		return 0, NewOperationError("keys", m.cfg.KeyPrefix+"*", err)
	}

	now := m.clk.Now()
	removed := 0
	for _, sk := range storageKeys {
		entry, err := m.store.Get(ctx, sk)
		if err != nil {
			continue
		}
		if !entry.Expired(now) {
			continue
		}
		if err := m.store.Delete(ctx, sk); err != nil {
			return removed, NewOperationError("delete", entry.Key, err)
		}
		removed++
	}

	if removed > 0 {
		m.log.Debug().Int("removed", removed).Msg("cache sweep removed expired entries")
	}
	return removed, nil
}

// Stats returns a snapshot of counters, running averages, and hit rate.
func (m *Manager) Stats() Stats {
	entries := 0
	if n, err := m.store.Len(context.Background()); err == nil {
		entries = n
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	return m.stats.snapshot(entries)
}

// HealthStatus recomputes health from the current stats. One issue means
// degraded, two or more mean unhealthy. The hit-rate check only applies
// once enough reads have been observed to make the rate meaningful.
func (m *Manager) HealthStatus() HealthStatus {
	stats := m.Stats()

	var issues []string

	if stats.Gets >= healthMinSamples && stats.HitRate < m.cfg.MinHitRate {
		issues = append(issues, fmt.Sprintf("hit rate %.2f below %.2f", stats.HitRate, m.cfg.MinHitRate))
	}

	if m.cfg.MaxEntries > 0 {
		utilization := float64(stats.Entries) / float64(m.cfg.MaxEntries)
		if utilization > m.cfg.MaxUtilization {
			issues = append(issues, fmt.Sprintf("storage utilization %.2f above %.2f", utilization, m.cfg.MaxUtilization))
		}
	}

	if stats.AvgGet > m.cfg.MaxAvgGet {
		issues = append(issues, fmt.Sprintf("average get time %s above %s", stats.AvgGet, m.cfg.MaxAvgGet))
	}

	status := StatusHealthy
	switch {
	case len(issues) >= 2:
		status = StatusUnhealthy
	case len(issues) == 1:
		status = StatusDegraded
	}

	return HealthStatus{
		Status:    status,
		Issues:    issues,
		LastCheck: m.clk.Now(),
	}
}

// On registers an invalidation listener and returns a handle for Off.
func (m *Manager) On(eventType string, fn ListenerFunc) int {
	return m.listeners.add(eventType, fn)
}

// Off removes a previously registered listener.
func (m *Manager) Off(eventType string, id int) {
	m.listeners.remove(eventType, id)
}

// Shutdown stops the background sweep and closes the store. Subsequent
// operations return ErrClosed.
func (m *Manager) Shutdown(_ context.Context) error {
	var err error
	m.closeOnce.Do(func() {
		m.closed.Store(true)
		close(m.closeCh)
		err = m.store.Close()
	})
	return err
}

func (m *Manager) sweepLoop(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if _, err := m.Cleanup(context.Background()); err != nil {
				m.log.Warn().Err(err).Msg("cache sweep failed")
			}
		case <-m.closeCh:
			return
		}
	}
}

func (m *Manager) emit(ev InvalidationEvent) {
	m.listeners.emit(ev)
}

func (m *Manager) recordGet(elapsed time.Duration, hit bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.stats.gets++
	if hit {
		m.stats.hits++
	} else {
		m.stats.misses++
	}
	m.stats.getTime.add(elapsed)
}

func (m *Manager) recordSet(elapsed time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.stats.sets++
	m.stats.setTime.add(elapsed)
}

func (m *Manager) recordInvalidation(elapsed time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.stats.invalidations++
	m.stats.invalidationTime.add(elapsed)
}

func isNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
