package config

import (
	"time"

	"github.com/docforge/docforge/cache"
	"github.com/docforge/docforge/recovery"
)

// CacheManagerConfig translates the cache section into the manager's
// native configuration.
func (c *Config) CacheManagerConfig() cache.ManagerConfig {
	return cache.ManagerConfig{
		MaxEntries:     c.Cache.MaxEntries,
		SweepInterval:  c.Cache.SweepInterval,
		KeyPrefix:      c.Cache.KeyPrefix,
		MinHitRate:     c.Cache.Health.MinHitRate,
		MaxUtilization: c.Cache.Health.MaxUtilization,
		MaxAvgGet:      c.Cache.Health.MaxAvgGet,
		TTLOverrides: ttlOverrides(c.Cache.TTL),
	}
}

// ttlOverrides keeps only the categories with an explicit override so
// zero values fall back to the manager's defaults.
func ttlOverrides(ttl TTLConfig) map[cache.Category]time.Duration {
	out := make(map[cache.Category]time.Duration)
	set := func(category cache.Category, d time.Duration) {
		if d > 0 {
			out[category] = d
		}
	}
	set(cache.CategoryParser, ttl.Parser)
	set(cache.CategoryAI, ttl.AI)
	set(cache.CategoryGeneration, ttl.Generation)
	set(cache.CategorySession, ttl.Session)
	set(cache.CategoryRecovery, ttl.Recovery)
	return out
}

// HandlerConfig translates the recovery section into the handler's
// native configuration.
func (c *Config) HandlerConfig() recovery.HandlerConfig {
	return recovery.HandlerConfig{
		CacheResults:    c.Recovery.CacheResults,
		CacheResultsFor: c.Recovery.CacheResultsFor,
		Strategist: recovery.StrategistConfig{
			MaxRetries: c.Recovery.MaxRetries,
			RetryDelay: c.Recovery.RetryDelay,
		},
		Thresholds: recovery.AlertThresholds{
			ErrorRate:      c.Recovery.Alerts.ErrorRate,
			CriticalErrors: c.Recovery.Alerts.CriticalErrors,
			SameErrorCount: c.Recovery.Alerts.SameErrorCount,
		},
	}
}
