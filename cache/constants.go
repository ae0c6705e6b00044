package cache

import "time"

// Default TTLs per category. All of them can be overridden per call and
// remapped wholesale through ManagerConfig.TTLOverrides.
const (
	DefaultParserTTL     = time.Hour
	DefaultAITTL         = 2 * time.Hour
	DefaultGenerationTTL = time.Hour
	DefaultSessionTTL    = 30 * time.Minute
	DefaultRecoveryTTL   = 5 * time.Minute
)

// Manager defaults.
const (
	// DefaultMaxEntries bounds the store before health reports high
	// utilization. Zero means unbounded (utilization is never flagged).
	DefaultMaxEntries = 10000

	// DefaultSweepInterval is how often the background sweep removes
	// expired entries that no read has touched.
	DefaultSweepInterval = 5 * time.Minute

	// DefaultStorageKeyPrefix namespaces this module's records inside a
	// shared backend such as Redis.
	DefaultStorageKeyPrefix = "docforge:"
)

// Health thresholds (see Manager.HealthStatus).
const (
	// DefaultMinHitRate is the hit rate below which the cache is
	// considered degraded.
	DefaultMinHitRate = 0.6

	// DefaultMaxUtilization is the fill ratio above which the cache is
	// considered degraded.
	DefaultMaxUtilization = 0.9

	// DefaultMaxAvgGet is the average read latency above which the cache
	// is considered degraded.
	DefaultMaxAvgGet = 100 * time.Millisecond

	// healthMinSamples is the number of reads required before the hit
	// rate is meaningful enough to flag.
	healthMinSamples = 10
)

// defaultTTLs returns the built-in category TTL table.
func defaultTTLs() map[Category]time.Duration {
	return map[Category]time.Duration{
		CategoryParser:     DefaultParserTTL,
		CategoryAI:         DefaultAITTL,
		CategoryGeneration: DefaultGenerationTTL,
		CategorySession:    DefaultSessionTTL,
		CategoryRecovery:   DefaultRecoveryTTL,
	}
}
