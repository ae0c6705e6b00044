package config

import (
	"time"

	"github.com/knadh/koanf/v2"

	redisstore "github.com/docforge/docforge/cache/redis"
)

// Environment constants.
const (
	EnvDevelopment = "development"
	EnvStaging     = "staging"
	EnvProduction  = "production"
)

// Cache backend constants.
const (
	BackendMemory = "memory"
	BackendRedis  = "redis"
)

// Config is the full application configuration. The embedded koanf
// instance gives access to keys not covered by the typed sections.
type Config struct {
	App      AppConfig      `koanf:"app"`
	Log      LogConfig      `koanf:"log"`
	Cache    CacheConfig    `koanf:"cache"`
	Recovery RecoveryConfig `koanf:"recovery"`
	Docs     DocsConfig     `koanf:"docs"`

	k *koanf.Koanf
}

// AppConfig holds general application settings.
type AppConfig struct {
	Name    string `koanf:"name" validate:"required"`
	Version string `koanf:"version" validate:"required"`
	Env     string `koanf:"env" validate:"oneof=development staging production"`
	Debug   bool   `koanf:"debug"`
}

// LogConfig holds logging preferences.
type LogConfig struct {
	Level  string `koanf:"level" validate:"oneof=trace debug info warn error fatal disabled"`
	Pretty bool   `koanf:"pretty"`
}

// CacheConfig selects and tunes the cache backend.
type CacheConfig struct {
	// Backend chooses the store implementation.
	Backend string `koanf:"backend" validate:"oneof=memory redis"`

	// MaxEntries caps stored entries; utilization feeds health checks.
	MaxEntries int `koanf:"max_entries" validate:"min=1"`

	// SweepInterval is how often the background cleanup pass runs.
	// Zero disables the sweeper.
	SweepInterval time.Duration `koanf:"sweep_interval" validate:"min=0"`

	// KeyPrefix namespaces storage keys.
	KeyPrefix string `koanf:"key_prefix"`

	// TTL holds per-category expiry overrides. Zero values fall back to
	// the built-in defaults.
	TTL TTLConfig `koanf:"ttl"`

	// Health holds the thresholds the cache health check evaluates.
	Health HealthConfig `koanf:"health"`

	// Redis is only consulted when Backend is "redis".
	Redis redisstore.Config `koanf:"redis"`
}

// TTLConfig holds per-category TTL overrides.
type TTLConfig struct {
	Parser     time.Duration `koanf:"parser" validate:"min=0"`
	AI         time.Duration `koanf:"ai" validate:"min=0"`
	Generation time.Duration `koanf:"generation" validate:"min=0"`
	Session    time.Duration `koanf:"session" validate:"min=0"`
	Recovery   time.Duration `koanf:"recovery" validate:"min=0"`
}

// HealthConfig holds cache health thresholds.
type HealthConfig struct {
	MinHitRate     float64       `koanf:"min_hit_rate" validate:"min=0,max=1"`
	MaxUtilization float64       `koanf:"max_utilization" validate:"min=0,max=1"`
	MaxAvgGet      time.Duration `koanf:"max_avg_get" validate:"min=0"`
}

// RecoveryConfig tunes the error recovery pipeline.
type RecoveryConfig struct {
	// MaxRetries caps the strategist's per-key retry counter.
	MaxRetries int `koanf:"max_retries" validate:"min=1"`

	// RetryDelay is the base exponential backoff delay.
	RetryDelay time.Duration `koanf:"retry_delay" validate:"min=0"`

	// CacheResults persists successful recovery decisions in the cache.
	CacheResults bool `koanf:"cache_results"`

	// CacheResultsFor is the TTL for cached recovery decisions.
	CacheResultsFor time.Duration `koanf:"cache_results_for" validate:"min=0"`

	// Alerts holds alerting thresholds. Zero disables an alert type.
	Alerts AlertConfig `koanf:"alerts"`
}

// AlertConfig holds alert thresholds.
type AlertConfig struct {
	ErrorRate      int `koanf:"error_rate" validate:"min=0"`
	CriticalErrors int `koanf:"critical_errors" validate:"min=0"`
	SameErrorCount int `koanf:"same_error_count" validate:"min=0"`
}

// DocsConfig holds documentation pipeline settings.
type DocsConfig struct {
	// Recursive walks source directories recursively.
	Recursive bool `koanf:"recursive"`

	// Include and Exclude are glob patterns applied to file names.
	Include []string `koanf:"include"`
	Exclude []string `koanf:"exclude"`

	// Output is the directory generated documentation is written to.
	Output string `koanf:"output" validate:"required"`

	// Format selects the rendering format.
	Format string `koanf:"format" validate:"oneof=markdown json yaml"`
}

// Raw returns the underlying koanf instance for keys outside the typed
// sections. Nil until Load has run.
func (c *Config) Raw() *koanf.Koanf {
	return c.k
}

// IsProduction reports whether the app runs with the production profile.
func (c *Config) IsProduction() bool {
	return c.App.Env == EnvProduction
}
