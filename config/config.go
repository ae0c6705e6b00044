// Package config loads application configuration from defaults, an
// optional YAML file, and DOCFORGE_-prefixed environment variables, in
// increasing priority.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	envprovider "github.com/knadh/koanf/providers/env/v2"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// envPrefix namespaces environment variables, e.g.
// DOCFORGE_CACHE_MAX_ENTRIES maps to cache.max_entries.
const envPrefix = "DOCFORGE_"

// Load builds the configuration with priority, lowest first:
// built-in defaults, then the YAML files given (missing files are
// skipped), then environment variables.
func Load(paths ...string) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(confmap.Provider(defaults(), "."), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	if len(paths) == 0 {
		paths = []string{"config.yaml"}
	}
	for _, path := range paths {
		if _, err := os.Stat(path); err != nil {
			// Config files are optional.
			continue
		}
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load %s: %w", path, err)
		}
	}

	if err := k.Load(envprovider.Provider(".", envprovider.Opt{
		Prefix: envPrefix,
		TransformFunc: func(key, value string) (string, any) {
			key = strings.TrimPrefix(key, envPrefix)
			return strings.ReplaceAll(strings.ToLower(key), "_", "."), value
		},
	}), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	cfg.k = k

	if err := Validate(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

func defaults() map[string]any {
	return map[string]any{
		"app.name":    "docforge",
		"app.version": "v1.0.0",
		"app.env":     EnvDevelopment,
		"app.debug":   false,

		"log.level":  "info",
		"log.pretty": false,

		"cache.backend":        BackendMemory,
		"cache.max_entries":    10000,
		"cache.sweep_interval": 5 * time.Minute,
		"cache.key_prefix":     "docforge:",

		"cache.ttl.parser":     time.Hour,
		"cache.ttl.ai":         2 * time.Hour,
		"cache.ttl.generation": time.Hour,
		"cache.ttl.session":    30 * time.Minute,
		"cache.ttl.recovery":   5 * time.Minute,

		"cache.health.min_hit_rate":    0.6,
		"cache.health.max_utilization": 0.9,
		"cache.health.max_avg_get":     100 * time.Millisecond,

		"cache.redis.host":          "localhost",
		"cache.redis.port":          6379,
		"cache.redis.database":      0,
		"cache.redis.pool_size":     10,
		"cache.redis.dial_timeout":  "5s",
		"cache.redis.read_timeout":  "3s",
		"cache.redis.write_timeout": "3s",
		"cache.redis.key_prefix":    "docforge:",

		"recovery.max_retries":       3,
		"recovery.retry_delay":       100 * time.Millisecond,
		"recovery.cache_results":     true,
		"recovery.cache_results_for": 5 * time.Minute,

		"recovery.alerts.error_rate":       10,
		"recovery.alerts.critical_errors":  3,
		"recovery.alerts.same_error_count": 5,

		"docs.recursive": true,
		"docs.include":   []string{"*.go"},
		"docs.exclude":   []string{"*_test.go", "vendor/*"},
		"docs.output":    "docs",
		"docs.format":    "markdown",
	}
}
