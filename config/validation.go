package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks the configuration against the struct-level rules plus
// the cross-field constraints the tags cannot express.
func Validate(cfg *Config) error {
	if err := validate.Struct(cfg); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			return describe(verrs)
		}
		return err
	}

	if cfg.Cache.Backend == BackendRedis {
		if err := cfg.Cache.Redis.Validate(); err != nil {
			return fmt.Errorf("cache.redis: %w", err)
		}
	}

	if cfg.Cache.Health.MinHitRate > 0 && cfg.Cache.Health.MaxUtilization > 0 &&
		cfg.Cache.Health.MinHitRate > cfg.Cache.Health.MaxUtilization {
		// Not contradictory in itself, but almost always a swapped pair.
		return fmt.Errorf("cache.health: min_hit_rate %.2f exceeds max_utilization %.2f",
			cfg.Cache.Health.MinHitRate, cfg.Cache.Health.MaxUtilization)
	}

	return nil
}

// describe flattens validator output into one readable error.
func describe(verrs validator.ValidationErrors) error {
	parts := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		field := strings.ToLower(strings.TrimPrefix(fe.Namespace(), "Config."))
		if fe.Param() != "" {
			parts = append(parts, fmt.Sprintf("%s failed %s=%s", field, fe.Tag(), fe.Param()))
		} else {
			parts = append(parts, fmt.Sprintf("%s failed %s", field, fe.Tag()))
		}
	}
	return fmt.Errorf("validation failed: %s", strings.Join(parts, "; "))
}
