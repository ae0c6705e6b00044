// Package redis provides a Redis-backed cache.Store for deployments where
// cached parse and generation results are shared across processes.
package redis

import (
	"fmt"
	"time"

	"github.com/docforge/docforge/cache"
)

// Config holds Redis connection options.
type Config struct {
	// Host is the Redis server hostname or IP address.
	Host string `koanf:"host" validate:"required"`

	// Port is the Redis server port.
	Port int `koanf:"port" validate:"min=1,max=65535"`

	// Password for Redis authentication (optional).
	Password string `koanf:"password"`

	// Database number to use (0-15).
	Database int `koanf:"database" validate:"min=0,max=15"`

	// PoolSize is the maximum number of socket connections.
	PoolSize int `koanf:"pool_size"`

	// DialTimeout is the timeout for establishing new connections.
	DialTimeout time.Duration `koanf:"dial_timeout"`

	// ReadTimeout is the timeout for socket reads. -1 disables it.
	ReadTimeout time.Duration `koanf:"read_timeout"`

	// WriteTimeout is the timeout for socket writes. -1 disables it.
	WriteTimeout time.Duration `koanf:"write_timeout"`

	// KeyPrefix must match the manager's storage key prefix; Len counts
	// only keys under it so a shared database stays countable.
	KeyPrefix string `koanf:"key_prefix"`
}

// DefaultConfig returns connection defaults for a local Redis.
func DefaultConfig() Config {
	return Config{
		Host:         "localhost",
		Port:         6379,
		Database:     0,
		PoolSize:     10,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
		KeyPrefix:    cache.DefaultStorageKeyPrefix,
	}
}

// Address returns the host:port dial address.
func (c *Config) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// Validate performs fail-fast validation of the configuration.
func (c *Config) Validate() error {
	if c.Host == "" {
		return cache.NewConfigError("redis.host", "host is required")
	}
	if c.Port <= 0 || c.Port > 65535 {
		return cache.NewConfigError("redis.port", fmt.Sprintf("invalid port: %d", c.Port))
	}
	if c.Database < 0 || c.Database > 15 {
		return cache.NewConfigError("redis.database", fmt.Sprintf("invalid database number: %d (must be 0-15)", c.Database))
	}
	if c.PoolSize <= 0 {
		return cache.NewConfigError("redis.pool_size", fmt.Sprintf("invalid pool size: %d (must be > 0)", c.PoolSize))
	}
	if c.DialTimeout < 0 {
		return cache.NewConfigError("redis.dial_timeout", "dial timeout cannot be negative")
	}
	if c.ReadTimeout < -1 {
		return cache.NewConfigError("redis.read_timeout", "read timeout cannot be less than -1")
	}
	if c.WriteTimeout < -1 {
		return cache.NewConfigError("redis.write_timeout", "write timeout cannot be less than -1")
	}
	return nil
}
