package redis

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfigValid(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, "localhost:6379", cfg.Address())
}

func TestConfigValidation(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"missing host", func(c *Config) { c.Host = "" }},
		{"port zero", func(c *Config) { c.Port = 0 }},
		{"port too high", func(c *Config) { c.Port = 70000 }},
		{"negative database", func(c *Config) { c.Database = -1 }},
		{"database too high", func(c *Config) { c.Database = 16 }},
		{"pool size zero", func(c *Config) { c.PoolSize = 0 }},
		{"negative dial timeout", func(c *Config) { c.DialTimeout = -1 }},
		{"read timeout below -1", func(c *Config) { c.ReadTimeout = -2 }},
		{"write timeout below -1", func(c *Config) { c.WriteTimeout = -2 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}
