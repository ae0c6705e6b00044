package cache

import (
	"context"
	"time"
)

// Per-category convenience accessors. They exist so call sites read as
// domain operations instead of category plumbing; all of them delegate to
// Get/Set/SetTTL.

// GetParserResult returns a cached parse result.
func (m *Manager) GetParserResult(ctx context.Context, key string) ([]byte, bool, error) {
	value, found, _, err := m.Get(ctx, CategoryParser, key)
	return value, found, err
}

// SetParserResult caches a parse result under the parser default TTL.
func (m *Manager) SetParserResult(ctx context.Context, key string, value []byte) error {
	return m.Set(ctx, CategoryParser, key, value)
}

// GetAIResult returns a cached enhancement result.
func (m *Manager) GetAIResult(ctx context.Context, key string) ([]byte, bool, error) {
	value, found, _, err := m.Get(ctx, CategoryAI, key)
	return value, found, err
}

// SetAIResult caches an enhancement result under the ai default TTL.
func (m *Manager) SetAIResult(ctx context.Context, key string, value []byte) error {
	return m.Set(ctx, CategoryAI, key, value)
}

// GetGenerated returns cached rendered output.
func (m *Manager) GetGenerated(ctx context.Context, key string) ([]byte, bool, error) {
	value, found, _, err := m.Get(ctx, CategoryGeneration, key)
	return value, found, err
}

// SetGenerated caches rendered output under the generation default TTL.
func (m *Manager) SetGenerated(ctx context.Context, key string, value []byte) error {
	return m.Set(ctx, CategoryGeneration, key, value)
}

// GetSession returns cached session state.
func (m *Manager) GetSession(ctx context.Context, key string) ([]byte, bool, error) {
	value, found, _, err := m.Get(ctx, CategorySession, key)
	return value, found, err
}

// SetSession caches session state under the session default TTL.
func (m *Manager) SetSession(ctx context.Context, key string, value []byte) error {
	return m.Set(ctx, CategorySession, key, value)
}

// GetRecovery returns a cached recovery decision for an error hash.
func (m *Manager) GetRecovery(ctx context.Context, errorHash string) ([]byte, bool, error) {
	value, found, _, err := m.Get(ctx, CategoryRecovery, errorHash)
	return value, found, err
}

// SetRecovery caches a recovery decision. The error handler passes its own
// TTL so recovery caching honors the handler's cache window rather than
// the category default.
func (m *Manager) SetRecovery(ctx context.Context, errorHash string, value []byte, ttl time.Duration) error {
	return m.SetTTL(ctx, CategoryRecovery, errorHash, value, ttl)
}
