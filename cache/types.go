// Package cache implements the pipeline's TTL key-value cache: a
// store-agnostic persistence interface, category-namespaced manager with
// pattern invalidation, per-operation statistics, and health reporting.
package cache

import (
	"context"
	"time"
)

// Category partitions the cache into logical namespaces, each with its own
// default TTL.
type Category string

// Known cache categories.
const (
	CategoryParser     Category = "parser"
	CategoryAI         Category = "ai"
	CategoryGeneration Category = "generation"
	CategorySession    Category = "session"
	CategoryRecovery   Category = "error_recovery"
)

// Categories lists every known category in a stable order.
func Categories() []Category {
	return []Category{
		CategoryParser,
		CategoryAI,
		CategoryGeneration,
		CategorySession,
		CategoryRecovery,
	}
}

// Valid reports whether c is a known category.
func (c Category) Valid() bool {
	switch c {
	case CategoryParser, CategoryAI, CategoryGeneration, CategorySession, CategoryRecovery:
		return true
	}
	return false
}

// Entry is a single persisted cache record. Key is the logical
// `category:subkey` composite; the store indexes entries by a hash of it.
// A nil ExpiresAt means the entry never expires. Expiry is enforced
// lazily: the read that observes an expired entry deletes it.
type Entry struct {
	Key         string     `cbor:"1,keyasint"`
	Value       []byte     `cbor:"2,keyasint"`
	CreatedAt   time.Time  `cbor:"3,keyasint"`
	ExpiresAt   *time.Time `cbor:"4,keyasint,omitempty"`
	ContentHash string     `cbor:"5,keyasint"`
}

// Expired reports whether the entry is logically absent at the given time.
func (e *Entry) Expired(now time.Time) bool {
	return e.ExpiresAt != nil && !now.Before(*e.ExpiresAt)
}

// Store persists cache entries keyed by their hashed storage key.
// Implementations must be safe for concurrent use. Stores are dumb: TTL
// interpretation, statistics, and invalidation live in the Manager.
type Store interface {
	// Get returns the entry for the storage key, or ErrNotFound.
	Get(ctx context.Context, storageKey string) (*Entry, error)

	// Set writes the entry, overwriting any existing one.
	Set(ctx context.Context, storageKey string, entry *Entry) error

	// Delete removes the entry. Deleting a missing key is not an error.
	Delete(ctx context.Context, storageKey string) error

	// Keys returns every storage key with the given prefix.
	Keys(ctx context.Context, prefix string) ([]string, error)

	// Len returns the number of stored entries.
	Len(ctx context.Context) (int, error)

	// Close releases backend resources. The store is unusable afterwards.
	Close() error
}
