package cache

import (
	"errors"
	"fmt"
)

// Sentinel errors for common cache conditions.
// Use errors.Is() to check for them.
var (
	// ErrNotFound is returned when a key doesn't exist or has expired.
	// Not a fatal condition; callers should treat it as a cache miss.
	ErrNotFound = errors.New("cache: key not found")

	// ErrClosed is returned when operating on a shut-down store or manager.
	ErrClosed = errors.New("cache: closed")

	// ErrInvalidTTL is returned for negative TTL values.
	ErrInvalidTTL = errors.New("cache: invalid TTL")

	// ErrUnknownCategory is returned when a key uses a category outside the
	// known namespaces.
	ErrUnknownCategory = errors.New("cache: unknown category")
)

// OperationError wraps a failure of a single store operation with the
// operation name and the storage key involved.
type OperationError struct {
	Op  string
	Key string
	Err error
}

// Error implements the error interface.
func (e *OperationError) Error() string {
	return fmt.Sprintf("cache operation error: %s failed for key %q: %v", e.Op, e.Key, e.Err)
}

// Unwrap returns the underlying error for errors.Is/As support.
func (e *OperationError) Unwrap() error {
	return e.Err
}

// NewOperationError creates a new operation error.
func NewOperationError(op, key string, err error) *OperationError {
	return &OperationError{Op: op, Key: key, Err: err}
}

// ConnectionError represents a backend connection failure. These may be
// transient and are worth retrying.
type ConnectionError struct {
	Op      string
	Address string
	Err     error
}

// Error implements the error interface.
func (e *ConnectionError) Error() string {
	return fmt.Sprintf("cache connection error: %s failed for %s: %v", e.Op, e.Address, e.Err)
}

// Unwrap returns the underlying error for errors.Is/As support.
func (e *ConnectionError) Unwrap() error {
	return e.Err
}

// NewConnectionError creates a new connection error.
func NewConnectionError(op, address string, err error) *ConnectionError {
	return &ConnectionError{Op: op, Address: address, Err: err}
}

// ConfigError represents an invalid cache configuration. These are
// fail-fast and surface at construction time.
type ConfigError struct {
	Field   string
	Message string
}

// Error implements the error interface.
func (e *ConfigError) Error() string {
	return fmt.Sprintf("cache configuration error: %s: %s", e.Field, e.Message)
}

// NewConfigError creates a new configuration error.
func NewConfigError(field, message string) *ConfigError {
	return &ConfigError{Field: field, Message: message}
}
