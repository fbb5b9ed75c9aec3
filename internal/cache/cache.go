// Package cache provides the key-value abstraction used for ephemeral state:
// client sessions, PKCE verifier stashes and rate-limit windows.
//
// Backends:
//   - Memory (in-process, for development/testing)
//   - Redis (distributed, for production)
//
// TTL enforcement is the backend's job: an expired key is never readable,
// regardless of whether anyone deleted it.
package cache

import (
	"context"
	"time"
)

// Client defines the cache operations.
type Client interface {
	// Get returns a value. Returns ErrNotFound if missing or expired.
	Get(ctx context.Context, key string) (string, error)

	// Set stores a value with a TTL. A ttl of 0 means no expiry.
	Set(ctx context.Context, key, value string, ttl time.Duration) error

	// Delete removes a key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error

	// GetDel atomically reads and removes a key, so concurrent callers
	// cannot both observe the same value. Returns ErrNotFound if missing
	// or expired.
	GetDel(ctx context.Context, key string) (string, error)

	// TTL returns the remaining lifetime of a key.
	// Returns ErrNotFound if the key is missing or expired; 0 if it has no expiry.
	TTL(ctx context.Context, key string) (time.Duration, error)

	// Ping verifies the connection.
	Ping(ctx context.Context) error

	// Close releases the backend connection.
	Close() error
}

// Config selects and configures a backend.
type Config struct {
	Driver string // "memory" | "redis"
	Addr   string
	DB     int
	Prefix string // prepended to every key
}

// ErrNotFound indicates the key does not exist (or has expired).
var ErrNotFound = errNotFound{}

type errNotFound struct{}

func (errNotFound) Error() string { return "cache: key not found" }

// IsNotFound reports whether err means the key was absent.
func IsNotFound(err error) bool {
	_, ok := err.(errNotFound)
	return ok
}
