// Package cache provides the expiring key-value stores used for alert
// deduplication and derived statistics.
package cache

import (
	"context"
	"time"
)

// Store is a generic expiring key-value store.
type Store interface {
	// Get returns the value for key. found is false when the key is missing or expired.
	Get(ctx context.Context, key string) (value []byte, found bool, err error)

	// Set stores value under key for ttl, replacing any existing entry.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// SetNX stores value only if key is absent. It reports whether the value was stored.
	// The check and the write are atomic.
	SetNX(ctx context.Context, key string, value []byte, ttl time.Duration) (bool, error)

	// SetIf stores value when key is absent or when replace returns true for the
	// current value. It reports whether the value was stored. The check and the
	// write are atomic.
	SetIf(ctx context.Context, key string, value []byte, ttl time.Duration, replace func(current []byte) bool) (bool, error)

	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error

	// Close releases resources.
	Close() error
}
