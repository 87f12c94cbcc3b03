// Package storage defines the key-value store that holds every durable
// record of the authorization server: registered clients, authorization
// codes and bearer tokens. All records are plain values under opaque
// string keys; expiry is enforced by the store itself via per-key TTLs.
package storage

import (
	"context"
	"time"
)

// Storage is the single source of truth for the authorization server.
// Implementations must be safe for concurrent use and provide at least
// per-key atomicity for individual reads and writes. No cross-key
// transaction is assumed anywhere in this module.
type Storage interface {
	// Get retrieves the item stored under key.
	// Returns a nil Item if the key doesn't exist or has expired.
	// Returns error only for legitimate storage system failures.
	Get(ctx context.Context, key string) (*Item, error)

	// Set stores data under key. Options may attach a TTL; without one
	// the key never expires.
	Set(ctx context.Context, key string, data []byte, opts ...Option) error

	// Delete removes the key. Deleting an absent key is not an error.
	Delete(ctx context.Context, key string) error

	// Close closes the storage backend and releases resources.
	Close() error
}

// Item represents a stored piece of data with expiry metadata.
type Item struct {
	Data      []byte     // The stored data
	CreatedAt time.Time  // When the item was created
	ExpiresAt *time.Time // When the item expires (nil = no expiration)
}

// IsExpired checks if the item has expired.
func (it *Item) IsExpired() bool {
	return it.ExpiresAt != nil && time.Now().After(*it.ExpiresAt)
}

// Option configures storage operations.
type Option func(*Options)

// Options contains configuration for storage operations.
type Options struct {
	TTL *time.Duration // Optional: time-to-live for the data
}

// WithTTL sets a time-to-live for the stored data. After the TTL
// elapses the key reads back as absent, identically to a key that was
// never written.
func WithTTL(ttl time.Duration) Option {
	return func(opts *Options) {
		opts.TTL = &ttl
	}
}
